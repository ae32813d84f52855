package defrag

import (
	"fmt"

	commonerrors "github.com/deploymenttheory/go-disk-defrag/internal/common/errors"
	"github.com/deploymenttheory/go-disk-defrag/internal/diskimage"
	"github.com/deploymenttheory/go-disk-defrag/internal/logger"
)

// Options tunes a defragmentation run
type Options struct {
	// RebuildInodeFreeList re-chains unused inode slots in ascending order.
	// When false the inode free list is carried over untouched.
	RebuildInodeFreeList bool
}

// Plan is everything derived from the input image before any output byte is written
type Plan struct {
	Superblock diskimage.Superblock
	Records    []FileRecord
	Placements []FilePlacement
	BlockMap   *BlockMap
	NextFree   int
}

// Result is a completed run. Output is only meaningful when Run returned no error.
type Result struct {
	*Plan
	Output        *diskimage.Image
	FreeBlockHead int32
	FreeInodeHead int32
}

// Analyze scans, plans and maps an image without producing output
func Analyze(in *diskimage.Image) (*Plan, error) {
	if in == nil {
		return nil, commonerrors.NewDefragError(commonerrors.ErrMissingInput, "Analyze", "image", "")
	}
	sb := in.Superblock()
	if in.DataBlockCount() > 0 && sb.BlockSize < diskimage.PointerSize {
		return nil, commonerrors.NewDefragError(commonerrors.ErrInvalidBlockSize, "Analyze", "blocksize",
			fmt.Sprintf("%d bytes cannot hold a free-list link", sb.BlockSize))
	}

	logger.LogInfo("Superblock", map[string]interface{}{
		"blocksize":    sb.BlockSize,
		"inode_offset": sb.InodeOffset,
		"data_offset":  sb.DataOffset,
		"swap_offset":  sb.SwapOffset,
		"free_inode":   sb.FreeInode,
		"free_block":   sb.FreeBlock,
		"image_bytes":  in.Len(),
	})

	views, err := ScanInodes(in)
	if err != nil {
		return nil, err
	}
	logger.LogInfo("Scanned inodes", map[string]interface{}{
		"slots": in.InodeCapacity(),
		"used":  len(views),
	})

	records, err := BuildFileRecords(views, sb)
	if err != nil {
		return nil, err
	}
	for _, rec := range records {
		logger.LogDebug("File record", map[string]interface{}{
			"inode":          rec.InodeIndex,
			"size":           rec.SizeBytes,
			"data_blocks":    rec.DataBlockCount,
			"direct":         rec.DirectCount(),
			"pointer_blocks": rec.PointerBlockCount,
		})
	}

	placements, nextFree, err := PlanLayout(records)
	if err != nil {
		return nil, err
	}
	if nextFree > in.DataBlockCount() {
		return nil, commonerrors.NewDefragError(commonerrors.ErrNoSpace, "PlanLayout", "data region",
			fmt.Sprintf("layout needs %d blocks, region has %d", nextFree, in.DataBlockCount()))
	}
	logger.LogInfo("Planned layout", map[string]interface{}{
		"files":      len(placements),
		"next_free":  nextFree,
		"total_data": in.DataBlockCount(),
	})

	bm, err := BuildBlockMap(in, records, placements)
	if err != nil {
		return nil, err
	}
	logger.LogInfo("Built block mapping", map[string]interface{}{
		"entries":        bm.Len(),
		"pointer_blocks": bm.PointerCount(),
	})

	return &Plan{
		Superblock: sb,
		Records:    records,
		Placements: placements,
		BlockMap:   bm,
		NextFree:   nextFree,
	}, nil
}

// Run defragments a whole image held in memory and returns the rewritten copy.
// The input buffer is never modified.
func Run(input []byte, opts Options) (*Result, error) {
	in, err := diskimage.New(input)
	if err != nil {
		return nil, err
	}

	plan, err := Analyze(in)
	if err != nil {
		return nil, err
	}

	// Boot block, superblock and the whole inode region carry over; file inodes
	// are then overwritten with translated pointers
	out, err := diskimage.NewBlank(in)
	if err != nil {
		return nil, err
	}
	copy(out.Header(), in.Header())

	if err := RewriteInodes(out, plan.Records, plan.BlockMap); err != nil {
		return nil, err
	}
	if err := RewritePointerBlocks(in, out, plan.BlockMap); err != nil {
		return nil, err
	}
	if err := CopyDataBlocks(in, out, plan.BlockMap); err != nil {
		return nil, err
	}

	freeBlockHead, err := RebuildFreeBlockList(out, plan.NextFree)
	if err != nil {
		return nil, err
	}

	freeInodeHead := plan.Superblock.FreeInode
	if opts.RebuildInodeFreeList {
		used := make([]int, len(plan.Records))
		for i, rec := range plan.Records {
			used[i] = rec.InodeIndex
		}
		if freeInodeHead, err = RebuildFreeInodeList(out, used); err != nil {
			return nil, err
		}
	}

	copy(out.SwapRegion(), in.SwapRegion())

	logger.LogInfo("Defragmented image", map[string]interface{}{
		"files":           len(plan.Records),
		"blocks_moved":    plan.BlockMap.Len(),
		"free_block_head": freeBlockHead,
		"free_inode_head": freeInodeHead,
	})

	return &Result{
		Plan:          plan,
		Output:        out,
		FreeBlockHead: freeBlockHead,
		FreeInodeHead: freeInodeHead,
	}, nil
}

// Inspect decodes an image and builds its plan and block mapping without
// producing output
func Inspect(input []byte) (*Plan, error) {
	in, err := diskimage.New(input)
	if err != nil {
		return nil, err
	}
	return Analyze(in)
}
