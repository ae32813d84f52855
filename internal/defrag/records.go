package defrag

import (
	"fmt"
	"math"

	commonerrors "github.com/deploymenttheory/go-disk-defrag/internal/common/errors"
	"github.com/deploymenttheory/go-disk-defrag/internal/diskimage"
)

// Indirection depths
const (
	depthData   = 0
	depthSingle = 1
	depthDouble = 2
	depthTriple = 3
)

// FileRecord is the planning view of one used inode
type FileRecord struct {
	InodeIndex        int
	SizeBytes         int32
	DataBlockCount    int
	Direct            []int32 // direct slots that hold payload
	PointerBlockCount int     // pointer blocks needed to address the non-direct payload
	Inode             diskimage.Inode
}

// DirectCount is the number of payload blocks addressed from the inode itself
func (r *FileRecord) DirectCount() int {
	return len(r.Direct)
}

// TotalBlocks is the size of the file's reserved range
func (r *FileRecord) TotalBlocks() int {
	return r.PointerBlockCount + r.DataBlockCount
}

// BuildFileRecords derives one record per used inode, preserving order
func BuildFileRecords(views []InodeView, sb diskimage.Superblock) ([]FileRecord, error) {
	records := make([]FileRecord, 0, len(views))
	for _, view := range views {
		rec, err := BuildFileRecord(view, sb)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}

// BuildFileRecord computes the payload block count of an inode and estimates,
// assuming maximally packed pointer tables, how many pointer blocks address it.
// Only the inode's pointer slots are consulted, never the pointer blocks themselves.
func BuildFileRecord(view InodeView, sb diskimage.Superblock) (FileRecord, error) {
	if sb.BlockSize <= 0 {
		return FileRecord{}, commonerrors.NewDefragError(commonerrors.ErrInvalidBlockSize, "BuildFileRecord",
			fmt.Sprintf("inode %d", view.Index), fmt.Sprintf("blocksize %d", sb.BlockSize))
	}

	in := view.Inode
	bs := int64(sb.BlockSize)
	total := 0
	if in.Size > 0 {
		total = int((int64(in.Size) + bs - 1) / bs)
	}

	rec := FileRecord{
		InodeIndex:     view.Index,
		SizeBytes:      in.Size,
		DataBlockCount: total,
		Inode:          in,
	}
	rec.Direct = make([]int32, min(total, diskimage.NDirect))
	copy(rec.Direct, in.Direct[:])

	remaining := total - rec.DirectCount()
	ppb := sb.PointersPerBlock()
	if remaining > 0 && ppb == 0 {
		return FileRecord{}, commonerrors.NewDefragError(commonerrors.ErrInvalidBlockSize, "BuildFileRecord",
			fmt.Sprintf("inode %d", view.Index), fmt.Sprintf("blocksize %d cannot hold a pointer", sb.BlockSize))
	}

	for _, slot := range in.Indirect {
		if remaining <= 0 || slot == diskimage.Sentinel {
			break
		}
		use := min(remaining, ppb)
		rec.PointerBlockCount += pointerBlocksFor(use, depthSingle, ppb)
		remaining -= use
	}

	for _, root := range []struct {
		slot  int32
		depth int
	}{
		{in.DoubleIndirect, depthDouble},
		{in.TripleIndirect, depthTriple},
	} {
		if remaining <= 0 || root.slot == diskimage.Sentinel {
			continue
		}
		use := min(remaining, capacity(root.depth, ppb))
		rec.PointerBlockCount += pointerBlocksFor(use, root.depth, ppb)
		remaining -= use
	}

	return rec, nil
}

// capacity is the number of payload blocks a pointer tree of the given depth
// can address, saturating at math.MaxInt
func capacity(depth, ppb int) int {
	c := 1
	for i := 0; i < depth; i++ {
		if c > math.MaxInt/ppb {
			return math.MaxInt
		}
		c *= ppb
	}
	return c
}

// pointerBlocksFor counts the pointer blocks of a depth-deep tree addressing
// units payload blocks, with every table full except possibly the last at each level
func pointerBlocksFor(units, depth, ppb int) int {
	if units <= 0 {
		return 0
	}
	if depth == depthSingle {
		return 1
	}
	childCap := capacity(depth-1, ppb)
	full, partial := units/childCap, units%childCap
	n := 1
	if full > 0 {
		n += full * pointerBlocksFor(childCap, depth-1, ppb)
	}
	if partial > 0 {
		n += pointerBlocksFor(partial, depth-1, ppb)
	}
	return n
}
