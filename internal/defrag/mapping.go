package defrag

import (
	"fmt"

	commonerrors "github.com/deploymenttheory/go-disk-defrag/internal/common/errors"
	"github.com/deploymenttheory/go-disk-defrag/internal/diskimage"
	"github.com/deploymenttheory/go-disk-defrag/internal/logger"
)

// BuildBlockMap walks every file's real pointer graph in old numbering and
// assigns new indices consecutively from the file's planned start. Per file the
// order is: direct blocks, then each single-indirect block followed by its
// payload, then the double- and triple-indirect trees depth first.
//
// The walk stops at the first sentinel in a slot list or pointer table, or once
// the file's payload count is reached. Every block it reaches must lie inside
// the data region and belong to no other file, and the blocks it enumerates must
// fill the planned range exactly.
func BuildBlockMap(in *diskimage.Image, records []FileRecord, placements []FilePlacement) (*BlockMap, error) {
	if in == nil {
		return nil, commonerrors.NewDefragError(commonerrors.ErrMissingInput, "BuildBlockMap", "image", "")
	}
	if len(records) != len(placements) {
		return nil, commonerrors.NewDefragError(commonerrors.ErrMissingInput, "BuildBlockMap", "placements",
			fmt.Sprintf("%d records, %d placements", len(records), len(placements)))
	}

	size := 0
	if n := len(placements); n > 0 {
		size = placements[n-1].End()
	}
	bm := NewBlockMap(size)

	for i := range records {
		rec, pl := &records[i], placements[i]
		if rec.InodeIndex != pl.InodeIndex {
			return nil, commonerrors.NewDefragError(commonerrors.ErrMissingInput, "BuildBlockMap",
				fmt.Sprintf("inode %d", rec.InodeIndex), fmt.Sprintf("placement is for inode %d", pl.InodeIndex))
		}

		w := &fileWalker{
			img:       in,
			bm:        bm,
			inode:     rec.InodeIndex,
			next:      pl.StartBlock,
			remaining: rec.DataBlockCount,
		}
		bm.beginFile(rec.InodeIndex)
		if err := w.walkFile(rec); err != nil {
			return nil, err
		}

		enumerated := w.next - pl.StartBlock
		if w.remaining != 0 || enumerated != pl.PointerBlockCount+pl.DataBlockCount {
			return nil, commonerrors.NewDefragError(commonerrors.ErrLayoutDivergence, "BuildBlockMap",
				fmt.Sprintf("inode %d", rec.InodeIndex),
				fmt.Sprintf("planned %d pointer + %d data, enumerated %d blocks with %d data blocks unreached",
					pl.PointerBlockCount, pl.DataBlockCount, enumerated, w.remaining))
		}

		logger.LogDebug("Mapped file blocks", map[string]interface{}{
			"inode": rec.InodeIndex,
			"start": pl.StartBlock,
			"count": enumerated,
		})
	}

	return bm, nil
}

// fileWalker enumerates one file's blocks
type fileWalker struct {
	img       *diskimage.Image
	bm        *BlockMap
	inode     int
	next      int // next new index to hand out
	remaining int // payload blocks still to enumerate
}

func (w *fileWalker) walkFile(rec *FileRecord) error {
	for slot, old := range rec.Direct {
		if old == diskimage.Sentinel {
			return commonerrors.NewDefragError(commonerrors.ErrCorruptImage, "BuildBlockMap",
				fmt.Sprintf("inode %d", w.inode), fmt.Sprintf("direct slot %d is empty inside a %d-block file", slot, rec.DataBlockCount))
		}
		if err := w.walk(old, depthData); err != nil {
			return err
		}
	}

	for _, old := range rec.Inode.Indirect {
		if w.remaining <= 0 || old == diskimage.Sentinel {
			break
		}
		if err := w.walk(old, depthSingle); err != nil {
			return err
		}
	}

	if w.remaining > 0 && rec.Inode.DoubleIndirect != diskimage.Sentinel {
		if err := w.walk(rec.Inode.DoubleIndirect, depthDouble); err != nil {
			return err
		}
	}
	if w.remaining > 0 && rec.Inode.TripleIndirect != diskimage.Sentinel {
		if err := w.walk(rec.Inode.TripleIndirect, depthTriple); err != nil {
			return err
		}
	}
	return nil
}

// walk maps old and, for pointer blocks, everything it references. depth 0 is
// a payload block; depth n is a pointer block whose entries are depth n-1 trees.
func (w *fileWalker) walk(old int32, depth int) error {
	if old < 0 || int(old) >= w.img.DataBlockCount() {
		return commonerrors.NewDefragError(commonerrors.ErrBlockOutOfRange, "BuildBlockMap",
			fmt.Sprintf("inode %d", w.inode), fmt.Sprintf("block %d at depth %d, data region has %d blocks", old, depth, w.img.DataBlockCount()))
	}
	if err := w.bm.add(int(old), w.next, depth > depthData); err != nil {
		return err
	}
	w.next++

	if depth == depthData {
		w.remaining--
		return nil
	}

	ptrs, err := w.img.ReadPointers(int(old))
	if err != nil {
		return err
	}
	for _, child := range ptrs {
		if w.remaining <= 0 || child == diskimage.Sentinel {
			break
		}
		if err := w.walk(child, depth-1); err != nil {
			return err
		}
	}
	return nil
}
