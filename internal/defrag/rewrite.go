package defrag

import (
	"fmt"

	commonerrors "github.com/deploymenttheory/go-disk-defrag/internal/common/errors"
	"github.com/deploymenttheory/go-disk-defrag/internal/diskimage"
)

// translateSlot maps an inode pointer field. A non-sentinel value with no
// mapping is a stale slot beyond the file's payload and becomes the sentinel.
func translateSlot(bm *BlockMap, old int32) int32 {
	if old == diskimage.Sentinel {
		return diskimage.Sentinel
	}
	if n, ok := bm.Lookup(int(old)); ok {
		return int32(n)
	}
	return diskimage.Sentinel
}

// RewriteInodes writes every file's inode into the same slot of out with all
// block pointer fields translated. Every other field is copied verbatim.
func RewriteInodes(out *diskimage.Image, records []FileRecord, bm *BlockMap) error {
	if out == nil || bm == nil {
		return commonerrors.NewDefragError(commonerrors.ErrMissingInput, "RewriteInodes", "", "")
	}

	for _, rec := range records {
		in := rec.Inode
		for i, p := range in.Direct {
			in.Direct[i] = translateSlot(bm, p)
		}
		for i, p := range in.Indirect {
			in.Indirect[i] = translateSlot(bm, p)
		}
		in.DoubleIndirect = translateSlot(bm, in.DoubleIndirect)
		in.TripleIndirect = translateSlot(bm, in.TripleIndirect)

		if err := out.WriteInode(rec.InodeIndex, in); err != nil {
			return err
		}
	}
	return nil
}

// RewritePointerBlocks copies every pointer block to its new location with
// each non-sentinel entry translated. Entries without a mapping are kept as
// they are; bytes past the table are zeroed.
func RewritePointerBlocks(in, out *diskimage.Image, bm *BlockMap) error {
	if in == nil || out == nil || bm == nil {
		return commonerrors.NewDefragError(commonerrors.ErrMissingInput, "RewritePointerBlocks", "", "")
	}

	for _, e := range bm.Entries() {
		if !e.Pointer {
			continue
		}
		ptrs, err := in.ReadPointers(e.Old)
		if err != nil {
			return err
		}
		for i, p := range ptrs {
			if p == diskimage.Sentinel {
				continue
			}
			if n, ok := bm.Lookup(int(p)); ok {
				ptrs[i] = int32(n)
			}
		}
		if err := out.WritePointers(e.New, ptrs); err != nil {
			return err
		}
	}
	return nil
}

// CopyDataBlocks copies every payload block to its new location unchanged
func CopyDataBlocks(in, out *diskimage.Image, bm *BlockMap) error {
	if in == nil || out == nil || bm == nil {
		return commonerrors.NewDefragError(commonerrors.ErrMissingInput, "CopyDataBlocks", "", "")
	}
	if in.BlockSize() != out.BlockSize() {
		return commonerrors.NewDefragError(commonerrors.ErrInvalidGeometry, "CopyDataBlocks", "",
			fmt.Sprintf("blocksize %d vs %d", in.BlockSize(), out.BlockSize()))
	}

	for _, e := range bm.Entries() {
		if e.Pointer {
			continue
		}
		src, err := in.Block(e.Old)
		if err != nil {
			return err
		}
		dst, err := out.Block(e.New)
		if err != nil {
			return err
		}
		copy(dst, src)
	}
	return nil
}
