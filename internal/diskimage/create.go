package diskimage

import (
	"fmt"

	commonerrors "github.com/deploymenttheory/go-disk-defrag/internal/common/errors"
)

// Geometry describes an image to create
type Geometry struct {
	BlockSize   int
	InodeBlocks int
	DataBlocks  int
	SwapBlocks  int
}

// Create formats an empty image: every inode slot free and chained in
// ascending order, every data block on the ascending free-block list
func Create(g Geometry) (*Image, error) {
	if g.BlockSize <= 0 || g.BlockSize%PointerSize != 0 {
		return nil, commonerrors.NewDefragError(commonerrors.ErrInvalidBlockSize, "Create", "geometry",
			fmt.Sprintf("blocksize %d", g.BlockSize))
	}
	if g.InodeBlocks < 0 || g.DataBlocks < 0 || g.SwapBlocks < 0 {
		return nil, commonerrors.NewDefragError(commonerrors.ErrInvalidGeometry, "Create", "geometry",
			fmt.Sprintf("%+v", g))
	}

	sb := Superblock{
		BlockSize:   int32(g.BlockSize),
		InodeOffset: 0,
		DataOffset:  int32(g.InodeBlocks),
		SwapOffset:  int32(g.InodeBlocks + g.DataBlocks),
		FreeInode:   Sentinel,
		FreeBlock:   Sentinel,
	}
	data := make([]byte, sb.SwapStart()+int64(g.SwapBlocks*g.BlockSize))
	if err := sb.EncodeTo(data); err != nil {
		return nil, err
	}
	img, err := New(data)
	if err != nil {
		return nil, err
	}

	if n := img.InodeCapacity(); n > 0 {
		for slot := 0; slot < n; slot++ {
			next := int32(slot + 1)
			if slot == n-1 {
				next = Sentinel
			}
			in := Inode{NextInode: next}
			for i := range in.Direct {
				in.Direct[i] = Sentinel
			}
			for i := range in.Indirect {
				in.Indirect[i] = Sentinel
			}
			in.DoubleIndirect, in.TripleIndirect = Sentinel, Sentinel
			if err := img.WriteInode(slot, in); err != nil {
				return nil, err
			}
		}
		if err := img.SetFreeInodeHead(0); err != nil {
			return nil, err
		}
	}

	if g.DataBlocks > 0 {
		for idx := 0; idx < g.DataBlocks; idx++ {
			next := int32(idx + 1)
			if idx == g.DataBlocks-1 {
				next = Sentinel
			}
			if err := img.WritePointers(idx, []int32{next}); err != nil {
				return nil, err
			}
		}
		if err := img.SetFreeBlockHead(0); err != nil {
			return nil, err
		}
	}
	return img, nil
}
