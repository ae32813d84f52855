package diskimage

import (
	"fmt"

	commonerrors "github.com/deploymenttheory/go-disk-defrag/internal/common/errors"
)

// Image is a whole disk image held in memory together with its decoded superblock
type Image struct {
	data []byte
	sb   Superblock
}

// New wraps a loaded image buffer after validating its superblock
func New(data []byte) (*Image, error) {
	sb, err := DecodeSuperblock(data)
	if err != nil {
		return nil, err
	}
	if err := sb.Validate(len(data)); err != nil {
		return nil, err
	}
	return &Image{data: data, sb: sb}, nil
}

// NewBlank allocates a zeroed image with the same size and geometry as tmpl.
// Only the superblock fields are written; every other byte is zero.
func NewBlank(tmpl *Image) (*Image, error) {
	if tmpl == nil {
		return nil, commonerrors.NewDefragError(commonerrors.ErrMissingInput, "NewBlank", "template", "")
	}
	img := &Image{data: make([]byte, len(tmpl.data)), sb: tmpl.sb}
	if err := img.sb.EncodeTo(img.data); err != nil {
		return nil, err
	}
	return img, nil
}

// Bytes returns the underlying buffer
func (img *Image) Bytes() []byte { return img.data }

// Len returns the image size in bytes
func (img *Image) Len() int { return len(img.data) }

// Superblock returns the decoded superblock
func (img *Image) Superblock() Superblock { return img.sb }

// BlockSize returns the block size in bytes
func (img *Image) BlockSize() int { return int(img.sb.BlockSize) }

// DataBlockCount returns the number of blocks in the data region
func (img *Image) DataBlockCount() int { return img.sb.DataBlockCount() }

// InodeCapacity returns the number of inode slots
func (img *Image) InodeCapacity() int { return img.sb.InodeCapacity() }

// Block returns the bytes of a data-region block. The slice aliases the image.
func (img *Image) Block(index int) ([]byte, error) {
	if index < 0 || index >= img.sb.DataBlockCount() {
		return nil, commonerrors.NewDefragError(commonerrors.ErrBlockOutOfRange, "Block",
			fmt.Sprintf("block %d", index), fmt.Sprintf("data region has %d blocks", img.sb.DataBlockCount()))
	}
	bs := int64(img.sb.BlockSize)
	start := img.sb.DataStart() + int64(index)*bs
	return img.data[start : start+bs], nil
}

// ReadPointers decodes the pointer table stored in a data-region block
func (img *Image) ReadPointers(index int) ([]int32, error) {
	block, err := img.Block(index)
	if err != nil {
		return nil, err
	}
	return DecodePointers(block), nil
}

// WritePointers stores a pointer table into a data-region block, zero-filling
// any bytes past the table
func (img *Image) WritePointers(index int, ptrs []int32) error {
	block, err := img.Block(index)
	if err != nil {
		return err
	}
	EncodePointers(block, ptrs)
	return nil
}

func (img *Image) inodeRecord(slot int) ([]byte, error) {
	if slot < 0 || slot >= img.sb.InodeCapacity() {
		return nil, commonerrors.NewDefragError(commonerrors.ErrInvalidArgument, "InodeRecord",
			fmt.Sprintf("inode %d", slot), fmt.Sprintf("inode region has %d slots", img.sb.InodeCapacity()))
	}
	start := img.sb.InodeStart() + int64(slot)*InodeSize
	return img.data[start : start+InodeSize], nil
}

// ReadInode decodes the record stored in an inode slot
func (img *Image) ReadInode(slot int) (Inode, error) {
	rec, err := img.inodeRecord(slot)
	if err != nil {
		return Inode{}, err
	}
	return DecodeInode(rec)
}

// WriteInode encodes a record into an inode slot
func (img *Image) WriteInode(slot int, in Inode) error {
	rec, err := img.inodeRecord(slot)
	if err != nil {
		return err
	}
	return in.Encode(rec)
}

// SetFreeBlockHead updates the free-block head in both the decoded and encoded superblock
func (img *Image) SetFreeBlockHead(head int32) error {
	img.sb.FreeBlock = head
	return img.sb.EncodeTo(img.data)
}

// SetFreeInodeHead updates the free-inode head in both the decoded and encoded superblock
func (img *Image) SetFreeInodeHead(head int32) error {
	img.sb.FreeInode = head
	return img.sb.EncodeTo(img.data)
}

// Header returns every byte before the data region: boot block, superblock
// and inode region
func (img *Image) Header() []byte {
	return img.data[:img.sb.DataStart()]
}

// SwapRegion returns every byte from the start of the swap region to the end of the image
func (img *Image) SwapRegion() []byte {
	return img.data[img.sb.SwapStart():]
}
