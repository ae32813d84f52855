package diskimage

import (
	"bytes"
	"encoding/binary"
	"fmt"

	commonerrors "github.com/deploymenttheory/go-disk-defrag/internal/common/errors"
)

// Superblock holds the image geometry. Offsets are counted in blocks from HeaderSize.
type Superblock struct {
	BlockSize   int32
	InodeOffset int32
	DataOffset  int32
	SwapOffset  int32
	FreeInode   int32
	FreeBlock   int32
}

// superblockFieldsSize is the number of encoded bytes inside the 512-byte area
const superblockFieldsSize = 24

// Byte offsets of the free-list heads within the superblock area
const (
	freeInodeFieldOffset = 16
	freeBlockFieldOffset = 20
)

// DecodeSuperblock reads the superblock from a whole-image buffer
func DecodeSuperblock(image []byte) (Superblock, error) {
	var sb Superblock
	if len(image) < HeaderSize {
		return sb, commonerrors.NewDefragError(commonerrors.ErrStructTooShort, "DecodeSuperblock", "image",
			fmt.Sprintf("image is %d bytes", len(image)))
	}

	r := bytes.NewReader(image[BootBlockSize : BootBlockSize+superblockFieldsSize])
	if err := binary.Read(r, binary.LittleEndian, &sb); err != nil {
		return sb, commonerrors.NewDefragError(commonerrors.ErrStructTooShort, "DecodeSuperblock", "image", err.Error())
	}
	return sb, nil
}

// EncodeTo writes the superblock fields into a whole-image buffer, leaving
// the rest of the superblock area untouched
func (sb Superblock) EncodeTo(image []byte) error {
	if len(image) < HeaderSize {
		return commonerrors.NewDefragError(commonerrors.ErrStructTooShort, "EncodeSuperblock", "image",
			fmt.Sprintf("image is %d bytes", len(image)))
	}

	var buf bytes.Buffer
	if err := binary.Write(&buf, binary.LittleEndian, sb); err != nil {
		return err
	}
	copy(image[BootBlockSize:], buf.Bytes())
	return nil
}

// Validate checks the geometry against the size of the image holding it
func (sb Superblock) Validate(imageSize int) error {
	if sb.BlockSize <= 0 {
		return commonerrors.NewDefragError(commonerrors.ErrInvalidBlockSize, "ValidateSuperblock", "blocksize",
			fmt.Sprintf("%d", sb.BlockSize))
	}
	if sb.InodeOffset < 0 || sb.InodeOffset > sb.DataOffset || sb.DataOffset > sb.SwapOffset {
		return commonerrors.NewDefragError(commonerrors.ErrInvalidGeometry, "ValidateSuperblock", "offsets",
			fmt.Sprintf("inode=%d data=%d swap=%d", sb.InodeOffset, sb.DataOffset, sb.SwapOffset))
	}
	if int64(imageSize) < sb.SwapStart() {
		return commonerrors.NewDefragError(commonerrors.ErrImageTooSmall, "ValidateSuperblock", "image",
			fmt.Sprintf("size %d, swap region starts at %d", imageSize, sb.SwapStart()))
	}
	return nil
}

func (sb Superblock) regionStart(offset int32) int64 {
	return HeaderSize + int64(offset)*int64(sb.BlockSize)
}

// InodeStart is the absolute byte offset of the inode region
func (sb Superblock) InodeStart() int64 { return sb.regionStart(sb.InodeOffset) }

// DataStart is the absolute byte offset of the data region
func (sb Superblock) DataStart() int64 { return sb.regionStart(sb.DataOffset) }

// SwapStart is the absolute byte offset of the swap region
func (sb Superblock) SwapStart() int64 { return sb.regionStart(sb.SwapOffset) }

// DataBlockCount is the number of blocks in the data region
func (sb Superblock) DataBlockCount() int {
	return int(sb.SwapOffset - sb.DataOffset)
}

// InodeCapacity is the number of whole inode records the inode region holds
func (sb Superblock) InodeCapacity() int {
	return int((sb.DataStart() - sb.InodeStart()) / InodeSize)
}

// PointersPerBlock is the number of entries in one pointer table
func (sb Superblock) PointersPerBlock() int {
	return int(sb.BlockSize) / PointerSize
}
