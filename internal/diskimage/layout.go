// Package diskimage decodes and encodes the on-disk structures of the image:
// boot block, superblock, inode records and pointer tables.
package diskimage

const (
	// BootBlockSize is the size of the opaque boot block at offset 0
	BootBlockSize = 512
	// SuperblockSize is the size of the superblock area following the boot block
	SuperblockSize = 512
	// HeaderSize is where offset 0 of every region offset is anchored
	HeaderSize = BootBlockSize + SuperblockSize

	// NDirect is the number of direct block slots in an inode
	NDirect = 10
	// NIndirect is the number of single-indirect slots in an inode
	NIndirect = 4
	// InodeSize is the encoded size of one inode record
	InodeSize = 100

	// PointerSize is the width of one pointer-table entry
	PointerSize = 4

	// Sentinel marks an absent block pointer or the end of a chain
	Sentinel int32 = -1
)
