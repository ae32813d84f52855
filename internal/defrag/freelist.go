package defrag

import (
	"fmt"

	commonerrors "github.com/deploymenttheory/go-disk-defrag/internal/common/errors"
	"github.com/deploymenttheory/go-disk-defrag/internal/diskimage"
)

// RebuildFreeBlockList chains blocks [nextFree, end of data region) into an
// ascending list. Each block's first entry names the next free block, -1 ending
// the chain, and the rest of the block is zeroed. The superblock head is set to
// nextFree even when the region is full. The head written is returned.
func RebuildFreeBlockList(out *diskimage.Image, nextFree int) (int32, error) {
	if out == nil {
		return diskimage.Sentinel, commonerrors.NewDefragError(commonerrors.ErrMissingInput, "RebuildFreeBlockList", "image", "")
	}
	total := out.DataBlockCount()
	if nextFree < 0 || nextFree > total {
		return diskimage.Sentinel, commonerrors.NewDefragError(commonerrors.ErrNoSpace, "RebuildFreeBlockList",
			fmt.Sprintf("block %d", nextFree), fmt.Sprintf("data region has %d blocks", total))
	}

	for idx := nextFree; idx < total; idx++ {
		next := int32(idx + 1)
		if idx+1 == total {
			next = diskimage.Sentinel
		}
		if err := out.WritePointers(idx, []int32{next}); err != nil {
			return diskimage.Sentinel, err
		}
	}

	head := int32(nextFree)
	if err := out.SetFreeBlockHead(head); err != nil {
		return diskimage.Sentinel, err
	}
	return head, nil
}

// RebuildFreeInodeList chains every slot not in used into an ascending list
// through the next_inode field and points the superblock head at the lowest
// free slot, -1 when every slot is used. The head written is returned.
func RebuildFreeInodeList(out *diskimage.Image, used []int) (int32, error) {
	if out == nil {
		return diskimage.Sentinel, commonerrors.NewDefragError(commonerrors.ErrMissingInput, "RebuildFreeInodeList", "image", "")
	}

	inUse := make(map[int]bool, len(used))
	for _, slot := range used {
		inUse[slot] = true
	}
	var free []int
	for slot := 0; slot < out.InodeCapacity(); slot++ {
		if !inUse[slot] {
			free = append(free, slot)
		}
	}

	for k, slot := range free {
		in, err := out.ReadInode(slot)
		if err != nil {
			return diskimage.Sentinel, err
		}
		in.NextInode = diskimage.Sentinel
		if k+1 < len(free) {
			in.NextInode = int32(free[k+1])
		}
		if err := out.WriteInode(slot, in); err != nil {
			return diskimage.Sentinel, err
		}
	}

	head := diskimage.Sentinel
	if len(free) > 0 {
		head = int32(free[0])
	}
	if err := out.SetFreeInodeHead(head); err != nil {
		return diskimage.Sentinel, err
	}
	return head, nil
}
