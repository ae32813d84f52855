// Package defrag relocates every used file of an image into one contiguous run
// per file, ordered by inode index, and rebuilds the free-block chain behind them.
package defrag

import (
	commonerrors "github.com/deploymenttheory/go-disk-defrag/internal/common/errors"
	"github.com/deploymenttheory/go-disk-defrag/internal/diskimage"
)

// InodeView is one used inode slot
type InodeView struct {
	Index int
	Inode diskimage.Inode
}

// ScanInodes returns every used inode in ascending slot order
func ScanInodes(img *diskimage.Image) ([]InodeView, error) {
	if img == nil {
		return nil, commonerrors.NewDefragError(commonerrors.ErrMissingInput, "ScanInodes", "image", "")
	}

	var views []InodeView
	for slot := 0; slot < img.InodeCapacity(); slot++ {
		in, err := img.ReadInode(slot)
		if err != nil {
			return nil, err
		}
		if in.Used() {
			views = append(views, InodeView{Index: slot, Inode: in})
		}
	}
	return views, nil
}
