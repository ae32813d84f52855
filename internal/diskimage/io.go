package diskimage

import (
	"fmt"
	"path/filepath"

	"github.com/deploymenttheory/go-disk-defrag/internal/common/compressionutil"
	commonerrors "github.com/deploymenttheory/go-disk-defrag/internal/common/errors"
	"github.com/deploymenttheory/go-disk-defrag/internal/common/fsutil"
	"github.com/deploymenttheory/go-disk-defrag/internal/logger"
)

// Load reads a whole image file into memory, decompressing .xz, .bz2 and .gz files
func Load(path string) ([]byte, error) {
	data, err := fsutil.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return compressionutil.Decompress(data, compressionutil.FormatFromPath(path))
}

// Save writes an image through a renaming writer so an existing file at path
// is never left partially written. The output is compressed when path carries
// a codec extension.
func Save(path string, data []byte) error {
	encoded, err := compressionutil.Compress(data, compressionutil.FormatFromPath(path))
	if err != nil {
		return err
	}

	// The temporary copy sits next to the destination until the rename
	dir := filepath.Dir(path)
	if fsutil.DirExists(dir) {
		ok, err := fsutil.HasEnoughDiskSpace(dir, uint64(len(encoded)))
		if err != nil {
			logger.LogDebug("Could not determine free disk space", map[string]interface{}{
				"dir":   dir,
				"error": err.Error(),
			})
		} else if !ok {
			return fmt.Errorf("%w: %d bytes needed in %s", commonerrors.ErrInsufficientDiskSpace, len(encoded), dir)
		}
	}
	return fsutil.WriteFileAtomic(path, encoded, 0644)
}
