//go:build !linux && !darwin && !freebsd

package fsutil

// GetFreeDiskSpace reports free space as unknown on this platform
func GetFreeDiskSpace(path string) (uint64, bool, error) {
	return 0, false, nil
}
