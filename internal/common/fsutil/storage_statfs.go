//go:build linux || darwin || freebsd

package fsutil

import "golang.org/x/sys/unix"

// GetFreeDiskSpace returns the bytes available to unprivileged users on the
// filesystem holding path
func GetFreeDiskSpace(path string) (uint64, bool, error) {
	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return 0, false, err
	}
	return uint64(stat.Bavail) * uint64(stat.Bsize), true, nil
}
