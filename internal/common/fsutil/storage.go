package fsutil

// HasEnoughDiskSpace checks if there is sufficient free space for a file operation.
// Where free space cannot be determined the answer is true.
func HasEnoughDiskSpace(path string, requiredBytes uint64) (bool, error) {
	freeSpace, known, err := GetFreeDiskSpace(path)
	if err != nil {
		return false, err
	}
	if !known {
		return true, nil
	}
	return freeSpace >= requiredBytes, nil
}
