// fsutil/files.go
package fsutil

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	commonerrors "github.com/deploymenttheory/go-disk-defrag/internal/common/errors"
)

// FileExists checks if a file exists and is not a directory
func FileExists(path string) bool {
	info, err := os.Stat(path)
	if err != nil {
		return false
	}
	return !info.IsDir()
}

// ReadFile stats path and reads exactly that many bytes from it.
// A file that yields fewer bytes than its stat size is reported as a short read.
func ReadFile(path string) ([]byte, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", commonerrors.ErrFileNotFound, path)
		}
		return nil, fmt.Errorf("%w: cannot stat %s: %v", commonerrors.ErrIO, path, err)
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: cannot open %s: %v", commonerrors.ErrIO, path, err)
	}
	defer file.Close()

	data := make([]byte, info.Size())
	n, err := io.ReadFull(file, data)
	if err != nil {
		if err == io.ErrUnexpectedEOF || err == io.EOF {
			return nil, fmt.Errorf("%w: expected %d bytes from %s, got %d",
				commonerrors.ErrShortRead, len(data), path, n)
		}
		return nil, fmt.Errorf("%w: reading %s: %v", commonerrors.ErrIO, path, err)
	}
	return data, nil
}

// RenamingWriter writes to "<name>~" and renames over name on Close.
// Nothing is renamed if a write failed or Abort was called.
type RenamingWriter struct {
	*os.File
	filename string
	abort    bool
}

// CreateRenamingWriter opens the temporary sibling of filename for writing
func CreateRenamingWriter(filename string, perm os.FileMode) (*RenamingWriter, error) {
	if err := CreateDirIfNotExists(filepath.Dir(filename)); err != nil {
		return nil, fmt.Errorf("%w: creating directory for %s: %v", commonerrors.ErrFileWriteError, filename, err)
	}
	writer := &RenamingWriter{filename: filename}
	var err error
	writer.File, err = os.OpenFile(filename+"~", os.O_CREATE|os.O_TRUNC|os.O_WRONLY, perm)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", commonerrors.ErrFileWriteError, filename, err)
	}
	return writer, nil
}

// Write forwards to the temporary file, remembering failures
func (w *RenamingWriter) Write(p []byte) (int, error) {
	n, err := w.File.Write(p)
	if err != nil {
		w.abort = true
	}
	return n, err
}

// Abort discards the temporary file on Close
func (w *RenamingWriter) Abort() {
	w.abort = true
}

// Close flushes the temporary file and renames it into place
func (w *RenamingWriter) Close() error {
	tmpFilename := w.filename + "~"
	defer os.Remove(tmpFilename)
	if err := w.File.Sync(); err != nil {
		w.File.Close()
		return fmt.Errorf("%w: %s: %v", commonerrors.ErrFileWriteError, w.filename, err)
	}
	if err := w.File.Close(); err != nil {
		return fmt.Errorf("%w: %s: %v", commonerrors.ErrFileWriteError, w.filename, err)
	}
	if w.abort {
		return nil
	}
	return os.Rename(tmpFilename, w.filename)
}

// WriteFileAtomic writes data through a RenamingWriter so that an existing
// file at path is only replaced once every byte has been written
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	w, err := CreateRenamingWriter(path, perm)
	if err != nil {
		return err
	}
	if _, err := w.Write(data); err != nil {
		w.Close()
		return fmt.Errorf("%w: %s: %v", commonerrors.ErrFileWriteError, path, err)
	}
	return w.Close()
}
