// Package compressionutil wraps image streams in the codec named by their file extension
package compressionutil

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	commonerrors "github.com/deploymenttheory/go-disk-defrag/internal/common/errors"
)

// Format identifies a stream codec
type Format string

const (
	// None passes bytes through unchanged
	None Format = "none"
	// XZ is the xz/LZMA2 container
	XZ Format = "xz"
	// BZIP2 is the bzip2 format
	BZIP2 Format = "bzip2"
	// GZIP is the gzip format
	GZIP Format = "gzip"
)

// FormatFromPath picks the codec from the file extension
func FormatFromPath(path string) Format {
	lower := strings.ToLower(path)
	switch {
	case strings.HasSuffix(lower, ".xz"):
		return XZ
	case strings.HasSuffix(lower, ".bz2"):
		return BZIP2
	case strings.HasSuffix(lower, ".gz"):
		return GZIP
	default:
		return None
	}
}

// NewReader wraps r with a decompressor for format
func NewReader(r io.Reader, format Format) (io.Reader, error) {
	switch format {
	case None:
		return r, nil
	case XZ:
		return newXZReader(r)
	case BZIP2:
		return newBZIP2Reader(r)
	case GZIP:
		return newGZIPReader(r)
	default:
		return nil, fmt.Errorf("%w: %s", commonerrors.ErrUnsupportedCompression, format)
	}
}

// nopWriteCloser lets uncompressed output share the WriteCloser path
type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }

// NewWriter wraps w with a compressor for format. Close must be called to
// flush the trailer; it does not close w.
func NewWriter(w io.Writer, format Format) (io.WriteCloser, error) {
	switch format {
	case None:
		return nopWriteCloser{w}, nil
	case XZ:
		return newXZWriter(w)
	case BZIP2:
		return newBZIP2Writer(w)
	case GZIP:
		return newGZIPWriter(w), nil
	default:
		return nil, fmt.Errorf("%w: %s", commonerrors.ErrUnsupportedCompression, format)
	}
}

// Decompress decodes an in-memory buffer
func Decompress(data []byte, format Format) ([]byte, error) {
	if format == None {
		return data, nil
	}
	r, err := NewReader(bytes.NewReader(data), format)
	if err != nil {
		return nil, err
	}
	out, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %s stream: %v", commonerrors.ErrIO, format, err)
	}
	return out, nil
}

// Compress encodes an in-memory buffer
func Compress(data []byte, format Format) ([]byte, error) {
	if format == None {
		return data, nil
	}
	var buf bytes.Buffer
	w, err := NewWriter(&buf, format)
	if err != nil {
		return nil, err
	}
	if _, err := w.Write(data); err != nil {
		w.Close()
		return nil, fmt.Errorf("failed to compress data: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("failed to compress data: %w", err)
	}
	return buf.Bytes(), nil
}
