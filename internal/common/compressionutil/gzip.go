package compressionutil

import (
	"compress/gzip"
	"io"
)

func newGZIPReader(r io.Reader) (io.Reader, error) {
	return gzip.NewReader(r)
}

func newGZIPWriter(w io.Writer) io.WriteCloser {
	return gzip.NewWriter(w)
}
