package compressionutil

import (
	"io"

	"github.com/ulikunitz/xz"
)

func newXZReader(r io.Reader) (io.Reader, error) {
	return xz.NewReader(r)
}

func newXZWriter(w io.Writer) (io.WriteCloser, error) {
	return xz.NewWriter(w)
}
