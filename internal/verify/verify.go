// Package verify compares a produced image against a reference image
package verify

import (
	"bytes"
	"fmt"

	"github.com/deploymenttheory/go-disk-defrag/internal/common/cryptoutil"
	"github.com/deploymenttheory/go-disk-defrag/internal/diskimage"
	"github.com/deploymenttheory/go-disk-defrag/internal/logger"
)

// Outcome is the result of comparing two images
type Outcome struct {
	Identical      bool
	FirstDiff      int64 // byte offset of the first difference, -1 when identical
	ProducedSize   int
	ExpectedSize   int
	Algorithm      cryptoutil.HashAlgorithm
	ProducedDigest string
	ExpectedDigest string
}

// String renders the outcome as a single human readable line
func (o *Outcome) String() string {
	if o.Identical {
		return fmt.Sprintf("images identical (%s %s)", o.Algorithm, o.ProducedDigest)
	}
	return fmt.Sprintf("images differ at byte %d (sizes %d/%d, %s %s vs %s)",
		o.FirstDiff, o.ProducedSize, o.ExpectedSize, o.Algorithm, o.ProducedDigest, o.ExpectedDigest)
}

// Compare checks produced byte for byte against the image stored at
// expectedPath, which may be compressed
func Compare(produced []byte, expectedPath string, algorithm cryptoutil.HashAlgorithm) (*Outcome, error) {
	expected, err := diskimage.Load(expectedPath)
	if err != nil {
		return nil, err
	}
	return CompareBytes(produced, expected, algorithm)
}

// CompareBytes checks two in-memory images and digests both
func CompareBytes(produced, expected []byte, algorithm cryptoutil.HashAlgorithm) (*Outcome, error) {
	hasher, err := cryptoutil.NewHasher(algorithm)
	if err != nil {
		return nil, err
	}

	o := &Outcome{
		FirstDiff:    FirstDifference(produced, expected),
		ProducedSize: len(produced),
		ExpectedSize: len(expected),
		Algorithm:    hasher.Algorithm(),
	}
	o.Identical = o.FirstDiff < 0

	if o.ProducedDigest, err = hasher.Hash(produced); err != nil {
		return nil, err
	}
	if o.ExpectedDigest, err = hasher.Hash(expected); err != nil {
		return nil, err
	}

	logger.LogDebug("Compared images", map[string]interface{}{
		"identical":  o.Identical,
		"first_diff": o.FirstDiff,
		"algorithm":  o.Algorithm,
	})
	return o, nil
}

// FirstDifference returns the offset of the first byte at which a and b
// differ, the shorter length when one is a prefix of the other, or -1 when equal
func FirstDifference(a, b []byte) int64 {
	if bytes.Equal(a, b) {
		return -1
	}
	n := min(len(a), len(b))
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			return int64(i)
		}
	}
	return int64(n)
}
