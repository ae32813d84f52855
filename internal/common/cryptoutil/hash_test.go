package cryptoutil

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	commonerrors "github.com/deploymenttheory/go-disk-defrag/internal/common/errors"
)

func TestKnownDigests(t *testing.T) {
	tests := []struct {
		algorithm HashAlgorithm
		input     string
		want      string
	}{
		{SHA256, "", "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"},
		{SHA256, "abc", "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"},
		{BLAKE2b256, "", "0e5751c026e543b2e8ab2eb06099daa1d1e5df47778f7787faab45cdf12fe3a8"},
	}

	for _, tt := range tests {
		t.Run(string(tt.algorithm)+"/"+tt.input, func(t *testing.T) {
			h, err := NewHasher(tt.algorithm)
			if err != nil {
				t.Fatalf("NewHasher failed: %v", err)
			}
			got, err := h.Hash([]byte(tt.input))
			if err != nil {
				t.Fatalf("Hash failed: %v", err)
			}
			if got != tt.want {
				t.Errorf("Hash(%q) = %s, want %s", tt.input, got, tt.want)
			}
			ok, err := h.Verify([]byte(tt.input), strings.ToUpper(tt.want))
			if err != nil || !ok {
				t.Errorf("Verify should accept upper-case digest, got %v, %v", ok, err)
			}
		})
	}
}

func TestHashFileMatchesHash(t *testing.T) {
	path := filepath.Join(t.TempDir(), "image")
	data := []byte("boot block and superblock")
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}

	h, _ := NewHasher(BLAKE2b256)
	fromFile, err := h.HashFile(path)
	if err != nil {
		t.Fatalf("HashFile failed: %v", err)
	}
	fromBytes, _ := h.Hash(data)
	if fromFile != fromBytes {
		t.Errorf("HashFile = %s, Hash = %s", fromFile, fromBytes)
	}
}

func TestUnsupportedAlgorithm(t *testing.T) {
	_, err := NewHasher("md4")
	if !errors.Is(err, commonerrors.ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument, got %v", err)
	}
}
