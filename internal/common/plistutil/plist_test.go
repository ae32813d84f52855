package plistutil

import (
	"bytes"
	"testing"
)

type sample struct {
	Inode int    `plist:"inode"`
	Name  string `plist:"name"`
}

func TestMarshalXML(t *testing.T) {
	data, err := Marshal(sample{Inode: 3, Name: "file"}, FormatXML)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("<?xml")) {
		t.Errorf("expected XML header, got %q", data[:16])
	}
	if !bytes.Contains(data, []byte("<key>inode</key>")) {
		t.Error("expected inode key in output")
	}
}

func TestMarshalBinaryDecodes(t *testing.T) {
	data, err := Marshal(sample{Inode: 7, Name: "frag"}, FormatBinary)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("bplist00")) {
		t.Fatalf("expected binary plist magic")
	}

	var got sample
	if err := Unmarshal(data, &got); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if got.Inode != 7 || got.Name != "frag" {
		t.Errorf("decoded %+v", got)
	}
}
