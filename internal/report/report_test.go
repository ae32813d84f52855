package report

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/deploymenttheory/go-disk-defrag/internal/common/plistutil"
	"github.com/deploymenttheory/go-disk-defrag/internal/defrag"
	"github.com/deploymenttheory/go-disk-defrag/internal/diskimage"
	"gopkg.in/yaml.v3"
)

// twoBlockImage holds one 700-byte file in inode 2, stored in blocks 4 then 1
func twoBlockImage(t *testing.T) []byte {
	t.Helper()
	img, err := diskimage.Create(diskimage.Geometry{BlockSize: 512, InodeBlocks: 1, DataBlocks: 6})
	if err != nil {
		t.Fatal(err)
	}
	in, err := img.ReadInode(2)
	if err != nil {
		t.Fatal(err)
	}
	in.NLink, in.Size = 1, 700
	in.Direct[0], in.Direct[1] = 4, 1
	if err := img.WriteInode(2, in); err != nil {
		t.Fatal(err)
	}
	return img.Bytes()
}

func TestBuild(t *testing.T) {
	plan, err := defrag.Inspect(twoBlockImage(t))
	if err != nil {
		t.Fatalf("Inspect failed: %v", err)
	}
	r := Build(plan)

	if r.Applied {
		t.Error("plan report marked as applied")
	}
	if r.NextFree != 2 || r.MappedBlocks != 2 || r.DataBlocks != 6 {
		t.Errorf("report totals = %+v", r)
	}
	if len(r.Files) != 1 {
		t.Fatalf("got %d files, want 1", len(r.Files))
	}
	f := r.Files[0]
	if f.Inode != 2 || f.StartBlock != 0 || f.EndBlock != 2 || f.Fragments != 2 {
		t.Errorf("file = %+v", f)
	}
}

func TestBuildFromResult(t *testing.T) {
	res, err := defrag.Run(twoBlockImage(t), defrag.Options{RebuildInodeFreeList: true})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	r := BuildFromResult(res)
	if !r.Applied || r.FreeBlockHead != 2 || r.FreeInodeHead != 0 {
		t.Errorf("report = %+v", r)
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		name, path string
		want       Format
		wantErr    bool
	}{
		{"", "out/report.json", FormatJSON, false},
		{"", "report.YML", FormatYAML, false},
		{"", "report.plist", FormatPlist, false},
		{"", "report", FormatJSON, false},
		{"yaml", "report.json", FormatYAML, false},
		{"", "report.txt", "", true},
		{"toml", "", "", true},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.name, tt.path)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseFormat(%q, %q) error = %v, wantErr %v", tt.name, tt.path, err, tt.wantErr)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseFormat(%q, %q) = %q, want %q", tt.name, tt.path, got, tt.want)
		}
	}
}

func TestWrite(t *testing.T) {
	plan, err := defrag.Inspect(twoBlockImage(t))
	if err != nil {
		t.Fatal(err)
	}
	r := Build(plan)
	dir := t.TempDir()

	jsonPath := filepath.Join(dir, "report.json")
	if err := r.Write(jsonPath, FormatJSON); err != nil {
		t.Fatalf("Write json failed: %v", err)
	}
	data, err := os.ReadFile(jsonPath)
	if err != nil {
		t.Fatal(err)
	}
	var decoded map[string]interface{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("report is not valid json: %v", err)
	}
	if decoded["next_free"] != float64(2) {
		t.Errorf("json next_free = %v", decoded["next_free"])
	}

	yamlPath := filepath.Join(dir, "report.yaml")
	if err := r.Write(yamlPath, FormatYAML); err != nil {
		t.Fatalf("Write yaml failed: %v", err)
	}
	data, err = os.ReadFile(yamlPath)
	if err != nil {
		t.Fatal(err)
	}
	var fromYAML Report
	if err := yaml.Unmarshal(data, &fromYAML); err != nil {
		t.Fatalf("report is not valid yaml: %v", err)
	}
	if len(fromYAML.Files) != 1 || fromYAML.Files[0].Fragments != 2 {
		t.Errorf("yaml files = %+v", fromYAML.Files)
	}

	plistPath := filepath.Join(dir, "report.plist")
	if err := r.Write(plistPath, FormatPlist); err != nil {
		t.Fatalf("Write plist failed: %v", err)
	}
	data, err = os.ReadFile(plistPath)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "<key>superblock</key>") {
		t.Error("plist report is missing the superblock dictionary")
	}
	var fromPlist map[string]interface{}
	if err := plistutil.Unmarshal(data, &fromPlist); err != nil {
		t.Fatalf("report is not a valid plist: %v", err)
	}
	if _, ok := fromPlist["files"]; !ok {
		t.Error("plist report has no files array")
	}
}
