package defrag

import (
	"errors"
	"math/rand"
	"testing"

	commonerrors "github.com/deploymenttheory/go-disk-defrag/internal/common/errors"
	"github.com/deploymenttheory/go-disk-defrag/internal/diskimage"
)

// mapImage runs the planning stages that precede the block map
func mapImage(t *testing.T, img *diskimage.Image) (*BlockMap, error) {
	t.Helper()
	views, err := ScanInodes(img)
	if err != nil {
		t.Fatal(err)
	}
	records, err := BuildFileRecords(views, img.Superblock())
	if err != nil {
		t.Fatal(err)
	}
	placements, _, err := PlanLayout(records)
	if err != nil {
		t.Fatal(err)
	}
	return BuildBlockMap(img, records, placements)
}

func TestScanInodes(t *testing.T) {
	ti := newTestImage(t, diskimage.Geometry{BlockSize: 512, InodeBlocks: 2, DataBlocks: 8})
	ti.usePool(ascending(0, 8))
	ti.placeFile(7, 100)
	ti.placeFile(2, 600)

	// linked but empty files are still in use
	empty := blankInode()
	empty.NLink = 2
	ti.writeInode(4, empty)

	views, err := ScanInodes(ti.img)
	if err != nil {
		t.Fatal(err)
	}
	var got []int
	for _, v := range views {
		got = append(got, v.Index)
	}
	want := []int{2, 4, 7}
	if len(got) != len(want) {
		t.Fatalf("used slots = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("used slots = %v, want %v", got, want)
			break
		}
	}
}

func TestBuildBlockMapSingleIndirectOrder(t *testing.T) {
	ti := newTestImage(t, diskimage.Geometry{BlockSize: 512, InodeBlocks: 2, DataBlocks: 30})
	ti.usePool([]int32{25, 3, 17, 8, 29, 1, 12, 20, 5, 14, 22, 9, 27})
	used := ti.placeFile(7, 12*512)

	bm, err := mapImage(t, ti.img)
	if err != nil {
		t.Fatalf("BuildBlockMap failed: %v", err)
	}
	if bm.Len() != 13 || bm.PointerCount() != 1 {
		t.Fatalf("Len = %d, PointerCount = %d, want 13 and 1", bm.Len(), bm.PointerCount())
	}

	for k, e := range bm.Entries() {
		if e.Old != int(used[k]) || e.New != k {
			t.Errorf("entry %d = %+v, want old %d new %d", k, e, used[k], k)
		}
		if e.Pointer != (k == 10) {
			t.Errorf("entry %d pointer flag = %v", k, e.Pointer)
		}
	}

	if n, ok := bm.Lookup(22); !ok || n != 10 {
		t.Errorf("Lookup(22) = %d, %v, want 10", n, ok)
	}
	if _, ok := bm.Lookup(0); ok {
		t.Error("Lookup of an unowned block should miss")
	}
}

func TestBuildBlockMapTripleIndirect(t *testing.T) {
	ti := newTestImage(t, diskimage.Geometry{BlockSize: 16, InodeBlocks: 25, DataBlocks: 100})
	var pool []int32
	for _, b := range rand.New(rand.NewSource(3)).Perm(100) {
		pool = append(pool, int32(b))
	}
	used := ti.usePool(pool).placeFile(0, 16*62-5)

	bm, err := mapImage(t, ti.img)
	if err != nil {
		t.Fatalf("BuildBlockMap failed: %v", err)
	}
	if bm.Len() != 79 || bm.PointerCount() != 17 {
		t.Fatalf("Len = %d, PointerCount = %d, want 79 and 17", bm.Len(), bm.PointerCount())
	}
	for k, e := range bm.Entries() {
		if e.Old != int(used[k]) || e.New != k {
			t.Fatalf("entry %d = %+v, want old %d new %d", k, e, used[k], k)
		}
	}

	files := bm.Files()
	if len(files) != 1 || files[0].InodeIndex != 0 || files[0].Count != 79 {
		t.Errorf("Files = %+v", files)
	}
}

func TestBuildBlockMapErrors(t *testing.T) {
	geometry := diskimage.Geometry{BlockSize: 512, InodeBlocks: 1, DataBlocks: 20}

	tests := []struct {
		name  string
		setup func(ti *testImage)
		want  error
	}{
		{
			name: "shared block",
			setup: func(ti *testImage) {
				ti.usePool([]int32{4, 5}).placeFile(1, 1024)
				in := blankInode()
				in.NLink, in.Size = 1, 512
				in.Direct[0] = 5
				ti.writeInode(2, in)
			},
			want: commonerrors.ErrBlockCollision,
		},
		{
			name: "pointer table references itself",
			setup: func(ti *testImage) {
				in := blankInode()
				in.NLink, in.Size = 1, 12*512
				copy(in.Direct[:], ascending(0, 10))
				in.Indirect[0] = 10
				ti.setPointers(10, []int32{10, 11})
				ti.writeInode(0, in)
			},
			want: commonerrors.ErrBlockCollision,
		},
		{
			name: "direct block past data region",
			setup: func(ti *testImage) {
				in := blankInode()
				in.NLink, in.Size = 1, 512
				in.Direct[0] = 999
				ti.writeInode(0, in)
			},
			want: commonerrors.ErrBlockOutOfRange,
		},
		{
			name: "negative pointer entry",
			setup: func(ti *testImage) {
				in := blankInode()
				in.NLink, in.Size = 1, 11*512
				copy(in.Direct[:], ascending(0, 10))
				in.Indirect[0] = 10
				ti.setPointers(10, []int32{-7})
				ti.writeInode(0, in)
			},
			want: commonerrors.ErrBlockOutOfRange,
		},
		{
			name: "empty direct slot inside file",
			setup: func(ti *testImage) {
				in := blankInode()
				in.NLink, in.Size = 1, 3*512
				in.Direct[0], in.Direct[2] = 0, 2
				ti.writeInode(0, in)
			},
			want: commonerrors.ErrCorruptImage,
		},
		{
			name: "pointer table shorter than size",
			setup: func(ti *testImage) {
				in := blankInode()
				in.NLink, in.Size = 1, 12*512
				copy(in.Direct[:], ascending(0, 10))
				in.Indirect[0] = 10
				ti.setPointers(10, []int32{11})
				ti.writeInode(0, in)
			},
			want: commonerrors.ErrLayoutDivergence,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ti := newTestImage(t, geometry)
			tt.setup(ti)
			_, err := mapImage(t, ti.img)
			if !errors.Is(err, tt.want) {
				t.Errorf("expected %v, got %v", tt.want, err)
			}
			if !commonerrors.IsCorruption(err) {
				t.Errorf("IsCorruption(%v) = false", err)
			}
		})
	}
}

func TestBuildBlockMapSparseTablesDiverge(t *testing.T) {
	ti := newTestImage(t, diskimage.Geometry{BlockSize: 16, InodeBlocks: 25, DataBlocks: 40})
	in := blankInode()
	in.NLink, in.Size = 1, 16*15
	copy(in.Direct[:], ascending(0, 10))
	in.Indirect[0], in.Indirect[1], in.Indirect[2] = 10, 11, 12
	ti.setPointers(10, []int32{20})
	ti.setPointers(11, []int32{21, 22, 23})
	ti.setPointers(12, []int32{24})
	ti.writeInode(0, in)

	if _, err := mapImage(t, ti.img); !errors.Is(err, commonerrors.ErrLayoutDivergence) {
		t.Errorf("expected ErrLayoutDivergence, got %v", err)
	}
}

func TestBuildBlockMapMismatchedInputs(t *testing.T) {
	ti := newTestImage(t, diskimage.Geometry{BlockSize: 512, InodeBlocks: 1, DataBlocks: 4})
	if _, err := BuildBlockMap(nil, nil, nil); !errors.Is(err, commonerrors.ErrMissingInput) {
		t.Errorf("nil image: expected ErrMissingInput, got %v", err)
	}
	_, err := BuildBlockMap(ti.img, []FileRecord{{InodeIndex: 1}}, nil)
	if !errors.Is(err, commonerrors.ErrMissingInput) {
		t.Errorf("missing placements: expected ErrMissingInput, got %v", err)
	}
}

func TestFragments(t *testing.T) {
	tests := []struct {
		name string
		old  []int
		want int
	}{
		{"empty", nil, 0},
		{"contiguous", []int{4, 5, 6, 7}, 1},
		{"reversed", []int{3, 2, 1}, 3},
		{"two runs", []int{0, 1, 2, 9, 10}, 2},
	}
	for _, tt := range tests {
		var entries []BlockMapEntry
		for i, o := range tt.old {
			entries = append(entries, BlockMapEntry{Old: o, New: i})
		}
		if got := Fragments(entries); got != tt.want {
			t.Errorf("%s: Fragments = %d, want %d", tt.name, got, tt.want)
		}
	}
}
