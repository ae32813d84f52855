package defrag

import (
	"testing"

	"github.com/deploymenttheory/go-disk-defrag/internal/diskimage"
)

// testImage builds fragmented inputs on top of a freshly formatted image
type testImage struct {
	t    *testing.T
	img  *diskimage.Image
	pool []int32 // physical blocks handed out in order
}

func newTestImage(t *testing.T, g diskimage.Geometry) *testImage {
	t.Helper()
	img, err := diskimage.Create(g)
	if err != nil {
		t.Fatalf("Create(%+v) failed: %v", g, err)
	}
	return &testImage{t: t, img: img}
}

// usePool sets the physical blocks the next placeFile calls consume
func (ti *testImage) usePool(pool []int32) *testImage {
	ti.pool = append([]int32(nil), pool...)
	return ti
}

func (ti *testImage) take() int32 {
	ti.t.Helper()
	if len(ti.pool) == 0 {
		ti.t.Fatal("test image ran out of physical blocks")
	}
	b := ti.pool[0]
	ti.pool = ti.pool[1:]
	return b
}

// placeFile writes a used inode of size bytes into slot, with tightly packed
// pointer tables, drawing physical blocks from the pool. It returns the blocks
// used in mapping order, so a defragmented file has used[k] at start+k.
func (ti *testImage) placeFile(slot int, size int32) []int32 {
	ti.t.Helper()
	bs := ti.img.BlockSize()
	remaining := 0
	if size > 0 {
		remaining = (int(size) + bs - 1) / bs
	}

	in := blankInode()
	in.NLink = 1
	in.Size = size
	in.UID, in.GID = 1000, 100
	in.Protect = 0o644
	in.CTime, in.MTime, in.ATime = 1700000000, 1700000001, 1700000002

	var used []int32
	payload := 0
	var build func(depth int) int32
	build = func(depth int) int32 {
		b := ti.take()
		used = append(used, b)
		if depth == depthData {
			block, err := ti.img.Block(int(b))
			if err != nil {
				ti.t.Fatal(err)
			}
			fillPayload(block, slot, payload)
			payload++
			remaining--
			return b
		}
		var children []int32
		for len(children) < ti.img.Superblock().PointersPerBlock() && remaining > 0 {
			children = append(children, build(depth-1))
		}
		ti.setPointers(b, children)
		return b
	}

	for i := 0; i < diskimage.NDirect && remaining > 0; i++ {
		in.Direct[i] = build(depthData)
	}
	for i := 0; i < diskimage.NIndirect && remaining > 0; i++ {
		in.Indirect[i] = build(depthSingle)
	}
	if remaining > 0 {
		in.DoubleIndirect = build(depthDouble)
	}
	if remaining > 0 {
		in.TripleIndirect = build(depthTriple)
	}
	if remaining > 0 {
		ti.t.Fatalf("file of %d bytes does not fit the pointer tree", size)
	}

	ti.writeInode(slot, in)
	return used
}

// setPointers writes a pointer table, padding it with the sentinel
func (ti *testImage) setPointers(block int32, ptrs []int32) {
	ti.t.Helper()
	table := make([]int32, ti.img.Superblock().PointersPerBlock())
	for i := range table {
		table[i] = diskimage.Sentinel
	}
	copy(table, ptrs)
	if err := ti.img.WritePointers(int(block), table); err != nil {
		ti.t.Fatal(err)
	}
}

func (ti *testImage) inode(slot int) diskimage.Inode {
	ti.t.Helper()
	in, err := ti.img.ReadInode(slot)
	if err != nil {
		ti.t.Fatal(err)
	}
	return in
}

func (ti *testImage) writeInode(slot int, in diskimage.Inode) {
	ti.t.Helper()
	if err := ti.img.WriteInode(slot, in); err != nil {
		ti.t.Fatal(err)
	}
}

// bytes returns a copy of the image buffer
func (ti *testImage) bytes() []byte {
	return append([]byte(nil), ti.img.Bytes()...)
}

func blankInode() diskimage.Inode {
	in := diskimage.Inode{NextInode: diskimage.Sentinel}
	for i := range in.Direct {
		in.Direct[i] = diskimage.Sentinel
	}
	for i := range in.Indirect {
		in.Indirect[i] = diskimage.Sentinel
	}
	in.DoubleIndirect, in.TripleIndirect = diskimage.Sentinel, diskimage.Sentinel
	return in
}

func fillPayload(block []byte, slot, k int) {
	for i := range block {
		block[i] = byte(slot*37 + k*11 + i + 1)
	}
}

// readFile follows the pointer graph of an inode and returns its payload
func readFile(t *testing.T, img *diskimage.Image, slot int) []byte {
	t.Helper()
	in, err := img.ReadInode(slot)
	if err != nil {
		t.Fatal(err)
	}
	bs := img.BlockSize()
	remaining := 0
	if in.Size > 0 {
		remaining = (int(in.Size) + bs - 1) / bs
	}

	var out []byte
	var visit func(b int32, depth int)
	visit = func(b int32, depth int) {
		if remaining <= 0 || b == diskimage.Sentinel {
			return
		}
		if depth == depthData {
			block, err := img.Block(int(b))
			if err != nil {
				t.Fatalf("inode %d: %v", slot, err)
			}
			out = append(out, block...)
			remaining--
			return
		}
		ptrs, err := img.ReadPointers(int(b))
		if err != nil {
			t.Fatalf("inode %d: %v", slot, err)
		}
		for _, p := range ptrs {
			if remaining <= 0 || p == diskimage.Sentinel {
				return
			}
			visit(p, depth-1)
		}
	}

	for _, b := range in.Direct {
		visit(b, depthData)
	}
	for _, b := range in.Indirect {
		visit(b, depthSingle)
	}
	visit(in.DoubleIndirect, depthDouble)
	visit(in.TripleIndirect, depthTriple)

	if remaining != 0 {
		t.Fatalf("inode %d: %d blocks unreachable", slot, remaining)
	}
	return out
}

func ascending(from, to int) []int32 {
	var out []int32
	for i := from; i < to; i++ {
		out = append(out, int32(i))
	}
	return out
}
