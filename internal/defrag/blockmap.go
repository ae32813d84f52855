package defrag

import (
	"fmt"

	commonerrors "github.com/deploymenttheory/go-disk-defrag/internal/common/errors"
)

// BlockMapEntry translates one old data-region block index to its new index
type BlockMapEntry struct {
	Old     int
	New     int
	Pointer bool // the old block holds a pointer table rather than payload
}

// FileSpan locates one file's entries inside the map
type FileSpan struct {
	InodeIndex int
	First      int
	Count      int
}

// BlockMap is the old→new translation table. Entries keep enumeration order;
// lookups by old index go through a hash index.
type BlockMap struct {
	entries []BlockMapEntry
	byOld   map[int]int
	files   []FileSpan
}

// NewBlockMap allocates a map sized for n entries
func NewBlockMap(n int) *BlockMap {
	return &BlockMap{
		entries: make([]BlockMapEntry, 0, n),
		byOld:   make(map[int]int, n),
	}
}

func (m *BlockMap) beginFile(inode int) {
	m.files = append(m.files, FileSpan{InodeIndex: inode, First: len(m.entries)})
}

func (m *BlockMap) add(old, newIdx int, pointer bool) error {
	if prev, ok := m.byOld[old]; ok {
		owner := m.ownerOf(prev)
		return commonerrors.NewDefragError(commonerrors.ErrBlockCollision, "BuildBlockMap",
			fmt.Sprintf("block %d", old), fmt.Sprintf("already mapped to %d for inode %d", m.entries[prev].New, owner))
	}
	m.byOld[old] = len(m.entries)
	m.entries = append(m.entries, BlockMapEntry{Old: old, New: newIdx, Pointer: pointer})
	if n := len(m.files); n > 0 {
		m.files[n-1].Count++
	}
	return nil
}

func (m *BlockMap) ownerOf(pos int) int {
	for _, f := range m.files {
		if pos >= f.First && pos < f.First+f.Count {
			return f.InodeIndex
		}
	}
	return -1
}

// Lookup returns the new index of an old block
func (m *BlockMap) Lookup(old int) (int, bool) {
	pos, ok := m.byOld[old]
	if !ok {
		return 0, false
	}
	return m.entries[pos].New, true
}

// Entries returns every mapping in enumeration order. The slice must not be modified.
func (m *BlockMap) Entries() []BlockMapEntry {
	return m.entries
}

// Len returns the number of mapped blocks
func (m *BlockMap) Len() int {
	return len(m.entries)
}

// PointerCount returns how many mapped blocks hold pointer tables
func (m *BlockMap) PointerCount() int {
	n := 0
	for _, e := range m.entries {
		if e.Pointer {
			n++
		}
	}
	return n
}

// Files returns the per-file spans in mapping order
func (m *BlockMap) Files() []FileSpan {
	return m.files
}

// FileEntries returns the entries enumerated for one file
func (m *BlockMap) FileEntries(span FileSpan) []BlockMapEntry {
	return m.entries[span.First : span.First+span.Count]
}
