package defrag

// Fragments counts the runs of physically consecutive old blocks in a file's
// enumeration order. A fully contiguous file has one fragment, an empty file none.
func Fragments(entries []BlockMapEntry) int {
	if len(entries) == 0 {
		return 0
	}
	runs := 1
	for i := 1; i < len(entries); i++ {
		if entries[i].Old != entries[i-1].Old+1 {
			runs++
		}
	}
	return runs
}

// FileFragments returns the fragment count of every mapped file keyed by inode index
func (m *BlockMap) FileFragments() map[int]int {
	out := make(map[int]int, len(m.files))
	for _, span := range m.files {
		out[span.InodeIndex] = Fragments(m.FileEntries(span))
	}
	return out
}
