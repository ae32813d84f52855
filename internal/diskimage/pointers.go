package diskimage

import "encoding/binary"

// DecodePointers reads every 4-byte little-endian entry of a pointer block
func DecodePointers(block []byte) []int32 {
	ptrs := make([]int32, len(block)/PointerSize)
	for i := range ptrs {
		ptrs[i] = PointerAt(block, i)
	}
	return ptrs
}

// PointerAt reads entry i of a pointer block
func PointerAt(block []byte, i int) int32 {
	return int32(binary.LittleEndian.Uint32(block[i*PointerSize:]))
}

// EncodePointers writes ptrs at the start of block and zero-fills the rest
func EncodePointers(block []byte, ptrs []int32) {
	n := 0
	for i, p := range ptrs {
		if (i+1)*PointerSize > len(block) {
			break
		}
		binary.LittleEndian.PutUint32(block[i*PointerSize:], uint32(p))
		n = (i + 1) * PointerSize
	}
	clear(block[n:])
}
