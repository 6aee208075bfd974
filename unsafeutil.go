package archon

import "unsafe"

// bytePointerDiff returns the byte distance from base to p, both addresses
// of byte elements within (or just past) the same backing array. Used by
// chunkalloc.go to recover a slot index from a block and to test which page
// a block belongs to.
func bytePointerDiff(base, p *byte) uintptr {
	return uintptr(unsafe.Pointer(p)) - uintptr(unsafe.Pointer(base))
}

// rawEqualZero reports whether the size bytes at p are all zero, used by
// AddComponent's duplicate-add policy to recognize an untouched default value.
func rawEqualZero(p unsafe.Pointer, size uintptr) bool {
	if size == 0 {
		return true
	}
	s := unsafe.Slice((*byte)(p), size)
	for _, b := range s {
		if b != 0 {
			return false
		}
	}
	return true
}

// alignUp rounds off up to the next multiple of align (align must be a power
// of two, or 1 for "no alignment requirement").
func alignUp(off, align uintptr) uintptr {
	if align <= 1 {
		return off
	}
	return (off + align - 1) &^ (align - 1)
}

// swapBytes exchanges size bytes at a and b via a stack-allocated scratch
// buffer, used to swap two rows' component values in place without losing
// either side's data (chunk.go's enable/partition-boundary swap).
func swapBytes(a, b unsafe.Pointer, size uintptr) {
	if size == 0 || a == b {
		return
	}
	aSlice := unsafe.Slice((*byte)(a), size)
	bSlice := unsafe.Slice((*byte)(b), size)
	var scratch [256]byte
	buf := scratch[:0]
	if size <= uintptr(len(scratch)) {
		buf = scratch[:size]
	} else {
		buf = make([]byte, size)
	}
	copy(buf, aSlice)
	copy(aSlice, bSlice)
	copy(bSlice, buf)
}
