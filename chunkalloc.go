package archon

import "fmt"

// allocPage backs one 1 MiB page for a given size class, subdivided into
// fixed-size slots threaded onto a free list (§4.B).
type allocPage struct {
	buf       []byte
	slotSize  uintptr
	freeSlots []uint32 // slot indices currently free
	usedCount int
}

func newAllocPage(class chunkSizeClass) *allocPage {
	slotSize := class.bytes()
	slots := int(chunkPageBytes / slotSize)
	buf := make([]byte, chunkPageBytes)
	free := make([]uint32, slots)
	for i := range free {
		free[i] = uint32(slots - 1 - i)
	}
	return &allocPage{buf: buf, slotSize: slotSize, freeSlots: free}
}

func (p *allocPage) full() bool  { return len(p.freeSlots) == 0 }
func (p *allocPage) empty() bool { return p.usedCount == 0 }

func (p *allocPage) alloc() []byte {
	n := len(p.freeSlots)
	slot := p.freeSlots[n-1]
	p.freeSlots = p.freeSlots[:n-1]
	p.usedCount++
	start := uintptr(slot) * p.slotSize
	return p.buf[start : start+p.slotSize : start+p.slotSize]
}

func (p *allocPage) free(block []byte) {
	offset := uintptr(0)
	// Recover the slot index from the block's position in the page buffer.
	base := &p.buf[0]
	blockBase := &block[0]
	offset = bytePointerDiff(base, blockBase)
	slot := uint32(offset / p.slotSize)
	p.freeSlots = append(p.freeSlots, slot)
	p.usedCount--
}

// chunkAllocator supplies fixed-size aligned blocks for chunk bodies, pooled
// per size class from page-backed arenas (§4.B). It is owned by a single
// World.
type chunkAllocator struct {
	pages [2][]*allocPage // indexed by chunkSizeClass
}

func newChunkAllocator() *chunkAllocator {
	return &chunkAllocator{}
}

// alloc returns a block of exactly class.bytes() bytes. A block from a fresh
// page is zeroed; a recycled slot keeps the bytes it held when released.
func (a *chunkAllocator) alloc(class chunkSizeClass) ([]byte, error) {
	pages := a.pages[class]
	for _, pg := range pages {
		if !pg.full() {
			return pg.alloc(), nil
		}
	}
	pg, err := newAllocPageChecked(class)
	if err != nil {
		return nil, AllocationFailedError{SizeClass: class, Cause: err}
	}
	a.pages[class] = append(a.pages[class], pg)
	return pg.alloc(), nil
}

// release returns block to its owning page. If the page becomes entirely
// free and is not the sole page in the pool, it is dropped so the Go runtime
// can reclaim it (§4.B: "the page may be released on GC").
func (a *chunkAllocator) release(class chunkSizeClass, block []byte) {
	pages := a.pages[class]
	for i, pg := range pages {
		if blockBelongsTo(pg, block) {
			pg.free(block)
			if pg.empty() && len(pages) > 1 {
				a.pages[class] = append(pages[:i], pages[i+1:]...)
			}
			return
		}
	}
}

// stats reports committed bytes and page counts per size class, consumed by
// StoreStats (§3-EXT "Metrics").
func (a *chunkAllocator) stats() (pages [2]int, bytesCommitted [2]uintptr) {
	for class := range a.pages {
		pages[class] = len(a.pages[class])
		bytesCommitted[class] = uintptr(len(a.pages[class])) * chunkPageBytes
	}
	return
}

func blockBelongsTo(pg *allocPage, block []byte) bool {
	if len(block) == 0 || len(pg.buf) == 0 {
		return false
	}
	diff := bytePointerDiff(&pg.buf[0], &block[0])
	return diff < uintptr(len(pg.buf))
}

// newAllocPageChecked wraps newAllocPage with the panic recovery needed to
// turn a host-level out-of-memory condition into the AllocationFailedError
// §4.B and §7 describe as the allocator's only failure mode.
func newAllocPageChecked(class chunkSizeClass) (pg *allocPage, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("address space exhausted allocating page: %v", r)
		}
	}()
	pg = newAllocPage(class)
	return pg, nil
}
