package archon

import (
	"fmt"
	"sort"
)

// archetype is the equivalence class of entities sharing exactly one
// component-id set (§3 "Archetype", §4.D). Its component-id set is fixed at
// creation; column layout and row capacity are derived once from the chunk
// size class and never change afterward.
type archetype struct {
	ids      []ComponentID // sorted ascending; defines identity
	mask     Mask
	columns  []columnLayout // parallel to a sorted subset view, see columnIndex
	class    chunkSizeClass
	capacity uint32

	chunks []*chunk

	addEdges    map[ComponentID]*archetype
	removeEdges map[ComponentID]*archetype
}

// columnIndex returns the position of id within columns, or -1 if the
// archetype does not carry id.
func (a *archetype) columnIndex(id ComponentID) int {
	for i := range a.columns {
		if a.columns[i].id == id {
			return i
		}
	}
	return -1
}

func (a *archetype) has(id ComponentID) bool {
	return maskHas(a.mask, id)
}

// newArchetype builds an archetype for the given sorted, deduplicated
// component ids, computing its chunk capacity and per-column layout (§4.D
// "Layout algorithm").
func newArchetype(ids []ComponentID, registry *componentRegistry, class chunkSizeClass) *archetype {
	sorted := append([]ComponentID(nil), ids...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	descs := make([]*ComponentDescriptor, len(sorted))
	for i, id := range sorted {
		descs[i] = registry.describe(id)
	}
	capacity, columns := computeLayout(class, descs)

	a := &archetype{
		ids:         sorted,
		mask:        maskOf(sorted...),
		columns:     columns,
		class:       class,
		capacity:    capacity,
		addEdges:    make(map[ComponentID]*archetype),
		removeEdges: make(map[ComponentID]*archetype),
	}
	return a
}

// entityColumnBytes is the size, in bytes, of one row's entry in the
// entity-id column (§3 "Chunk": "one 64-bit handle per row").
const entityColumnBytes = 8

// computeLayout implements §4.D's layout algorithm: binary-search for the
// largest capacity at which the entity-id column plus every component column
// fits within one chunk body, then fix offsets/strides for that capacity.
func computeLayout(class chunkSizeClass, descs []*ComponentDescriptor) (uint32, []columnLayout) {
	body := class.bytes()
	maxCap := body / entityColumnBytes
	if maxCap > 0xFFFF {
		maxCap = 0xFFFF // §4.B: row count must fit a 16-bit counter
	}

	fits := func(cap uintptr) (bool, []columnLayout) {
		offset := alignUp(0, 8) + cap*entityColumnBytes
		cols := make([]columnLayout, len(descs))
		for i, d := range descs {
			cols[i].id = d.ID
			cols[i].layout = d.Layout
			if d.Layout == AoS {
				align := d.Align
				if align == 0 {
					align = 1
				}
				offset = alignUp(offset, align)
				stride := alignUp(d.Size, align)
				cols[i].offset = offset
				cols[i].stride = stride
				offset += cap * stride
			} else {
				pack := uintptr(d.Layout.PackWidth())
				n := len(d.FieldSizes)
				cols[i].fieldOffsets = make([]uintptr, n)
				cols[i].fieldStride = make([]uintptr, n)
				for f := 0; f < n; f++ {
					fsize := d.FieldSizes[f]
					falign := d.FieldAligns[f]
					if falign == 0 {
						falign = 1
					}
					padAlign := falign
					if want := pack * fsize; want > padAlign {
						padAlign = want
					}
					offset = alignUp(offset, padAlign)
					cols[i].fieldOffsets[f] = offset
					cols[i].fieldStride[f] = fsize
					offset += cap * fsize
				}
			}
		}
		return offset <= body, cols
	}

	lo, hi := uintptr(1), maxCap
	var bestCap uintptr
	var bestCols []columnLayout
	for lo <= hi {
		mid := lo + (hi-lo)/2
		ok, cols := fits(mid)
		if ok {
			bestCap, bestCols = mid, cols
			lo = mid + 1
		} else {
			hi = mid - 1
		}
	}
	if bestCols == nil {
		// Even a single row doesn't fit; the archetype is unusable, but we
		// still return a zero-capacity layout rather than panicking here —
		// the caller surfaces AllocationFailedError on first insert attempt.
		_, bestCols = fits(0)
	}
	return uint32(bestCap), bestCols
}

// chunkFor returns a chunk with a free row, allocating a new one if needed,
// per the archetype's configured chunk-selection policy (§4.D, §9).
func (a *archetype) chunkFor(alloc *chunkAllocator, policy DefragPolicy) (*chunk, error) {
	if a.capacity == 0 {
		return nil, AllocationFailedError{SizeClass: a.class, Cause: fmt.Errorf("archetype %v does not fit a single row in one chunk", a.ids)}
	}
	if policy == PreferLeastFull {
		var best *chunk
		for _, c := range a.chunks {
			if c.full() {
				continue
			}
			if best == nil || c.count < best.count {
				best = c
			}
		}
		if best != nil {
			return best, nil
		}
	} else if n := len(a.chunks); n > 0 {
		if last := a.chunks[n-1]; !last.full() {
			return last, nil
		}
	}
	buf, err := alloc.alloc(a.class)
	if err != nil {
		return nil, err
	}
	c := newChunk(a, buf, a.class, a.capacity)
	a.chunks = append(a.chunks, c)
	return c, nil
}

// removeChunk drops c from the archetype's chunk list and releases its
// memory, used by GC once c's lifespan countdown reaches zero (§4.C
// "Lifecycle").
func (a *archetype) removeChunk(alloc *chunkAllocator, c *chunk) {
	for i, other := range a.chunks {
		if other == c {
			a.chunks = append(a.chunks[:i], a.chunks[i+1:]...)
			break
		}
	}
	alloc.release(c.class, c.buf)
}

// entityCount sums live rows across every chunk, used by the §8 invariant
// "sum(chunk.count) == entities_in(A)".
func (a *archetype) entityCount() int {
	n := 0
	for _, c := range a.chunks {
		n += int(c.count)
	}
	return n
}

func unionIDs(ids []ComponentID, add ComponentID) []ComponentID {
	out := make([]ComponentID, 0, len(ids)+1)
	inserted := false
	for _, id := range ids {
		if id == add {
			return append([]ComponentID(nil), ids...)
		}
		if !inserted && id > add {
			out = append(out, add)
			inserted = true
		}
		out = append(out, id)
	}
	if !inserted {
		out = append(out, add)
	}
	return out
}

func removeID(ids []ComponentID, remove ComponentID) []ComponentID {
	out := make([]ComponentID, 0, len(ids))
	for _, id := range ids {
		if id != remove {
			out = append(out, id)
		}
	}
	return out
}
