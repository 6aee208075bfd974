package archon

import "unsafe"

// columnLayout describes where one archetype's component column lives
// within a chunk body (§3 "Chunk", §4.D "Layout algorithm"). AoS components
// address row j at offset+j*stride; SoA components instead address each
// field's own sub-array via fieldOffsets/fieldStride.
type columnLayout struct {
	id     ComponentID
	layout LayoutKind
	offset uintptr // AoS start offset; unused for SoA
	stride uintptr // AoS per-row stride

	fieldOffsets []uintptr // SoA: start offset of each field's sub-array
	fieldStride  []uintptr // SoA: per-row stride within each field's sub-array
}

func (c *columnLayout) aosPtr(base unsafe.Pointer, row uint32) unsafe.Pointer {
	return unsafe.Add(base, c.offset+uintptr(row)*c.stride)
}

func (c *columnLayout) soaFieldPtr(base unsafe.Pointer, field int, row uint32) unsafe.Pointer {
	return unsafe.Add(base, c.fieldOffsets[field]+uintptr(row)*c.fieldStride[field])
}

// chunk is a fixed-size block holding up to capacity rows of one archetype
// (§3 "Chunk", §4.C). Rows [0, disabledCount) are disabled; rows
// [disabledCount, count) are enabled.
type chunk struct {
	owner    *archetype
	class    chunkSizeClass
	buf      []byte
	capacity uint32

	count         uint32
	disabledCount uint32

	entities       []EntityID // row -> handle, length == capacity, addressed [0,count)
	columnVersions []uint32   // one per owner.columns entry

	lockDepth int
	dying     bool
	lifespan  int // frames remaining before a dying chunk's memory is released
}

func newChunk(owner *archetype, buf []byte, class chunkSizeClass, capacity uint32) *chunk {
	return &chunk{
		owner:          owner,
		class:          class,
		buf:            buf,
		capacity:       capacity,
		entities:       make([]EntityID, capacity),
		columnVersions: make([]uint32, len(owner.columns)),
	}
}

func (c *chunk) base() unsafe.Pointer {
	if len(c.buf) == 0 {
		return nil
	}
	return unsafe.Pointer(&c.buf[0])
}

func (c *chunk) full() bool  { return c.count == c.capacity }
func (c *chunk) empty() bool { return c.count == 0 }

// locked reports whether an iterator currently holds a reference into this
// chunk (§5 "lock-depth counter").
func (c *chunk) locked() bool { return c.lockDepth > 0 }

func (c *chunk) lock()   { c.lockDepth++ }
func (c *chunk) unlock() { c.lockDepth-- }

// rowEntity returns the handle stored at row.
func (c *chunk) rowEntity(row uint32) EntityID { return c.entities[row] }

// columnIndex returns the position of id within owner.columns, or -1.
func (c *chunk) columnIndex(id ComponentID) int {
	return c.owner.columnIndex(id)
}

// addRow appends entity to the enabled section, resurrecting a dying chunk
// and constructing default values for every owned component (§4.C
// "add_row"). A new entity is always enabled, and the enabled partition
// [disabledCount, count) already ends at count, so appending at the current
// count extends that range in place without disturbing the disabled prefix.
func (c *chunk) addRow(entity EntityID, descs []*ComponentDescriptor) uint32 {
	c.dying = false
	row := c.count
	c.entities[row] = entity
	c.count++
	for _, col := range c.owner.columns {
		desc := descs[col.id]
		if col.layout == AoS {
			desc.construct(col.aosPtr(c.base(), row))
		} else {
			for f := range col.fieldOffsets {
				zeroBytes(col.soaFieldPtr(c.base(), f, row), desc.FieldSizes[f])
			}
		}
	}
	return row
}

// relocateRow physically moves the row at src to dst, including its entity
// id and all component columns. It does not touch the entity directory; the
// caller fixes up the moved entity's record. Used by removeRow's
// swap-remove.
func (c *chunk) relocateRow(dst, src uint32) {
	if dst == src {
		return
	}
	c.entities[dst] = c.entities[src]
	for _, col := range c.owner.columns {
		if col.layout == AoS {
			rawCopy(col.aosPtr(c.base(), dst), col.aosPtr(c.base(), src), col.stride)
		} else {
			for f := range col.fieldOffsets {
				rawCopy(col.soaFieldPtr(c.base(), f, dst), col.soaFieldPtr(c.base(), f, src), col.fieldStride[f])
			}
		}
	}
}

// removeRow swap-removes row with the last row of its own partition
// (enabled<->enabled, disabled<->disabled), destroying the vacated storage
// and reporting which row (if any) was swapped into row's place so the
// caller can fix up that entity's directory record (§4.C "remove_row").
func (c *chunk) removeRow(row uint32, descs []*ComponentDescriptor) (movedFrom uint32, moved bool) {
	for _, col := range c.owner.columns {
		desc := descs[col.id]
		if col.layout == AoS {
			desc.destroy(col.aosPtr(c.base(), row))
		}
	}
	inDisabled := row < c.disabledCount
	last := c.count - 1
	if inDisabled {
		last = c.disabledCount - 1
	}
	if row != last {
		c.relocateRow(row, last)
		moved = true
		movedFrom = last
	}
	if inDisabled {
		c.disabledCount--
	}
	c.count--
	if c.count == 0 {
		c.dying = true
	}
	return movedFrom, moved
}

// swapRows exchanges the entity ids and every component value of rows a and
// b in place, preserving both sides' data (unlike relocateRow, which
// overwrites dst and is only safe when dst's prior contents are already
// disposable).
func (c *chunk) swapRows(a, b uint32) {
	if a == b {
		return
	}
	c.entities[a], c.entities[b] = c.entities[b], c.entities[a]
	base := c.base()
	for _, col := range c.owner.columns {
		if col.layout == AoS {
			swapBytes(col.aosPtr(base, a), col.aosPtr(base, b), col.stride)
		} else {
			for f := range col.fieldOffsets {
				swapBytes(col.soaFieldPtr(base, f, a), col.soaFieldPtr(base, f, b), col.fieldStride[f])
			}
		}
	}
}

// enable toggles row's membership in the enabled/disabled partition by
// swapping it across the boundary index, returning the row the boundary
// entity moved to so callers can update that entity's directory record
// (§4.C "enable").
func (c *chunk) enable(row uint32, flag bool) (newRow uint32, boundaryMoved bool, boundaryRow uint32) {
	currentlyEnabled := row >= c.disabledCount
	if currentlyEnabled == flag {
		return row, false, 0
	}
	if flag {
		// row is disabled; swap it with the last disabled slot
		// (disabledCount-1), then shrink the disabled partition so that
		// slot becomes the first enabled one.
		boundary := c.disabledCount - 1
		if row != boundary {
			c.swapRows(row, boundary)
			boundaryMoved = true
			boundaryRow = row
			row = boundary
		}
		c.disabledCount--
		return row, boundaryMoved, boundaryRow
	}
	// row is enabled; swap it with the first enabled slot (disabledCount),
	// then grow the disabled partition to include that slot.
	boundary := c.disabledCount
	if row != boundary {
		c.swapRows(row, boundary)
		boundaryMoved = true
		boundaryRow = row
		row = boundary
	}
	c.disabledCount++
	return row, boundaryMoved, boundaryRow
}

// bumpColumn marks column id's version as modified at worldVersion. A write
// view calls this; a read view and set_component_silent never do (§4.C
// "Version semantics").
func (c *chunk) bumpColumn(id ComponentID, worldVersion uint32) {
	if idx := c.columnIndex(id); idx >= 0 {
		c.columnVersions[idx] = worldVersion
	}
}

// columnVersion returns column id's last-bumped world version, or 0 if the
// chunk never saw a write to it.
func (c *chunk) columnVersion(id ComponentID) uint32 {
	if idx := c.columnIndex(id); idx >= 0 {
		return c.columnVersions[idx]
	}
	return 0
}
