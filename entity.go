package archon

import "fmt"

// EntityID is the 64-bit stable handle described in §3: a 32-bit id packed
// with a 32-bit generation. BadEntity is the reserved sentinel value.
type EntityID uint64

// BadEntity is returned by operations that fail to produce a handle.
const BadEntity EntityID = 0

func newEntityID(id, generation uint32) EntityID {
	return EntityID(uint64(generation)<<32 | uint64(id))
}

// index returns the 32-bit slot index this handle refers to.
func (e EntityID) index() uint32 { return uint32(e) }

// generation returns the handle's generation tag.
func (e EntityID) generation() uint32 { return uint32(e >> 32) }

func (e EntityID) String() string {
	if e == BadEntity {
		return "Entity(bad)"
	}
	return fmt.Sprintf("Entity(id=%d, gen=%d)", e.index(), e.generation())
}

// entityRecord is the directory's per-id slot (§3 "Entity record"). When the
// slot is free, row is repurposed as the implicit free-list's "next free"
// pointer and archetype/chunk are nil.
type entityRecord struct {
	archetype  *archetype
	chunk      *chunk
	row        uint32
	generation uint32
	enabled    bool
	free       bool
}

const freeListSentinel = ^uint32(0)

// entityDirectory maps handles to {archetype, chunk, row} and recycles freed
// ids through an implicit free list threaded via entityRecord.row (§4.F).
// It is owned by a single World, never a package-level singleton.
type entityDirectory struct {
	records     []entityRecord // index 0 unused; ids start at 1
	nextFreeIdx uint32
	freeCount   int
}

func newEntityDirectory() *entityDirectory {
	return &entityDirectory{
		records:     make([]entityRecord, 1, 1024),
		nextFreeIdx: freeListSentinel,
	}
}

// alloc reserves a slot, recycling a freed one if the free list is
// non-empty, and returns the fresh handle. Callers must fill in the
// returned record's archetype/chunk/row before the entity is considered
// live.
func (d *entityDirectory) alloc() (EntityID, *entityRecord) {
	if d.freeCount > 0 {
		idx := d.nextFreeIdx
		rec := &d.records[idx]
		d.nextFreeIdx = rec.row // row was repurposed as the free-list link
		d.freeCount--
		rec.free = false
		rec.enabled = true
		return newEntityID(idx, rec.generation), rec
	}
	idx := uint32(len(d.records))
	d.records = append(d.records, entityRecord{generation: 0, enabled: true})
	return newEntityID(idx, 0), &d.records[idx]
}

// free releases id back to the directory, bumping its generation and
// threading it onto the free list.
func (d *entityDirectory) free(id EntityID) {
	idx := id.index()
	rec := &d.records[idx]
	rec.free = true
	rec.archetype = nil
	rec.chunk = nil
	rec.generation++
	rec.row = d.nextFreeIdx
	d.nextFreeIdx = idx
	d.freeCount++
}

// valid reports whether id refers to a live, currently-issued slot.
func (d *entityDirectory) valid(id EntityID) bool {
	idx := id.index()
	if idx == 0 || int(idx) >= len(d.records) {
		return false
	}
	rec := &d.records[idx]
	return !rec.free && rec.generation == id.generation()
}

// lookup returns the record for id, or nil if the handle is invalid.
func (d *entityDirectory) lookup(id EntityID) *entityRecord {
	if !d.valid(id) {
		return nil
	}
	return &d.records[id.index()]
}

// liveCount returns the number of currently live (non-free) entities.
func (d *entityDirectory) liveCount() int {
	return len(d.records) - 1 - d.freeCount
}
