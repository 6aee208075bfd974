package archon

// ChunkIter walks every chunk of every archetype a CompiledQuery currently
// matches, honoring the enabled/disabled row partition and the query's
// change filter (§4.H "Iteration"). Structural mutation of the entities it
// visits is forbidden while a ChunkIter holds its chunk locked; calling
// World.AddComponent/RemoveComponent/DeleteEntity against a locked chunk
// returns IterationViolationError (§5 "Safety invariants").
type ChunkIter struct {
	world *World
	query *CompiledQuery

	archIdx  int
	chunkIdx int

	cur     *chunk
	curArch *archetype
}

// Iter refreshes q against the current archetype graph and returns a fresh
// ChunkIter over the result (§6 "iterate").
func (w *World) Iter(q *CompiledQuery) *ChunkIter {
	q.refresh(w.graph, w.relations)
	return &ChunkIter{world: w, query: q, archIdx: -1}
}

// Next advances to the next matching, non-empty chunk that passes the
// change filter, locking it and unlocking the previously visited chunk.
// Returns false once no chunk remains.
func (it *ChunkIter) Next() bool {
	if it.cur != nil {
		it.cur.unlock()
		it.cur = nil
	}
	for {
		if it.archIdx == -1 || it.chunkIdx >= len(it.curArch.chunks) {
			it.archIdx++
			if it.archIdx >= len(it.query.matched) {
				return false
			}
			it.curArch = it.query.matched[it.archIdx]
			it.chunkIdx = 0
			continue
		}
		c := it.curArch.chunks[it.chunkIdx]
		it.chunkIdx++
		if c.empty() {
			continue
		}
		if !it.passesChangeFilter(c) {
			continue
		}
		c.lock()
		for id := range it.query.writeSet {
			c.bumpColumn(id, it.world.version)
		}
		it.cur = c
		return true
	}
}

// passesChangeFilter reports whether chunk c should be visited given the
// query's Changed() terms: on the query's first-ever iteration (bootstrap)
// nothing is skipped, since there is no prior version to compare against
// (§4.H "bootstrap skips nothing"). Bootstrap is tracked on the CompiledQuery
// itself, not the iterator, so only the very first pass over this query is
// exempt — a second, unrelated Iter call over the same query must still
// filter.
func (it *ChunkIter) passesChangeFilter(c *chunk) bool {
	if len(it.query.changedIDs) == 0 {
		return true
	}
	if !it.query.bootstrapped {
		return true
	}
	for _, id := range it.query.changedIDs {
		if c.columnVersion(id) > it.query.lastSeenVersion {
			return true
		}
	}
	return false
}

// Close releases the currently-locked chunk (if any) and records the
// world's current version as this query's new baseline for future Changed()
// comparisons (§4.H). Callers should defer Close after obtaining a ChunkIter.
func (it *ChunkIter) Close() {
	if it.cur != nil {
		it.cur.unlock()
		it.cur = nil
	}
	it.query.bootstrapped = true
	it.query.lastSeenVersion = it.world.version
}

// Chunk returns the chunk the most recent Next call positioned on.
func (it *ChunkIter) Chunk() *chunk { return it.cur }

// Len returns the number of enabled rows in the current chunk.
func (it *ChunkIter) Len() int { return int(it.cur.count - it.cur.disabledCount) }

// Entity returns the handle at enabled-row i (0-based within the enabled
// partition) of the current chunk.
func (it *ChunkIter) Entity(i int) EntityID {
	return it.cur.rowEntity(it.cur.disabledCount + uint32(i))
}

// Cursor is the row-granular "each" iterator built atop ChunkIter, visiting
// one entity at a time across every matching chunk (§4.H "Cursor").
type Cursor struct {
	chunks *ChunkIter
	row    int
}

// Each returns a Cursor over q's current matches.
func (w *World) Each(q *CompiledQuery) *Cursor {
	return &Cursor{chunks: w.Iter(q), row: -1}
}

// Next advances the cursor to the next entity, crossing chunk boundaries as
// needed. Returns false once exhausted.
func (c *Cursor) Next() bool {
	for {
		if c.chunks.cur == nil {
			if !c.chunks.Next() {
				return false
			}
			c.row = -1
		}
		c.row++
		if c.row >= c.chunks.Len() {
			c.row = -1
			if !c.chunks.Next() {
				return false
			}
			continue
		}
		return true
	}
}

// Entity returns the handle at the cursor's current position.
func (c *Cursor) Entity() EntityID { return c.chunks.Entity(c.row) }

// Close releases the cursor's underlying ChunkIter (§4.H).
func (c *Cursor) Close() { c.chunks.Close() }

// GetCursor reads component c's value at the cursor's current row, bumping
// nothing (read view).
func GetCursor[T any](w *World, cur *Cursor, c Component[T]) T {
	chunk := cur.chunks.cur
	row := chunk.disabledCount + uint32(cur.row)
	col := &chunk.owner.columns[chunk.owner.columnIndex(c.id)]
	desc := w.registry.describe(c.id)
	base := chunk.base()
	if col.layout == AoS {
		return *(*T)(col.aosPtr(base, row))
	}
	return gatherSoA[T](desc, col, base, row)
}

// SetCursor writes component c's value at the cursor's current row and
// bumps the owning chunk's column version (write view, §4.H).
func SetCursor[T any](w *World, cur *Cursor, c Component[T], value T) {
	chunk := cur.chunks.cur
	row := chunk.disabledCount + uint32(cur.row)
	col := &chunk.owner.columns[chunk.owner.columnIndex(c.id)]
	desc := w.registry.describe(c.id)
	storeComponent[T](desc, col, chunk.base(), row, value)
	chunk.bumpColumn(c.id, w.version)
}
