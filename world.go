package archon

import (
	"context"
	"reflect"

	"github.com/TheBitDrifter/bark"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// World owns every subsystem described in §4: the component registry, the
// chunk allocator, the archetype graph, the entity directory, the relation
// table, and the query cache. It mirrors the teacher's Storage type as the
// single coarse-grained owner of all ECS state, generalized from a
// table.Entry-backed store to the archetype/chunk engine this module builds
// directly (§4.A–§4.H).
type World struct {
	registry   *componentRegistry
	allocator  *chunkAllocator
	graph      *archetypeGraph
	directory  *entityDirectory
	relations  *relationTable
	queryCache map[queryKey]*CompiledQuery

	config  Config
	version uint32

	// locked mirrors the teacher's storage.locks mask.Mask256: while true,
	// structural mutation calls return LockedWorldError instead of
	// panicking mid-iteration (§5 "Safety invariants").
	locked bool

	// FatalHook receives unrecoverable errors (allocator exhaustion) instead
	// of a panic, per §7 "Fatal error policy". A nil hook panics, matching
	// the teacher's default behavior when no handler is installed.
	FatalHook func(error)

	log zerolog.Logger

	// tag is a debug-only label distinguishing one World from another in
	// logs when a process runs several (e.g. per-test-shard worlds in a
	// parallel test binary). It plays no role in entity identity; EntityID
	// handles remain the only identity concept §3 defines.
	tag string
}

// NewWorld constructs a World with the given configuration (§6 "new_world").
func NewWorld(cfg Config, log zerolog.Logger) *World {
	w := &World{
		registry:   newComponentRegistry(),
		allocator:  newChunkAllocator(),
		directory:  newEntityDirectory(),
		relations:  newRelationTable(),
		queryCache: make(map[queryKey]*CompiledQuery),
		config:     cfg,
		log:        log,
	}
	w.graph = newArchetypeGraph(w.registry, cfg.DefaultSizeClass)
	w.tag = uuid.NewString()
	return w
}

// Tag returns this World's debug label, a random UUID assigned at
// construction, for distinguishing worlds in logs (§3-EXT "Diagnostics").
func (w *World) Tag() string { return w.tag }

func (w *World) fatal(err error) {
	if w.FatalHook != nil {
		w.FatalHook(err)
		return
	}
	panic(err)
}

// RelateIsA registers that archetypes carrying derived also satisfy ALL/ANY
// query terms written against base (§4.G "transitive relationships").
func RelateIsA[D, B any](w *World, derived Component[D], base Component[B]) {
	w.relations.relate(derived.id, base.id)
}

func (w *World) lookupLive(handle EntityID) (*entityRecord, error) {
	rec := w.directory.lookup(handle)
	if rec == nil {
		return nil, InvalidHandleError{Handle: handle}
	}
	return rec, nil
}

func (w *World) componentColumn(handle EntityID, id ComponentID) (*entityRecord, *columnLayout, error) {
	rec, err := w.lookupLive(handle)
	if err != nil {
		return nil, nil, err
	}
	idx := rec.archetype.columnIndex(id)
	if idx < 0 {
		return nil, nil, ComponentNotPresentError{Handle: handle, ComponentID: id}
	}
	return rec, &rec.chunk.owner.columns[idx], nil
}

// HasComponent reports whether handle's current archetype carries id.
func (w *World) HasComponent(handle EntityID, id ComponentID) (bool, error) {
	rec, err := w.lookupLive(handle)
	if err != nil {
		return false, err
	}
	return rec.archetype.has(id), nil
}

// CreateEntity allocates a handle in the empty archetype (§6 "create_entity").
func (w *World) CreateEntity() (EntityID, error) {
	if w.locked {
		return BadEntity, LockedWorldError{}
	}
	handle, rec := w.directory.alloc()
	root := w.graph.root
	c, err := root.chunkFor(w.allocator, w.config.Defrag)
	if err != nil {
		w.fatal(err)
		return BadEntity, err
	}
	row := c.addRow(handle, w.registry.descs)
	rec.archetype, rec.chunk, rec.row = root, c, row
	w.log.Debug().Str("world", w.tag).Uint64("entity", uint64(handle)).Msg("entity created")
	return handle, nil
}

// CreateEntityLike allocates a new entity sharing template's archetype and
// copies every component value across (§6 "create_entity_like", an
// archetype-aware generalization of the teacher's prototype-copy pattern).
func (w *World) CreateEntityLike(template EntityID) (EntityID, error) {
	if w.locked {
		return BadEntity, LockedWorldError{}
	}
	srcRec, err := w.lookupLive(template)
	if err != nil {
		return BadEntity, err
	}
	handle, rec := w.directory.alloc()
	a := srcRec.archetype
	c, err := a.chunkFor(w.allocator, w.config.Defrag)
	if err != nil {
		w.fatal(err)
		return BadEntity, err
	}
	row := c.addRow(handle, w.registry.descs)
	srcBase := srcRec.chunk.base()
	dstBase := c.base()
	for _, col := range a.columns {
		desc := w.registry.describe(col.id)
		if col.layout == AoS {
			desc.copy(col.aosPtr(dstBase, row), col.aosPtr(srcBase, srcRec.row))
		} else {
			for f := range col.fieldOffsets {
				rawCopy(col.soaFieldPtr(dstBase, f, row), col.soaFieldPtr(srcBase, f, srcRec.row), col.fieldStride[f])
			}
		}
	}
	rec.archetype, rec.chunk, rec.row = a, c, row
	return handle, nil
}

// DeleteEntity destroys handle's components and returns its slot to the
// directory's free list (§6 "delete_entity", §4.F).
func (w *World) DeleteEntity(handle EntityID) error {
	if w.locked {
		return LockedWorldError{}
	}
	rec, err := w.lookupLive(handle)
	if err != nil {
		return err
	}
	if rec.chunk.locked() {
		return IterationViolationError{Archetype: rec.archetype}
	}
	_, moved := rec.chunk.removeRow(rec.row, w.registry.descs)
	if moved {
		w.fixupRow(rec.chunk, rec.row)
	}
	w.directory.free(handle)
	return nil
}

// fixupRow updates the directory record of whichever entity removeRow/enable
// swapped into dstRow, since its row index changed (§4.C/§4.F).
func (w *World) fixupRow(c *chunk, dstRow uint32) {
	movedEntity := c.rowEntity(dstRow)
	if movedEntity == BadEntity {
		return
	}
	if moved := w.directory.lookup(movedEntity); moved != nil {
		moved.row = dstRow
	}
}

// EnableEntity toggles handle's membership in its chunk's enabled partition
// without any structural archetype change (§6 "enable_entity", §4.C).
func (w *World) EnableEntity(handle EntityID, enabled bool) error {
	rec, err := w.lookupLive(handle)
	if err != nil {
		return err
	}
	newRow, boundaryMoved, boundaryRow := rec.chunk.enable(rec.row, enabled)
	if boundaryMoved {
		w.fixupRow(rec.chunk, boundaryRow)
	}
	rec.row = newRow
	rec.enabled = enabled
	return nil
}

// AddComponent adds a zero-valued id to handle's entity, migrating it to the
// successor archetype along the graph's add edge (§6 "add_component", §4.E).
// Adding a component the entity already carries is a silent no-op when its
// current value is that type's zero value, and a DuplicateComponentError
// otherwise (§7 "DuplicateComponent" default policy).
func (w *World) AddComponent(handle EntityID, id ComponentID) error {
	if w.locked {
		return LockedWorldError{}
	}
	rec, err := w.lookupLive(handle)
	if err != nil {
		return err
	}
	if rec.archetype.has(id) {
		if w.isZeroValued(rec, id) {
			return nil
		}
		return DuplicateComponentError{Handle: handle, ComponentID: id}
	}
	_, _, _, err = w.addComponent(handle, id)
	return err
}

// isZeroValued reports whether handle's current storage for id is all-zero
// bytes, used by AddComponent's duplicate-add policy since a zero-valued add
// carries no value to compare against.
func (w *World) isZeroValued(rec *entityRecord, id ComponentID) bool {
	idx := rec.archetype.columnIndex(id)
	col := &rec.archetype.columns[idx]
	desc := w.registry.describe(id)
	base := rec.chunk.base()
	if col.layout == AoS {
		return rawEqualZero(col.aosPtr(base, rec.row), desc.Size)
	}
	for f := range col.fieldOffsets {
		if !rawEqualZero(col.soaFieldPtr(base, f, rec.row), desc.FieldSizes[f]) {
			return false
		}
	}
	return true
}

// AddComponentValue is the generic, value-carrying counterpart of
// AddComponent (§6 "add_component" with an explicit initial value). Adding a
// value equal (reflect.DeepEqual) to the entity's current value is a silent
// no-op; any other conflicting add returns DuplicateComponentError (§7).
func AddComponentValue[T any](w *World, handle EntityID, c Component[T], value T) error {
	if w.locked {
		return LockedWorldError{}
	}
	rec, err := w.lookupLive(handle)
	if err != nil {
		return err
	}
	if rec.archetype.has(c.id) {
		current, err := Get(w, handle, c)
		if err != nil {
			return err
		}
		if reflect.DeepEqual(current, value) {
			return nil
		}
		return DuplicateComponentError{Handle: handle, ComponentID: c.id}
	}
	newChunk, newRow, col, err := w.addComponent(handle, c.id)
	if err != nil {
		return err
	}
	desc := w.registry.describe(c.id)
	storeComponent[T](desc, col, newChunk.base(), newRow, value)
	if desc.Hooks.OnSet != nil && col.layout == AoS {
		desc.Hooks.OnSet(col.aosPtr(newChunk.base(), newRow))
	}
	return nil
}

// addComponent performs the archetype-transition machinery shared by
// AddComponent and AddComponentValue, returning the destination chunk/row/
// column so callers can initialize the new component's value (§4.E).
func (w *World) addComponent(handle EntityID, id ComponentID) (*chunk, uint32, *columnLayout, error) {
	if w.locked {
		return nil, 0, nil, LockedWorldError{}
	}
	rec, err := w.lookupLive(handle)
	if err != nil {
		return nil, 0, nil, err
	}
	if rec.archetype.has(id) {
		return nil, 0, nil, DuplicateComponentError{Handle: handle, ComponentID: id}
	}
	if len(rec.archetype.ids)+1 > w.config.MaxComponentsPerArchetype {
		return nil, 0, nil, CapacityExceededError{Limit: w.config.MaxComponentsPerArchetype}
	}
	if rec.chunk.locked() {
		return nil, 0, nil, IterationViolationError{Archetype: rec.archetype}
	}
	next := w.graph.transitionAdd(rec.archetype, id, w.registry, w.config.DefaultSizeClass)
	newChunk, err := next.chunkFor(w.allocator, w.config.Defrag)
	if err != nil {
		w.fatal(err)
		return nil, 0, nil, err
	}
	newRow := newChunk.addRow(handle, w.registry.descs)
	w.migrateColumns(rec.archetype, rec.chunk, rec.row, next, newChunk, newRow)

	col := &next.columns[next.columnIndex(id)]
	desc := w.registry.describe(id)
	if desc.Hooks.OnAdd != nil && col.layout == AoS {
		desc.Hooks.OnAdd(col.aosPtr(newChunk.base(), newRow))
	}

	_, moved := rec.chunk.removeRow(rec.row, w.registry.descs)
	if moved {
		w.fixupRow(rec.chunk, rec.row)
	}
	rec.archetype, rec.chunk, rec.row = next, newChunk, newRow
	return newChunk, newRow, col, nil
}

// RemoveComponent removes id from handle's entity, migrating it to the
// predecessor archetype along the graph's remove edge (§6 "remove_component").
func (w *World) RemoveComponent(handle EntityID, id ComponentID) error {
	if w.locked {
		return LockedWorldError{}
	}
	rec, err := w.lookupLive(handle)
	if err != nil {
		return err
	}
	if !rec.archetype.has(id) {
		return ComponentNotPresentError{Handle: handle, ComponentID: id}
	}
	if rec.chunk.locked() {
		return IterationViolationError{Archetype: rec.archetype}
	}
	desc := w.registry.describe(id)
	if desc.Hooks.OnRemove != nil {
		if idx := rec.archetype.columnIndex(id); idx >= 0 && rec.archetype.columns[idx].layout == AoS {
			desc.Hooks.OnRemove(rec.archetype.columns[idx].aosPtr(rec.chunk.base(), rec.row))
		}
	}
	next := w.graph.transitionRemove(rec.archetype, id, w.registry, w.config.DefaultSizeClass)
	newChunk, err := next.chunkFor(w.allocator, w.config.Defrag)
	if err != nil {
		w.fatal(err)
		return err
	}
	newRow := newChunk.addRow(handle, w.registry.descs)
	w.migrateColumns(rec.archetype, rec.chunk, rec.row, next, newChunk, newRow)

	_, moved := rec.chunk.removeRow(rec.row, w.registry.descs)
	if moved {
		w.fixupRow(rec.chunk, rec.row)
	}
	rec.archetype, rec.chunk, rec.row = next, newChunk, newRow
	return nil
}

// migrateColumns copies every component id carries in srcArch's layout
// across to the matching column in dstArch, implementing §4.E's "copy
// shared components" step of a structural transition.
func (w *World) migrateColumns(srcArch *archetype, srcChunk *chunk, srcRow uint32, dstArch *archetype, dstChunk *chunk, dstRow uint32) {
	srcBase, dstBase := srcChunk.base(), dstChunk.base()
	for _, col := range dstArch.columns {
		si := srcArch.columnIndex(col.id)
		if si < 0 {
			continue
		}
		desc := w.registry.describe(col.id)
		srcCol := &srcArch.columns[si]
		if col.layout == AoS {
			desc.copy(col.aosPtr(dstBase, dstRow), srcCol.aosPtr(srcBase, srcRow))
		} else {
			for f := range col.fieldOffsets {
				rawCopy(col.soaFieldPtr(dstBase, f, dstRow), srcCol.soaFieldPtr(srcBase, f, srcRow), col.fieldStride[f])
			}
		}
	}
}

// Query compiles (or retrieves from cache) a CompiledQuery for q, per §4.G
// "Query context" and the World-owned query cache.
func (w *World) Query(q *QueryBuilder) *CompiledQuery {
	key := q.key()
	if cq, ok := w.queryCache[key]; ok {
		return cq
	}
	cq := compileQuery(q, w.relations)
	w.queryCache[key] = cq
	return cq
}

// Update advances the world version and runs chunk garbage collection: dying
// chunks count down their lifespan and are released once it reaches zero,
// per §4.C "Lifecycle" and §9's resolution of the defrag-vs-iterator-lock
// open question (defragmentation only proceeds when PreferLeastFull is
// configured and no chunk anywhere is currently locked by an iterator).
func (w *World) Update(ctx context.Context) error {
	w.version++
	for _, a := range w.graph.all {
		w.gcArchetype(ctx, a)
	}
	return nil
}

func (w *World) gcArchetype(ctx context.Context, a *archetype) {
	anyLocked := false
	for _, other := range w.graph.all {
		for _, c := range other.chunks {
			if c.locked() {
				anyLocked = true
			}
		}
	}
	for i := 0; i < len(a.chunks); i++ {
		select {
		case <-ctx.Done():
			return
		default:
		}
		c := a.chunks[i]
		if !c.dying {
			c.lifespan = w.config.ChunkLifespanFrames
			continue
		}
		if c.locked() {
			continue
		}
		if c.lifespan <= 0 {
			// The chunk emptied before any Update armed its countdown.
			c.lifespan = w.config.ChunkLifespanFrames
		}
		c.lifespan--
		if c.lifespan <= 0 {
			a.removeChunk(w.allocator, c)
			w.log.Debug().Str("world", w.tag).Interface("components", a.ids).Msg("chunk released")
			i--
		}
	}
	if w.config.Defrag == PreferLeastFull && !anyLocked {
		w.defragment(a)
	}
}

// defragment compacts PreferLeastFull archetypes by moving trailing rows of
// the archetype's last chunk forward into any earlier chunk with spare
// capacity, reducing chunk count over time (§9 "prefer least-full"
// resolution).
func (w *World) defragment(a *archetype) {
	if len(a.chunks) < 2 {
		return
	}
	src := a.chunks[len(a.chunks)-1]
	if src.locked() || src.full() {
		return
	}
	for _, dst := range a.chunks[:len(a.chunks)-1] {
		if dst.locked() || dst.full() {
			continue
		}
		for !dst.full() && src.count > 0 {
			lastRow := src.count - 1
			entity := src.rowEntity(lastRow)
			newRow := dst.addRow(entity, w.registry.descs)
			w.migrateColumns(a, src, lastRow, a, dst, newRow)
			_, moved := src.removeRow(lastRow, w.registry.descs)
			if moved {
				w.fixupRow(src, lastRow)
			}
			if rec := w.directory.lookup(entity); rec != nil {
				rec.chunk, rec.row = dst, newRow
			}
		}
	}
}

// Trace wraps err with bark's call-site trace augmentation, matching the
// teacher's error-reporting convention (bark.AddTrace).
func Trace(err error) error {
	return bark.AddTrace(err)
}
