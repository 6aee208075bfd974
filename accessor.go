package archon

import "unsafe"

// Component[T] is a typed accessor token returned by RegisterComponent,
// generalizing the teacher's AccessibleComponent[T] into the archetype/chunk
// storage this module owns directly (§4.A "Typed accessor", §6). It carries
// no state beyond the id; all actual storage lives in the owning World.
type Component[T any] struct {
	id ComponentID
}

// ID returns the accessor's underlying component id, for building queries.
func (c Component[T]) ID() ComponentID { return c.id }

// ComponentOption configures a component's registration.
type ComponentOption func(*componentOptions)

type componentOptions struct {
	layout LayoutKind
	hooks  LifecycleHooks
}

// WithLayout selects an SoA packing width instead of the default AoS layout.
func WithLayout(l LayoutKind) ComponentOption {
	return func(o *componentOptions) { o.layout = l }
}

// WithHooks installs lifecycle callbacks invoked on add/remove/set.
func WithHooks(h LifecycleHooks) ComponentOption {
	return func(o *componentOptions) { o.hooks = h }
}

// RegisterComponent assigns T a stable ComponentID on w's registry,
// returning a typed accessor token (§4.A). Registration is idempotent: the
// same T always yields the same id.
func RegisterComponent[T any](w *World, opts ...ComponentOption) Component[T] {
	var o componentOptions
	for _, opt := range opts {
		opt(&o)
	}
	id := register[T](w.registry, o.layout, o.hooks)
	return Component[T]{id: id}
}

// Get reads the current value of c on handle, per §6 get_component's
// read-view semantics: no version bump.
func Get[T any](w *World, handle EntityID, c Component[T]) (T, error) {
	var zero T
	rec, col, err := w.componentColumn(handle, c.id)
	if err != nil {
		return zero, err
	}
	desc := w.registry.describe(c.id)
	base := rec.chunk.base()
	if col.layout == AoS {
		return *(*T)(col.aosPtr(base, rec.row)), nil
	}
	return gatherSoA[T](desc, col, base, rec.row), nil
}

// Set writes value to c on handle and bumps the owning chunk's column
// version, per §6 set_component's write-view semantics.
func Set[T any](w *World, handle EntityID, c Component[T], value T) error {
	rec, col, err := w.componentColumn(handle, c.id)
	if err != nil {
		return err
	}
	desc := w.registry.describe(c.id)
	base := rec.chunk.base()
	storeComponent(desc, col, base, rec.row, value)
	if desc.Hooks.OnSet != nil && col.layout == AoS {
		desc.Hooks.OnSet(col.aosPtr(base, rec.row))
	}
	rec.chunk.bumpColumn(c.id, w.version)
	return nil
}

// SetSilent writes value to c on handle without bumping the column version,
// per §6 set_component_silent (used by systems that must not trigger
// downstream Changed() filters, e.g. replaying replicated state).
func SetSilent[T any](w *World, handle EntityID, c Component[T], value T) error {
	rec, col, err := w.componentColumn(handle, c.id)
	if err != nil {
		return err
	}
	desc := w.registry.describe(c.id)
	storeComponent(desc, col, rec.chunk.base(), rec.row, value)
	return nil
}

func storeComponent[T any](desc *ComponentDescriptor, col *columnLayout, base unsafe.Pointer, row uint32, value T) {
	if col.layout == AoS {
		*(*T)(col.aosPtr(base, row)) = value
		return
	}
	scatterSoA[T](desc, col, base, row, value)
}

// gatherSoA reassembles a T from its SoA sub-arrays by copying each field's
// bytes, located via desc.FieldOffsets (offset within T) and
// col.fieldOffsets/fieldStride (offset within the chunk body), into a local
// T addressed through unsafe (§4.D "SoA layout").
func gatherSoA[T any](desc *ComponentDescriptor, col *columnLayout, base unsafe.Pointer, row uint32) T {
	var out T
	dstBase := unsafe.Pointer(&out)
	for f := range desc.FieldOffsets {
		dst := unsafe.Add(dstBase, desc.FieldOffsets[f])
		src := col.soaFieldPtr(base, f, row)
		rawCopy(dst, src, desc.FieldSizes[f])
	}
	return out
}

// scatterSoA is gatherSoA's inverse: it writes value's fields out to their
// SoA sub-array slots.
func scatterSoA[T any](desc *ComponentDescriptor, col *columnLayout, base unsafe.Pointer, row uint32, value T) {
	srcBase := unsafe.Pointer(&value)
	for f := range desc.FieldOffsets {
		src := unsafe.Add(srcBase, desc.FieldOffsets[f])
		dst := col.soaFieldPtr(base, f, row)
		rawCopy(dst, src, desc.FieldSizes[f])
	}
}
