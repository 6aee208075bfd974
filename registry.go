package archon

import (
	"fmt"
	"reflect"
)

// componentRegistry assigns every distinct component type a stable small
// integer id and stores its descriptor (§4.A). It is owned by a single
// World value rather than being a package-level singleton, per the "Global
// state" design note.
type componentRegistry struct {
	byType map[reflect.Type]ComponentID
	descs  []*ComponentDescriptor // index 0 unused; ids start at 1
	names  []string
}

func newComponentRegistry() *componentRegistry {
	return &componentRegistry{
		byType: make(map[reflect.Type]ComponentID),
		descs:  make([]*ComponentDescriptor, 1, 64),
		names:  make([]string, 1, 64),
	}
}

// register is idempotent: registering the same T twice returns the same id.
func register[T any](r *componentRegistry, layout LayoutKind, hooks LifecycleHooks) ComponentID {
	var zero T
	t := reflect.TypeOf(zero)
	if id, ok := r.byType[t]; ok {
		return id
	}
	id := ComponentID(len(r.descs))
	desc := describeType[T](id, layout)
	desc.Hooks = hooks
	r.byType[t] = id
	r.descs = append(r.descs, desc)
	r.names = append(r.names, t.String())
	return id
}

// describe returns the descriptor for id; it is infallible after
// registration, per §4.A.
func (r *componentRegistry) describe(id ComponentID) *ComponentDescriptor {
	return r.descs[id]
}

// name returns the registered type's human-readable name, used for
// diagnostics and log fields.
func (r *componentRegistry) name(id ComponentID) string {
	if int(id) >= len(r.names) {
		return fmt.Sprintf("component#%d", id)
	}
	return r.names[id]
}

// count returns the number of distinct registered component types.
func (r *componentRegistry) count() int {
	return len(r.descs) - 1
}
