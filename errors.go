package archon

import "fmt"

// InvalidHandleError reports an entity handle whose generation no longer
// matches the directory, or whose id was never issued.
type InvalidHandleError struct {
	Handle EntityID
}

func (e InvalidHandleError) Error() string {
	return fmt.Sprintf("archon: invalid entity handle %v", e.Handle)
}

// ComponentNotPresentError reports a get/set/remove against a component the
// entity's archetype does not carry.
type ComponentNotPresentError struct {
	Handle      EntityID
	ComponentID ComponentID
}

func (e ComponentNotPresentError) Error() string {
	return fmt.Sprintf("archon: component %d not present on entity %v", e.ComponentID, e.Handle)
}

// DuplicateComponentError reports an add_component conflicting with an
// already-present component of a different value, per §7's default policy
// (silent no-op on identical value, error on conflict).
type DuplicateComponentError struct {
	Handle      EntityID
	ComponentID ComponentID
}

func (e DuplicateComponentError) Error() string {
	return fmt.Sprintf("archon: component %d already present on entity %v", e.ComponentID, e.Handle)
}

// CapacityExceededError reports an attempt to register more than
// Config.MaxComponentsPerArchetype components onto a single archetype.
type CapacityExceededError struct {
	Limit int
}

func (e CapacityExceededError) Error() string {
	return fmt.Sprintf("archon: archetype component capacity exceeded (limit %d)", e.Limit)
}

// IterationViolationError reports a structural mutation attempted against a
// chunk currently locked by an open iterator.
type IterationViolationError struct {
	Archetype *archetype
}

func (e IterationViolationError) Error() string {
	return fmt.Sprintf("archon: structural mutation attempted on locked chunk (archetype %v)", e.Archetype.ids)
}

// AllocationFailedError reports chunk allocator exhaustion, or an archetype
// too large for a single row to fit in one chunk. Per §7 this is fatal: it is
// routed through World.FatalHook (which panics when nil), and if the hook
// returns, the error is also returned to the caller.
type AllocationFailedError struct {
	SizeClass chunkSizeClass
	Cause     error
}

func (e AllocationFailedError) Error() string {
	return fmt.Sprintf("archon: chunk allocator exhausted for size class %v: %v", e.SizeClass, e.Cause)
}

func (e AllocationFailedError) Unwrap() error { return e.Cause }

// LockedWorldError reports a structural API call made while the world-level
// coarse lock is held, mirroring the teacher's storage-is-locked guard.
type LockedWorldError struct{}

func (e LockedWorldError) Error() string {
	return "archon: world is locked for iteration"
}
