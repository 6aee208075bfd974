package archon

import (
	"reflect"
	"unsafe"
)

// ComponentID is a small stable integer identifying a registered component
// type (§4.A). Ids are assigned in registration order starting at 1; 0 is
// never issued and is used as a sentinel by callers that need one.
type ComponentID uint32

// LayoutKind selects how a component's storage is packed within a chunk
// column (§3, §9 "Layout polymorphism").
type LayoutKind uint8

const (
	// AoS stores one contiguous struct instance per row (array-of-structs).
	AoS LayoutKind = iota
	// SoA4 stores each field as its own column, packed in groups of 4.
	SoA4
	// SoA8 stores each field as its own column, packed in groups of 8.
	SoA8
	// SoA16 stores each field as its own column, packed in groups of 16.
	SoA16
)

// PackWidth returns the SIMD-oriented pack width implied by the layout, or 1
// for AoS.
func (l LayoutKind) PackWidth() int {
	switch l {
	case SoA4:
		return 4
	case SoA8:
		return 8
	case SoA16:
		return 16
	default:
		return 1
	}
}

// LifecycleHooks are optional, nullable callbacks invoked at the structural
// mutation point, before the entity's directory record is updated (§9
// "Lifecycle hooks"). ptr addresses the component's storage for the affected
// row. Hooks fire only for AoS components; hooks registered on an SoA
// component are never invoked, since its fields live in separate sub-arrays
// with no single address.
type LifecycleHooks struct {
	OnAdd    func(ptr unsafe.Pointer)
	OnRemove func(ptr unsafe.Pointer)
	OnSet    func(ptr unsafe.Pointer)
}

// ComponentDescriptor is the per-type metadata the registry hands out (§3
// "Component descriptor", §4.A). Size 0 marks a zero-sized tag component.
// When the Move/Copy/Destroy/Construct function pointers are nil, the
// component is moved/copied with a raw byte copy and constructed by zeroing.
// describeType never sets them, so every registered component is handled
// that way.
type ComponentDescriptor struct {
	ID     ComponentID
	Type   reflect.Type
	Size   uintptr
	Align  uintptr
	Layout LayoutKind

	// FieldOffsets/FieldSizes/FieldAligns decompose Type into its struct
	// fields for SoA storage; all are nil/empty for AoS components.
	FieldOffsets []uintptr
	FieldSizes   []uintptr
	FieldAligns  []uintptr

	// Construct/Destroy/Copy/Move, when nil, make the chunk perform a bitwise
	// copy/zero instead (§3).
	Construct func(dst unsafe.Pointer)
	Destroy   func(dst unsafe.Pointer)
	Copy      func(dst, src unsafe.Pointer)
	Move      func(dst, src unsafe.Pointer)

	Hooks LifecycleHooks
}

func (d *ComponentDescriptor) trivial() bool {
	return d.Construct == nil && d.Destroy == nil && d.Copy == nil && d.Move == nil
}

func (d *ComponentDescriptor) construct(dst unsafe.Pointer) {
	if d.Size == 0 {
		return
	}
	if d.Construct != nil {
		d.Construct(dst)
		return
	}
	zeroBytes(dst, d.Size)
}

func (d *ComponentDescriptor) destroy(dst unsafe.Pointer) {
	if d.Destroy != nil {
		d.Destroy(dst)
	}
}

func (d *ComponentDescriptor) copy(dst, src unsafe.Pointer) {
	if d.Size == 0 {
		return
	}
	if d.Copy != nil {
		d.Copy(dst, src)
		return
	}
	rawCopy(dst, src, d.Size)
}

func (d *ComponentDescriptor) move(dst, src unsafe.Pointer) {
	if d.Size == 0 {
		return
	}
	if d.Move != nil {
		d.Move(dst, src)
		return
	}
	rawCopy(dst, src, d.Size)
	d.destroy(src)
}

func rawCopy(dst, src unsafe.Pointer, size uintptr) {
	if size == 0 {
		return
	}
	dstSlice := unsafe.Slice((*byte)(dst), size)
	srcSlice := unsafe.Slice((*byte)(src), size)
	copy(dstSlice, srcSlice)
}

func zeroBytes(dst unsafe.Pointer, size uintptr) {
	if size == 0 {
		return
	}
	dstSlice := unsafe.Slice((*byte)(dst), size)
	for i := range dstSlice {
		dstSlice[i] = 0
	}
}

// describeType builds a ComponentDescriptor for T via reflection, decomposing
// the struct into per-field sizes/offsets when layout is an SoA variant.
// Grounded on _examples/delaneyj-arche/ecs/archetype.go's reflect.Type.Size()/
// Align()-driven column layout.
func describeType[T any](id ComponentID, layout LayoutKind) *ComponentDescriptor {
	var zero T
	t := reflect.TypeOf(zero)
	desc := &ComponentDescriptor{
		ID:     id,
		Type:   t,
		Layout: layout,
	}
	if t == nil {
		return desc
	}
	desc.Size = t.Size()
	desc.Align = uintptr(t.Align())
	if layout != AoS && t.Kind() == reflect.Struct {
		n := t.NumField()
		desc.FieldOffsets = make([]uintptr, n)
		desc.FieldSizes = make([]uintptr, n)
		desc.FieldAligns = make([]uintptr, n)
		for i := 0; i < n; i++ {
			f := t.Field(i)
			desc.FieldOffsets[i] = f.Offset
			desc.FieldSizes[i] = f.Type.Size()
			desc.FieldAligns[i] = uintptr(f.Type.Align())
		}
	}
	return desc
}
