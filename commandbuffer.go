package archon

// CommandBuffer queues structural mutations for replay after iteration ends,
// generalizing the teacher's operation_queue.go from a flat op log over
// table.Entry into one addressed by EntityID/ComponentID (§5 "Deferred
// mutation", "Safety invariants": callers inside an active ChunkIter/Cursor
// must queue structural changes rather than apply them immediately).
//
// Entities created through the buffer get a temporary handle (a negative-
// like sentinel distinguishable from any real EntityID) that later commands
// in the same buffer may reference; Flush resolves every temporary handle to
// its real one as it replays commands in submission order.
type CommandBuffer struct {
	world    *World
	ops      []bufferedOp
	nextTemp int32
}

type bufferedOpKind uint8

const (
	opCreate bufferedOpKind = iota
	opCreateLike
	opDelete
	opEnable
	opAddZero
	opRemove
)

type bufferedOp struct {
	kind    bufferedOpKind
	handle  EntityID
	temp    int32 // opCreate/opCreateLike: temporary number of the created entity
	target  EntityID
	compID  ComponentID
	enabled bool
	apply   func(real EntityID) // set only for value-carrying add ops
}

// tempBase marks the high bit of the generation field so a temporary handle
// can never collide with a real directory-issued EntityID, whose generation
// starts at 0 and only grows by increments of 1 per free/reuse cycle.
const tempBase = uint64(1) << 63

func tempEntityID(n int32) EntityID { return EntityID(tempBase | uint64(uint32(n))) }

func isTemp(e EntityID) bool { return uint64(e)&tempBase != 0 }

// NewCommandBuffer creates a buffer bound to w.
func NewCommandBuffer(w *World) *CommandBuffer {
	return &CommandBuffer{world: w}
}

// CreateEntity queues an entity creation, returning a temporary handle valid
// only within this buffer until Flush.
func (b *CommandBuffer) CreateEntity() EntityID {
	temp := b.nextTemp
	b.nextTemp++
	b.ops = append(b.ops, bufferedOp{kind: opCreate, temp: temp})
	return tempEntityID(temp)
}

// CreateEntityLike queues a prototype-copy creation from template, which may
// itself be a temporary handle created earlier in this same buffer.
func (b *CommandBuffer) CreateEntityLike(template EntityID) EntityID {
	temp := b.nextTemp
	b.nextTemp++
	b.ops = append(b.ops, bufferedOp{kind: opCreateLike, temp: temp, target: template})
	return tempEntityID(temp)
}

// DeleteEntity queues a deletion of target, which may itself be a temporary
// handle created earlier in this same buffer.
func (b *CommandBuffer) DeleteEntity(target EntityID) {
	b.ops = append(b.ops, bufferedOp{kind: opDelete, target: target})
}

// EnableEntity queues an enable/disable toggle.
func (b *CommandBuffer) EnableEntity(target EntityID, enabled bool) {
	b.ops = append(b.ops, bufferedOp{kind: opEnable, target: target, enabled: enabled})
}

// AddComponent queues a zero-valued component add.
func (b *CommandBuffer) AddComponent(target EntityID, id ComponentID) {
	b.ops = append(b.ops, bufferedOp{kind: opAddZero, target: target, compID: id})
}

// RemoveComponent queues a component removal.
func (b *CommandBuffer) RemoveComponent(target EntityID, id ComponentID) {
	b.ops = append(b.ops, bufferedOp{kind: opRemove, target: target, compID: id})
}

// BufferAddComponentValue queues a value-carrying add against target,
// generalized as a package function since Go methods cannot carry their own
// type parameters.
func BufferAddComponentValue[T any](b *CommandBuffer, target EntityID, c Component[T], value T) {
	b.ops = append(b.ops, bufferedOp{
		kind:   opAddZero,
		target: target,
		compID: c.id,
		apply: func(real EntityID) {
			_ = AddComponentValue[T](b.world, real, c, value)
		},
	})
}

// Flush replays every queued command against the world in submission order,
// resolving temporary handles to the real handles Create* calls produced
// (§6 "flush_commands").
func (b *CommandBuffer) Flush() error {
	resolved := make(map[int32]EntityID, b.nextTemp)
	resolve := func(e EntityID) EntityID {
		if isTemp(e) {
			return resolved[int32(uint32(e))]
		}
		return e
	}

	for _, op := range b.ops {
		switch op.kind {
		case opCreate:
			real, err := b.world.CreateEntity()
			if err != nil {
				return err
			}
			resolved[op.temp] = real
		case opCreateLike:
			real, err := b.world.CreateEntityLike(resolve(op.target))
			if err != nil {
				return err
			}
			resolved[op.temp] = real
		case opDelete:
			if err := b.world.DeleteEntity(resolve(op.target)); err != nil {
				return err
			}
		case opEnable:
			if err := b.world.EnableEntity(resolve(op.target), op.enabled); err != nil {
				return err
			}
		case opAddZero:
			real := resolve(op.target)
			if op.apply != nil {
				op.apply(real)
				continue
			}
			if err := b.world.AddComponent(real, op.compID); err != nil {
				return err
			}
		case opRemove:
			if err := b.world.RemoveComponent(resolve(op.target), op.compID); err != nil {
				return err
			}
		}
	}
	b.ops = b.ops[:0]
	b.nextTemp = 0
	return nil
}
