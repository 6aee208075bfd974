package archon

import "testing"

func TestChunkAddRemoveRow(t *testing.T) {
	r, pos, _ := newTestRegistry()
	a := newArchetype([]ComponentID{pos}, r, ChunkSmall)
	alloc := newChunkAllocator()
	buf, err := alloc.alloc(a.class)
	if err != nil {
		t.Fatalf("alloc: %v", err)
	}
	c := newChunk(a, buf, a.class, a.capacity)

	e1 := newEntityID(1, 0)
	e2 := newEntityID(2, 0)
	row1 := c.addRow(e1, r.descs)
	row2 := c.addRow(e2, r.descs)

	if c.count != 2 {
		t.Fatalf("count = %d, want 2", c.count)
	}
	if c.rowEntity(row1) != e1 || c.rowEntity(row2) != e2 {
		t.Fatalf("row->entity mapping incorrect")
	}

	col := &a.columns[0]
	*(*testPosition)(col.aosPtr(c.base(), row1)) = testPosition{X: 1, Y: 2}
	*(*testPosition)(col.aosPtr(c.base(), row2)) = testPosition{X: 3, Y: 4}

	movedFrom, moved := c.removeRow(row1, r.descs)
	if !moved || movedFrom != row2 {
		t.Fatalf("expected row2 (%d) to be swapped into row1's slot, got movedFrom=%d moved=%v", row2, movedFrom, moved)
	}
	if c.count != 1 {
		t.Fatalf("count after remove = %d, want 1", c.count)
	}
	if c.rowEntity(row1) != e2 {
		t.Fatalf("expected e2 swapped into row1 after removal")
	}
	got := *(*testPosition)(col.aosPtr(c.base(), row1))
	if got != (testPosition{X: 3, Y: 4}) {
		t.Fatalf("swapped row's component value incorrect: got %+v", got)
	}
}

func TestChunkEnableDisablePartition(t *testing.T) {
	r, pos, _ := newTestRegistry()
	a := newArchetype([]ComponentID{pos}, r, ChunkSmall)
	alloc := newChunkAllocator()
	buf, _ := alloc.alloc(a.class)
	c := newChunk(a, buf, a.class, a.capacity)

	var entities []EntityID
	for i := uint32(0); i < 4; i++ {
		e := newEntityID(i+1, 0)
		c.addRow(e, r.descs)
		entities = append(entities, e)
	}

	// Disable the second entity; it should move into the disabled partition
	// and the enabled/disabled boundary should advance by one.
	row := uint32(1)
	newRow, _, _ := c.enable(row, false)
	if newRow != 0 {
		t.Fatalf("disabling the only candidate should place it at boundary 0, got %d", newRow)
	}
	if c.disabledCount != 1 {
		t.Fatalf("disabledCount = %d, want 1", c.disabledCount)
	}
	if c.rowEntity(0) != entities[1] {
		t.Fatalf("expected entities[1] at disabled row 0")
	}

	// Re-enabling should move it back to the enabled partition.
	newRow2, _, _ := c.enable(0, true)
	if c.disabledCount != 0 {
		t.Fatalf("disabledCount after re-enable = %d, want 0", c.disabledCount)
	}
	if c.rowEntity(newRow2) != entities[1] {
		t.Fatalf("expected entities[1] back in enabled partition")
	}
}

func TestChunkFullEmpty(t *testing.T) {
	r, pos, _ := newTestRegistry()
	a := newArchetype([]ComponentID{pos}, r, ChunkSmall)
	alloc := newChunkAllocator()
	buf, _ := alloc.alloc(a.class)
	c := newChunk(a, buf, a.class, a.capacity)

	if !c.empty() {
		t.Fatalf("new chunk should be empty")
	}
	for i := uint32(0); i < a.capacity; i++ {
		c.addRow(newEntityID(i+1, 0), r.descs)
	}
	if !c.full() {
		t.Fatalf("chunk should be full after filling to capacity")
	}
}
