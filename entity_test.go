package archon

import "testing"

func TestEntityDirectoryAllocFree(t *testing.T) {
	d := newEntityDirectory()

	id1, rec1 := d.alloc()
	if id1 == BadEntity {
		t.Fatalf("alloc returned BadEntity")
	}
	rec1.archetype = nil // satisfy "live" expectations below without a real archetype

	if !d.valid(id1) {
		t.Fatalf("freshly allocated id should be valid")
	}
	if d.liveCount() != 1 {
		t.Fatalf("liveCount = %d, want 1", d.liveCount())
	}

	d.free(id1)
	if d.valid(id1) {
		t.Fatalf("freed id should be invalid")
	}
	if d.liveCount() != 0 {
		t.Fatalf("liveCount after free = %d, want 0", d.liveCount())
	}

	id2, _ := d.alloc()
	if id2.index() != id1.index() {
		t.Fatalf("expected recycled slot index %d, got %d", id1.index(), id2.index())
	}
	if id2.generation() != id1.generation()+1 {
		t.Fatalf("expected bumped generation %d, got %d", id1.generation()+1, id2.generation())
	}
	if d.valid(id1) {
		t.Fatalf("stale handle id1 must not be valid once its slot is recycled")
	}
	if !d.valid(id2) {
		t.Fatalf("recycled handle id2 should be valid")
	}
}

func TestEntityIDPacking(t *testing.T) {
	e := newEntityID(42, 7)
	if e.index() != 42 {
		t.Fatalf("index = %d, want 42", e.index())
	}
	if e.generation() != 7 {
		t.Fatalf("generation = %d, want 7", e.generation())
	}
}

func TestEntityDirectoryMultiFree(t *testing.T) {
	d := newEntityDirectory()
	var ids []EntityID
	for i := 0; i < 5; i++ {
		id, _ := d.alloc()
		ids = append(ids, id)
	}
	for _, id := range ids {
		d.free(id)
	}
	if d.liveCount() != 0 {
		t.Fatalf("liveCount = %d, want 0 after freeing all", d.liveCount())
	}
	// Every slot should be recyclable without growing the backing slice.
	before := len(d.records)
	for i := 0; i < 5; i++ {
		d.alloc()
	}
	if len(d.records) != before {
		t.Fatalf("expected free-list recycling to avoid growth: before=%d after=%d", before, len(d.records))
	}
}
