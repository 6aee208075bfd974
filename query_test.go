package archon

import (
	"testing"
	"unsafe"
)

func TestWorldEachCursorReadsAndWrites(t *testing.T) {
	w := newTestWorld()
	pos := RegisterComponent[testPosition](w)

	e1, _ := w.CreateEntity()
	_ = AddComponentValue(w, e1, pos, testPosition{X: 1, Y: 1})
	e2, _ := w.CreateEntity()
	_ = AddComponentValue(w, e2, pos, testPosition{X: 2, Y: 2})

	q := w.Query(NewQuery().All(pos.ID()))
	cur := w.Each(q)
	seen := map[EntityID]testPosition{}
	for cur.Next() {
		v := GetCursor(w, cur, pos)
		seen[cur.Entity()] = v
		SetCursor(w, cur, pos, testPosition{X: v.X * 10, Y: v.Y * 10})
	}
	cur.Close()

	if len(seen) != 2 {
		t.Fatalf("expected to visit 2 entities, got %d", len(seen))
	}
	got, _ := Get(w, e1, pos)
	if got != (testPosition{X: 10, Y: 10}) {
		t.Fatalf("SetCursor did not persist, got %+v", got)
	}
}

func TestQueryAnyOperator(t *testing.T) {
	w := newTestWorld()
	pos := RegisterComponent[testPosition](w)
	vel := RegisterComponent[testVelocity](w)

	onlyPos, _ := w.CreateEntity()
	_ = AddComponentValue(w, onlyPos, pos, testPosition{X: 1})
	onlyVel, _ := w.CreateEntity()
	_ = AddComponentValue(w, onlyVel, vel, testVelocity{DX: 1})
	_, _ = w.CreateEntity() // neither component; should not match Any

	q := w.Query(NewQuery().Any(pos.ID(), vel.ID()))
	it := w.Iter(q)
	total := 0
	for it.Next() {
		total += it.Len()
	}
	it.Close()
	if total != 2 {
		t.Fatalf("expected 2 matches for Any(pos,vel), got %d", total)
	}
}

func TestQueryNotOperator(t *testing.T) {
	w := newTestWorld()
	pos := RegisterComponent[testPosition](w)
	vel := RegisterComponent[testVelocity](w)

	onlyPos, _ := w.CreateEntity()
	_ = AddComponentValue(w, onlyPos, pos, testPosition{X: 1})
	both, _ := w.CreateEntity()
	_ = AddComponentValue(w, both, pos, testPosition{X: 2})
	_ = AddComponentValue(w, both, vel, testVelocity{DX: 1})

	q := w.Query(NewQuery().All(pos.ID()).Not(vel.ID()))
	it := w.Iter(q)
	found := map[EntityID]bool{}
	for it.Next() {
		for i := 0; i < it.Len(); i++ {
			found[it.Entity(i)] = true
		}
	}
	it.Close()
	if !found[onlyPos] || found[both] {
		t.Fatalf("Not(vel) should exclude the {pos,vel} archetype, got %v", found)
	}
}

func TestRelateIsAExpandsQueryTerms(t *testing.T) {
	w := newTestWorld()
	base := RegisterComponent[testPosition](w)
	derived := RegisterComponent[testVelocity](w)
	RelateIsA(w, derived, base)

	e, _ := w.CreateEntity()
	_ = AddComponentValue(w, e, derived, testVelocity{DX: 1})

	q := w.Query(NewQuery().All(base.ID()))
	it := w.Iter(q)
	total := 0
	for it.Next() {
		total += it.Len()
	}
	it.Close()
	if total != 1 {
		t.Fatalf("expected entity carrying only the derived component to satisfy a base query term via RelateIsA, got %d matches", total)
	}
}

func TestCommandBufferDeleteEnableRemove(t *testing.T) {
	w := newTestWorld()
	pos := RegisterComponent[testPosition](w)

	e, _ := w.CreateEntity()
	_ = AddComponentValue(w, e, pos, testPosition{X: 1})
	toDelete, _ := w.CreateEntity()

	buf := NewCommandBuffer(w)
	buf.DeleteEntity(toDelete)
	buf.EnableEntity(e, false)
	buf.RemoveComponent(e, pos.ID())

	if err := buf.Flush(); err != nil {
		t.Fatalf("Flush: %v", err)
	}

	if _, err := w.HasComponent(toDelete, pos.ID()); err == nil {
		t.Fatalf("expected toDelete to be invalid after buffered DeleteEntity")
	}
	if has, _ := w.HasComponent(e, pos.ID()); has {
		t.Fatalf("expected pos removed via buffered RemoveComponent")
	}
}

func TestSoALayoutRoundTrip(t *testing.T) {
	w := newTestWorld()
	pos := RegisterComponent[testPosition](w, WithLayout(SoA4))

	e, _ := w.CreateEntity()
	if err := AddComponentValue(w, e, pos, testPosition{X: 3, Y: 4}); err != nil {
		t.Fatalf("AddComponentValue: %v", err)
	}
	got, err := Get(w, e, pos)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != (testPosition{X: 3, Y: 4}) {
		t.Fatalf("SoA round trip = %+v, want {3 4}", got)
	}
	if err := Set(w, e, pos, testPosition{X: 5, Y: 6}); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, _ = Get(w, e, pos)
	if got != (testPosition{X: 5, Y: 6}) {
		t.Fatalf("SoA round trip after Set = %+v, want {5 6}", got)
	}
}

func TestLifecycleHooksFireOnAddRemoveSet(t *testing.T) {
	w := newTestWorld()
	var adds, removes, sets int
	pos := RegisterComponent[testPosition](w, WithHooks(LifecycleHooks{
		OnAdd:    func(ptr unsafe.Pointer) { adds++ },
		OnRemove: func(ptr unsafe.Pointer) { removes++ },
		OnSet:    func(ptr unsafe.Pointer) { sets++ },
	}))

	e, _ := w.CreateEntity()
	if err := w.AddComponent(e, pos.ID()); err != nil {
		t.Fatalf("AddComponent: %v", err)
	}
	if err := Set(w, e, pos, testPosition{X: 1, Y: 1}); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if err := w.RemoveComponent(e, pos.ID()); err != nil {
		t.Fatalf("RemoveComponent: %v", err)
	}

	if adds != 1 || sets != 1 || removes != 1 {
		t.Fatalf("expected 1 call each to OnAdd/OnSet/OnRemove, got adds=%d sets=%d removes=%d", adds, sets, removes)
	}
}
