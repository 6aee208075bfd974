package archon

// archetypeGraph deduplicates archetypes by their component-id set and
// lazily maintains add/remove transition edges between them (§4.E). It also
// owns the component->archetype reverse index the query engine walks.
type archetypeGraph struct {
	byMask map[Mask]*archetype
	all    []*archetype // append order == first-matched order for queries

	// reverseIndex[c] lists, in append order, every archetype containing c.
	// The query engine's incremental matcher (§4.G) tracks how far into
	// each of these slices it has already scanned.
	reverseIndex map[ComponentID][]*archetype

	root *archetype // the {} archetype, always present
}

func newArchetypeGraph(registry *componentRegistry, class chunkSizeClass) *archetypeGraph {
	g := &archetypeGraph{
		byMask:       make(map[Mask]*archetype),
		reverseIndex: make(map[ComponentID][]*archetype),
	}
	g.root = g.getOrCreate(nil, registry, class)
	return g
}

// getOrCreate looks up the archetype for the sorted id set ids, creating and
// indexing a new one if none exists yet (§4.E "Deduplicate archetypes").
func (g *archetypeGraph) getOrCreate(ids []ComponentID, registry *componentRegistry, class chunkSizeClass) *archetype {
	m := maskOf(ids...)
	if a, ok := g.byMask[m]; ok {
		return a
	}
	a := newArchetype(ids, registry, class)
	g.byMask[m] = a
	g.all = append(g.all, a)
	for _, id := range a.ids {
		g.reverseIndex[id] = append(g.reverseIndex[id], a)
	}
	return a
}

// transitionAdd returns the archetype reached by adding component c to a,
// memoizing the edge on first traversal (§4.E "Transition protocol").
func (g *archetypeGraph) transitionAdd(a *archetype, c ComponentID, registry *componentRegistry, class chunkSizeClass) *archetype {
	if next, ok := a.addEdges[c]; ok {
		return next
	}
	nextIDs := unionIDs(a.ids, c)
	next := g.getOrCreate(nextIDs, registry, class)
	a.addEdges[c] = next
	next.removeEdges[c] = a
	return next
}

// transitionRemove returns the archetype reached by removing component c
// from a, memoizing the edge on first traversal.
func (g *archetypeGraph) transitionRemove(a *archetype, c ComponentID, registry *componentRegistry, class chunkSizeClass) *archetype {
	if next, ok := a.removeEdges[c]; ok {
		return next
	}
	nextIDs := removeID(a.ids, c)
	next := g.getOrCreate(nextIDs, registry, class)
	a.removeEdges[c] = next
	next.addEdges[c] = a
	return next
}

// archetypeCount reports how many distinct archetypes the graph has ever
// created, used by §8's seed test 3 ("exactly three archetypes").
func (g *archetypeGraph) archetypeCount() int {
	return len(g.all)
}
