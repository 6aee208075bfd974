package archon

import "sort"

// QueryBuilder composes ALL/ANY/NOT/CHANGED predicates (§4.G). It is
// generalized from the teacher's query.go composite-node tree into the
// canonical three-operator shape the VM compiles, matching the teacher's
// chained-call ergonomics (And/Or/Not) but resolving eagerly to sorted id
// sets instead of building a tree that is re-walked on every iteration.
type QueryBuilder struct {
	all, any, not, changed, write []ComponentID
}

// NewQuery starts a new query builder.
func NewQuery() *QueryBuilder { return &QueryBuilder{} }

// All requires every listed component to be present (conjunction).
func (q *QueryBuilder) All(ids ...ComponentID) *QueryBuilder {
	q.all = append(q.all, ids...)
	return q
}

// Any requires at least one listed component to be present.
func (q *QueryBuilder) Any(ids ...ComponentID) *QueryBuilder {
	q.any = append(q.any, ids...)
	return q
}

// Not excludes any archetype carrying any listed component.
func (q *QueryBuilder) Not(ids ...ComponentID) *QueryBuilder {
	q.not = append(q.not, ids...)
	return q
}

// Changed adds a change-detection filter: during iteration, a chunk is
// skipped unless one of the listed components' versions exceeds the
// query's last-seen world version (§4.H).
func (q *QueryBuilder) Changed(ids ...ComponentID) *QueryBuilder {
	q.changed = append(q.changed, ids...)
	return q
}

// Write marks the listed components as write-accessed: iteration bumps
// their column version counters (§4.G "access mode").
func (q *QueryBuilder) Write(ids ...ComponentID) *QueryBuilder {
	q.write = append(q.write, ids...)
	return q
}

func sortDedup(ids []ComponentID) []ComponentID {
	if len(ids) == 0 {
		return nil
	}
	out := append([]ComponentID(nil), ids...)
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	dst := 0
	for i := range out {
		if i == 0 || out[i] != out[dst-1] {
			out[dst] = out[i]
			dst++
		}
	}
	return out[:dst]
}

// queryKey is the canonical hash used to dedup compiled queries (§3 "Query
// context", §4.G step 2). Equal key values mean equal compiled queries.
type queryKey struct {
	all, any, not, changed, write Mask
}

func (q *QueryBuilder) key() queryKey {
	return queryKey{
		all:     maskOf(sortDedup(q.all)...),
		any:     maskOf(sortDedup(q.any)...),
		not:     maskOf(sortDedup(q.not)...),
		changed: maskOf(sortDedup(q.changed)...),
		write:   maskOf(sortDedup(q.write)...),
	}
}

// opcode enumerates the ≤3-instruction program §4.G compiles queries into.
type opcode uint8

const (
	opAnd opcode = iota
	opAny
	opNot
)

type instruction struct {
	op opcode
}

// CompiledQuery is the immutable, cached result of compiling a QueryBuilder
// (§3 "Query context"). Iterating it (via World.Each/World.Iter) performs
// incremental archetype matching: only archetypes created since the last
// call are run through the opcode program.
type CompiledQuery struct {
	allIDs, anyIDs, notIDs, changedIDs []ComponentID
	allMask, anyMask, notMask          Mask
	writeSet                           map[ComponentID]bool
	program                            []instruction

	needsRelationExpansion bool

	matched   []*archetype
	matchedAt map[*archetype]bool

	// scanned tracks, for each reverse-index id used as a seed source, how
	// much of that archetype list has already been scanned (§4.G
	// "Incremental matching").
	scanned          map[ComponentID]int
	allArchetypeScan int

	// bootstrapped is false until this query's first-ever ChunkIter.Close,
	// per §4.H "the first-ever execution of a query skips no chunks". It
	// lives here rather than on ChunkIter so a query's bootstrap exemption
	// applies exactly once across its lifetime, not once per Iter call.
	bootstrapped    bool
	lastSeenVersion uint32
}

func compileQuery(q *QueryBuilder, relations *relationTable) *CompiledQuery {
	all := sortDedup(q.all)
	any := sortDedup(q.any)
	not := sortDedup(q.not)
	changed := sortDedup(q.changed)

	cq := &CompiledQuery{
		allIDs:     all,
		anyIDs:     any,
		notIDs:     not,
		changedIDs: changed,
		allMask:    maskOf(all...),
		anyMask:    maskOf(any...),
		notMask:    maskOf(not...),
		writeSet:   make(map[ComponentID]bool, len(q.write)),
		matchedAt:  make(map[*archetype]bool),
		scanned:    make(map[ComponentID]int),
	}
	for _, id := range q.write {
		cq.writeSet[id] = true
	}
	if len(all) > 0 {
		cq.program = append(cq.program, instruction{op: opAnd})
	}
	if len(any) > 0 {
		cq.program = append(cq.program, instruction{op: opAny})
	}
	if len(not) > 0 {
		cq.program = append(cq.program, instruction{op: opNot})
	}
	for _, id := range append(append(append([]ComponentID{}, all...), any...), not...) {
		if relations.hasRelations() && len(relations.closure(id)) > 1 {
			cq.needsRelationExpansion = true
			break
		}
	}
	return cq
}

// idClosure expands id through the relation table when relation expansion is
// needed, otherwise returns the singleton {id} (§4.G "transitive
// relationships").
func idClosure(relations *relationTable, id ComponentID, needsExpansion bool) []ComponentID {
	if !needsExpansion {
		return []ComponentID{id}
	}
	return relations.closure(id)
}

// matchesTerm reports whether a carries at least one id in id's closure.
func matchesTerm(a *archetype, relations *relationTable, id ComponentID, needsExpansion bool) bool {
	for _, cid := range idClosure(relations, id, needsExpansion) {
		if a.has(cid) {
			return true
		}
	}
	return false
}

// satisfies runs the compiled opcode program against a candidate archetype.
func (cq *CompiledQuery) satisfies(a *archetype, relations *relationTable) bool {
	for _, instr := range cq.program {
		switch instr.op {
		case opAnd:
			for _, id := range cq.allIDs {
				if !matchesTerm(a, relations, id, cq.needsRelationExpansion) {
					return false
				}
			}
		case opAny:
			matchedAny := false
			for _, id := range cq.anyIDs {
				if matchesTerm(a, relations, id, cq.needsRelationExpansion) {
					matchedAny = true
					break
				}
			}
			if !matchedAny {
				return false
			}
		case opNot:
			for _, id := range cq.notIDs {
				if matchesTerm(a, relations, id, cq.needsRelationExpansion) {
					return false
				}
			}
		}
	}
	return true
}

// refresh performs §4.G's incremental matching: walk only the newly
// appended tail of whichever reverse-index list seeds candidates, apply the
// opcode program, and append survivors to the append-order matched list.
func (cq *CompiledQuery) refresh(graph *archetypeGraph, relations *relationTable) {
	consider := func(a *archetype) {
		if cq.matchedAt[a] {
			return
		}
		if cq.satisfies(a, relations) {
			cq.matched = append(cq.matched, a)
			cq.matchedAt[a] = true
		}
	}
	scanSeed := func(seedID ComponentID) {
		list := graph.reverseIndex[seedID]
		start := cq.scanned[seedID]
		for i := start; i < len(list); i++ {
			consider(list[i])
		}
		cq.scanned[seedID] = len(list)
	}

	switch {
	case len(cq.allIDs) > 0:
		for _, seedCandidate := range idClosure(relations, cq.allIDs[0], cq.needsRelationExpansion) {
			scanSeed(seedCandidate)
		}
	case len(cq.anyIDs) > 0:
		for _, id := range cq.anyIDs {
			for _, seedCandidate := range idClosure(relations, id, cq.needsRelationExpansion) {
				scanSeed(seedCandidate)
			}
		}
	default:
		for i := cq.allArchetypeScan; i < len(graph.all); i++ {
			consider(graph.all[i])
		}
		cq.allArchetypeScan = len(graph.all)
	}
}
