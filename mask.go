package archon

import "github.com/TheBitDrifter/mask"

// Mask is the component-id set representation used throughout the core: an
// archetype's identity (§3 "Archetype"), the archetype graph's dedup key
// (§4.E), and a compiled query's ALL/ANY/NOT term sets (§4.G) are all
// Mask values. 256 bits gives headroom above Config.MaxComponentsPerArchetype
// (typically 32) for a registry that keeps growing without needing a wider
// digest, grounded on the teacher's mask.Mask256-keyed lock bits in
// storage.go and its mask.Mask-keyed archetype dedup in storage.go/query.go.
type Mask = mask.Mask256

// maskOf builds a Mask from a list of component ids.
func maskOf(ids ...ComponentID) Mask {
	var m Mask
	for _, id := range ids {
		m.Mark(uint32(id))
	}
	return m
}

// maskHas reports whether m contains id.
func maskHas(m Mask, id ComponentID) bool {
	var single Mask
	single.Mark(uint32(id))
	return m.ContainsAll(single)
}
