// Package archon implements an archetype-based entity-component-system
// storage and query engine: entities are recycled handles tagged with a
// generation, components are described by reflection-derived descriptors,
// and rows are packed into fixed-size chunks grouped by archetype. Queries
// compile once and then match incrementally against newly created
// archetypes rather than rescanning the whole graph on every call.
package archon
