package archon

// chunkSizeClass is one of the two fixed block sizes the allocator hands out.
type chunkSizeClass uint8

const (
	// ChunkSmall is the 8 KiB size class.
	ChunkSmall chunkSizeClass = iota
	// ChunkBig is the 16 KiB size class.
	ChunkBig
)

func (c chunkSizeClass) String() string {
	if c == ChunkBig {
		return "big(16KiB)"
	}
	return "small(8KiB)"
}

func (c chunkSizeClass) bytes() uintptr {
	if c == ChunkBig {
		return 16 * 1024
	}
	return 8 * 1024
}

// DefragPolicy selects how an archetype picks a chunk for new rows, per the
// open question in §9: "prefer last" favors append locality, "prefer
// least-full" favors packing density and enables GC-time defragmentation.
type DefragPolicy uint8

const (
	// PreferLast always appends to the most recently opened chunk.
	PreferLast DefragPolicy = iota
	// PreferLeastFull always appends to the chunk with the most free rows,
	// and enables defragmentation during World.Update.
	PreferLeastFull
)

// chunkPageBytes is the size of one allocator page, subdivided into
// size-class slots (§4.B).
const chunkPageBytes = 1 << 20 // 1 MiB

// Config collects the tunables named throughout §4 and §9. A zero Config is
// not usable directly; construct one with NewConfig, which applies the
// defaults the spec calls out explicitly.
type Config struct {
	// DefaultSizeClass is the size class new archetypes allocate chunks from.
	DefaultSizeClass chunkSizeClass
	// MaxComponentsPerArchetype bounds the component-id set of any one
	// archetype (§7 CapacityExceeded, typically 32).
	MaxComponentsPerArchetype int
	// ChunkLifespanFrames is the GC countdown, in calls to World.Update,
	// before an empty chunk is released back to the allocator (§4.C).
	ChunkLifespanFrames int
	// Defrag selects the chunk-selection/defragmentation policy (§4.D, §9).
	Defrag DefragPolicy
}

// Option configures a Config via NewConfig, following the functional-options
// shape the rest of the corpus uses for builder-style construction.
type Option func(*Config)

// WithSizeClass overrides the default chunk size class new archetypes use.
func WithSizeClass(c chunkSizeClass) Option {
	return func(cfg *Config) { cfg.DefaultSizeClass = c }
}

// WithMaxComponentsPerArchetype overrides the per-archetype component cap.
func WithMaxComponentsPerArchetype(n int) Option {
	return func(cfg *Config) { cfg.MaxComponentsPerArchetype = n }
}

// WithChunkLifespan overrides the GC countdown, in frames, before an empty
// chunk's memory is released.
func WithChunkLifespan(frames int) Option {
	return func(cfg *Config) { cfg.ChunkLifespanFrames = frames }
}

// WithDefragPolicy overrides the chunk-selection/defragmentation policy.
func WithDefragPolicy(p DefragPolicy) Option {
	return func(cfg *Config) { cfg.Defrag = p }
}

// NewConfig builds a Config with the spec's stated defaults: 8 KiB chunks,
// a 32-component-per-archetype ceiling, a 16-frame chunk lifespan, and the
// "prefer last chunk, defragment never" policy (§9's mandated default).
func NewConfig(opts ...Option) Config {
	cfg := Config{
		DefaultSizeClass:          ChunkSmall,
		MaxComponentsPerArchetype: 32,
		ChunkLifespanFrames:       16,
		Defrag:                    PreferLast,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}
