package archon

import "github.com/prometheus/client_golang/prometheus"

// StoreStats is a point-in-time snapshot of World's storage footprint
// (§3-EXT "Metrics"): entity/archetype/chunk counts plus allocator page and
// byte accounting, independent of whether prometheus is wired in at all.
type StoreStats struct {
	LiveEntities   int
	FreeEntities   int
	ArchetypeCount int
	ChunkCount     int

	SmallPages, BigPages                   int
	SmallBytesCommitted, BigBytesCommitted uintptr
}

// Stats computes a fresh StoreStats snapshot (§6 "world_stats").
func (w *World) Stats() StoreStats {
	s := StoreStats{
		LiveEntities:   w.directory.liveCount(),
		FreeEntities:   w.directory.freeCount,
		ArchetypeCount: w.graph.archetypeCount(),
	}
	for _, a := range w.graph.all {
		s.ChunkCount += len(a.chunks)
	}
	pages, bytesCommitted := w.allocator.stats()
	s.SmallPages, s.BigPages = pages[ChunkSmall], pages[ChunkBig]
	s.SmallBytesCommitted, s.BigBytesCommitted = bytesCommitted[ChunkSmall], bytesCommitted[ChunkBig]
	return s
}

// Collector adapts World.Stats to prometheus.Collector, letting a World
// register directly with a prometheus.Registry (§3-EXT "Metrics export",
// DOMAIN STACK prometheus/client_golang wiring).
type Collector struct {
	world *World

	liveEntities   *prometheus.Desc
	freeEntities   *prometheus.Desc
	archetypeCount *prometheus.Desc
	chunkCount     *prometheus.Desc
	bytesCommitted *prometheus.Desc
}

// NewCollector builds a Collector reporting w's stats under the archon_
// metric namespace.
func NewCollector(w *World) *Collector {
	return &Collector{
		world:          w,
		liveEntities:   prometheus.NewDesc("archon_live_entities", "Number of live entities.", nil, nil),
		freeEntities:   prometheus.NewDesc("archon_free_entities", "Number of recycled, unused entity slots.", nil, nil),
		archetypeCount: prometheus.NewDesc("archon_archetype_count", "Number of distinct archetypes ever created.", nil, nil),
		chunkCount:     prometheus.NewDesc("archon_chunk_count", "Number of currently allocated chunks.", nil, nil),
		bytesCommitted: prometheus.NewDesc("archon_bytes_committed", "Bytes committed by the chunk allocator, by size class.", []string{"size_class"}, nil),
	}
}

func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.liveEntities
	ch <- c.freeEntities
	ch <- c.archetypeCount
	ch <- c.chunkCount
	ch <- c.bytesCommitted
}

func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	s := c.world.Stats()
	ch <- prometheus.MustNewConstMetric(c.liveEntities, prometheus.GaugeValue, float64(s.LiveEntities))
	ch <- prometheus.MustNewConstMetric(c.freeEntities, prometheus.GaugeValue, float64(s.FreeEntities))
	ch <- prometheus.MustNewConstMetric(c.archetypeCount, prometheus.GaugeValue, float64(s.ArchetypeCount))
	ch <- prometheus.MustNewConstMetric(c.chunkCount, prometheus.GaugeValue, float64(s.ChunkCount))
	ch <- prometheus.MustNewConstMetric(c.bytesCommitted, prometheus.GaugeValue, float64(s.SmallBytesCommitted), "small")
	ch <- prometheus.MustNewConstMetric(c.bytesCommitted, prometheus.GaugeValue, float64(s.BigBytesCommitted), "big")
}
