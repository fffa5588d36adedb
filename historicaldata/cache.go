package historicaldata

import (
	"sync"

	"github.com/quantrook/backreplay/models"
)

// GlobalCache is a process-wide bag of pre-loaded records, enabled by an
// explicit flag on the replay engine. Unlike a TTL cache, an entry never
// expires: its lifecycle is the process itself, and a run that enables it
// replaces the whole history for a (symbol, exchange, interval) key rather
// than appending to it. Concurrent backtests sharing one GlobalCache are
// not supported — see the design note on this in DESIGN.md.
type GlobalCache struct {
	mu      sync.Mutex
	entries map[string][]models.Record
}

// NewGlobalCache returns an empty cache. Callers typically construct one
// instance per process and pass it by reference into every replay engine
// that opts into global caching, rather than reaching for a package-level
// variable — this keeps concurrent backtests composable.
func NewGlobalCache() *GlobalCache {
	return &GlobalCache{entries: make(map[string][]models.Record)}
}

func cacheKey(symbol, exchange string, interval models.Interval) string {
	return symbol + "." + exchange + "." + string(interval)
}

// Get returns the cached records for (symbol, exchange, interval) and
// whether an entry exists at all.
func (c *GlobalCache) Get(symbol, exchange string, interval models.Interval) ([]models.Record, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	records, ok := c.entries[cacheKey(symbol, exchange, interval)]
	return records, ok
}

// Put replaces whatever was cached for (symbol, exchange, interval) with
// records. It never merges with a prior entry. replay.Engine.LoadData only
// calls Put on a cache miss, so once a key is cached, later runs under a
// different start/end are served that first entry's coverage unchanged —
// the documented limitation in spec.md §9.
func (c *GlobalCache) Put(symbol, exchange string, interval models.Interval, records []models.Record) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[cacheKey(symbol, exchange, interval)] = records
}
