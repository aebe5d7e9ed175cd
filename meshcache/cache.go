// Package meshcache stores built band meshes keyed by energy.
package meshcache

import (
	"math"
	"sort"
	"sync"

	"github.com/soypat/fermisurf"
)

// Scale is the number of key units per unit of energy. Energies that agree
// to three decimals share a key.
const Scale = 1000

// Key is an energy in fixed point, round(E*Scale).
type Key int64

// KeyOf returns the cache key of energy E.
func KeyOf(E float64) Key {
	return Key(math.Round(E * Scale))
}

// Energy returns the energy the key represents.
func (k Key) Energy() float64 {
	return float64(k) / Scale
}

// Cache maps quantized energies to the bands built at that energy. It never
// evicts: entries live as long as the Cache. Writes to an existing key
// overwrite it. Safe for concurrent use.
type Cache struct {
	mu      sync.RWMutex
	entries map[Key][]fermisurf.Band
}

// New returns an empty cache.
func New() *Cache {
	return &Cache{entries: make(map[Key][]fermisurf.Band)}
}

// Get returns the bands stored at E's key.
func (c *Cache) Get(E float64) ([]fermisurf.Band, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	bands, ok := c.entries[KeyOf(E)]
	return bands, ok
}

// Has reports whether E's key is present.
func (c *Cache) Has(E float64) bool {
	_, ok := c.Get(E)
	return ok
}

// Put stores bands at E's key, replacing any previous entry.
func (c *Cache) Put(E float64, bands []fermisurf.Band) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.entries == nil {
		c.entries = make(map[Key][]fermisurf.Band)
	}
	c.entries[KeyOf(E)] = bands
}

// Keys returns the stored keys in ascending order.
func (c *Cache) Keys() []Key {
	c.mu.RLock()
	keys := make([]Key, 0, len(c.entries))
	for k := range c.entries {
		keys = append(keys, k)
	}
	c.mu.RUnlock()
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}

// Energies returns the stored keys as energies in ascending order.
func (c *Cache) Energies() []float64 {
	keys := c.Keys()
	es := make([]float64, len(keys))
	for i, k := range keys {
		es[i] = k.Energy()
	}
	return es
}

// Len returns the number of stored energies.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// Snapshot returns a copy of the key to bands mapping.
func (c *Cache) Snapshot() map[Key][]fermisurf.Band {
	c.mu.RLock()
	defer c.mu.RUnlock()
	snap := make(map[Key][]fermisurf.Band, len(c.entries))
	for k, v := range c.entries {
		snap[k] = v
	}
	return snap
}
