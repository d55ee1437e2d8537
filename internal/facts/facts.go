// Package facts implements the embedded runtime's fact collector (§4.8
// step 2): an in-memory, TTL-backed cache of host facts with a
// Cold->Collecting->Fresh->Stale state machine, built on a
// sync.RWMutex split between Load/Save generalized from on-disk JSON to
// in-memory fact values with a background-refresh-on-stale-read policy.
package facts

import (
	"sync"
	"time"
)

// State is one position in the fact cache's lifecycle (§4.8).
type State string

const (
	Cold       State = "cold"
	Collecting State = "collecting"
	Fresh      State = "fresh"
	Stale      State = "stale"
)

// Collector is one named fact source (e.g. "hostname", "os_family",
// "network_interfaces"). Individual collector failures are non-fatal: the
// corresponding fact is simply omitted (§4.8 step 2).
type Collector func() (any, error)

// Cache is the TTL-backed, read-mostly fact store. Writers (collection
// runs) hold exclusive access only during collection; readers proceed
// concurrently otherwise (§5 "Shared resources").
type Cache struct {
	mu         sync.RWMutex
	ttl        time.Duration
	collectors map[string]Collector
	values     map[string]any
	state      State
	lastFresh  time.Time
	refreshing bool
}

// New creates a fact Cache with the given TTL and named collectors.
func New(ttl time.Duration, collectors map[string]Collector) *Cache {
	return &Cache{
		ttl:        ttl,
		collectors: collectors,
		values:     map[string]any{},
		state:      Cold,
	}
}

// State reports the cache's current lifecycle state without triggering a
// transition.
func (c *Cache) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.effectiveState()
}

// effectiveState must be called with at least a read lock held; it
// derives Stale from Fresh + TTL expiry without a separate ticking timer.
func (c *Cache) effectiveState() State {
	if c.state == Fresh && time.Since(c.lastFresh) > c.ttl {
		return Stale
	}
	return c.state
}

// Get returns the full fact set, collecting on first use (Cold) and
// triggering a background refresh on a Stale read while still returning
// the stale value immediately (§4.8 "Fact collection state machine").
func (c *Cache) Get() map[string]any {
	c.mu.RLock()
	state := c.effectiveState()
	snapshot := c.snapshotLocked()
	c.mu.RUnlock()

	switch state {
	case Cold:
		c.collectSync()
		c.mu.RLock()
		snapshot = c.snapshotLocked()
		c.mu.RUnlock()
	case Stale:
		c.triggerBackgroundRefresh()
	}

	return snapshot
}

func (c *Cache) snapshotLocked() map[string]any {
	out := make(map[string]any, len(c.values))
	for k, v := range c.values {
		out[k] = v
	}
	return out
}

// collectSync runs every collector synchronously, transitioning
// Cold->Collecting->Fresh.
func (c *Cache) collectSync() {
	c.mu.Lock()
	if c.state != Cold {
		c.mu.Unlock()
		return
	}
	c.state = Collecting
	c.mu.Unlock()

	values := runCollectors(c.collectors)

	c.mu.Lock()
	c.values = values
	c.state = Fresh
	c.lastFresh = time.Now()
	c.mu.Unlock()
}

// triggerBackgroundRefresh starts at most one concurrent refresh; callers
// on a Stale read never block on it.
func (c *Cache) triggerBackgroundRefresh() {
	c.mu.Lock()
	if c.refreshing {
		c.mu.Unlock()
		return
	}
	c.refreshing = true
	c.mu.Unlock()

	go func() {
		values := runCollectors(c.collectors)
		c.mu.Lock()
		c.values = values
		c.state = Fresh
		c.lastFresh = time.Now()
		c.refreshing = false
		c.mu.Unlock()
	}()
}

// runCollectors executes every collector, skipping (not failing) any that
// error out (§4.8 step 2: "Failures to collect individual facts are
// non-fatal").
func runCollectors(collectors map[string]Collector) map[string]any {
	values := make(map[string]any, len(collectors))
	for name, collect := range collectors {
		v, err := collect()
		if err != nil {
			continue
		}
		values[name] = v
	}
	return values
}
