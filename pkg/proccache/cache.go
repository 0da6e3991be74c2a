// Package proccache implements the snapshot caching and refresh-decision
// engine: a generation cache of process records, the policy deciding when a
// full re-enumeration is due, and the manager orchestrating the backends.
package proccache

import (
	"time"

	"github.com/procscope/procscope/pkg/types"
)

const (
	// DefaultCapacity bounds how many records a generation memoizes.
	DefaultCapacity = 500
	// DefaultStalenessWindow bounds how long cached static attributes are
	// trusted without re-derivation.
	DefaultStalenessWindow = 2 * time.Second
)

// Cache holds one generation of process records keyed by PID, plus the time
// that generation was built. Each Update replaces the generation wholesale.
//
// When the input exceeds capacity, the cutoff follows input order: records
// past the cap are still returned to the caller but skip static-field
// memoization on the next poll. The cutoff is therefore as nondeterministic
// as the backend's enumeration order; an accepted trade-off, since capacity
// bounds memoization memory, not the displayed set.
type Cache struct {
	entries    map[int32]types.ProcessRecord
	lastUpdate time.Time
	capacity   int
	window     time.Duration

	// now is swapped out in tests.
	now func() time.Time
}

// NewCache returns an empty cache. Non-positive arguments fall back to the
// defaults.
func NewCache(capacity int, window time.Duration) *Cache {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	if window <= 0 {
		window = DefaultStalenessWindow
	}
	return &Cache{
		entries:  make(map[int32]types.ProcessRecord),
		capacity: capacity,
		window:   window,
		now:      time.Now,
	}
}

// Update builds the next generation from observed, carrying static
// attributes forward for records whose PID was already cached, as long as
// the prior generation is younger than the staleness window and the
// observation looks like the same process instance. The input slice is
// mutated in place and returned in its original order, including any records
// past capacity.
func (c *Cache) Update(observed []types.ProcessRecord) []types.ProcessRecord {
	now := c.now()
	fresh := now.Sub(c.lastUpdate) < c.window

	next := make(map[int32]types.ProcessRecord, min(len(observed), c.capacity))
	for i := range observed {
		rec := &observed[i]
		if fresh {
			if prev, ok := c.entries[rec.Pid]; ok && sameInstance(*rec, prev) {
				rec.CopyStaticFrom(prev)
			}
		}
		if len(next) < c.capacity {
			next[rec.Pid] = *rec
		}
	}

	c.entries = next
	c.lastUpdate = now
	return observed
}

// sameInstance guards against PID reuse inside the staleness window: a cache
// hit only counts when creation timestamps agree. Records that never carried
// a creation time (bulk rows whose enrichment failed) keep the permissive
// PID-only match.
func sameInstance(observed, prev types.ProcessRecord) bool {
	if observed.Fields.Has(types.FieldCreateTime) && prev.Fields.Has(types.FieldCreateTime) {
		return observed.CreateTime == prev.CreateTime
	}
	return true
}

// Pids returns the identity set of the current generation.
func (c *Cache) Pids() map[int32]struct{} {
	pids := make(map[int32]struct{}, len(c.entries))
	for pid := range c.entries {
		pids[pid] = struct{}{}
	}
	return pids
}

// Len reports the number of memoized records.
func (c *Cache) Len() int { return len(c.entries) }

// LastUpdate reports when the current generation was built.
func (c *Cache) LastUpdate() time.Time { return c.lastUpdate }

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
