package proccache

import "time"

const (
	// DefaultChurnThreshold is how many appeared or vanished PIDs an
	// incremental refresh may tolerate before it stops being trustworthy.
	DefaultChurnThreshold = 5
	// DefaultMaxQuickAge bounds how long the engine may go between full
	// re-enumerations even with no churn at all.
	DefaultMaxQuickAge = 5 * time.Second
)

// RefreshPolicy decides whether the next poll needs a full re-enumeration or
// may refresh dynamic fields incrementally. It has no state and no side
// effects.
type RefreshPolicy struct {
	ChurnThreshold int
	MaxQuickAge    time.Duration
}

// DefaultPolicy returns the stock thresholds.
func DefaultPolicy() RefreshPolicy {
	return RefreshPolicy{
		ChurnThreshold: DefaultChurnThreshold,
		MaxQuickAge:    DefaultMaxQuickAge,
	}
}

// NeedsFullUpdate reports whether too many PIDs appeared or vanished since
// the cached generation, or too much time passed since the last full
// re-enumeration, for an incremental refresh to be safe.
func (p RefreshPolicy) NeedsFullUpdate(cached, current map[int32]struct{}, now, lastFull time.Time) bool {
	threshold := p.ChurnThreshold
	if threshold <= 0 {
		threshold = DefaultChurnThreshold
	}
	maxAge := p.MaxQuickAge
	if maxAge <= 0 {
		maxAge = DefaultMaxQuickAge
	}

	appeared := 0
	for pid := range current {
		if _, ok := cached[pid]; !ok {
			appeared++
		}
	}
	if appeared > threshold {
		return true
	}

	vanished := 0
	for pid := range cached {
		if _, ok := current[pid]; !ok {
			vanished++
		}
	}
	if vanished > threshold {
		return true
	}

	return now.Sub(lastFull) > maxAge
}
