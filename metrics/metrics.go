// Package metrics holds the scheduler's in-memory counters: slots in use,
// forward-step duration, and tokens generated, exposed through a Snapshot
// method. There is no external metrics backend and no persisted state,
// consistent with SPEC_FULL.md §6 — this is new code (the teacher's own
// metrics are Prometheus-backed via server/, which is out of scope here)
// written in the teacher's plain-struct, no-dependency style.
package metrics

import (
	"sync"
	"time"
)

// Counters tracks the scheduler's running totals, safe for concurrent
// updates from multiple slot goroutines.
type Counters struct {
	mu sync.Mutex

	slotsInUse      int
	forwardCalls    int64
	forwardDuration time.Duration
	tokensGenerated int64
}

// New returns a zeroed Counters.
func New() *Counters {
	return &Counters{}
}

// SlotAcquired records a slot transitioning Idle -> Running.
func (c *Counters) SlotAcquired() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.slotsInUse++
}

// SlotReleased records a slot transitioning to Finished and being re-armed.
func (c *Counters) SlotReleased() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.slotsInUse > 0 {
		c.slotsInUse--
	}
}

// ForwardStep records one completed Forward call and the wall-clock time it
// took end to end, plus the number of tokens the step produced (one per
// active, non-finished beam).
func (c *Counters) ForwardStep(d time.Duration, tokens int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.forwardCalls++
	c.forwardDuration += d
	c.tokensGenerated += int64(tokens)
}

// Snapshot is a point-in-time, immutable copy of the counters.
type Snapshot struct {
	SlotsInUse         int
	ForwardCalls       int64
	MeanForwardLatency time.Duration
	TokensGenerated    int64
}

// Snapshot returns the counters' current values.
func (c *Counters) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	var mean time.Duration
	if c.forwardCalls > 0 {
		mean = c.forwardDuration / time.Duration(c.forwardCalls)
	}

	return Snapshot{
		SlotsInUse:         c.slotsInUse,
		ForwardCalls:       c.forwardCalls,
		MeanForwardLatency: mean,
		TokensGenerated:    c.tokensGenerated,
	}
}
