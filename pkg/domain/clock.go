package domain

import "sync/atomic"

// Clock is the monotonically increasing logical counter used for every "at"
// timestamp and for expiry comparisons. Tick advances the counter and is
// called once per committed transaction; Now observes without advancing.
type Clock interface {
	Tick() uint64
	Now() uint64
}

// CounterClock is the default Clock: a process-local atomic counter.
type CounterClock struct {
	value atomic.Uint64
}

// NewCounterClock returns a clock starting at the given value.
func NewCounterClock(start uint64) *CounterClock {
	c := &CounterClock{}
	c.value.Store(start)
	return c
}

// Tick advances the counter and returns the new value.
func (c *CounterClock) Tick() uint64 {
	return c.value.Add(1)
}

// Now returns the current counter value.
func (c *CounterClock) Now() uint64 {
	return c.value.Load()
}
