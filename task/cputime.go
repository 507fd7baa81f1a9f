package task

import (
	"time"

	libatm "github.com/nabbar/abel/atomic"
)

// DefaultCPUBudget is the per-task cpu-time limit before Timeout is raised
// into the running script. Both the worker's post-hoc elapsed check and
// the isolate's installed VM context deadline are bound to this value, so
// the two enforcement points agree on what "exceeded its budget" means.
const DefaultCPUBudget = time.Second

// CPUTime is the shared mutable cpu-time accumulator carried by a task
// context. It is written by the executing worker and read by any observer
// without locking, backed by an atomic Value.
type CPUTime struct {
	v libatm.Value[time.Duration]
}

// NewCPUTime returns a zeroed accumulator.
func NewCPUTime() *CPUTime {
	c := &CPUTime{v: libatm.NewValue[time.Duration]()}
	c.v.Store(0)
	return c
}

// Add accumulates d onto the running total and returns the new total. The
// executing worker is the only writer for a given task, so a plain
// load-then-store is sufficient; no CAS retry loop is needed.
func (c *CPUTime) Add(d time.Duration) time.Duration {
	n := c.v.Load() + d
	c.v.Store(n)
	return n
}

// Get returns the current accumulated cpu time.
func (c *CPUTime) Get() time.Duration {
	return c.v.Load()
}

// Exceeds reports whether the accumulator has crossed limit.
func (c *CPUTime) Exceeds(limit time.Duration) bool {
	return c.v.Load() >= limit
}
