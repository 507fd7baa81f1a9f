// Package svcpool implements the name-keyed service-state map: the
// serialisation point for all state transitions. Every create/update/
// start/stop/remove operation goes through this type.
package svcpool

import (
	libatm "github.com/nabbar/abel/atomic"
	"github.com/nabbar/abel/service"
)

// State tags a pool Entry as Running (shared, weak-referenceable) or
// Stopped (uniquely owned).
type State uint8

const (
	Stopped State = iota
	Running
)

// Entry is one pool value: tagged Running(ref) or Stopped(record). Exactly
// one of the two fields is meaningful, selected by State.
type Entry struct {
	State   State
	Running *Ref
	Stopped *service.Record
}

// Record returns the underlying record regardless of state.
func (e *Entry) Record() *service.Record {
	if e == nil {
		return nil
	}
	if e.State == Running {
		return e.Running.Record()
	}
	return e.Stopped
}

func stoppedEntry(rec *service.Record) *Entry {
	return &Entry{State: Stopped, Stopped: rec}
}

func runningEntry(ref *Ref) *Entry {
	return &Entry{State: Running, Running: ref}
}

// Pool is the keyed map of service-name -> Entry. All methods are safe for
// concurrent use; it is the single source of truth for which state a name
// is in, and a name maps to at most one entry.
type Pool struct {
	m libatm.MapTyped[string, *Entry]
}

// New returns an empty pool.
func New() *Pool {
	return &Pool{m: libatm.NewMapTyped[string, *Entry]()}
}

// Get returns the current entry for name, if any.
func (p *Pool) Get(name string) (*Entry, bool) {
	return p.m.Load(name)
}

// InsertStoppedIfAbsent atomically inserts a Stopped(rec) entry only if
// name has no entry yet. Returns the entry actually present (existing or
// newly inserted) and whether it was newly inserted (i.e. name was absent).
func (p *Pool) InsertStoppedIfAbsent(name string, rec *service.Record) (entry *Entry, inserted bool) {
	actual, loaded := p.m.LoadOrStore(name, stoppedEntry(rec))
	return actual, !loaded
}

// Replace atomically swaps in a new entry for name, returning whatever was
// there before (nil if absent). This is the primitive load/cold-update/
// hot-update all build on.
func (p *Pool) Replace(name string, next *Entry) (prior *Entry, hadPrior bool) {
	return p.m.Swap(name, next)
}

// Remove atomically deletes name, returning whatever entry was present.
func (p *Pool) Remove(name string) (*Entry, bool) {
	return p.m.LoadAndDelete(name)
}

// SetStopped installs a Stopped(rec) entry for name unconditionally,
// returning the prior entry (spec "load" step 4).
func (p *Pool) SetStopped(name string, rec *service.Record) (prior *Entry, hadPrior bool) {
	return p.Replace(name, stoppedEntry(rec))
}

// SetRunning installs a Running(ref) entry for name unconditionally,
// returning the prior entry.
func (p *Pool) SetRunning(name string, ref *Ref) (prior *Entry, hadPrior bool) {
	return p.Replace(name, runningEntry(ref))
}

// Range visits every (name, entry) pair in the pool in an unspecified
// order; used by stop_all and the management API's list operation.
func (p *Pool) Range(f func(name string, e *Entry) bool) {
	p.m.Range(f)
}

// Len reports the current number of names tracked by the pool.
func (p *Pool) Len() int {
	n := 0
	p.Range(func(string, *Entry) bool { n++; return true })
	return n
}
