package task

import (
	"sync"

	lua "github.com/yuin/gopher-lua"
)

// Closeable is a script-registered resource with a close protocol. Workers
// call Close on task completion; errors are swallowed. An explicit ordered
// set is used instead of interpreter finalisers because Lua's finalisation
// order during garbage collection is unspecified.
type Closeable interface {
	Close(l *lua.LState) error
}

// CloseSet is an ordered collection of script-side resources registered by
// running code. Close is invoked on each exactly once, in registration
// order, when the owning task completes.
//
// Adapted from ioutils/mapCloser's context-scoped counter-keyed collection:
// that type auto-closes on context-done via a background poll and ranges a
// map (unordered); this one is drained exactly once at end-of-task, walking
// the registration counter 0..N instead of a map range, so draining order
// is always registration order.
type CloseSet struct {
	mu   sync.Mutex
	next uint64
	keys []uint64
	vals map[uint64]Closeable
}

// NewCloseSet returns an empty, ready-to-use close-set.
func NewCloseSet() *CloseSet {
	return &CloseSet{vals: make(map[uint64]Closeable)}
}

// Register appends c to the set, returning its registration id.
func (s *CloseSet) Register(c Closeable) uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.next
	s.next++

	s.keys = append(s.keys, id)
	s.vals[id] = c

	return id
}

// Len reports how many resources are currently registered.
func (s *CloseSet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.keys)
}

// RunAll invokes Close on every registered resource in registration order,
// swallowing individual errors, then clears the set. Not safe to call
// concurrently with Register.
func (s *CloseSet) RunAll(l *lua.LState) {
	s.mu.Lock()
	keys := s.keys
	vals := s.vals
	s.keys = nil
	s.vals = make(map[uint64]Closeable)
	s.mu.Unlock()

	for _, k := range keys {
		if c, ok := vals[k]; ok && c != nil {
			_ = c.Close(l)
		}
	}
}
