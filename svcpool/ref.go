package svcpool

import (
	"sync/atomic"

	"github.com/nabbar/abel/service"
)

// Ref is a reference-counted handle to a service.Record, vended to workers
// as Weak references while the entry is Running. Go has no language-level
// weak pointer for this, so identity + an explicit "alive" flag plays the
// same role: once the pool drops the last strong reference (on
// stop/replace), Drop() flips the flag and every outstanding Weak's
// Upgrade starts failing, which is how workers observe the transition.
type Ref struct {
	record *service.Record
	alive  int32
}

// NewRef wraps rec as a live, strongly-owned reference.
func NewRef(rec *service.Record) *Ref {
	return &Ref{record: rec, alive: 1}
}

// Record returns the underlying record. Valid for as long as the holder
// owns a strong reference (i.e. before Drop is observed).
func (r *Ref) Record() *service.Record {
	return r.record
}

// Weak vends a weak reference a worker's cache may hold.
func (r *Ref) Weak() *Weak {
	return &Weak{r: r}
}

// Drop marks the reference dead; outstanding Weaks fail Upgrade from this
// point on. Idempotent.
func (r *Ref) Drop() {
	atomic.StoreInt32(&r.alive, 0)
}

func (r *Ref) isAlive() bool {
	return atomic.LoadInt32(&r.alive) == 1
}

// Weak is a per-worker-cache weak reference to a Ref.
type Weak struct {
	r *Ref
}

// Upgrade returns the underlying record if the Ref backing this Weak is
// still alive, the way a worker's cache lookup tries to upgrade before
// trusting a cached isolate.
func (w *Weak) Upgrade() (*service.Record, bool) {
	if w == nil || w.r == nil || !w.r.isAlive() {
		return nil, false
	}
	return w.r.record, true
}

// PtrEq reports whether the record this Weak would upgrade to is the same
// object identity as other.
func (w *Weak) PtrEq(other *service.Record) bool {
	rec, ok := w.Upgrade()
	if !ok {
		return false
	}
	return rec == other
}
