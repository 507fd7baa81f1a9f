package task

import (
	"sync"

	lua "github.com/yuin/gopher-lua"
)

// Handle is a worker's interpreter, passed to an OwnedTask's closure.
type Handle interface {
	State() *lua.LState
}

// Func is the closure an OwnedTask carries. It receives the worker's
// interpreter handle and returns a boxed result.
type Func func(h Handle) (interface{}, error)

// Result is what a task's reply channel carries.
type Result struct {
	Value interface{}
	Err   error
}

// OwnedTask is executed by exactly one worker. Dropping Reply cancels the
// task from the caller's point of view.
type OwnedTask struct {
	Func    Func
	Reply   chan Result
	CPUTime *CPUTime
}

// NewOwnedTask builds an OwnedTask with a fresh reply channel and cpu-time
// accumulator.
func NewOwnedTask(f Func) *OwnedTask {
	return &OwnedTask{
		Func:    f,
		Reply:   make(chan Result, 1),
		CPUTime: NewCPUTime(),
	}
}

// SharedTask wraps an OwnedTask guarded by a lock; Claim atomically takes
// the inner OwnedTask, returning it at most once across all workers (spec
// §4.D). This is the "broadcast and claim-once" primitive used by the
// runtime pool's scope().
type SharedTask struct {
	mu     sync.Mutex
	inner  *OwnedTask
	claimed bool
}

// NewSharedTask wraps t for broadcast to every worker.
func NewSharedTask(t *OwnedTask) *SharedTask {
	return &SharedTask{inner: t}
}

// Claim returns the wrapped OwnedTask to the first caller only; every
// subsequent caller (including concurrent ones) gets ok=false.
func (s *SharedTask) Claim() (t *OwnedTask, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.claimed {
		return nil, false
	}

	s.claimed = true
	return s.inner, true
}

// LocalTask is the worker-local view of a task: the OwnedTask plus the
// task context the worker installs before polling.
type LocalTask struct {
	Owned    *OwnedTask
	CloseSet *CloseSet
}

// ToLocal converts an OwnedTask into a worker-local task carrying a fresh
// close-set. The cpu-time accumulator is shared with the OwnedTask, not
// duplicated, since callers outside the worker may observe it.
func ToLocal(t *OwnedTask) *LocalTask {
	return &LocalTask{
		Owned:    t,
		CloseSet: NewCloseSet(),
	}
}

// Reply boxes (v, err) and sends it on the task's reply channel, swallowing
// a send to a channel nobody is listening to (buffered size 1).
func (t *OwnedTask) SendResult(v interface{}, err error) {
	select {
	case t.Reply <- Result{Value: v, Err: err}:
	default:
	}
}
