package worker

import (
	"sync"
	"time"

	lua "github.com/yuin/gopher-lua"

	liblog "github.com/nabbar/abel/logger"
	"github.com/nabbar/abel/task"
)

// DefaultCPUBudget is the per-task cpu-time limit before a Timeout error is
// injected into the running script. Aliases task.DefaultCPUBudget, which is
// also what a built Isolate installs as its VM context deadline, so both
// enforcement points agree on the limit.
const DefaultCPUBudget = task.DefaultCPUBudget

// DefaultCleanupInterval is how often a worker sweeps its service cache
// for stale entries.
const DefaultCleanupInterval = 10 * time.Minute

// localBufferCap bounds the spawn buffer; once full, the oldest pending
// local task is dropped to make room for the newest, since an unbounded
// script-driven queue is an easy memory leak vector for a multi-tenant
// host.
const localBufferCap = 256

// Cleaner is implemented by the per-worker service cache; the worker calls
// it on its periodic tick without importing svccache directly, since
// svccache in turn depends on isolate and would otherwise create an import
// cycle with worker's own isolate usage.
type Cleaner interface {
	Sweep()
}

// ResourceHandle is the task.Handle every closure actually receives. Its
// Resource method exposes whatever per-worker value was installed at
// construction (this worker's *svccache.Cache, in practice), letting
// lifecycle closures reach their worker's cache without worker needing to
// import svccache.
type ResourceHandle interface {
	task.Handle
	Resource() interface{}
}

// CloseSetHandle exposes the close-set belonging to the task currently
// running, so a closure can hand it to whichever isolate it builds or
// looks up before invoking script code that opens host resources.
type CloseSetHandle interface {
	task.Handle
	CloseSet() *task.CloseSet
}

// SpawnHandle exposes this worker's own local-task buffer, letting a
// closure bind a newly built isolate's `schedule.spawn` calls to the
// worker that will actually drain them rather than to the isolate's own
// throwaway fallback.
type SpawnHandle interface {
	task.Handle
	Spawn(fn task.Func)
}

// SuspendHandle is how a task yields this worker to its siblings around a
// blocking host operation (outbound HTTP, file reads, sleeps). Suspend
// releases the worker's execution slot, runs fn on the task's own
// goroutine, and re-acquires the slot before returning, so other in-flight
// tasks on this worker interleave for exactly the duration of fn. Time
// spent suspended is excluded from the task's cpu accounting.
type SuspendHandle interface {
	task.Handle
	Suspend(fn func() (interface{}, error)) (interface{}, error)
}

type resourceHandle struct {
	resource interface{}
	close    *task.CloseSet
	worker   *Worker
	susp     *time.Duration
}

// State always returns nil: a single worker serves many services, each
// with its own cached Isolate and *lua.LState, so there is no single
// interpreter to hand back generically. Code that needs an LState reaches
// it through the specific Isolate it resolved (e.g. via ResourceHandle's
// cache lookup), never through Handle.State().
func (h resourceHandle) State() *lua.LState       { return nil }
func (h resourceHandle) Resource() interface{}    { return h.resource }
func (h resourceHandle) CloseSet() *task.CloseSet { return h.close }

func (h resourceHandle) Spawn(fn task.Func) {
	if h.worker != nil {
		h.worker.Spawn(fn)
	}
}

func (h resourceHandle) Suspend(fn func() (interface{}, error)) (interface{}, error) {
	if h.worker == nil {
		return fn()
	}

	t0 := time.Now()
	h.worker.release()
	defer func() {
		// re-acquire even when fn panics, so the unwinding task still owns
		// the slot its runner will release
		h.worker.acquire()
		if h.susp != nil {
			*h.susp += time.Since(t0)
		}
	}()

	return fn()
}

// Worker is a single goroutine-pinned event loop multiplexing a set of
// in-flight tasks. Each claimed task runs on its own goroutine but script
// code only executes while the task holds this worker's execution slot;
// blocking host operations go through Suspend, which hands the slot to
// whichever sibling task is ready. The loop itself selects over the shared
// task channel, a wake notifier fed by spawns and completions, a stop
// signal and a periodic cleanup tick, with a panic sentinel the runtime
// pool checks before every broadcast.
type Worker struct {
	id    int
	log   liblog.Logger
	tasks chan *task.SharedTask
	stop  chan struct{}
	done  chan struct{}
	wake  chan struct{}

	slot     chan struct{}
	inflight sync.WaitGroup

	cleanup   Cleaner
	resource  interface{}
	cpuBudget time.Duration
	interval  time.Duration

	mu       sync.Mutex
	local    []*task.OwnedTask
	panicked bool
}

// New builds a worker that is not yet running; call Run in its own
// goroutine.
func New(id int, tasks chan *task.SharedTask, cleanup Cleaner, log liblog.Logger) *Worker {
	w := &Worker{
		id:        id,
		log:       log,
		tasks:     tasks,
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
		wake:      make(chan struct{}, 1),
		slot:      make(chan struct{}, 1),
		cleanup:   cleanup,
		cpuBudget: DefaultCPUBudget,
		interval:  DefaultCleanupInterval,
	}

	w.slot <- struct{}{}

	if cleanup != nil {
		w.resource = cleanup
	}

	return w
}

// ID returns the worker's index within its runtime pool.
func (w *Worker) ID() int { return w.id }

// acquire takes the worker's execution slot; exactly one task goroutine
// holds it at a time, which is what keeps script execution single-threaded
// per worker while tasks themselves are free to wait on I/O concurrently.
func (w *Worker) acquire() { <-w.slot }
func (w *Worker) release() { w.slot <- struct{}{} }

// Panicked reports whether this worker's event loop has unwound from a
// panic; the runtime pool checks this before every broadcast and rebuilds
// dead workers in place.
func (w *Worker) Panicked() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.panicked
}

// Spawn enqueues a script-requested local task and nudges the event loop
// so it starts even while the spawning task is still suspended. Dropping
// the oldest pending entry when full is logged, never silent, since a
// script-driven spawn storm is exactly the failure mode the bound exists
// to catch.
func (w *Worker) Spawn(fn task.Func) {
	w.mu.Lock()
	if len(w.local) >= localBufferCap {
		w.local = w.local[1:]
		if w.log != nil {
			w.log.Warning("worker local task buffer full, dropping oldest spawn", nil)
		}
	}
	w.local = append(w.local, task.NewOwnedTask(fn))
	w.mu.Unlock()

	w.notifyWake()
}

func (w *Worker) notifyWake() {
	select {
	case w.wake <- struct{}{}:
	default:
	}
}

// Stop signals the run loop to exit, then blocks until it has drained its
// in-flight tasks and returned.
func (w *Worker) Stop() {
	close(w.stop)
	<-w.done
}

// Run is the worker's event loop: task channel receiver, wake notifier,
// stop signal, periodic cleanup tick. Claimed and spawned tasks are
// started as tracked goroutines that contend for the execution slot; the
// loop itself never blocks on a task.
func (w *Worker) Run() {
	defer close(w.done)
	defer w.recoverPanic()

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stop:
			w.inflight.Wait()
			return

		case <-ticker.C:
			if w.cleanup != nil {
				w.acquire()
				w.cleanup.Sweep()
				w.release()
			}

		case shared, ok := <-w.tasks:
			if !ok {
				w.inflight.Wait()
				return
			}
			if owned, claimed := shared.Claim(); claimed {
				w.startTask(owned)
			}
			w.drainLocal()

		case <-w.wake:
			w.drainLocal()
		}
	}
}

func (w *Worker) recoverPanic() {
	if r := recover(); r != nil {
		w.mu.Lock()
		w.panicked = true
		w.mu.Unlock()

		if w.log != nil {
			w.log.Error("worker recovered from panic", r)
		}
	}
}

func (w *Worker) startTask(o *task.OwnedTask) {
	w.inflight.Add(1)
	go func() {
		defer w.inflight.Done()
		defer w.notifyWake()
		w.runOwned(o)
	}()
}

func (w *Worker) drainLocal() {
	for {
		w.mu.Lock()
		if len(w.local) == 0 {
			w.mu.Unlock()
			return
		}
		next := w.local[0]
		w.local = w.local[1:]
		w.mu.Unlock()

		w.startTask(next)
	}
}

// runOwned executes one task to completion on its own goroutine,
// accumulating elapsed wall-clock minus suspended time into the task's
// cpu-time and flagging Timeout if it ran past cpuBudget, then draining
// its close-set. The actual interruption of a runaway script happens one
// layer down: every Isolate installs a context.Context deadline (bound to
// task.DefaultCPUBudget) on its *lua.LState before each protected call,
// and gopher-lua's VM dispatch loop checks that context between
// instructions, so script code is only ever stopped at instruction
// boundaries, never mid-instruction. The wall-clock check here covers
// closures that don't go through an isolate at all (e.g. a lifecycle
// management step stalled on something other than script execution) and
// flags Timeout for the caller even when the isolate's own error didn't
// already say so.
func (w *Worker) runOwned(o *task.OwnedTask) {
	local := task.ToLocal(o)
	suspended := new(time.Duration)

	h := resourceHandle{resource: w.resource, close: local.CloseSet, worker: w, susp: suspended}

	w.acquire()
	start := time.Now()
	v, err := w.invoke(h, local)
	elapsed := time.Since(start) - *suspended
	w.release()

	o.CPUTime.Add(elapsed)

	if err == nil && elapsed > w.cpuBudget {
		err = ErrorTimeout.Error(nil)
	}

	local.CloseSet.RunAll(nil)

	o.SendResult(v, err)
}

func (w *Worker) invoke(h resourceHandle, local *task.LocalTask) (v interface{}, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = ErrorPanic.Error(nil)
		}
	}()

	return local.Owned.Func(h)
}
