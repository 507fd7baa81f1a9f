package runtime

import (
	goruntime "runtime"
	"sync"
	"time"

	"github.com/nabbar/abel/errors"
	liblog "github.com/nabbar/abel/logger"
	"github.com/nabbar/abel/task"
	"github.com/nabbar/abel/worker"
)

// DefaultScopeTimeout bounds how long scope waits for a reply before
// giving up with ErrorNoReply; this only fires if every worker died and
// could not be rebuilt, since a healthy pool always has at least one
// worker able to claim and run the task. Generous enough that a task
// legitimately suspended on outbound I/O never trips it.
const DefaultScopeTimeout = 30 * time.Second

// CleanerFactory builds the per-worker service-cache cleaner a new or
// rebuilt worker should sweep on its periodic tick. Separated from Pool's
// constructor arguments so each worker gets its own cache instance, never
// a shared one.
type CleanerFactory func(workerID int) worker.Cleaner

// Pool holds N worker executors sharing conceptually one task stream: in
// practice each worker owns its own channel and scope broadcasts the same
// SharedTask onto every one of them, since gopher-lua's LState is not
// safe to share and fan-out-claim-once is exactly what SharedTask.Claim
// already guarantees.
type Pool struct {
	mu      sync.Mutex
	workers []*worker.Worker
	chans   []chan *task.SharedTask

	cleaner CleanerFactory
	log     liblog.Logger
}

// DefaultSize is max(1, cpu_count/2).
func DefaultSize() int {
	if n := goruntime.NumCPU() / 2; n > 1 {
		return n
	}
	return 1
}

// New builds and starts a pool of size workers. cleaner may be nil, in
// which case workers never sweep a cache (useful for tests exercising
// only task dispatch).
func New(size int, cleaner CleanerFactory, log liblog.Logger) *Pool {
	if size < 1 {
		size = 1
	}

	p := &Pool{cleaner: cleaner, log: log}

	for i := 0; i < size; i++ {
		p.spawn(i)
	}

	return p
}

func (p *Pool) spawn(id int) {
	ch := make(chan *task.SharedTask, 1)

	var cl worker.Cleaner
	if p.cleaner != nil {
		cl = p.cleaner(id)
	}

	w := worker.New(id, ch, cl, p.log)

	p.mu.Lock()
	if id < len(p.workers) {
		p.workers[id] = w
		p.chans[id] = ch
	} else {
		p.workers = append(p.workers, w)
		p.chans = append(p.chans, ch)
	}
	p.mu.Unlock()

	go w.Run()
}

// Len returns the number of workers currently configured.
func (p *Pool) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.workers)
}

// rebuildDead checks every worker's panic sentinel and replaces any dead
// one in place before a broadcast.
func (p *Pool) rebuildDead() {
	p.mu.Lock()
	ids := make([]int, 0)
	for i, w := range p.workers {
		if w.Panicked() {
			ids = append(ids, i)
		}
	}
	p.mu.Unlock()

	for _, id := range ids {
		if p.log != nil {
			p.log.Warning("rebuilding dead worker", nil)
		}
		p.spawn(id)
	}
}

// Scope wraps fn into a SharedTask, broadcasts it to every worker, and
// returns the first reply. Exactly one worker's claim succeeds; the rest
// silently drop it.
func (p *Pool) Scope(fn task.Func) (interface{}, errors.Error) {
	p.rebuildDead()

	p.mu.Lock()
	chans := make([]chan *task.SharedTask, len(p.chans))
	copy(chans, p.chans)
	p.mu.Unlock()

	if len(chans) == 0 {
		return nil, ErrorNoWorkers.Error(nil)
	}

	ot := task.NewOwnedTask(fn)
	st := task.NewSharedTask(ot)

	for _, ch := range chans {
		select {
		case ch <- st:
		default:
			// worker's channel is full (a task already queued); since
			// SharedTask fan-out only needs one claim, a worker unable to
			// receive immediately simply does not participate in this round.
		}
	}

	select {
	case r := <-ot.Reply:
		if r.Err != nil {
			if ce, ok := r.Err.(errors.Error); ok {
				return r.Value, ce
			}
			return r.Value, ErrorNoReply.Error(r.Err)
		}
		return r.Value, nil
	case <-time.After(DefaultScopeTimeout):
		return nil, ErrorNoReply.Error(nil)
	}
}

// StopAll signals every worker to stop and waits for each to finish.
func (p *Pool) StopAll() {
	p.mu.Lock()
	ws := make([]*worker.Worker, len(p.workers))
	copy(ws, p.workers)
	p.mu.Unlock()

	for _, w := range ws {
		w.Stop()
	}
}
