// Package lifecycle composes the service pool, the runtime pool and the
// per-worker isolate cache into the operations the management API and the
// boot sequence drive: load, cold_update_or_create, hot_update, preload,
// start, stop, stop_all, remove and dispatch. Every operation that touches
// an interpreter runs inside pool.Scope(...).
package lifecycle

import (
	"io"

	liblog "github.com/nabbar/abel/logger"

	"github.com/nabbar/abel/errors"
	"github.com/nabbar/abel/isolate"
	"github.com/nabbar/abel/runtime"
	"github.com/nabbar/abel/service"
	"github.com/nabbar/abel/source"
	"github.com/nabbar/abel/svccache"
	"github.com/nabbar/abel/svcpool"
	"github.com/nabbar/abel/task"
	"github.com/nabbar/abel/worker"
)

// Storage abstracts the on-disk per-service directory the host config
// layer owns (storage/<name>/). nil is a valid Engine field for tests that
// never touch the filesystem.
type Storage interface {
	EnsureDir(name string) error
	RemoveDir(name string) error
}

// ErrorPayload carries non-fatal per-hook errors that did not prevent an
// operation from completing: a failed stop on the prior instance, or a
// failed start on the new one.
type ErrorPayload struct {
	Start error
	Stop  error
}

func (p ErrorPayload) IsZero() bool {
	return p.Start == nil && p.Stop == nil
}

// Engine is the lifecycle driver for one host process: one service pool,
// one runtime pool, and the host library set every isolate it builds is
// given.
type Engine struct {
	pool    *svcpool.Pool
	rt      *runtime.Pool
	storage Storage
	log     liblog.Logger
	modules []isolate.HostModule
}

// New builds an Engine. storage may be nil (no local-storage directory
// management). modules are installed into every isolate this engine
// builds, in order.
func New(pool *svcpool.Pool, rt *runtime.Pool, storage Storage, log liblog.Logger, modules ...isolate.HostModule) *Engine {
	return &Engine{pool: pool, rt: rt, storage: storage, log: log, modules: modules}
}

// NewCacheFactory returns a runtime.CleanerFactory building one bounded
// svccache.Cache per worker. Callers wire this into runtime.New so
// worker.ResourceHandle can hand each worker its own cache back to this
// engine's operations.
func NewCacheFactory(size int) runtime.CleanerFactory {
	return func(int) worker.Cleaner {
		return svccache.New(size)
	}
}

// Pool exposes the underlying service pool for read-only callers (the
// management API's list/fetch endpoints).
func (e *Engine) Pool() *svcpool.Pool { return e.pool }

func (e *Engine) decideUUID(supplied string, prior *service.Record) (service.UUID, errors.Error) {
	if supplied != "" {
		id, err := service.ParseUUID(supplied)
		if err != nil {
			if ce, ok := err.(errors.Error); ok {
				return "", ce
			}
			return "", ErrorInvalidName.Error(err)
		}
		return id, nil
	}

	if prior != nil && !prior.UUID().IsZero() {
		return prior.UUID(), nil
	}

	id, err := service.NewUUID()
	if err != nil {
		if ce, ok := err.(errors.Error); ok {
			return "", ce
		}
		return "", ErrorHostIO.Error(err)
	}
	return id, nil
}

func loadMetadata(src source.Source) service.PackageMetadata {
	if src == nil || !src.Exists("abel.json") {
		return service.PackageMetadata{}
	}

	f, err := src.Open("abel.json")
	if err != nil {
		return service.PackageMetadata{}
	}
	defer f.Close()

	body, err := io.ReadAll(f)
	if err != nil {
		return service.PackageMetadata{}
	}

	meta, _ := service.DecodeMetadata(body)
	return meta
}

// runStopHook builds a throwaway isolate from rec's source purely to
// invoke its `stop` hook, then closes it. Used both by the standalone
// Stop operation and by update paths' tolerant stopInternal.
func (e *Engine) runStopHook(rec *service.Record) errors.Error {
	iso, ierr := isolate.Build(rec.Source(), e.modules...)
	if ierr != nil {
		return ierr
	}
	defer iso.Close()
	return iso.CallStop()
}

// insertCache installs iso into whichever worker's cache h resolves to,
// if any. If the claiming worker carries no resolvable cache (tests
// running without a CleanerFactory), iso is closed immediately rather
// than leaked.
func (e *Engine) insertCache(h task.Handle, name string, ref *svcpool.Ref, iso *isolate.Isolate) {
	if rh, ok := h.(worker.ResourceHandle); ok {
		if cache, ok2 := rh.Resource().(*svccache.Cache); ok2 {
			cache.Insert(name, ref.Weak(), iso)
			return
		}
	}
	iso.Close()
}

// resolveIsolate loads-or-builds the isolate in the claiming worker's
// cache: a cache hit returns the warm isolate; a miss rebuilds from rec's
// source and, if this worker carries a cache, inserts it for next time.
func (e *Engine) resolveIsolate(h task.Handle, rec *service.Record) (*isolate.Isolate, errors.Error) {
	rh, ok := h.(worker.ResourceHandle)
	if !ok {
		return e.buildAttached(h, rec)
	}

	cache, ok := rh.Resource().(*svccache.Cache)
	if !ok {
		return e.buildAttached(h, rec)
	}

	if iso, hit := cache.Lookup(rec.Name(), rec); hit {
		// re-wire so suspended time lands on the task actually running
		e.wireWorker(h, iso)
		return iso, nil
	}

	iso, ierr := e.buildAttached(h, rec)
	if ierr != nil {
		return nil, ierr
	}

	if ref, ok := e.refFor(rec); ok {
		cache.Insert(rec.Name(), ref.Weak(), iso)
	}

	return iso, nil
}

func (e *Engine) buildAttached(h task.Handle, rec *service.Record) (*isolate.Isolate, errors.Error) {
	iso, ierr := isolate.Build(rec.Source().Clone(), e.modules...)
	if ierr != nil {
		return nil, ierr
	}
	iso.AttachRecord(rec)
	e.wireWorker(h, iso)
	return iso, nil
}

// wireWorker binds iso's `schedule.spawn` calls to h's worker-level
// local-task buffer and its blocking host operations to h's suspend
// point, when h exposes them. A handle that doesn't (tests driving
// isolate.Build directly, or a throwaway prepare isolate) leaves iso on
// its synchronous fallbacks.
func (e *Engine) wireWorker(h task.Handle, iso *isolate.Isolate) {
	if sh, ok := h.(worker.SpawnHandle); ok {
		iso.SetSpawn(func(fn task.Func) { sh.Spawn(fn) })
	}
	if sh, ok := h.(worker.SuspendHandle); ok {
		iso.SetSuspend(sh.Suspend)
	}
}

// refFor recovers the pool's live Ref for rec, used to mint a fresh Weak
// when dispatch rebuilds a stale isolate. Returns false if the name no
// longer maps to rec (e.g. replaced by a concurrent update), in which case
// the rebuilt isolate is handed back uncached rather than inserted under a
// stale key.
func (e *Engine) refFor(rec *service.Record) (*svcpool.Ref, bool) {
	entry, ok := e.pool.Get(rec.Name())
	if !ok || entry.State != svcpool.Running {
		return nil, false
	}
	if entry.Running.Record() != rec {
		return nil, false
	}
	return entry.Running, true
}
