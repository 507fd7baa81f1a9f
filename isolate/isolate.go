package isolate

import (
	"context"
	"io"
	"sync"
	"time"

	lua "github.com/yuin/gopher-lua"

	"github.com/nabbar/abel/errors"
	"github.com/nabbar/abel/service"
	"github.com/nabbar/abel/source"
	"github.com/nabbar/abel/task"
)

// HookStart and HookStop name the optional lifecycle functions main.lua
// may assign on the abel table (abel.start / abel.stop).
const (
	HookStart = "start"
	HookStop  = "stop"
)

// abelTable is the global table scripts hang lifecycle hooks on.
const abelTable = "abel"

// Isolate is one built interpreter for a service: a sealed lua.LState with
// its compiled route table and resource close-set, ready to execute
// requests.
type Isolate struct {
	state  *lua.LState
	record *service.Record
	routes []RouteDecl

	hasStart bool
	hasStop  bool

	spawn   SpawnFunc
	suspend SuspendFunc
	budget  time.Duration

	mu     sync.Mutex
	resume []context.CancelFunc
}

// SetBudget overrides the per-call cpu-time deadline installed on this
// isolate's interpreter (default task.DefaultCPUBudget, set by Build).
// Tests use this to exercise the timeout without waiting out a full
// default budget.
func (i *Isolate) SetBudget(d time.Duration) {
	i.budget = d
}

func (i *Isolate) callBudget() time.Duration {
	if i.budget > 0 {
		return i.budget
	}
	return task.DefaultCPUBudget
}

// protectedCall runs state.PCall under a context deadline bound to
// callBudget. gopher-lua's VM dispatch loop checks the installed context
// between instructions, so a script busy-looping past the deadline is
// interrupted there instead of blocking the calling worker goroutine
// forever. Host blocking operations swap the deadline out for their
// duration via runBlocking, so I/O waits don't count against it. The
// context is removed again before returning since an isolate's *lua.LState
// outlives any one call and is reused by later requests once cached.
func (i *Isolate) protectedCall(nargs, nret int) error {
	ctx, cancel := context.WithTimeout(context.Background(), i.callBudget())
	defer cancel()
	defer i.cancelResumes()

	i.state.SetContext(ctx)
	defer i.state.RemoveContext()

	err := i.state.PCall(nargs, nret, nil)
	if err != nil {
		if cur := i.state.Context(); cur != nil && cur.Err() == context.DeadlineExceeded {
			return ErrorTimeout.Error(cur.Err())
		}
	}
	return asScriptError(err)
}

// hookFn looks up one of the lifecycle functions on the abel table.
func (i *Isolate) hookFn(name string) *lua.LFunction {
	t, ok := i.state.GetGlobal(abelTable).(*lua.LTable)
	if !ok {
		return nil
	}
	fn, _ := t.RawGetString(name).(*lua.LFunction)
	return fn
}

// SetSpawn binds the worker-level local-task buffer a `schedule.spawn`
// call inside this isolate feeds into. The buffered closure re-enters this
// isolate when the worker later runs it, so it is wrapped to queue behind
// whatever call is in flight at that point. Left unset, a spawned closure
// runs immediately against this isolate's own state instead of being
// buffered, which is correct for a throwaway prepare isolate that never
// outlives the call that built it (and must not self-queue, since the
// building call is still active).
func (i *Isolate) SetSpawn(fn SpawnFunc) {
	i.spawn = func(f task.Func) {
		fn(func(h task.Handle) (interface{}, error) {
			i.enter()
			defer i.exit()
			return f(h)
		})
	}
}

// AttachRecord binds the service.Record this isolate belongs to. The
// lifecycle engine calls this once the record-candidate built from the
// same prepare pass exists; an isolate has no record of its own during
// prepare, since the record is derived from the isolate's routes.
func (i *Isolate) AttachRecord(rec *service.Record) {
	i.record = rec
}

// State returns the underlying interpreter. Satisfies task.Handle.
func (i *Isolate) State() *lua.LState {
	return i.state
}

// Record returns the service.Record this isolate was built against.
func (i *Isolate) Record() *service.Record {
	return i.record
}

// Routes returns the raw (path, handler) pairs recorded during main.lua
// evaluation, in declaration order. The lifecycle engine's prepare step
// compiles these into a service.Record's path matchers.
func (i *Isolate) Routes() []RouteDecl {
	return i.routes
}

// Handler returns the Lua function registered for the literal route path.
func (i *Isolate) Handler(pattern string) (*lua.LFunction, bool) {
	for _, r := range i.routes {
		if r.Path == pattern {
			return r.Handler, true
		}
	}
	return nil, false
}

// HasStart reports whether main.lua assigned abel.start.
func (i *Isolate) HasStart() bool { return i.hasStart }

// HasStop reports whether main.lua assigned abel.stop.
func (i *Isolate) HasStop() bool { return i.hasStop }

// CallStart invokes abel.start if the script defined it; a service with no
// start hook starts trivially.
func (i *Isolate) CallStart() errors.Error {
	return i.callHook(HookStart, i.hasStart)
}

// CallStop invokes abel.stop if the script defined it.
func (i *Isolate) CallStop() errors.Error {
	return i.callHook(HookStop, i.hasStop)
}

func (i *Isolate) callHook(name string, present bool) errors.Error {
	if !present {
		return nil
	}

	i.enter()
	defer i.exit()

	fn := i.hookFn(name)
	if fn == nil {
		return nil
	}

	i.state.Push(fn)
	if err := i.protectedCall(0, 0); err != nil {
		return ErrorHookCall.Error(err)
	}

	return nil
}

// Close releases the interpreter. Callers must have already drained the
// service's task close-sets; this only frees the Lua runtime itself.
func (i *Isolate) Close() {
	i.state.Close()
}

// HostModule registers one host library's preload loader into a fresh
// interpreter.
type HostModule func(l *lua.LState)

// activeCloseSetKey is the Lua registry key host modules use to find the
// close-set belonging to whichever task is currently executing in this
// isolate: resources a script opens during one task are registered there,
// not tied to the isolate's own lifetime.
const activeCloseSetKey = "abel.active_close_set"

// SetActiveCloseSet installs cs as the close-set host-module resource
// registrations go into for the duration of the task currently running in
// i. Invoke calls this after taking the isolate's entry lock and clears
// it (via SetActiveCloseSet(nil)) before releasing it, so the set always
// belongs to the call actually executing.
func (i *Isolate) SetActiveCloseSet(cs *task.CloseSet) {
	ud := i.state.NewUserData()
	ud.Value = cs
	i.state.SetField(i.state.Get(lua.RegistryIndex), activeCloseSetKey, ud)
}

// ActiveCloseSet returns the close-set installed by SetActiveCloseSet, or
// nil if none is active (no task currently running, or a host module was
// invoked outside of one).
func (i *Isolate) ActiveCloseSet() *task.CloseSet {
	v := i.state.GetField(i.state.Get(lua.RegistryIndex), activeCloseSetKey)
	ud, ok := v.(*lua.LUserData)
	if !ok || ud.Value == nil {
		return nil
	}
	cs, _ := ud.Value.(*task.CloseSet)
	return cs
}

// Build runs the full construction pipeline for src's main.lua:
//  1. fresh lua.LState
//  2. seed the sandboxed global whitelist
//  3. register host library modules via preload
//  4. install the source-backed require()
//  5. evaluate main.lua
//  6. capture the route list populated by listen()
//  7. seal so any later listen() call fails
//
// modules may be empty for tests that only need the sandbox and require()
// wiring without any host library surface. The returned Isolate has no
// service.Record attached yet; callers building a brand new service call
// AttachRecord once the record-candidate is compiled from iso.Routes().
func Build(src source.Source, modules ...HostModule) (*Isolate, errors.Error) {
	if src == nil {
		return nil, ErrorParamsEmpty.Error(nil)
	}

	l := lua.NewState(lua.Options{SkipOpenLibs: true})
	seedGlobals(l)

	for _, m := range modules {
		m(l)
	}

	installRequire(l, src)

	iso := &Isolate{state: l, budget: task.DefaultCPUBudget}
	iso.registerSelf()

	NewFSModule(iso, src)(l)
	NewScheduleModule(iso, func(fn task.Func) {
		if iso.spawn != nil {
			iso.spawn(fn)
			return
		}
		_, _ = fn(iso)
	})(l)

	l.SetGlobal(abelTable, l.NewTable())
	installRouting(l)

	sealed := false
	installListen(l, &iso.routes, &sealed)

	if err := evalMain(iso, src); err != nil {
		l.Close()
		return nil, err
	}

	sealed = true

	iso.hasStart = iso.hookFn(HookStart) != nil
	iso.hasStop = iso.hookFn(HookStop) != nil

	return iso, nil
}

// evalMain reads and runs main.lua from src in iso's global scope, under
// the same deadline as any other protected call: a service whose top-level
// main.lua body busy-loops fails prepare with Timeout instead of hanging
// the worker that's compiling it.
func evalMain(iso *Isolate, src source.Source) errors.Error {
	l := iso.state

	f, err := src.Open(source.MainEntry)
	if err != nil {
		return ErrorMainRead.Error(err)
	}
	defer f.Close()

	body, err := io.ReadAll(f)
	if err != nil {
		return ErrorMainRead.Error(err)
	}

	fn, err := l.LoadString(string(body))
	if err != nil {
		return ErrorMainEval.Error(err)
	}

	l.Push(fn)
	if err := iso.protectedCall(0, 0); err != nil {
		return ErrorMainEval.Error(err)
	}

	return nil
}
