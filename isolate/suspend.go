package isolate

import (
	"context"

	lua "github.com/yuin/gopher-lua"
)

// SuspendFunc yields the owning worker to its sibling tasks for the
// duration of fn. Wired per claiming worker from
// worker.SuspendHandle.Suspend; nil means no worker owns this isolate and
// blocking work just runs inline.
type SuspendFunc func(fn func() (interface{}, error)) (interface{}, error)

// SetSuspend binds the worker-level yield point blocking host operations
// inside this isolate go through. Re-wired on every cache hit so the
// suspended time is accounted to the task actually running.
func (i *Isolate) SetSuspend(fn SuspendFunc) {
	i.suspend = fn
}

// runBlocking executes fn without pinning the owning worker: the VM
// deadline is lifted while fn waits (I/O wait is not script time) and the
// worker's execution slot is handed to sibling tasks through the wired
// SuspendFunc. On resume a fresh deadline is installed so the script's
// remaining execution stays bounded; its cancel func is drained when the
// enclosing protected call returns.
func (i *Isolate) runBlocking(fn func() (interface{}, error)) (interface{}, error) {
	if i.suspend == nil {
		return fn()
	}

	i.state.RemoveContext()
	v, err := i.suspend(fn)

	ctx, cancel := context.WithTimeout(context.Background(), i.callBudget())
	i.resume = append(i.resume, cancel)
	i.state.SetContext(ctx)

	return v, err
}

func (i *Isolate) cancelResumes() {
	for _, c := range i.resume {
		c()
	}
	i.resume = nil
}

// enter serializes top-level calls into this isolate. gopher-lua's LState
// is not re-entrant: a second PCall cannot begin while an earlier call
// sits suspended mid-flight, so concurrent calls into the same isolate
// queue here. Waiting goes through the suspend hook so the worker's
// execution slot is free for other isolates' tasks while this one queues.
func (i *Isolate) enter() {
	if i.suspend != nil {
		_, _ = i.suspend(func() (interface{}, error) {
			i.mu.Lock()
			return nil, nil
		})
		return
	}
	i.mu.Lock()
}

func (i *Isolate) exit() {
	i.mu.Unlock()
}

// selfKey is the Lua registry slot holding a back-pointer to the Isolate,
// so host modules registered without an isolate in scope (engine-level
// HostModules like `http`) can reach runBlocking from the LState alone.
const selfKey = "abel.isolate"

func (i *Isolate) registerSelf() {
	ud := i.state.NewUserData()
	ud.Value = i
	i.state.SetField(i.state.Get(lua.RegistryIndex), selfKey, ud)
}

func isolateOf(L *lua.LState) *Isolate {
	v := L.GetField(L.Get(lua.RegistryIndex), selfKey)
	if ud, ok := v.(*lua.LUserData); ok {
		iso, _ := ud.Value.(*Isolate)
		return iso
	}
	return nil
}

// blockingOn routes fn through the owning isolate's runBlocking when the
// LState belongs to one, and runs it inline otherwise.
func blockingOn(L *lua.LState, fn func() (interface{}, error)) (interface{}, error) {
	if iso := isolateOf(L); iso != nil {
		return iso.runBlocking(fn)
	}
	return fn()
}
