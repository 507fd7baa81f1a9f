package isolate

import (
	lua "github.com/yuin/gopher-lua"

	"github.com/nabbar/abel/task"
)

// SpawnFunc is how a worker accepts a script-requested local task (spec
// §4.D LocalTask, §5 "script code yields only at host-provided await
// points"). The callback enqueues fn onto the worker's own local-task
// buffer; it never runs fn synchronously.
type SpawnFunc func(fn task.Func)

// NewScheduleModule preloads a `schedule` module exposing `spawn(fn)`,
// the only way script code can fan out cooperative work onto its own
// worker. The spawned
// closure calls back into iso directly rather than through its task.Handle
// parameter: a single worker's Handle has no single *lua.LState to hand
// back (it serves many services), so the isolate a `spawn` call actually
// belongs to has to be the one captured here, at registration time.
func NewScheduleModule(iso *Isolate, spawn SpawnFunc) HostModule {
	return func(L *lua.LState) {
		L.PreloadModule("schedule", func(L *lua.LState) int {
			t := L.NewTable()

			L.SetField(t, "spawn", L.NewFunction(func(L *lua.LState) int {
				fn := L.CheckFunction(1)

				spawn(func(h task.Handle) (interface{}, error) {
					L.Push(fn)
					if err := iso.protectedCall(0, 0); err != nil {
						return nil, err
					}
					return nil, nil
				})

				return 0
			}))

			L.Push(t)
			return 1
		})
	}
}
