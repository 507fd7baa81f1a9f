package isolate

import (
	"io"

	lua "github.com/yuin/gopher-lua"

	"github.com/nabbar/abel/source"
	"github.com/nabbar/abel/task"
)

// fsHandle is a script-visible open file, closed through the active
// task's close-set rather than relying on Lua garbage collection.
type fsHandle struct {
	f source.File
}

func (h *fsHandle) Close(_ *lua.LState) error {
	return h.f.Close()
}

// NewFSModule preloads an `fs` module giving scripts read-only access to
// their own uploaded source tree; no access outside src is possible since
// every path is resolved against it.
func NewFSModule(iso *Isolate, src source.Source) HostModule {
	return func(L *lua.LState) {
		L.PreloadModule("fs", func(L *lua.LState) int {
			t := L.NewTable()

			L.SetField(t, "exists", L.NewFunction(func(L *lua.LState) int {
				L.Push(lua.LBool(src.Exists(L.CheckString(1))))
				return 1
			}))

			L.SetField(t, "read", L.NewFunction(func(L *lua.LState) int {
				path := L.CheckString(1)

				// file reads yield the worker like any other blocking host call
				v, err := iso.runBlocking(func() (interface{}, error) {
					f, oerr := src.Open(path)
					if oerr != nil {
						return nil, oerr
					}
					defer f.Close()
					return io.ReadAll(f)
				})
				if err != nil {
					L.RaiseError("fs.read: %s", err.Error())
					return 0
				}

				L.Push(lua.LString(v.([]byte)))
				return 1
			}))

			L.SetField(t, "open", L.NewFunction(func(L *lua.LState) int {
				path := L.CheckString(1)

				f, err := src.Open(path)
				if err != nil {
					L.RaiseError("fs.open: %s", err.Error())
					return 0
				}

				h := &fsHandle{f: f}

				if cs := iso.ActiveCloseSet(); cs != nil {
					cs.Register(h)
				}

				ud := L.NewUserData()
				ud.Value = h
				L.Push(ud)
				return 1
			}))

			L.Push(t)
			return 1
		})
	}
}

var _ task.Closeable = (*fsHandle)(nil)
