package isolate

import (
	"io"
	"strings"

	lua "github.com/yuin/gopher-lua"

	"github.com/nabbar/abel/source"
)

// installRequire replaces the stdlib require/module-loading machinery with
// one that resolves unknown module names against the service's source vfs,
// falling back to the preload table (host libraries) first. `require
// 'routing'` pulls a host module while `require 'helpers'` pulls a sibling
// script file out of the uploaded bundle.
func installRequire(l *lua.LState, src source.Source) {
	loaded := l.NewTable()
	l.SetGlobal("__loaded", loaded)

	fn := l.NewFunction(func(L *lua.LState) int {
		name := L.CheckString(1)

		if v := L.GetField(loaded, name); v != lua.LNil {
			L.Push(v)
			return 1
		}

		if pre := L.GetField(L.Get(lua.RegistryIndex), "_PRELOAD"); pre.Type() == lua.LTTable {
			if loader := L.GetField(pre, name); loader.Type() == lua.LTFunction {
				L.Push(loader)
				L.Call(0, 1)
				v := L.Get(-1)
				L.Pop(1)
				L.SetField(loaded, name, v)
				L.Push(v)
				return 1
			}
		}

		path := strings.ReplaceAll(name, ".", "/") + ".lua"
		f, err := src.Open(path)
		if err != nil {
			L.RaiseError("module '%s' not found", name)
			return 0
		}
		defer f.Close()

		body, err := io.ReadAll(f)
		if err != nil {
			L.RaiseError("module '%s' could not be read", name)
			return 0
		}

		mod, err := L.LoadString(string(body))
		if err != nil {
			L.RaiseError("module '%s': %s", name, err.Error())
			return 0
		}

		L.Push(mod)
		if err := L.PCall(0, 1, nil); err != nil {
			L.RaiseError("module '%s': %s", name, err.Error())
			return 0
		}

		v := L.Get(-1)
		L.Pop(1)
		L.SetField(loaded, name, v)
		L.Push(v)
		return 1
	})

	l.SetGlobal("require", fn)
}
