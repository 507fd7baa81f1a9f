package isolate

import (
	"strings"

	lua "github.com/yuin/gopher-lua"
)

var routingVerbs = []string{"get", "post", "put", "delete", "patch", "head", "options"}

// installRouting preloads the `routing` module: sugar over the listen
// global. `routing.listen` is a plain alias; the per-verb helpers register
// a handler that rejects other methods with a structured 405. The module
// goes through the same listen global as direct declarations, so sealing
// applies identically.
func installRouting(l *lua.LState) {
	l.PreloadModule("routing", func(L *lua.LState) int {
		t := L.NewTable()

		L.SetField(t, "listen", L.NewFunction(func(L *lua.LState) int {
			path := L.CheckString(1)
			fn := L.CheckFunction(2)
			callListen(L, path, fn)
			return 0
		}))

		for _, verb := range routingVerbs {
			method := strings.ToUpper(verb)
			L.SetField(t, verb, L.NewFunction(func(L *lua.LState) int {
				path := L.CheckString(1)
				fn := L.CheckFunction(2)
				callListen(L, path, wrapMethod(L, method, fn))
				return 0
			}))
		}

		L.Push(t)
		return 1
	})
}

func callListen(L *lua.LState, path string, fn *lua.LFunction) {
	L.Push(L.GetGlobal("listen"))
	L.Push(lua.LString(path))
	L.Push(fn)
	L.Call(2, 0)
}

// wrapMethod guards handler behind an exact request-method check; a
// mismatch raises the structured 405 the error taxonomy renders verbatim.
func wrapMethod(L *lua.LState, method string, handler *lua.LFunction) *lua.LFunction {
	return L.NewFunction(func(L *lua.LState) int {
		req := L.CheckTable(1)

		if m, ok := req.RawGetString("method").(lua.LString); ok && !strings.EqualFold(string(m), method) {
			et := L.NewTable()
			et.RawSetString("status", lua.LNumber(405))
			et.RawSetString("error", lua.LString("method not allowed"))
			L.Error(et, 1)
			return 0
		}

		L.Push(handler)
		L.Push(req)
		L.Call(1, 1)
		return 1
	})
}
