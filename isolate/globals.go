package isolate

import (
	lua "github.com/yuin/gopher-lua"
)

// seedGlobals opens the whitelisted subset of the standard library into
// l's global table. Deliberately excludes OpenOs/OpenIo/
// OpenChannel/OpenCoroutine: filesystem and process access are only
// reachable through the host-provided library modules registered via the
// preload table, never through raw Lua os/io.
func seedGlobals(l *lua.LState) {
	lua.OpenBase(l)
	lua.OpenTable(l)
	lua.OpenString(l)
	lua.OpenMath(l)
}
