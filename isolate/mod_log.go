package isolate

import (
	lua "github.com/yuin/gopher-lua"

	liblog "github.com/nabbar/abel/logger"
	loglvl "github.com/nabbar/abel/logger/level"
)

// NewLogModule preloads a `log` module bound to a single shared Logger;
// every worker's isolate for a given service shares the same destination,
// with the Logger built once per component and handed down rather than per
// call-site.
func NewLogModule(l liblog.Logger) HostModule {
	return func(L *lua.LState) {
		L.PreloadModule("log", func(L *lua.LState) int {
			t := L.NewTable()

			reg := func(name string, lvl loglvl.Level) {
				L.SetField(t, name, L.NewFunction(func(L *lua.LState) int {
					msg := L.CheckString(1)
					l.LogDetails(lvl, msg, nil, nil, nil)
					return 0
				}))
			}

			reg("debug", loglvl.DebugLevel)
			reg("info", loglvl.InfoLevel)
			reg("warn", loglvl.WarnLevel)
			reg("error", loglvl.ErrorLevel)

			L.Push(t)
			return 1
		})
	}
}
