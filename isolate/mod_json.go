package isolate

import (
	"encoding/json"

	lua "github.com/yuin/gopher-lua"
)

// NewJSONModule preloads a `json` module exposing encode/decode against
// plain Lua tables, using the standard library codec.
func NewJSONModule() HostModule {
	return func(L *lua.LState) {
		L.PreloadModule("json", func(L *lua.LState) int {
			t := L.NewTable()

			L.SetField(t, "encode", L.NewFunction(func(L *lua.LState) int {
				v := L.CheckAny(1)
				b, err := json.Marshal(toGo(v))
				if err != nil {
					L.RaiseError("json.encode: %s", err.Error())
					return 0
				}
				L.Push(lua.LString(b))
				return 1
			}))

			L.SetField(t, "decode", L.NewFunction(func(L *lua.LState) int {
				s := L.CheckString(1)
				var v interface{}
				if err := json.Unmarshal([]byte(s), &v); err != nil {
					L.RaiseError("json.decode: %s", err.Error())
					return 0
				}
				L.Push(fromGo(L, v))
				return 1
			}))

			L.Push(t)
			return 1
		})
	}
}
