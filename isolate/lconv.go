package isolate

import (
	lua "github.com/yuin/gopher-lua"
)

// toGo converts a Lua value into a plain Go value (nil/bool/float64/
// string/[]interface{}/map[string]interface{}), the shape encoding/json
// expects. Lua tables with a contiguous 1..n integer key run are treated
// as arrays; anything else as an object.
func toGo(v lua.LValue) interface{} {
	switch x := v.(type) {
	case *lua.LNilType:
		return nil
	case lua.LBool:
		return bool(x)
	case lua.LNumber:
		return float64(x)
	case lua.LString:
		return string(x)
	case *lua.LTable:
		if n := x.Len(); n > 0 {
			arr := make([]interface{}, 0, n)
			isArray := true
			x.ForEach(func(k, val lua.LValue) {
				if _, ok := k.(lua.LNumber); !ok {
					isArray = false
				}
			})
			if isArray {
				for i := 1; i <= n; i++ {
					arr = append(arr, toGo(x.RawGetInt(i)))
				}
				return arr
			}
		}

		obj := make(map[string]interface{})
		x.ForEach(func(k, val lua.LValue) {
			obj[k.String()] = toGo(val)
		})
		return obj
	default:
		return x.String()
	}
}

// fromGo converts a decoded JSON value (as produced by encoding/json's
// interface{} unmarshalling) into a Lua value in l.
func fromGo(l *lua.LState, v interface{}) lua.LValue {
	switch x := v.(type) {
	case nil:
		return lua.LNil
	case bool:
		return lua.LBool(x)
	case float64:
		return lua.LNumber(x)
	case string:
		return lua.LString(x)
	case []interface{}:
		t := l.NewTable()
		for i, e := range x {
			t.RawSetInt(i+1, fromGo(l, e))
		}
		return t
	case map[string]interface{}:
		t := l.NewTable()
		for k, e := range x {
			t.RawSetString(k, fromGo(l, e))
		}
		return t
	default:
		return lua.LNil
	}
}
