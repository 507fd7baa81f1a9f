package isolate

import (
	lua "github.com/yuin/gopher-lua"

	"github.com/nabbar/abel/service"
)

// RouteDecl is one (path, handler) pair appended to the internal route
// list by a `listen(path, handler)` call during main.lua evaluation (spec
// §4.H step 6).
type RouteDecl struct {
	Path    string
	Handler *lua.LFunction
}

// installListen registers the `listen` global that appends to routes until
// sealed is true, after which it raises.
func installListen(l *lua.LState, routes *[]RouteDecl, sealed *bool) {
	l.SetGlobal("listen", l.NewFunction(func(L *lua.LState) int {
		if *sealed {
			L.RaiseError("cannot call listen outside main")
			return 0
		}

		path := L.CheckString(1)
		handler := L.CheckFunction(2)

		*routes = append(*routes, RouteDecl{Path: path, Handler: handler})
		return 0
	}))
}

// CompileRoutes turns the raw route declarations recorded during prepare
// into the compiled matcher list a service.Record carries. The lifecycle
// engine's prepare step calls this on iso.Routes() to build the
// record-candidate.
func CompileRoutes(routes []RouteDecl) ([]*service.Matcher, error) {
	out := make([]*service.Matcher, 0, len(routes))

	for _, r := range routes {
		m, err := service.CompilePath(r.Path)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}

	return out, nil
}
