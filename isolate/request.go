package isolate

import (
	"encoding/json"

	lua "github.com/yuin/gopher-lua"

	"github.com/nabbar/abel/errors"
	"github.com/nabbar/abel/task"
)

// Request is the host-side view of an inbound call passed to a route
// handler, mirrored into a Lua table as method/uri/headers/body/params.
type Request struct {
	Method  string
	URI     string
	Headers map[string]string
	Body    []byte
	Params  map[string]string
}

// Response is read off a route handler's single returned table.
type Response struct {
	Status  int
	Headers map[string]string
	Body    []byte
}

func (i *Isolate) buildRequestTable(req *Request) *lua.LTable {
	l := i.state

	t := l.NewTable()
	t.RawSetString("method", lua.LString(req.Method))
	t.RawSetString("uri", lua.LString(req.URI))
	t.RawSetString("body", lua.LString(string(req.Body)))

	h := l.NewTable()
	for k, v := range req.Headers {
		h.RawSetString(k, lua.LString(v))
	}
	t.RawSetString("headers", h)

	p := l.NewTable()
	for k, v := range req.Params {
		p.RawSetString(k, lua.LString(v))
	}
	t.RawSetString("params", p)

	return t
}

// Invoke calls fn with req converted into a Lua request table, parsing its
// single returned table back into a Response. cs, when non-nil, becomes
// the active close-set for the duration of the call so host resources the
// handler opens are drained when the owning task ends. A handler raising a
// structured `{status, error, detail}` error has status/error/detail taken
// verbatim into the response; any other raise is surfaced as a script
// error for the caller's taxonomy.
func (i *Isolate) Invoke(fn *lua.LFunction, req *Request, cs *task.CloseSet) (*Response, errors.Error) {
	i.enter()
	defer i.exit()

	l := i.state

	if cs != nil {
		i.SetActiveCloseSet(cs)
		defer i.SetActiveCloseSet(nil)
	}

	l.Push(fn)
	l.Push(i.buildRequestTable(req))
	if err := i.protectedCall(1, 1); err != nil {
		if se, ok := err.(*ScriptError); ok && se.IsCustom {
			return customResponse(se), nil
		}
		return nil, ErrorHandlerCall.Error(err)
	}

	ret := l.Get(-1)
	l.Pop(1)

	respT, ok := ret.(*lua.LTable)
	if !ok {
		return &Response{Status: 200}, nil
	}

	resp := &Response{Status: 200, Headers: map[string]string{}}

	if sv, ok := respT.RawGetString("status").(lua.LNumber); ok {
		resp.Status = int(sv)
	}
	if bv, ok := respT.RawGetString("body").(lua.LString); ok {
		resp.Body = []byte(bv)
	}
	if hv, ok := respT.RawGetString("headers").(*lua.LTable); ok {
		hv.ForEach(func(k, v lua.LValue) {
			resp.Headers[k.String()] = v.String()
		})
	}

	return resp, nil
}

func customResponse(se *ScriptError) *Response {
	body := map[string]string{"error": se.Message}
	if se.Detail != "" {
		body["detail"] = se.Detail
	}

	buf, err := json.Marshal(body)
	if err != nil {
		buf = []byte(`{"error":"` + se.Message + `"}`)
	}

	return &Response{
		Status:  se.Status,
		Headers: map[string]string{"Content-Type": "application/json"},
		Body:    buf,
	}
}
