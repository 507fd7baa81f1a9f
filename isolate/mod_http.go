package isolate

import (
	"context"
	"io"
	"strings"
	"time"

	lua "github.com/yuin/gopher-lua"

	libhcl "github.com/nabbar/abel/httpcli"
)

// NewHTTPModule preloads an `http` module giving scripts outbound HTTP
// calls, built on the httpcli request wrapper rather than a raw
// net/http.Client. The call itself is a suspension point: the worker is
// yielded to its other in-flight tasks while the response is awaited, and
// timeout bounds the wait so a hung upstream cannot park the task forever.
func NewHTTPModule(timeout time.Duration) HostModule {
	return func(L *lua.LState) {
		L.PreloadModule("http", func(L *lua.LState) int {
			t := L.NewTable()

			L.SetField(t, "get", L.NewFunction(func(L *lua.LState) int {
				return doRequest(L, "GET", timeout)
			}))

			L.SetField(t, "post", L.NewFunction(func(L *lua.LState) int {
				return doRequest(L, "POST", timeout)
			}))

			L.Push(t)
			return 1
		})
	}
}

func doRequest(L *lua.LState, method string, timeout time.Duration) int {
	url := L.CheckString(1)

	req := libhcl.New(nil)
	if err := req.Endpoint(url); err != nil {
		L.RaiseError("http.%s: %s", method, err.Error())
		return 0
	}
	req.Method(method)

	if method == "POST" && L.GetTop() >= 2 {
		body := L.CheckString(2)
		req.ContentType("application/octet-stream")
		req.RequestReader(strings.NewReader(body))
	}

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	v, derr := blockingOn(L, func() (interface{}, error) {
		resp, err := req.Do(ctx)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		data, rerr := io.ReadAll(resp.Body)
		if rerr != nil {
			return nil, rerr
		}
		return &httpResult{status: resp.StatusCode, body: data}, nil
	})
	if derr != nil {
		L.RaiseError("http.%s: %s", method, derr.Error())
		return 0
	}

	res := v.(*httpResult)
	L.Push(lua.LNumber(res.status))
	L.Push(lua.LString(res.body))
	return 2
}

type httpResult struct {
	status int
	body   []byte
}
