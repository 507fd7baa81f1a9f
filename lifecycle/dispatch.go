package lifecycle

import (
	"github.com/nabbar/abel/errors"
	"github.com/nabbar/abel/isolate"
	"github.com/nabbar/abel/svcpool"
	"github.com/nabbar/abel/task"
	"github.com/nabbar/abel/worker"
)

// Dispatch resolves a request against a weak reference a caller obtained
// earlier (typically from a prior lookup against the pool): upgrade the
// reference, match the sub-path, load-or-build the isolate on the claiming
// worker, invoke the handler.
func (e *Engine) Dispatch(ref *svcpool.Weak, subPath string, req *isolate.Request) (*isolate.Response, errors.Error) {
	rec, ok := ref.Upgrade()
	if !ok {
		return nil, ErrorDropped.Error(nil)
	}

	matcher, params, ok := rec.Match(subPath)
	if !ok {
		return nil, ErrorPathNotFound.Error(nil)
	}
	req.Params = mergeParams(req.Params, params)

	v, err := e.rt.Scope(func(h task.Handle) (interface{}, error) {
		iso, ierr := e.resolveIsolate(h, rec)
		if ierr != nil {
			return nil, ErrorScript.Error(ierr)
		}

		fn, ok := iso.Handler(matcher.Pattern)
		if !ok {
			return nil, ErrorPathNotFound.Error(nil)
		}

		var cs *task.CloseSet
		if csh, ok := h.(worker.CloseSetHandle); ok {
			cs = csh.CloseSet()
		}

		resp, rerr := iso.Invoke(fn, req, cs)
		if rerr != nil {
			return nil, ErrorScript.Error(rerr)
		}
		return resp, nil
	})
	if err != nil {
		return nil, err
	}

	return v.(*isolate.Response), nil
}

func mergeParams(explicit, matched map[string]string) map[string]string {
	if explicit == nil {
		return matched
	}
	for k, v := range matched {
		explicit[k] = v
	}
	return explicit
}
