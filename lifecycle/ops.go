package lifecycle

import (
	"github.com/nabbar/abel/errors"
	"github.com/nabbar/abel/isolate"
	"github.com/nabbar/abel/service"
	"github.com/nabbar/abel/source"
	"github.com/nabbar/abel/svcpool"
	"github.com/nabbar/abel/task"
)

// Load installs a Stopped record without running start. A Running entry
// for name is stopped first on a best-effort basis; its failure is
// reported in the returned ErrorPayload rather than aborting.
func (e *Engine) Load(name, uuid string, src source.Source) (*service.Record, *svcpool.Entry, ErrorPayload, errors.Error) {
	if err := service.CheckName(name); err != nil {
		return nil, nil, ErrorPayload{}, ErrorInvalidName.Error(err)
	}
	if src == nil {
		return nil, nil, ErrorPayload{}, ErrorParamsEmpty.Error(nil)
	}

	prior, _ := e.pool.Get(name)

	id, uerr := e.decideUUID(uuid, prior.Record())
	if uerr != nil {
		return nil, nil, ErrorPayload{}, uerr
	}

	v, err := e.rt.Scope(func(h task.Handle) (interface{}, error) {
		iso, ierr := isolate.Build(src, e.modules...)
		if ierr != nil {
			return nil, ierr
		}
		e.wireWorker(h, iso)
		defer iso.Close()

		matchers, merr := isolate.CompileRoutes(iso.Routes())
		if merr != nil {
			return nil, ErrorScript.Error(merr)
		}

		meta := loadMetadata(src)
		return service.NewRecord(name, id, matchers, src, meta.Name, meta.Description), nil
	})
	if err != nil {
		return nil, nil, ErrorPayload{}, err
	}
	rec := v.(*service.Record)

	var payload ErrorPayload
	if prior != nil && prior.State == svcpool.Running {
		if serr := e.stopInternal(name); serr != nil {
			payload.Stop = serr
		}
	}

	replaced, _ := e.pool.SetStopped(name, rec)
	return rec, replaced, payload, nil
}

// Preload is Load with a required uuid and an assertion that nothing was
// replaced.
func (e *Engine) Preload(name, uuid string, src source.Source) (*service.Record, errors.Error) {
	if uuid == "" {
		return nil, ErrorParamsEmpty.Error(nil)
	}

	rec, replaced, _, err := e.Load(name, uuid, src)
	if err != nil {
		return nil, err
	}
	if replaced != nil {
		return nil, ErrorExists.Error(nil)
	}
	return rec, nil
}

// ColdUpdateOrCreate installs and starts a fresh isolate for name,
// replacing whatever was there before. createOnly rejects an existing name
// outright (upload mode "create"); otherwise an existing Running entry is
// stopped first on a best-effort basis before the new instance starts.
func (e *Engine) ColdUpdateOrCreate(name, uuid string, src source.Source, createOnly bool) (*svcpool.Entry, ErrorPayload, errors.Error) {
	if err := service.CheckName(name); err != nil {
		return nil, ErrorPayload{}, ErrorInvalidName.Error(err)
	}
	if src == nil {
		return nil, ErrorPayload{}, ErrorParamsEmpty.Error(nil)
	}

	prior, hadPrior := e.pool.Get(name)
	if createOnly && hadPrior {
		return nil, ErrorPayload{}, ErrorExists.Error(nil)
	}

	if e.storage != nil {
		if serr := e.storage.EnsureDir(name); serr != nil {
			return nil, ErrorPayload{}, ErrorHostIO.Error(serr)
		}
	}

	id, uerr := e.decideUUID(uuid, prior.Record())
	if uerr != nil {
		return nil, ErrorPayload{}, uerr
	}

	type outcome struct {
		iso     *isolate.Isolate
		rec     *service.Record
		ref     *svcpool.Ref
		payload ErrorPayload
		started bool
	}

	v, err := e.rt.Scope(func(h task.Handle) (interface{}, error) {
		iso, ierr := isolate.Build(src, e.modules...)
		if ierr != nil {
			return nil, ierr
		}

		matchers, merr := isolate.CompileRoutes(iso.Routes())
		if merr != nil {
			iso.Close()
			return nil, ErrorScript.Error(merr)
		}

		meta := loadMetadata(src)
		rec := service.NewRecord(name, id, matchers, src, meta.Name, meta.Description)
		iso.AttachRecord(rec)
		e.wireWorker(h, iso)

		out := &outcome{iso: iso, rec: rec, ref: svcpool.NewRef(rec)}

		if prior != nil && prior.State == svcpool.Running {
			if serr := e.runStopHook(prior.Running.Record()); serr != nil {
				out.payload.Stop = serr
			}
			prior.Running.Drop()
		}

		if serr := iso.CallStart(); serr != nil {
			out.payload.Start = serr
			return out, nil
		}

		e.insertCache(h, name, out.ref, iso)
		out.started = true
		return out, nil
	})
	if err != nil {
		return nil, ErrorPayload{}, err
	}
	o := v.(*outcome)

	var replaced *svcpool.Entry
	if o.started {
		replaced, _ = e.pool.SetRunning(name, o.ref)
	} else {
		o.iso.Close()
		replaced, _ = e.pool.SetStopped(name, o.rec)
	}

	return replaced, o.payload, nil
}

// HotUpdate replaces a Running service's isolate without ever demoting it
// to Stopped, so the endpoint never observes a gap. The new instance's
// start hook is never called; whatever process-level state start
// established on the prior instance is expected to still apply.
func (e *Engine) HotUpdate(name, uuid string, src source.Source) (*svcpool.Entry, errors.Error) {
	if err := service.CheckName(name); err != nil {
		return nil, ErrorInvalidName.Error(err)
	}
	if src == nil {
		return nil, ErrorParamsEmpty.Error(nil)
	}

	prior, ok := e.pool.Get(name)
	if !ok || prior.State != svcpool.Running {
		return nil, ErrorStopped.Error(nil)
	}

	id, uerr := e.decideUUID(uuid, prior.Record())
	if uerr != nil {
		return nil, uerr
	}

	type outcome struct {
		rec *service.Record
		ref *svcpool.Ref
	}

	v, err := e.rt.Scope(func(h task.Handle) (interface{}, error) {
		iso, ierr := isolate.Build(src, e.modules...)
		if ierr != nil {
			return nil, ierr
		}

		matchers, merr := isolate.CompileRoutes(iso.Routes())
		if merr != nil {
			iso.Close()
			return nil, ErrorScript.Error(merr)
		}

		meta := loadMetadata(src)
		rec := service.NewRecord(name, id, matchers, src, meta.Name, meta.Description)
		iso.AttachRecord(rec)
		e.wireWorker(h, iso)

		ref := svcpool.NewRef(rec)
		e.insertCache(h, name, ref, iso)

		return &outcome{rec: rec, ref: ref}, nil
	})
	if err != nil {
		return nil, err
	}
	o := v.(*outcome)

	prior.Running.Drop()
	replaced, _ := e.pool.SetRunning(name, o.ref)
	return replaced, nil
}

// Start runs a Stopped service's start hook and promotes it to Running.
// Failure leaves the entry Stopped.
func (e *Engine) Start(name string) errors.Error {
	entry, ok := e.pool.Get(name)
	if !ok {
		return ErrorNotFound.Error(nil)
	}
	if entry.State != svcpool.Stopped {
		return ErrorRunning.Error(nil)
	}
	rec := entry.Stopped
	ref := svcpool.NewRef(rec)

	_, err := e.rt.Scope(func(h task.Handle) (interface{}, error) {
		iso, ierr := isolate.Build(rec.Source(), e.modules...)
		if ierr != nil {
			return nil, ierr
		}
		iso.AttachRecord(rec)
		e.wireWorker(h, iso)

		if serr := iso.CallStart(); serr != nil {
			iso.Close()
			return nil, serr
		}

		e.insertCache(h, name, ref, iso)
		return nil, nil
	})
	if err != nil {
		return err
	}

	e.pool.SetRunning(name, ref)
	return nil
}

// Stop runs a Running service's stop hook and demotes it to Stopped. A
// failed stop hook is reported but does not prevent the demotion, matching
// stopInternal's tolerant handling used by the update paths.
func (e *Engine) Stop(name string) (ErrorPayload, errors.Error) {
	entry, ok := e.pool.Get(name)
	if !ok {
		return ErrorPayload{}, ErrorNotFound.Error(nil)
	}
	if entry.State != svcpool.Running {
		return ErrorPayload{}, ErrorStopped.Error(nil)
	}

	rec := entry.Running.Record()
	entry.Running.Drop()

	var payload ErrorPayload
	if _, err := e.rt.Scope(func(task.Handle) (interface{}, error) {
		return nil, e.runStopHook(rec)
	}); err != nil {
		payload.Stop = err
	}

	e.pool.SetStopped(name, rec)
	return payload, nil
}

// stopInternal is Stop's non-asserting variant used inside update paths:
// a name that is absent or already Stopped is not an error.
func (e *Engine) stopInternal(name string) errors.Error {
	entry, ok := e.pool.Get(name)
	if !ok || entry.State != svcpool.Running {
		return nil
	}

	rec := entry.Running.Record()
	entry.Running.Drop()

	_, err := e.rt.Scope(func(task.Handle) (interface{}, error) {
		return nil, e.runStopHook(rec)
	})
	return err
}

// StopAll stops every Running entry, in pool iteration order, used at
// shutdown. Failures are logged, not returned; shutdown proceeds
// regardless.
func (e *Engine) StopAll() {
	e.pool.Range(func(name string, entry *svcpool.Entry) bool {
		if entry.State != svcpool.Running {
			return true
		}
		if payload, err := e.Stop(name); err != nil || !payload.IsZero() {
			if e.log != nil {
				e.log.Warning("stop_all: "+name+" did not stop cleanly", nil)
			}
		}
		return true
	})
}

// Remove deletes a Stopped entry and its local storage.
func (e *Engine) Remove(name string) errors.Error {
	entry, ok := e.pool.Get(name)
	if !ok {
		return ErrorNotFound.Error(nil)
	}
	if entry.State != svcpool.Stopped {
		return ErrorRunning.Error(nil)
	}

	e.pool.Remove(name)

	if e.storage != nil {
		if serr := e.storage.RemoveDir(name); serr != nil {
			return ErrorHostIO.Error(serr)
		}
	}
	return nil
}
