package isolate

import (
	lua "github.com/yuin/gopher-lua"
)

// ScriptError is an error raised by script code during a protected call.
// A script may raise a plain value, in which case Message carries its
// string form and Traceback the interpreter's stack trace, or a structured
// table `{status, error, detail}` through error(), in which case IsCustom
// is set and Status/Message/Detail are taken verbatim from the table.
type ScriptError struct {
	Status    int
	Message   string
	Detail    string
	Traceback string
	IsCustom  bool
}

func (e *ScriptError) Error() string {
	if e.Traceback != "" {
		return e.Message + "\n" + e.Traceback
	}
	return e.Message
}

// asScriptError converts gopher-lua's ApiError into a ScriptError,
// recognising the structured `{status, error, detail}` form. Non-lua
// errors pass through unchanged.
func asScriptError(err error) error {
	if err == nil {
		return nil
	}

	apiErr, ok := err.(*lua.ApiError)
	if !ok {
		return err
	}

	se := &ScriptError{
		Message:   apiErr.Object.String(),
		Traceback: apiErr.StackTrace,
	}

	t, ok := apiErr.Object.(*lua.LTable)
	if !ok {
		return se
	}

	sv, ok := t.RawGetString("status").(lua.LNumber)
	if !ok {
		return se
	}

	se.IsCustom = true
	se.Status = int(sv)
	se.Traceback = ""

	if ev, ok := t.RawGetString("error").(lua.LString); ok {
		se.Message = string(ev)
	} else {
		se.Message = "script error"
	}
	if dv := t.RawGetString("detail"); dv != lua.LNil {
		se.Detail = dv.String()
	}

	return se
}
