package isolate

import "github.com/nabbar/abel/errors"

const (
	ErrorParamsEmpty errors.CodeError = iota + errors.MinPkgIsolate
	ErrorMainRead
	ErrorMainEval
	ErrorSealed
	ErrorHookMissing
	ErrorHookCall
	ErrorHandlerCall
	ErrorTimeout
)

var isCodeError = false

func IsCodeError() bool {
	return isCodeError
}

func init() {
	isCodeError = errors.ExistInMapMessage(ErrorParamsEmpty)
	errors.RegisterIdFctMessage(ErrorParamsEmpty, getMessage)
}

func getMessage(code errors.CodeError) string {
	switch code {
	case errors.UNK_ERROR:
		return ""
	case ErrorParamsEmpty:
		return "given parameters is empty"
	case ErrorMainRead:
		return "cannot read main.lua from source"
	case ErrorMainEval:
		return "error evaluating main.lua"
	case ErrorSealed:
		return "cannot call listen outside main"
	case ErrorHookMissing:
		return "lifecycle hook is not defined"
	case ErrorHookCall:
		return "error calling lifecycle hook"
	case ErrorHandlerCall:
		return "error calling route handler"
	case ErrorTimeout:
		return "script exceeded its cpu-time budget"
	}

	return ""
}
