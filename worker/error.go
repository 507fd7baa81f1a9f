package worker

import "github.com/nabbar/abel/errors"

const (
	ErrorParamsEmpty errors.CodeError = iota + errors.MinPkgWorker
	ErrorStopped
	ErrorTimeout
	ErrorPanic
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
	case ErrorStopped:
		return "worker is stopped"
	case ErrorTimeout:
		return "task exceeded its cpu-time budget"
	case ErrorPanic:
		return "worker panicked while running a task"
	}

	return ""
}
