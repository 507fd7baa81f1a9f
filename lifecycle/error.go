package lifecycle

import "github.com/nabbar/abel/errors"

const (
	ErrorParamsEmpty errors.CodeError = iota + errors.MinPkgLifecycle
	ErrorInvalidName
	ErrorNotFound
	ErrorPathNotFound
	ErrorExists
	ErrorRunning
	ErrorStopped
	ErrorDropped
	ErrorScript
	ErrorHostIO
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
	case ErrorInvalidName:
		return "service name is invalid"
	case ErrorNotFound:
		return "service not found"
	case ErrorPathNotFound:
		return "no route matched the request path"
	case ErrorExists:
		return "service already exists"
	case ErrorRunning:
		return "service is running"
	case ErrorStopped:
		return "service is stopped"
	case ErrorDropped:
		return "service reference was dropped"
	case ErrorScript:
		return "script error"
	case ErrorHostIO:
		return "host i/o error"
	}

	return ""
}
