package svcpool

import "github.com/nabbar/abel/errors"

const (
	ErrorParamsEmpty errors.CodeError = iota + errors.MinPkgSvcPool
	ErrorNotFound
	ErrorExists
	ErrorRunning
	ErrorStopped
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
	case ErrorNotFound:
		return "service not found"
	case ErrorExists:
		return "service already exists"
	case ErrorRunning:
		return "service is running"
	case ErrorStopped:
		return "service is stopped"
	}

	return ""
}
