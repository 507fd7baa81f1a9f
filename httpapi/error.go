package httpapi

import "github.com/nabbar/abel/errors"

const (
	ErrorParamsEmpty errors.CodeError = iota + errors.MinPkgHttpApi
	ErrorBadUpload
	ErrorMissingUpload
	ErrorBadRequest
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
	case ErrorBadUpload:
		return "uploaded content could not be read"
	case ErrorMissingUpload:
		return "request must carry exactly one of the 'single' or 'multi' form fields"
	case ErrorBadRequest:
		return "bad request"
	}

	return ""
}
