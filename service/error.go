package service

import "github.com/nabbar/abel/errors"

const (
	ErrorParamsEmpty errors.CodeError = iota + errors.MinPkgService
	ErrorInvalidName
	ErrorInvalidPattern
	ErrorUUIDGenerate
	ErrorUUIDParse
	ErrorMetadataDecode
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
		return "service name does not match [a-z0-9-]{1,64}"
	case ErrorInvalidPattern:
		return "route pattern is not a valid path"
	case ErrorUUIDGenerate:
		return "cannot generate service uuid"
	case ErrorUUIDParse:
		return "cannot parse service uuid"
	case ErrorMetadataDecode:
		return "cannot decode abel.json package metadata"
	}

	return ""
}
