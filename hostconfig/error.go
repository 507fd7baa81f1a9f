package hostconfig

import "github.com/nabbar/abel/errors"

const (
	ErrorConfigRead errors.CodeError = iota + errors.MinPkgHostCfg
	ErrorConfigParse
	ErrorMetadataRead
	ErrorMetadataParse
	ErrorMetadataWrite
	ErrorStorageIO
	ErrorUnknownSourceKind
)

var isCodeError = false

func IsCodeError() bool {
	return isCodeError
}

func init() {
	isCodeError = errors.ExistInMapMessage(ErrorConfigRead)
	errors.RegisterIdFctMessage(ErrorConfigRead, getMessage)
}

func getMessage(code errors.CodeError) string {
	switch code {
	case errors.UNK_ERROR:
		return ""
	case ErrorConfigRead:
		return "cannot read host config file"
	case ErrorConfigParse:
		return "cannot parse host config file"
	case ErrorMetadataRead:
		return "cannot read service metadata"
	case ErrorMetadataParse:
		return "cannot parse service metadata"
	case ErrorMetadataWrite:
		return "cannot write service metadata"
	case ErrorStorageIO:
		return "local storage operation failed"
	case ErrorUnknownSourceKind:
		return "service directory has neither source.lua nor source.asar"
	}

	return ""
}
