package source

import "github.com/nabbar/abel/errors"

const (
	ErrorParamsEmpty errors.CodeError = iota + errors.MinPkgSource
	ErrorPathEscape
	ErrorNotFound
	ErrorNotAFile
	ErrorNotADir
	ErrorArchiveOpen
	ErrorArchiveEntry
	ErrorMainEntryMissing
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
	case ErrorPathEscape:
		return "path escapes the source root"
	case ErrorNotFound:
		return "path not found in source"
	case ErrorNotAFile:
		return "path is not a file"
	case ErrorNotADir:
		return "path is not a directory"
	case ErrorArchiveOpen:
		return "cannot open archive source"
	case ErrorArchiveEntry:
		return "cannot read archive entry"
	case ErrorMainEntryMissing:
		return "archive does not contain a main.lua entry"
	}

	return ""
}
