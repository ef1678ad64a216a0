package core

import "fmt"

// ResultCode classifies the outcome of a fallible renderer operation.
type ResultCode int

const (
	// Ok means no error.
	Ok ResultCode = iota
	// ArgumentInvalid is a bad argument, e.g. an invalid buffer/texture/bind type.
	ArgumentInvalid
	// ArgumentNull is a nil input for a non-nil argument.
	ArgumentNull
	// ArgumentOutOfRange is an argument out of range, e.g. an attachment,
	// mip level or offset past the end of a resource.
	ArgumentOutOfRange
	// InvalidOperation means the operation cannot execute in the current state.
	InvalidOperation
	// Unsupported means the feature is not supported on the current hardware or software.
	Unsupported
	// Unimplemented marks a feature that has not been implemented yet.
	Unimplemented
	// RuntimeError means something bad happened internally.
	RuntimeError
)

func (c ResultCode) String() string {
	switch c {
	case Ok:
		return "Ok"
	case ArgumentInvalid:
		return "ArgumentInvalid"
	case ArgumentNull:
		return "ArgumentNull"
	case ArgumentOutOfRange:
		return "ArgumentOutOfRange"
	case InvalidOperation:
		return "InvalidOperation"
	case Unsupported:
		return "Unsupported"
	case Unimplemented:
		return "Unimplemented"
	case RuntimeError:
		return "RuntimeError"
	}
	return fmt.Sprintf("ResultCode(%d)", int(c))
}

// Result carries the outcome of a fallible operation: a code and a
// human-readable message. The zero value means success.
type Result struct {
	Code    ResultCode
	Message string
}

func NewResult(code ResultCode, format string, args ...interface{}) Result {
	return Result{Code: code, Message: fmt.Sprintf(format, args...)}
}

func ResultOk() Result {
	return Result{}
}

func (r Result) IsOk() bool {
	return r.Code == Ok
}

// Error makes a non-Ok Result usable as a plain error value.
func (r Result) Error() string {
	if r.Message == "" {
		return r.Code.String()
	}
	return fmt.Sprintf("%s: %s", r.Code, r.Message)
}
