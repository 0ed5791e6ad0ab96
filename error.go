package pagetext

import (
	"errors"
	"fmt"
)

// Application error codes.
const (
	EINVALID    = "invalid"    // missing or empty input
	ENAVIGATION = "navigation" // target unreachable or navigation deadline exceeded
	ENOTREADY   = "not_ready"  // readiness markers never appeared
	EEXTRACT    = "extract"    // in-page evaluation failed
	EPROTOCOL   = "protocol"   // worker output could not be decoded
	EEXIT       = "exit"       // worker process exited abnormally
	ETIMEOUT    = "timeout"    // outer deadline fired
	EINTERNAL   = "internal"
)

// Error represents an application-specific error.
type Error struct {
	Code    string
	Message string

	// Diagnostics holds bounded context that is safe to show to callers,
	// such as captured stderr or a prefix of malformed worker output.
	Diagnostics map[string]any
}

// Error implements the error interface.
func (e *Error) Error() string {
	return fmt.Sprintf("pagetext error: code=%s message=%s", e.Code, e.Message)
}

// Errorf is a helper function to return an Error with a given code and formatted message.
func Errorf(code string, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// With returns the error with an extra diagnostic field attached.
func (e *Error) With(key string, value any) *Error {
	if e.Diagnostics == nil {
		e.Diagnostics = make(map[string]any)
	}
	e.Diagnostics[key] = value
	return e
}

// ErrorCode unwraps an application error and returns its code.
// Non-application errors always return EINTERNAL.
func ErrorCode(err error) string {
	var e *Error
	if err == nil {
		return ""
	} else if errors.As(err, &e) {
		return e.Code
	}
	return EINTERNAL
}

// ErrorMessage unwraps an application error and returns its message.
// Non-application errors return the error text.
func ErrorMessage(err error) string {
	var e *Error
	if err == nil {
		return ""
	} else if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}

// ErrorDiagnostics unwraps an application error and returns its diagnostics.
func ErrorDiagnostics(err error) map[string]any {
	var e *Error
	if errors.As(err, &e) {
		return e.Diagnostics
	}
	return nil
}
