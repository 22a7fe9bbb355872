package errors

import (
	stderrors "errors"
	"fmt"

	"github.com/wippyai/com-runtime/guid"
	"github.com/wippyai/com-runtime/hresult"
)

// ErrorInfo is the rich payload carried next to a status code through the
// error channel. Field names follow IErrorInfo.
type ErrorInfo struct {
	GUID        guid.GUID
	Source      string
	Description string
	HelpFile    string
	HelpContext uint32
}

// NewErrorInfo creates error info with only a description set
func NewErrorInfo(description string) *ErrorInfo {
	return &ErrorInfo{Description: description}
}

// ComError is a status code with optional rich error info. Native methods
// return it (or any error, see ToComError) and callers receive it back from
// failed outbound calls.
type ComError struct {
	Code hresult.HRESULT
	Info *ErrorInfo
}

// NewComError creates an error carrying only a status code
func NewComError(code hresult.HRESULT) *ComError {
	return &ComError{Code: code}
}

// Fail creates an error with a status code and a formatted description
func Fail(code hresult.HRESULT, msg string, args ...any) *ComError {
	if len(args) > 0 {
		msg = fmt.Sprintf(msg, args...)
	}
	return &ComError{Code: code, Info: NewErrorInfo(msg)}
}

// WithInfo attaches rich error info
func (e *ComError) WithInfo(info *ErrorInfo) *ComError {
	e.Info = info
	return e
}

// Error implements the error interface
func (e *ComError) Error() string {
	if e.Info != nil && e.Info.Description != "" {
		return fmt.Sprintf("%s (%s)", e.Info.Description, e.Code)
	}
	return fmt.Sprintf("COM error %s", e.Code)
}

// HRESULT returns the status code
func (e *ComError) HRESULT() hresult.HRESULT {
	return e.Code
}

// Description returns the rich description, or "" when none was attached
func (e *ComError) Description() string {
	if e.Info == nil {
		return ""
	}
	return e.Info.Description
}

// Is matches another ComError with the same status code
func (e *ComError) Is(target error) bool {
	if t, ok := target.(*ComError); ok {
		return e.Code == t.Code
	}
	return false
}

type coder interface {
	HRESULT() hresult.HRESULT
}

// ToComError lowers any error to the form that crosses the ABI boundary.
// ComError values pass through; anything reporting an HRESULT keeps its
// code; every other error becomes E_FAIL. The message always travels as the
// description so callers that read the error channel see the original text.
func ToComError(err error) *ComError {
	if err == nil {
		return nil
	}

	var ce *ComError
	if stderrors.As(err, &ce) {
		return ce
	}

	code := hresult.E_FAIL
	var c coder
	if stderrors.As(err, &c) {
		code = c.HRESULT()
	}
	if code.Succeeded() {
		code = hresult.E_FAIL
	}
	return &ComError{Code: code, Info: NewErrorInfo(err.Error())}
}

// Code returns the status code for err: S_OK for nil, otherwise the code
// ToComError would report.
func Code(err error) hresult.HRESULT {
	if err == nil {
		return hresult.S_OK
	}
	return ToComError(err).Code
}
