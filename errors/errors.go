package errors

import (
	"fmt"
	"strings"

	"github.com/wippyai/com-runtime/hresult"
)

// Phase indicates where in processing the error occurred
type Phase string

const (
	PhaseParse        Phase = "parse"        // GUID and manifest parsing
	PhaseMarshal      Phase = "marshal"      // Go to foreign
	PhaseUnmarshal    Phase = "unmarshal"    // foreign to Go
	PhaseDispatch     Phase = "dispatch"     // inbound vtable calls
	PhaseQuery        Phase = "query"        // interface negotiation
	PhaseRegistration Phase = "registration" // interface and class declarations
	PhaseFactory      Phase = "factory"      // class objects and instance creation
	PhaseRuntime      Phase = "runtime"      // runtime operations
)

// Kind categorizes the error
type Kind string

const (
	KindTypeMismatch      Kind = "type_mismatch"
	KindOutOfBounds       Kind = "out_of_bounds"
	KindInvalidData       Kind = "invalid_data"
	KindUnsupported       Kind = "unsupported"
	KindAllocation        Kind = "allocation"
	KindInvalidUTF8       Kind = "invalid_utf8"
	KindInvalidUTF16      Kind = "invalid_utf16"
	KindOverflow          Kind = "overflow"
	KindNilPointer        Kind = "nil_pointer"
	KindInvalidVariant    Kind = "invalid_variant"
	KindNotFound          Kind = "not_found"
	KindNoInterface       Kind = "no_interface"
	KindClassNotAvailable Kind = "class_not_available"
	KindNoAggregation     Kind = "no_aggregation"
	KindInvalidInput      Kind = "invalid_input"
	KindRegistration      Kind = "registration"
	KindDuplicate         Kind = "duplicate"
)

// Error is the structured error type used throughout the runtime
type Error struct {
	Value   any
	Cause   error
	Phase   Phase
	Kind    Kind
	GoType  string
	ComType string
	Detail  string
	Path    []string
	Code    hresult.HRESULT
}

// Error implements the error interface
func (e *Error) Error() string {
	var b strings.Builder

	b.WriteByte('[')
	b.WriteString(string(e.Phase))
	b.WriteString("] ")
	b.WriteString(string(e.Kind))

	if len(e.Path) > 0 {
		b.WriteString(" at ")
		b.WriteString(strings.Join(e.Path, "."))
	}

	if e.GoType != "" || e.ComType != "" {
		b.WriteString(": ")
		if e.GoType != "" && e.ComType != "" {
			b.WriteString("Go type ")
			b.WriteString(e.GoType)
			b.WriteString(", COM type ")
			b.WriteString(e.ComType)
		} else if e.GoType != "" {
			b.WriteString("Go type ")
			b.WriteString(e.GoType)
		} else {
			b.WriteString("COM type ")
			b.WriteString(e.ComType)
		}
	}

	if e.Detail != "" {
		if e.GoType != "" || e.ComType != "" {
			b.WriteString(" - ")
		} else {
			b.WriteString(": ")
		}
		b.WriteString(e.Detail)
	}

	if e.Cause != nil {
		b.WriteString(" (caused by: ")
		b.WriteString(e.Cause.Error())
		b.WriteByte(')')
	}

	return b.String()
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether target matches this error
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Phase == t.Phase && e.Kind == t.Kind
	}
	return false
}

// HRESULT returns the status code reported at the ABI boundary. An explicit
// Code wins; otherwise the code is derived from Kind.
func (e *Error) HRESULT() hresult.HRESULT {
	if e.Code != 0 {
		return e.Code
	}
	switch e.Kind {
	case KindNilPointer:
		return hresult.E_POINTER
	case KindNoInterface:
		return hresult.E_NOINTERFACE
	case KindClassNotAvailable:
		return hresult.CLASS_E_CLASSNOTAVAILABLE
	case KindNoAggregation:
		return hresult.CLASS_E_NOAGGREGATION
	case KindTypeMismatch:
		return hresult.DISP_E_TYPEMISMATCH
	case KindOverflow:
		return hresult.DISP_E_OVERFLOW
	case KindAllocation:
		return hresult.E_OUTOFMEMORY
	case KindUnsupported:
		return hresult.E_NOTIMPL
	case KindInvalidUTF8, KindInvalidUTF16, KindInvalidData, KindInvalidInput,
		KindInvalidVariant, KindOutOfBounds:
		return hresult.E_INVALIDARG
	}
	return hresult.E_FAIL
}

// Builder provides structured error construction
type Builder struct {
	err Error
}

// New creates a new error builder
func New(phase Phase, kind Kind) *Builder {
	return &Builder{
		err: Error{
			Phase: phase,
			Kind:  kind,
		},
	}
}

// Path sets the field path
func (b *Builder) Path(path ...string) *Builder {
	b.err.Path = path
	return b
}

// GoType sets the Go type name
func (b *Builder) GoType(t string) *Builder {
	b.err.GoType = t
	return b
}

// ComType sets the foreign type name
func (b *Builder) ComType(t string) *Builder {
	b.err.ComType = t
	return b
}

// Value sets the offending value
func (b *Builder) Value(v any) *Builder {
	b.err.Value = v
	return b
}

// Cause sets the underlying error
func (b *Builder) Cause(err error) *Builder {
	b.err.Cause = err
	return b
}

// Code overrides the status code derived from Kind
func (b *Builder) Code(hr hresult.HRESULT) *Builder {
	b.err.Code = hr
	return b
}

// Detail sets the human-readable detail message
func (b *Builder) Detail(msg string, args ...any) *Builder {
	if len(args) > 0 {
		b.err.Detail = fmt.Sprintf(msg, args...)
	} else {
		b.err.Detail = msg
	}
	return b
}

// Build returns the constructed error
func (b *Builder) Build() *Error {
	return &b.err
}

// Convenience constructors for common error patterns

// TypeMismatch creates a type mismatch error
func TypeMismatch(phase Phase, path []string, goType, comType string) *Error {
	return &Error{
		Phase:   phase,
		Kind:    KindTypeMismatch,
		Path:    path,
		GoType:  goType,
		ComType: comType,
	}
}

// InvalidUTF8 creates an invalid UTF-8 error
func InvalidUTF8(phase Phase, path []string, data []byte) *Error {
	preview := data
	if len(preview) > 32 {
		preview = preview[:32]
	}
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidUTF8,
		Path:   path,
		Detail: fmt.Sprintf("invalid UTF-8 sequence: %x", preview),
	}
}

// InvalidUTF16 creates an invalid UTF-16 error for an unpaired surrogate
// or an odd byte length
func InvalidUTF16(phase Phase, path []string, detail string) *Error {
	return &Error{
		Phase:   phase,
		Kind:    KindInvalidUTF16,
		Path:    path,
		ComType: "BSTR",
		Detail:  detail,
	}
}

// AllocationFailed creates an allocation failure error
func AllocationFailed(phase Phase, size, align uint32) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindAllocation,
		Detail: fmt.Sprintf("failed to allocate %d bytes (align %d)", size, align),
	}
}

// InvalidDiscriminant creates an invalid discriminant error for variants
func InvalidDiscriminant(phase Phase, path []string, disc uint32, comType string) *Error {
	return &Error{
		Phase:   phase,
		Kind:    KindInvalidVariant,
		Path:    path,
		ComType: comType,
		Detail:  fmt.Sprintf("unsupported discriminant %d", disc),
		Value:   disc,
	}
}

// Unsupported creates an unsupported operation error
func Unsupported(phase Phase, what string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindUnsupported,
		Detail: what,
	}
}

// OutOfBounds creates an out of bounds error
func OutOfBounds(phase Phase, path []string, index, length int) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindOutOfBounds,
		Path:   path,
		Detail: fmt.Sprintf("index %d out of bounds (length %d)", index, length),
		Value:  index,
	}
}

// NilPointer creates a nil pointer error
func NilPointer(phase Phase, path []string, goType string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNilPointer,
		Path:   path,
		GoType: goType,
		Detail: "nil pointer",
	}
}

// Overflow creates an overflow error
func Overflow(phase Phase, path []string, value any, targetType string) *Error {
	return &Error{
		Phase:   phase,
		Kind:    KindOverflow,
		Path:    path,
		ComType: targetType,
		Detail:  fmt.Sprintf("value %v overflows %s", value, targetType),
		Value:   value,
	}
}

// InvalidData creates an invalid data error
func InvalidData(phase Phase, path []string, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidData,
		Path:   path,
		Detail: detail,
	}
}

// Wrap wraps an existing error with additional context
func Wrap(phase Phase, kind Kind, cause error, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   kind,
		Detail: detail,
		Cause:  cause,
	}
}

// NoInterface creates an interface negotiation failure
func NoInterface(iface string) *Error {
	return &Error{
		Phase:  PhaseQuery,
		Kind:   KindNoInterface,
		Detail: fmt.Sprintf("interface %s not supported", iface),
	}
}

// ClassNotAvailable creates an unknown class error
func ClassNotAvailable(clsid string) *Error {
	return &Error{
		Phase:  PhaseFactory,
		Kind:   KindClassNotAvailable,
		Detail: fmt.Sprintf("class %s not available", clsid),
	}
}

// NotFound creates a not-found error
func NotFound(phase Phase, what, name string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindNotFound,
		Detail: fmt.Sprintf("%s %q not found", what, name),
	}
}

// InvalidInput creates an invalid input error
func InvalidInput(phase Phase, detail string) *Error {
	return &Error{
		Phase:  phase,
		Kind:   KindInvalidInput,
		Detail: detail,
	}
}

// Registration creates a declaration error
func Registration(what, name string, cause error) *Error {
	return &Error{
		Phase:  PhaseRegistration,
		Kind:   KindRegistration,
		Detail: fmt.Sprintf("register %s %s", what, name),
		Cause:  cause,
	}
}

// Duplicate creates a duplicate declaration error
func Duplicate(what, name string) *Error {
	return &Error{
		Phase:  PhaseRegistration,
		Kind:   KindDuplicate,
		Detail: fmt.Sprintf("%s %q declared twice", what, name),
	}
}

// ParseFailed creates a parsing error
func ParseFailed(what string, cause error) *Error {
	return &Error{
		Phase:  PhaseParse,
		Kind:   KindInvalidData,
		Detail: fmt.Sprintf("parse %s", what),
		Cause:  cause,
	}
}
