package extern

import (
	"strings"
	"unicode/utf8"
	"unsafe"

	"go.uber.org/zap"

	"github.com/wippyai/com-runtime/errors"
)

// AllocCString copies s into a NUL-terminated buffer owned by the caller.
// s must be valid UTF-8; strings containing NUL cannot be represented.
func AllocCString(s string) (uintptr, error) {
	if !utf8.ValidString(s) {
		return 0, errors.InvalidUTF8(errors.PhaseMarshal, nil, []byte(s))
	}
	if strings.IndexByte(s, 0) >= 0 {
		return 0, errors.InvalidData(errors.PhaseMarshal, nil, "string contains NUL byte")
	}
	if len(s) > MaxStringSize {
		return 0, errors.Overflow(errors.PhaseMarshal, nil, len(s), "char*")
	}
	p, err := Heap().Alloc(uintptr(len(s)) + 1)
	if err != nil {
		return 0, err
	}
	buf := unsafe.Slice((*byte)(Ptr(p)), len(s)+1)
	copy(buf, s)
	buf[len(s)] = 0

	Logger().Debug("cstring allocated", zap.Uintptr("ptr", p), zap.Int("bytes", len(s)))
	return p, nil
}

// FreeCString frees a C string. Null is ignored.
func FreeCString(p uintptr) {
	if p == 0 {
		return
	}
	Heap().Free(p)
}

// ReadCString decodes p without taking ownership. Null reads as "".
func ReadCString(p uintptr) (string, error) {
	if p == 0 {
		return "", nil
	}
	var n int
	for n = 0; *(*byte)(Ptr(p + uintptr(n))) != 0; n++ {
		if n >= MaxStringSize {
			return "", errors.New(errors.PhaseUnmarshal, errors.KindOverflow).
				ComType("char*").
				Detail("unterminated string exceeds maximum %d", MaxStringSize).
				Build()
		}
	}
	data := unsafe.Slice((*byte)(Ptr(p)), n)
	if !utf8.Valid(data) {
		return "", errors.InvalidUTF8(errors.PhaseUnmarshal, nil, data)
	}
	return string(data), nil
}

// TakeCString decodes p and frees it, even when decoding fails.
func TakeCString(p uintptr) (string, error) {
	defer FreeCString(p)
	return ReadCString(p)
}
