package extern

import (
	"unicode/utf16"
	"unicode/utf8"
	"unsafe"

	"fortio.org/safecast"
	"go.uber.org/zap"

	"github.com/wippyai/com-runtime/errors"
)

// BSTR layout: a u32 byte length, the UTF-16 code units, and a u16 NUL
// terminator. The BSTR value points at the first code unit, four bytes past
// the start of the allocation. A null BSTR is the empty string.
const bstrPrefix = 4

// MaxStringSize bounds strings crossing the boundary in either encoding.
const MaxStringSize = 1 << 28

// AllocBSTR encodes s as a BSTR owned by the caller. s must be valid
// UTF-8.
func AllocBSTR(s string) (uintptr, error) {
	if !utf8.ValidString(s) {
		return 0, errors.InvalidUTF8(errors.PhaseMarshal, nil, []byte(s))
	}
	units := utf16.Encode([]rune(s))
	return allocBSTRUnits(units)
}

func allocBSTRUnits(units []uint16) (uintptr, error) {
	byteLen, err := safecast.Conv[uint32](len(units) * 2)
	if err != nil || byteLen > MaxStringSize {
		return 0, errors.Overflow(errors.PhaseMarshal, nil, len(units)*2, "BSTR")
	}

	base, err := Heap().Alloc(bstrPrefix + uintptr(byteLen) + 2)
	if err != nil {
		return 0, err
	}
	*(*uint32)(Ptr(base)) = byteLen
	data := base + bstrPrefix
	if len(units) > 0 {
		copy(unsafe.Slice((*uint16)(Ptr(data)), len(units)), units)
	}
	*(*uint16)(Ptr(data + uintptr(byteLen))) = 0

	Logger().Debug("bstr allocated", zap.Uintptr("bstr", data), zap.Uint32("bytes", byteLen))
	return data, nil
}

// FreeBSTR frees a BSTR. Null is ignored.
func FreeBSTR(b uintptr) {
	if b == 0 {
		return
	}
	Heap().Free(b - bstrPrefix)
	Logger().Debug("bstr freed", zap.Uintptr("bstr", b))
}

// BSTRByteLen returns the length prefix of b. A null BSTR has length 0.
func BSTRByteLen(b uintptr) uint32 {
	if b == 0 {
		return 0
	}
	return *(*uint32)(Ptr(b - bstrPrefix))
}

// BSTRUnits returns a view of b's code units. The view is only valid while
// b is alive.
func BSTRUnits(b uintptr) ([]uint16, error) {
	n := BSTRByteLen(b)
	if n == 0 {
		return nil, nil
	}
	if n%2 != 0 {
		return nil, errors.InvalidUTF16(errors.PhaseUnmarshal, nil, "odd byte length")
	}
	if n > MaxStringSize {
		return nil, errors.New(errors.PhaseUnmarshal, errors.KindOverflow).
			ComType("BSTR").
			Detail("string size %d exceeds maximum %d", n, MaxStringSize).
			Build()
	}
	return unsafe.Slice((*uint16)(Ptr(b)), n/2), nil
}

// ReadBSTR decodes b without taking ownership. Unpaired surrogates are
// rejected rather than replaced so a round trip never alters data silently.
func ReadBSTR(b uintptr) (string, error) {
	units, err := BSTRUnits(b)
	if err != nil {
		return "", err
	}
	return decodeUTF16(units)
}

// TakeBSTR decodes b and frees it. b is freed even when decoding fails.
func TakeBSTR(b uintptr) (string, error) {
	defer FreeBSTR(b)
	return ReadBSTR(b)
}

func decodeUTF16(units []uint16) (string, error) {
	buf := make([]byte, 0, len(units))
	for i := 0; i < len(units); i++ {
		u := rune(units[i])
		if !utf16.IsSurrogate(u) {
			buf = utf8.AppendRune(buf, u)
			continue
		}
		if i+1 < len(units) {
			if r := utf16.DecodeRune(u, rune(units[i+1])); r != utf8.RuneError {
				buf = utf8.AppendRune(buf, r)
				i++
				continue
			}
		}
		return "", errors.InvalidUTF16(errors.PhaseUnmarshal, nil, "unpaired surrogate")
	}
	return string(buf), nil
}
