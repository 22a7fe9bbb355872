// Package hresult defines the 32-bit COM status code and the well-known
// values the runtime produces.
//
// Bit 31 is the failure bit: negative values are failures, zero and positive
// values are successes.
package hresult

import "fmt"

// HRESULT is the status code every COM method returns.
type HRESULT int32

// Well-known status codes. Names follow the Windows SDK.
const (
	S_OK    HRESULT = 0
	S_FALSE HRESULT = 1

	E_NOTIMPL      = HRESULT(-0x7fffbfff) // 0x80004001
	E_NOINTERFACE  = HRESULT(-0x7fffbffe) // 0x80004002
	E_POINTER      = HRESULT(-0x7fffbffd) // 0x80004003
	E_ABORT        = HRESULT(-0x7fffbffc) // 0x80004004
	E_FAIL         = HRESULT(-0x7fffbffb) // 0x80004005
	E_UNEXPECTED   = HRESULT(-0x7fff0001) // 0x8000FFFF
	E_ACCESSDENIED = HRESULT(-0x7ff8fffb) // 0x80070005
	E_HANDLE       = HRESULT(-0x7ff8fffa) // 0x80070006
	E_OUTOFMEMORY  = HRESULT(-0x7ff8fff2) // 0x8007000E
	E_INVALIDARG   = HRESULT(-0x7ff8ffa9) // 0x80070057

	CLASS_E_NOAGGREGATION     = HRESULT(-0x7ffbfef0) // 0x80040110
	CLASS_E_CLASSNOTAVAILABLE = HRESULT(-0x7ffbfeef) // 0x80040111

	DISP_E_TYPEMISMATCH = HRESULT(-0x7ffdfffb) // 0x80020005
	DISP_E_OVERFLOW     = HRESULT(-0x7ffdfff6) // 0x8002000A
	DISP_E_DIVBYZERO    = HRESULT(-0x7ffdffee) // 0x80020012
)

var names = map[HRESULT]string{
	S_OK:                      "S_OK",
	S_FALSE:                   "S_FALSE",
	E_NOTIMPL:                 "E_NOTIMPL",
	E_NOINTERFACE:             "E_NOINTERFACE",
	E_POINTER:                 "E_POINTER",
	E_ABORT:                   "E_ABORT",
	E_FAIL:                    "E_FAIL",
	E_UNEXPECTED:              "E_UNEXPECTED",
	E_ACCESSDENIED:            "E_ACCESSDENIED",
	E_HANDLE:                  "E_HANDLE",
	E_OUTOFMEMORY:             "E_OUTOFMEMORY",
	E_INVALIDARG:              "E_INVALIDARG",
	CLASS_E_NOAGGREGATION:     "CLASS_E_NOAGGREGATION",
	CLASS_E_CLASSNOTAVAILABLE: "CLASS_E_CLASSNOTAVAILABLE",
	DISP_E_TYPEMISMATCH:       "DISP_E_TYPEMISMATCH",
	DISP_E_OVERFLOW:           "DISP_E_OVERFLOW",
	DISP_E_DIVBYZERO:          "DISP_E_DIVBYZERO",
}

// FromUint32 reinterprets the canonical unsigned form (0x80004002) as an HRESULT.
func FromUint32(v uint32) HRESULT {
	return HRESULT(int32(v))
}

// Uint32 returns the unsigned bit pattern of the code.
func (hr HRESULT) Uint32() uint32 {
	return uint32(hr)
}

// Succeeded reports whether the failure bit is clear.
func (hr HRESULT) Succeeded() bool {
	return hr >= 0
}

// Failed reports whether the failure bit is set.
func (hr HRESULT) Failed() bool {
	return hr < 0
}

// Facility returns bits 16-28 of the code.
func (hr HRESULT) Facility() uint16 {
	return uint16((uint32(hr) >> 16) & 0x1fff)
}

// Code returns the low 16 bits of the code.
func (hr HRESULT) Code() uint16 {
	return uint16(uint32(hr) & 0xffff)
}

// String returns the symbolic name when one is known, the hex form otherwise.
func (hr HRESULT) String() string {
	if n, ok := names[hr]; ok {
		return n
	}
	return fmt.Sprintf("0x%08X", uint32(hr))
}

// Make builds a code from its severity, facility and code parts.
func Make(failure bool, facility uint16, code uint16) HRESULT {
	v := uint32(facility&0x1fff)<<16 | uint32(code)
	if failure {
		v |= 0x80000000
	}
	return HRESULT(int32(v))
}

// FromWin32 maps a Win32 error code into the FACILITY_WIN32 space.
func FromWin32(code uint32) HRESULT {
	if code == 0 {
		return S_OK
	}
	return Make(true, 7, uint16(code&0xffff))
}
