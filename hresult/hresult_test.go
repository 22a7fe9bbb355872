package hresult

import "testing"

func TestCanonicalValues(t *testing.T) {
	tests := []struct {
		hr   HRESULT
		want uint32
	}{
		{S_OK, 0},
		{S_FALSE, 1},
		{E_NOTIMPL, 0x80004001},
		{E_NOINTERFACE, 0x80004002},
		{E_POINTER, 0x80004003},
		{E_FAIL, 0x80004005},
		{E_UNEXPECTED, 0x8000FFFF},
		{E_OUTOFMEMORY, 0x8007000E},
		{E_INVALIDARG, 0x80070057},
		{CLASS_E_NOAGGREGATION, 0x80040110},
		{CLASS_E_CLASSNOTAVAILABLE, 0x80040111},
	}

	for _, tt := range tests {
		t.Run(tt.hr.String(), func(t *testing.T) {
			if got := tt.hr.Uint32(); got != tt.want {
				t.Errorf("Uint32() = 0x%08X, want 0x%08X", got, tt.want)
			}
			if FromUint32(tt.want) != tt.hr {
				t.Errorf("FromUint32(0x%08X) = %v", tt.want, FromUint32(tt.want))
			}
		})
	}
}

func TestSucceededFailed(t *testing.T) {
	if !S_OK.Succeeded() || S_OK.Failed() {
		t.Error("S_OK must succeed")
	}
	if !S_FALSE.Succeeded() {
		t.Error("S_FALSE must succeed")
	}
	if !E_NOINTERFACE.Failed() || E_NOINTERFACE.Succeeded() {
		t.Error("E_NOINTERFACE must fail")
	}
}

func TestMake(t *testing.T) {
	if got := Make(true, 7, 0x57); got != E_INVALIDARG {
		t.Errorf("Make = %v, want E_INVALIDARG", got)
	}
	if got := FromWin32(5); got != E_ACCESSDENIED {
		t.Errorf("FromWin32(5) = %v, want E_ACCESSDENIED", got)
	}
	if got := FromWin32(0); got != S_OK {
		t.Errorf("FromWin32(0) = %v, want S_OK", got)
	}
	if E_INVALIDARG.Facility() != 7 || E_INVALIDARG.Code() != 0x57 {
		t.Errorf("facility/code = %d/%#x", E_INVALIDARG.Facility(), E_INVALIDARG.Code())
	}
}

func TestString(t *testing.T) {
	if E_NOINTERFACE.String() != "E_NOINTERFACE" {
		t.Errorf("String() = %q", E_NOINTERFACE.String())
	}
	if got := FromUint32(0x80001234).String(); got != "0x80001234" {
		t.Errorf("String() = %q", got)
	}
}
