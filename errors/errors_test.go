package errors

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/wippyai/com-runtime/hresult"
)

func TestError_Error(t *testing.T) {
	tests := []struct {
		name     string
		err      *Error
		contains []string
	}{
		{
			name: "full error",
			err: &Error{
				Phase:   PhaseMarshal,
				Kind:    KindTypeMismatch,
				Path:    []string{"IMath", "Sqrt", "value"},
				GoType:  "string",
				ComType: "double",
				Detail:  "cannot convert",
			},
			contains: []string{"[marshal]", "type_mismatch", "IMath.Sqrt.value", "string", "double", "cannot convert"},
		},
		{
			name: "minimal error",
			err: &Error{
				Phase: PhaseUnmarshal,
				Kind:  KindOutOfBounds,
			},
			contains: []string{"[unmarshal]", "out_of_bounds"},
		},
		{
			name: "com type only",
			err: &Error{
				Phase:   PhaseUnmarshal,
				Kind:    KindInvalidUTF16,
				ComType: "BSTR",
				Detail:  "odd length",
			},
			contains: []string{"COM type BSTR", " - odd length"},
		},
		{
			name: "error with cause",
			err: &Error{
				Phase:  PhaseRuntime,
				Kind:   KindAllocation,
				Detail: "heap full",
				Cause:  errors.New("underlying error"),
			},
			contains: []string{"[runtime]", "allocation", "heap full", "caused by", "underlying error"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := tt.err.Error()
			for _, s := range tt.contains {
				if !strings.Contains(msg, s) {
					t.Errorf("error message %q does not contain %q", msg, s)
				}
			}
		})
	}
}

func TestError_Unwrap(t *testing.T) {
	cause := errors.New("root cause")
	err := &Error{
		Phase: PhaseMarshal,
		Kind:  KindInvalidData,
		Cause: cause,
	}

	if !errors.Is(err.Unwrap(), cause) {
		t.Error("Unwrap did not return cause")
	}
	if !errors.Is(errors.Unwrap(err), cause) {
		t.Error("errors.Unwrap did not return cause")
	}
}

func TestError_Is(t *testing.T) {
	err := &Error{
		Phase: PhaseQuery,
		Kind:  KindNoInterface,
		Path:  []string{"IMath"},
	}

	if !err.Is(&Error{Phase: PhaseQuery, Kind: KindNoInterface}) {
		t.Error("Is should match same phase and kind")
	}
	if err.Is(&Error{Phase: PhaseDispatch, Kind: KindNoInterface}) {
		t.Error("Is should not match different phase")
	}
	if err.Is(&Error{Phase: PhaseQuery, Kind: KindOutOfBounds}) {
		t.Error("Is should not match different kind")
	}

	target := &Error{Phase: PhaseQuery, Kind: KindNoInterface}
	if !errors.Is(err, target) {
		t.Error("errors.Is should match")
	}
}

func TestBuilder(t *testing.T) {
	cause := errors.New("root")
	err := New(PhaseMarshal, KindTypeMismatch).
		Path("IMath", "Sqrt").
		GoType("string").
		ComType("double").
		Value(42).
		Cause(cause).
		Code(hresult.E_ABORT).
		Detail("expected %s, got %s", "double", "string").
		Build()

	if err.Phase != PhaseMarshal {
		t.Errorf("Phase = %v, want %v", err.Phase, PhaseMarshal)
	}
	if err.Kind != KindTypeMismatch {
		t.Errorf("Kind = %v, want %v", err.Kind, KindTypeMismatch)
	}
	if len(err.Path) != 2 || err.Path[0] != "IMath" || err.Path[1] != "Sqrt" {
		t.Errorf("Path = %v, want [IMath Sqrt]", err.Path)
	}
	if err.GoType != "string" {
		t.Errorf("GoType = %v, want 'string'", err.GoType)
	}
	if err.ComType != "double" {
		t.Errorf("ComType = %v, want 'double'", err.ComType)
	}
	if err.Value != 42 {
		t.Errorf("Value = %v, want 42", err.Value)
	}
	if !errors.Is(err.Cause, cause) {
		t.Errorf("Cause = %v, want %v", err.Cause, cause)
	}
	if err.Detail != "expected double, got string" {
		t.Errorf("Detail = %v", err.Detail)
	}
	if err.HRESULT() != hresult.E_ABORT {
		t.Errorf("HRESULT = %v, want E_ABORT", err.HRESULT())
	}
}

func TestError_HRESULT(t *testing.T) {
	tests := []struct {
		kind Kind
		want hresult.HRESULT
	}{
		{KindNilPointer, hresult.E_POINTER},
		{KindNoInterface, hresult.E_NOINTERFACE},
		{KindClassNotAvailable, hresult.CLASS_E_CLASSNOTAVAILABLE},
		{KindNoAggregation, hresult.CLASS_E_NOAGGREGATION},
		{KindTypeMismatch, hresult.DISP_E_TYPEMISMATCH},
		{KindOverflow, hresult.DISP_E_OVERFLOW},
		{KindAllocation, hresult.E_OUTOFMEMORY},
		{KindUnsupported, hresult.E_NOTIMPL},
		{KindInvalidUTF16, hresult.E_INVALIDARG},
		{KindInvalidUTF8, hresult.E_INVALIDARG},
		{KindNotFound, hresult.E_FAIL},
		{KindRegistration, hresult.E_FAIL},
	}

	for _, tt := range tests {
		t.Run(string(tt.kind), func(t *testing.T) {
			err := &Error{Phase: PhaseDispatch, Kind: tt.kind}
			if got := err.HRESULT(); got != tt.want {
				t.Errorf("HRESULT() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestConvenienceConstructors(t *testing.T) {
	t.Run("TypeMismatch", func(t *testing.T) {
		err := TypeMismatch(PhaseMarshal, []string{"field"}, "int", "BSTR")
		if err.Kind != KindTypeMismatch {
			t.Errorf("Kind = %v, want %v", err.Kind, KindTypeMismatch)
		}
		if err.GoType != "int" || err.ComType != "BSTR" {
			t.Errorf("GoType=%v ComType=%v", err.GoType, err.ComType)
		}
	})

	t.Run("InvalidUTF8", func(t *testing.T) {
		err := InvalidUTF8(PhaseUnmarshal, []string{"str"}, []byte{0xff, 0xfe})
		if err.Kind != KindInvalidUTF8 {
			t.Errorf("Kind = %v, want %v", err.Kind, KindInvalidUTF8)
		}
		if !strings.Contains(err.Detail, "fffe") {
			t.Errorf("Detail = %v, should contain bytes", err.Detail)
		}
	})

	t.Run("AllocationFailed", func(t *testing.T) {
		err := AllocationFailed(PhaseMarshal, 1024, 8)
		if err.Kind != KindAllocation {
			t.Errorf("Kind = %v, want %v", err.Kind, KindAllocation)
		}
		if !strings.Contains(err.Detail, "1024") {
			t.Errorf("Detail = %v, should contain size", err.Detail)
		}
	})

	t.Run("InvalidDiscriminant", func(t *testing.T) {
		err := InvalidDiscriminant(PhaseUnmarshal, []string{"variant"}, 99, "VARIANT")
		if err.Kind != KindInvalidVariant {
			t.Errorf("Kind = %v, want %v", err.Kind, KindInvalidVariant)
		}
		if err.Value != uint32(99) {
			t.Errorf("Value = %v, want 99", err.Value)
		}
	})

	t.Run("OutOfBounds", func(t *testing.T) {
		err := OutOfBounds(PhaseUnmarshal, []string{"list"}, 10, 5)
		if err.Value != 10 {
			t.Errorf("Value = %v, want 10", err.Value)
		}
	})

	t.Run("NilPointer", func(t *testing.T) {
		err := NilPointer(PhaseDispatch, []string{"out"}, "*float64")
		if err.GoType != "*float64" {
			t.Errorf("GoType = %v, want '*float64'", err.GoType)
		}
		if err.HRESULT() != hresult.E_POINTER {
			t.Errorf("HRESULT = %v", err.HRESULT())
		}
	})

	t.Run("Overflow", func(t *testing.T) {
		err := Overflow(PhaseMarshal, []string{"val"}, 300, "uint8")
		if err.Value != 300 {
			t.Errorf("Value = %v, want 300", err.Value)
		}
	})

	t.Run("NoInterface", func(t *testing.T) {
		err := NoInterface("IMath")
		if err.Phase != PhaseQuery || err.Kind != KindNoInterface {
			t.Errorf("unexpected %v/%v", err.Phase, err.Kind)
		}
	})

	t.Run("Duplicate", func(t *testing.T) {
		err := Duplicate("interface", "IMath")
		if !strings.Contains(err.Error(), `"IMath" declared twice`) {
			t.Errorf("Error() = %s", err.Error())
		}
	})
}

func TestComError(t *testing.T) {
	t.Run("code only", func(t *testing.T) {
		err := NewComError(hresult.E_NOTIMPL)
		if err.Error() != "COM error E_NOTIMPL" {
			t.Errorf("Error() = %q", err.Error())
		}
		if err.Description() != "" {
			t.Errorf("Description() = %q", err.Description())
		}
	})

	t.Run("with description", func(t *testing.T) {
		err := Fail(hresult.E_INVALIDARG, "boom %d", 7)
		if err.Description() != "boom 7" {
			t.Errorf("Description() = %q", err.Description())
		}
		if !strings.Contains(err.Error(), "E_INVALIDARG") {
			t.Errorf("Error() = %q", err.Error())
		}
	})

	t.Run("errors.Is by code", func(t *testing.T) {
		err := fmt.Errorf("wrapped: %w", Fail(hresult.E_ABORT, "stop"))
		if !errors.Is(err, NewComError(hresult.E_ABORT)) {
			t.Error("errors.Is should match by code")
		}
		if errors.Is(err, NewComError(hresult.E_FAIL)) {
			t.Error("errors.Is should not match a different code")
		}
	})
}

type coded struct{ hr hresult.HRESULT }

func (c coded) Error() string { return "coded failure" }
func (c coded) HRESULT() hresult.HRESULT { return c.hr }

func TestToComError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode hresult.HRESULT
		wantDesc string
	}{
		{"com error passes", Fail(hresult.E_ABORT, "boom"), hresult.E_ABORT, "boom"},
		{"wrapped com error", fmt.Errorf("ctx: %w", Fail(hresult.E_ABORT, "boom")), hresult.E_ABORT, "boom"},
		{"structured error", NilPointer(PhaseDispatch, nil, "*int"), hresult.E_POINTER, "[dispatch] nil_pointer: Go type *int - nil pointer"},
		{"hresult reporter", coded{hresult.E_ACCESSDENIED}, hresult.E_ACCESSDENIED, "coded failure"},
		{"success code coerced", coded{hresult.S_FALSE}, hresult.E_FAIL, "coded failure"},
		{"plain error", errors.New("plain"), hresult.E_FAIL, "plain"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ce := ToComError(tt.err)
			if ce.Code != tt.wantCode {
				t.Errorf("Code = %v, want %v", ce.Code, tt.wantCode)
			}
			if ce.Description() != tt.wantDesc {
				t.Errorf("Description = %q, want %q", ce.Description(), tt.wantDesc)
			}
		})
	}

	if ToComError(nil) != nil {
		t.Error("ToComError(nil) should be nil")
	}
	if Code(nil) != hresult.S_OK {
		t.Error("Code(nil) should be S_OK")
	}
	if Code(errors.New("x")) != hresult.E_FAIL {
		t.Error("Code(plain) should be E_FAIL")
	}
}
