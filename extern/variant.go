package extern

import (
	"fmt"
	"math"
	"reflect"
	"unsafe"

	"github.com/wippyai/com-runtime/errors"
	"github.com/wippyai/com-runtime/hresult"
	"github.com/wippyai/com-runtime/typesystem"
)

// VarType is the discriminant of a VARIANT.
type VarType uint16

const (
	VT_EMPTY VarType = 0
	VT_NULL  VarType = 1
	VT_I2    VarType = 2
	VT_I4    VarType = 3
	VT_R4    VarType = 4
	VT_R8    VarType = 5
	VT_BSTR  VarType = 8
	VT_ERROR VarType = 10
	VT_BOOL  VarType = 11
	VT_I1    VarType = 16
	VT_UI1   VarType = 17
	VT_UI2   VarType = 18
	VT_UI4   VarType = 19
	VT_I8    VarType = 20
	VT_UI8   VarType = 21
	VT_LPSTR VarType = 30
)

var varTypeNames = map[VarType]string{
	VT_EMPTY: "VT_EMPTY",
	VT_NULL:  "VT_NULL",
	VT_I2:    "VT_I2",
	VT_I4:    "VT_I4",
	VT_R4:    "VT_R4",
	VT_R8:    "VT_R8",
	VT_BSTR:  "VT_BSTR",
	VT_ERROR: "VT_ERROR",
	VT_BOOL:  "VT_BOOL",
	VT_I1:    "VT_I1",
	VT_UI1:   "VT_UI1",
	VT_UI2:   "VT_UI2",
	VT_UI4:   "VT_UI4",
	VT_I8:    "VT_I8",
	VT_UI8:   "VT_UI8",
	VT_LPSTR: "VT_LPSTR",
}

func (vt VarType) String() string {
	if name, ok := varTypeNames[vt]; ok {
		return name
	}
	return fmt.Sprintf("VarType(%d)", uint16(vt))
}

// Valid reports whether vt is a supported discriminant.
func (vt VarType) Valid() bool {
	_, ok := varTypeNames[vt]
	return ok
}

// Variant is a tagged value. Value holds the Go type matching Type:
//
//	VT_EMPTY, VT_NULL   nil
//	VT_I1..VT_I8        int8, int16, int32, int64
//	VT_UI1..VT_UI8      uint8, uint16, uint32, uint64
//	VT_R4, VT_R8        float32, float64
//	VT_BOOL             bool
//	VT_BSTR, VT_LPSTR   string
//	VT_ERROR            hresult.HRESULT
type Variant struct {
	Type  VarType
	Value any
}

// VariantOf wraps a Go value, choosing the string encoding native to ts.
func VariantOf(v any, ts typesystem.TypeSystem) (Variant, error) {
	switch x := v.(type) {
	case nil:
		return Variant{Type: VT_EMPTY}, nil
	case int8:
		return Variant{VT_I1, x}, nil
	case int16:
		return Variant{VT_I2, x}, nil
	case int32:
		return Variant{VT_I4, x}, nil
	case int64:
		return Variant{VT_I8, x}, nil
	case int:
		return Variant{VT_I8, int64(x)}, nil
	case uint8:
		return Variant{VT_UI1, x}, nil
	case uint16:
		return Variant{VT_UI2, x}, nil
	case uint32:
		return Variant{VT_UI4, x}, nil
	case uint64:
		return Variant{VT_UI8, x}, nil
	case float32:
		return Variant{VT_R4, x}, nil
	case float64:
		return Variant{VT_R8, x}, nil
	case bool:
		return Variant{VT_BOOL, x}, nil
	case hresult.HRESULT:
		return Variant{VT_ERROR, x}, nil
	case string:
		if ts == typesystem.Raw {
			return Variant{VT_LPSTR, x}, nil
		}
		return Variant{VT_BSTR, x}, nil
	case Variant:
		return x, nil
	}
	return Variant{}, errors.TypeMismatch(errors.PhaseMarshal, nil, fmt.Sprintf("%T", v), "VARIANT")
}

// Null is the VT_NULL variant.
func Null() Variant {
	return Variant{Type: VT_NULL}
}

func (v Variant) IsEmpty() bool { return v.Type == VT_EMPTY }

func (v Variant) String() string {
	if v.Type == VT_EMPTY || v.Type == VT_NULL {
		return v.Type.String()
	}
	return fmt.Sprintf("%s(%v)", v.Type, v.Value)
}

// Foreign VARIANT layout on 64-bit targets.
const (
	VariantSize        = 24
	variantValueOffset = 8
)

// variantConverter encodes Variant values. Strings inside a variant follow
// the same ownership rules as bare strings.
type variantConverter struct {
	ts typesystem.TypeSystem
}

func (c *variantConverter) GoType() reflect.Type { return variantType }
func (c *variantConverter) ForeignName() string { return "VARIANT" }
func (c *variantConverter) Size() uintptr { return VariantSize }
func (c *variantConverter) ByRef() bool { return true }

func (c *variantConverter) LowerArg(v reflect.Value, al *AllocationList) (uintptr, error) {
	p, err := al.Alloc(VariantSize)
	if err != nil {
		return 0, err
	}
	zeroBytes(Ptr(p), VariantSize)
	owned, err := encodeVariant(v.Interface().(Variant), Ptr(p))
	if err != nil {
		return 0, err
	}
	if owned != 0 {
		al.Add(owned)
	}
	return p, nil
}

func (c *variantConverter) LiftArg(w uintptr) (reflect.Value, error) {
	if w == 0 {
		return reflect.Value{}, errors.NilPointer(errors.PhaseUnmarshal, nil, "VARIANT")
	}
	v, err := decodeVariant(Ptr(w))
	if err != nil {
		return reflect.Value{}, err
	}
	return reflect.ValueOf(v), nil
}

func (c *variantConverter) LowerOut(v reflect.Value, dst unsafe.Pointer) error {
	zeroBytes(dst, VariantSize)
	_, err := encodeVariant(v.Interface().(Variant), dst)
	return err
}

func (c *variantConverter) LiftOut(src unsafe.Pointer) (reflect.Value, error) {
	v, err := decodeVariant(src)
	ClearVariant(src)
	if err != nil {
		return reflect.Value{}, err
	}
	return reflect.ValueOf(v), nil
}

func (c *variantConverter) FreeOut(src unsafe.Pointer) {
	ClearVariant(src)
}

func (c *variantConverter) ZeroOut(dst unsafe.Pointer) {
	zeroBytes(dst, VariantSize)
}

// ClearVariant frees whatever the VARIANT at p owns and resets it to
// VT_EMPTY.
func ClearVariant(p unsafe.Pointer) {
	vt := VarType(*(*uint16)(p))
	word := (*uintptr)(unsafe.Add(p, variantValueOffset))
	switch vt {
	case VT_BSTR:
		FreeBSTR(*word)
	case VT_LPSTR:
		FreeCString(*word)
	}
	zeroBytes(p, VariantSize)
}

// encodeVariant writes v into dst and returns the base address of any
// buffer it allocated, so a lease can track it.
func encodeVariant(v Variant, dst unsafe.Pointer) (uintptr, error) {
	if !v.Type.Valid() {
		return 0, errors.InvalidDiscriminant(errors.PhaseMarshal, nil, uint32(v.Type), "VARIANT")
	}

	val := unsafe.Add(dst, variantValueOffset)
	var (
		word  uintptr
		size  uintptr
		owned uintptr
		ok    = true
	)

	switch v.Type {
	case VT_EMPTY, VT_NULL:
	case VT_I1:
		var x int8
		x, ok = v.Value.(int8)
		word, size = uintptr(x), 1
	case VT_I2:
		var x int16
		x, ok = v.Value.(int16)
		word, size = uintptr(x), 2
	case VT_I4:
		var x int32
		x, ok = v.Value.(int32)
		word, size = uintptr(x), 4
	case VT_I8:
		var x int64
		x, ok = v.Value.(int64)
		word, size = uintptr(x), 8
	case VT_UI1:
		var x uint8
		x, ok = v.Value.(uint8)
		word, size = uintptr(x), 1
	case VT_UI2:
		var x uint16
		x, ok = v.Value.(uint16)
		word, size = uintptr(x), 2
	case VT_UI4:
		var x uint32
		x, ok = v.Value.(uint32)
		word, size = uintptr(x), 4
	case VT_UI8:
		var x uint64
		x, ok = v.Value.(uint64)
		word, size = uintptr(x), 8
	case VT_R4:
		var x float32
		x, ok = v.Value.(float32)
		word, size = uintptr(math.Float32bits(x)), 4
	case VT_R8:
		var x float64
		x, ok = v.Value.(float64)
		word, size = uintptr(math.Float64bits(x)), 8
	case VT_BOOL:
		var x bool
		x, ok = v.Value.(bool)
		if x {
			word = 0xFFFF
		}
		size = 2
	case VT_ERROR:
		var x hresult.HRESULT
		x, ok = v.Value.(hresult.HRESULT)
		word, size = uintptr(x), 4
	case VT_BSTR, VT_LPSTR:
		var s string
		if s, ok = v.Value.(string); !ok {
			break
		}
		var err error
		if v.Type == VT_BSTR {
			word, err = AllocBSTR(s)
			owned = word - bstrPrefix
		} else {
			word, err = AllocCString(s)
			owned = word
		}
		if err != nil {
			return 0, err
		}
		size = ptrSize
	}

	if !ok {
		return 0, errors.TypeMismatch(errors.PhaseMarshal, nil, fmt.Sprintf("%T", v.Value), v.Type.String())
	}

	*(*uint16)(dst) = uint16(v.Type)
	if size > 0 {
		writeWord(val, size, word)
	}
	return owned, nil
}

func decodeVariant(src unsafe.Pointer) (Variant, error) {
	vt := VarType(*(*uint16)(src))
	val := unsafe.Add(src, variantValueOffset)

	switch vt {
	case VT_EMPTY, VT_NULL:
		return Variant{Type: vt}, nil
	case VT_I1:
		return Variant{vt, *(*int8)(val)}, nil
	case VT_I2:
		return Variant{vt, *(*int16)(val)}, nil
	case VT_I4:
		return Variant{vt, *(*int32)(val)}, nil
	case VT_I8:
		return Variant{vt, *(*int64)(val)}, nil
	case VT_UI1:
		return Variant{vt, *(*uint8)(val)}, nil
	case VT_UI2:
		return Variant{vt, *(*uint16)(val)}, nil
	case VT_UI4:
		return Variant{vt, *(*uint32)(val)}, nil
	case VT_UI8:
		return Variant{vt, *(*uint64)(val)}, nil
	case VT_R4:
		return Variant{vt, *(*float32)(val)}, nil
	case VT_R8:
		return Variant{vt, *(*float64)(val)}, nil
	case VT_BOOL:
		return Variant{vt, *(*uint16)(val) != 0}, nil
	case VT_ERROR:
		return Variant{vt, hresult.HRESULT(*(*int32)(val))}, nil
	case VT_BSTR:
		s, err := ReadBSTR(*(*uintptr)(val))
		if err != nil {
			return Variant{}, err
		}
		return Variant{vt, s}, nil
	case VT_LPSTR:
		s, err := ReadCString(*(*uintptr)(val))
		if err != nil {
			return Variant{}, err
		}
		return Variant{vt, s}, nil
	}
	return Variant{}, errors.InvalidDiscriminant(errors.PhaseUnmarshal, nil, uint32(vt), "VARIANT")
}
