package extern

import (
	"reflect"
	"unsafe"
)

// bstrConverter carries strings as BSTRs.
type bstrConverter struct {
	goType reflect.Type
}

func (c *bstrConverter) GoType() reflect.Type { return c.goType }
func (c *bstrConverter) ForeignName() string { return "BSTR" }
func (c *bstrConverter) Size() uintptr { return ptrSize }
func (c *bstrConverter) ByRef() bool { return false }

func (c *bstrConverter) LowerArg(v reflect.Value, al *AllocationList) (uintptr, error) {
	b, err := AllocBSTR(v.String())
	if err != nil {
		return 0, err
	}
	al.Add(b - bstrPrefix)
	return b, nil
}

func (c *bstrConverter) LiftArg(w uintptr) (reflect.Value, error) {
	s, err := ReadBSTR(w)
	if err != nil {
		return reflect.Value{}, err
	}
	return stringValue(c.goType, s), nil
}

func (c *bstrConverter) LowerOut(v reflect.Value, dst unsafe.Pointer) error {
	b, err := AllocBSTR(v.String())
	if err != nil {
		return err
	}
	*(*uintptr)(dst) = b
	return nil
}

func (c *bstrConverter) LiftOut(src unsafe.Pointer) (reflect.Value, error) {
	b := *(*uintptr)(src)
	*(*uintptr)(src) = 0
	s, err := TakeBSTR(b)
	if err != nil {
		return reflect.Value{}, err
	}
	return stringValue(c.goType, s), nil
}

func (c *bstrConverter) FreeOut(src unsafe.Pointer) {
	FreeBSTR(*(*uintptr)(src))
	*(*uintptr)(src) = 0
}

func (c *bstrConverter) ZeroOut(dst unsafe.Pointer) {
	*(*uintptr)(dst) = 0
}

// cstrConverter carries strings as NUL-terminated UTF-8.
type cstrConverter struct {
	goType reflect.Type
}

func (c *cstrConverter) GoType() reflect.Type { return c.goType }
func (c *cstrConverter) ForeignName() string { return "char*" }
func (c *cstrConverter) Size() uintptr { return ptrSize }
func (c *cstrConverter) ByRef() bool { return false }

func (c *cstrConverter) LowerArg(v reflect.Value, al *AllocationList) (uintptr, error) {
	p, err := AllocCString(v.String())
	if err != nil {
		return 0, err
	}
	al.Add(p)
	return p, nil
}

func (c *cstrConverter) LiftArg(w uintptr) (reflect.Value, error) {
	s, err := ReadCString(w)
	if err != nil {
		return reflect.Value{}, err
	}
	return stringValue(c.goType, s), nil
}

func (c *cstrConverter) LowerOut(v reflect.Value, dst unsafe.Pointer) error {
	p, err := AllocCString(v.String())
	if err != nil {
		return err
	}
	*(*uintptr)(dst) = p
	return nil
}

func (c *cstrConverter) LiftOut(src unsafe.Pointer) (reflect.Value, error) {
	p := *(*uintptr)(src)
	*(*uintptr)(src) = 0
	s, err := TakeCString(p)
	if err != nil {
		return reflect.Value{}, err
	}
	return stringValue(c.goType, s), nil
}

func (c *cstrConverter) FreeOut(src unsafe.Pointer) {
	FreeCString(*(*uintptr)(src))
	*(*uintptr)(src) = 0
}

func (c *cstrConverter) ZeroOut(dst unsafe.Pointer) {
	*(*uintptr)(dst) = 0
}

const ptrSize = unsafe.Sizeof(uintptr(0))

func stringValue(t reflect.Type, s string) reflect.Value {
	out := reflect.New(t).Elem()
	out.SetString(s)
	return out
}
