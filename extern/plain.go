package extern

import (
	"reflect"
	"unsafe"

	"github.com/wippyai/com-runtime/errors"
	"github.com/wippyai/com-runtime/internal/layout"
)

// plainConverter copies pointer-free structs byte for byte. The Go layout
// must equal the C layout; newPlainConverter refuses anything else.
// Plain values are always passed by address.
type plainConverter struct {
	goType reflect.Type
	name   string
	size   uintptr
}

func newPlainConverter(t reflect.Type, name string, calc *layout.Calculator) (*plainConverter, error) {
	if err := calc.Verify(t); err != nil {
		return nil, errors.New(errors.PhaseRegistration, errors.KindUnsupported).
			GoType(t.String()).
			Cause(err).
			Detail("struct has no C equivalent").
			Build()
	}
	if name == "" {
		name = t.String()
	}
	return &plainConverter{goType: t, name: name, size: t.Size()}, nil
}

func (c *plainConverter) GoType() reflect.Type { return c.goType }
func (c *plainConverter) ForeignName() string { return c.name }
func (c *plainConverter) Size() uintptr { return c.size }
func (c *plainConverter) ByRef() bool { return true }

func (c *plainConverter) LowerArg(v reflect.Value, al *AllocationList) (uintptr, error) {
	size := max(c.size, 1)
	p, err := al.Alloc(size)
	if err != nil {
		return 0, err
	}
	copyBytes(Ptr(p), c.addressOf(v), c.size)
	return p, nil
}

func (c *plainConverter) LiftArg(w uintptr) (reflect.Value, error) {
	if w == 0 {
		return reflect.Value{}, errors.NilPointer(errors.PhaseUnmarshal, nil, c.goType.String())
	}
	return c.LiftOut(Ptr(w))
}

func (c *plainConverter) LowerOut(v reflect.Value, dst unsafe.Pointer) error {
	copyBytes(dst, c.addressOf(v), c.size)
	return nil
}

func (c *plainConverter) LiftOut(src unsafe.Pointer) (reflect.Value, error) {
	out := reflect.New(c.goType)
	copyBytes(out.UnsafePointer(), src, c.size)
	return out.Elem(), nil
}

func (c *plainConverter) FreeOut(unsafe.Pointer) {}

func (c *plainConverter) ZeroOut(dst unsafe.Pointer) {
	zeroBytes(dst, c.size)
}

// addressOf returns a pointer to a copy of v when v is not addressable.
func (c *plainConverter) addressOf(v reflect.Value) unsafe.Pointer {
	if v.CanAddr() {
		return v.Addr().UnsafePointer()
	}
	tmp := reflect.New(c.goType)
	tmp.Elem().Set(v)
	return tmp.UnsafePointer()
}

func copyBytes(dst, src unsafe.Pointer, size uintptr) {
	if size == 0 {
		return
	}
	copy(unsafe.Slice((*byte)(dst), size), unsafe.Slice((*byte)(src), size))
}
