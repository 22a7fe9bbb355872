package extern

import (
	"math"
	"reflect"
	"unsafe"

	"github.com/wippyai/com-runtime/hresult"
	"github.com/wippyai/com-runtime/typesystem"
)

// scalarConverter handles every fixed-size value that fits a word. Named
// types (HRESULT, enums) reuse the converter of their kind.
type scalarConverter struct {
	goType reflect.Type
	name   string
	size   uintptr
	lower  func(v reflect.Value) uintptr
	lift   func(w uintptr, out reflect.Value)
}

var hresultType = reflect.TypeFor[hresult.HRESULT]()

func newScalarConverter(t reflect.Type, ts typesystem.TypeSystem) *scalarConverter {
	c := &scalarConverter{goType: t}

	switch t.Kind() {
	case reflect.Bool:
		if ts == typesystem.Automation {
			c.name, c.size = "VARIANT_BOOL", 2
			c.lower = func(v reflect.Value) uintptr {
				if v.Bool() {
					return 0xFFFF
				}
				return 0
			}
			c.lift = func(w uintptr, out reflect.Value) { out.SetBool(uint16(w) != 0) }
		} else {
			c.name, c.size = "bool", 1
			c.lower = func(v reflect.Value) uintptr {
				if v.Bool() {
					return 1
				}
				return 0
			}
			c.lift = func(w uintptr, out reflect.Value) { out.SetBool(uint8(w) != 0) }
		}

	case reflect.Int8:
		c.name, c.size = "signed char", 1
		c.lower = lowerInt
		c.lift = func(w uintptr, out reflect.Value) { out.SetInt(int64(int8(w))) }
	case reflect.Int16:
		c.name, c.size = "short", 2
		c.lower = lowerInt
		c.lift = func(w uintptr, out reflect.Value) { out.SetInt(int64(int16(w))) }
	case reflect.Int32:
		c.name, c.size = "long", 4
		c.lower = lowerInt
		c.lift = func(w uintptr, out reflect.Value) { out.SetInt(int64(int32(w))) }
	case reflect.Int64, reflect.Int:
		c.name, c.size = "hyper", 8
		c.lower = lowerInt
		c.lift = func(w uintptr, out reflect.Value) { out.SetInt(int64(w)) }

	case reflect.Uint8:
		c.name, c.size = "unsigned char", 1
		c.lower = lowerUint
		c.lift = func(w uintptr, out reflect.Value) { out.SetUint(uint64(uint8(w))) }
	case reflect.Uint16:
		c.name, c.size = "unsigned short", 2
		c.lower = lowerUint
		c.lift = func(w uintptr, out reflect.Value) { out.SetUint(uint64(uint16(w))) }
	case reflect.Uint32:
		c.name, c.size = "unsigned long", 4
		c.lower = lowerUint
		c.lift = func(w uintptr, out reflect.Value) { out.SetUint(uint64(uint32(w))) }
	case reflect.Uint64, reflect.Uint:
		c.name, c.size = "unsigned hyper", 8
		c.lower = lowerUint
		c.lift = func(w uintptr, out reflect.Value) { out.SetUint(uint64(w)) }
	case reflect.Uintptr:
		c.name, c.size = "ULONG_PTR", 8
		c.lower = lowerUint
		c.lift = func(w uintptr, out reflect.Value) { out.SetUint(uint64(w)) }

	case reflect.Float32:
		c.name, c.size = "float", 4
		c.lower = func(v reflect.Value) uintptr { return uintptr(math.Float32bits(float32(v.Float()))) }
		c.lift = func(w uintptr, out reflect.Value) { out.SetFloat(float64(math.Float32frombits(uint32(w)))) }
	case reflect.Float64:
		c.name, c.size = "double", 8
		c.lower = func(v reflect.Value) uintptr { return uintptr(math.Float64bits(v.Float())) }
		c.lift = func(w uintptr, out reflect.Value) { out.SetFloat(math.Float64frombits(uint64(w))) }

	default:
		return nil
	}

	if t == hresultType {
		c.name = "HRESULT"
	}
	return c
}

func lowerInt(v reflect.Value) uintptr { return uintptr(v.Int()) }
func lowerUint(v reflect.Value) uintptr { return uintptr(v.Uint()) }

func (c *scalarConverter) GoType() reflect.Type { return c.goType }
func (c *scalarConverter) ForeignName() string { return c.name }
func (c *scalarConverter) Size() uintptr { return c.size }
func (c *scalarConverter) ByRef() bool { return false }

func (c *scalarConverter) LowerArg(v reflect.Value, _ *AllocationList) (uintptr, error) {
	return c.lower(v), nil
}

func (c *scalarConverter) LiftArg(w uintptr) (reflect.Value, error) {
	out := reflect.New(c.goType).Elem()
	c.lift(w, out)
	return out, nil
}

func (c *scalarConverter) LowerOut(v reflect.Value, dst unsafe.Pointer) error {
	writeWord(dst, c.size, c.lower(v))
	return nil
}

func (c *scalarConverter) LiftOut(src unsafe.Pointer) (reflect.Value, error) {
	return c.LiftArg(readWord(src, c.size))
}

func (c *scalarConverter) FreeOut(unsafe.Pointer) {}

func (c *scalarConverter) ZeroOut(dst unsafe.Pointer) {
	zeroBytes(dst, c.size)
}
