package layout

import (
	"fmt"
	"reflect"
	"sync"
)

// Info is the C layout of a type.
type Info struct {
	FieldOffs []uintptr
	Size      uintptr
	Align     uintptr
}

// AlignTo rounds offset up to the next multiple of align.
func AlignTo(offset, align uintptr) uintptr {
	if align <= 1 {
		return offset
	}
	return (offset + align - 1) &^ (align - 1)
}

// Calculator computes C layouts for plain data types and caches them.
type Calculator struct {
	cache map[reflect.Type]Info
	mu    sync.Mutex
}

func NewCalculator() *Calculator {
	return &Calculator{
		cache: make(map[reflect.Type]Info),
	}
}

// Calculate returns the layout a C compiler would give the equivalent
// declaration. Only fixed-size scalars, arrays and structs of those have a
// C equivalent; anything holding Go pointers is rejected.
func (c *Calculator) Calculate(t reflect.Type) (Info, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.calculate(t)
}

func (c *Calculator) calculate(t reflect.Type) (Info, error) {
	if cached, ok := c.cache[t]; ok {
		return cached, nil
	}

	var info Info
	switch t.Kind() {
	case reflect.Bool, reflect.Int8, reflect.Uint8:
		info = Info{Size: 1, Align: 1}
	case reflect.Int16, reflect.Uint16:
		info = Info{Size: 2, Align: 2}
	case reflect.Int32, reflect.Uint32, reflect.Float32:
		info = Info{Size: 4, Align: 4}
	case reflect.Int64, reflect.Uint64, reflect.Float64:
		info = Info{Size: 8, Align: 8}
	case reflect.Int, reflect.Uint, reflect.Uintptr:
		info = Info{Size: t.Size(), Align: t.Size()}
	case reflect.Array:
		elem, err := c.calculate(t.Elem())
		if err != nil {
			return Info{}, err
		}
		info = Info{Size: elem.Size * uintptr(t.Len()), Align: elem.Align}
	case reflect.Struct:
		var err error
		info, err = c.calculateStruct(t)
		if err != nil {
			return Info{}, err
		}
	default:
		return Info{}, fmt.Errorf("type %s has no C layout", t)
	}

	c.cache[t] = info
	return info, nil
}

func (c *Calculator) calculateStruct(t reflect.Type) (Info, error) {
	n := t.NumField()
	if n == 0 {
		return Info{Size: 0, Align: 1}, nil
	}

	fieldOffs := make([]uintptr, n)
	maxAlign := uintptr(1)
	offset := uintptr(0)

	for i := 0; i < n; i++ {
		f := t.Field(i)
		fieldLayout, err := c.calculate(f.Type)
		if err != nil {
			return Info{}, fmt.Errorf("field %s.%s: %w", t.Name(), f.Name, err)
		}

		offset = AlignTo(offset, fieldLayout.Align)
		fieldOffs[i] = offset

		if fieldLayout.Align > maxAlign {
			maxAlign = fieldLayout.Align
		}

		offset += fieldLayout.Size
	}

	return Info{
		Size:      AlignTo(offset, maxAlign),
		Align:     maxAlign,
		FieldOffs: fieldOffs,
	}, nil
}

// Verify checks that Go lays t out exactly like C does, so a pointer to a Go
// value can be handed to foreign code as-is.
func (c *Calculator) Verify(t reflect.Type) error {
	info, err := c.Calculate(t)
	if err != nil {
		return err
	}
	if info.Size != t.Size() {
		return fmt.Errorf("type %s: C size %d, Go size %d", t, info.Size, t.Size())
	}
	if t.Kind() == reflect.Struct {
		for i, off := range info.FieldOffs {
			f := t.Field(i)
			if f.Offset != off {
				return fmt.Errorf("field %s.%s: C offset %d, Go offset %d", t.Name(), f.Name, off, f.Offset)
			}
		}
	}
	return nil
}
