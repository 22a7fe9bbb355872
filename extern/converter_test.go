package extern

import (
	stderrors "errors"
	"math"
	"reflect"
	"testing"
	"unsafe"

	"github.com/wippyai/com-runtime/errors"
	"github.com/wippyai/com-runtime/guid"
	"github.com/wippyai/com-runtime/hresult"
	"github.com/wippyai/com-runtime/typesystem"
)

type mode int32

type point struct {
	X, Y int32
	Tag  uint8
	_    [7]byte
}

func TestScalarConverters(t *testing.T) {
	tests := []struct {
		value any
		ts    typesystem.TypeSystem
		name  string
		size  uintptr
		word  uintptr
	}{
		{true, typesystem.Automation, "VARIANT_BOOL", 2, 0xFFFF},
		{false, typesystem.Automation, "VARIANT_BOOL", 2, 0},
		{true, typesystem.Raw, "bool", 1, 1},
		{int8(-5), typesystem.Raw, "signed char", 1, uintptr(math.MaxUint64 - 4)},
		{int16(-300), typesystem.Automation, "short", 2, uintptr(math.MaxUint64 - 299)},
		{int32(-7), typesystem.Raw, "long", 4, uintptr(math.MaxUint64 - 6)},
		{int64(1 << 40), typesystem.Raw, "hyper", 8, 1 << 40},
		{uint8(200), typesystem.Raw, "unsigned char", 1, 200},
		{uint16(65535), typesystem.Raw, "unsigned short", 2, 65535},
		{uint32(1 << 31), typesystem.Automation, "unsigned long", 4, 1 << 31},
		{uint64(math.MaxUint64), typesystem.Raw, "unsigned hyper", 8, math.MaxUint64},
		{float32(1.5), typesystem.Raw, "float", 4, uintptr(math.Float32bits(1.5))},
		{float64(-2.25), typesystem.Automation, "double", 8, uintptr(math.Float64bits(-2.25))},
		{hresult.E_FAIL, typesystem.Automation, "HRESULT", 4, 0xFFFF_FFFF_8000_4005},
		{mode(3), typesystem.Raw, "long", 4, 3},
	}

	for _, tt := range tests {
		t.Run(reflect.TypeOf(tt.value).String()+"/"+tt.ts.String(), func(t *testing.T) {
			c, err := Lookup(reflect.TypeOf(tt.value), tt.ts)
			if err != nil {
				t.Fatal(err)
			}
			if c.ForeignName() != tt.name || c.Size() != tt.size || c.ByRef() {
				t.Errorf("converter = %s/%d/%v", c.ForeignName(), c.Size(), c.ByRef())
			}

			w, err := c.LowerArg(reflect.ValueOf(tt.value), nil)
			if err != nil {
				t.Fatal(err)
			}
			if w != tt.word {
				t.Errorf("word = %#x, want %#x", w, tt.word)
			}
			v, err := c.LiftArg(w)
			if err != nil {
				t.Fatal(err)
			}
			if v.Interface() != tt.value {
				t.Errorf("LiftArg = %v, want %v", v, tt.value)
			}

			// Only the low Size bytes of a slot belong to the value.
			slot := uint64(math.MaxUint64)
			c.ZeroOut(unsafe.Pointer(&slot))
			if tt.size < 8 && slot>>(tt.size*8) == 0 {
				t.Errorf("ZeroOut touched bytes beyond size %d", tt.size)
			}
			if err := c.LowerOut(reflect.ValueOf(tt.value), unsafe.Pointer(&slot)); err != nil {
				t.Fatal(err)
			}
			v, err = c.LiftOut(unsafe.Pointer(&slot))
			if err != nil {
				t.Fatal(err)
			}
			if v.Interface() != tt.value {
				t.Errorf("LiftOut = %v, want %v", v, tt.value)
			}
		})
	}
}

func TestLiftIgnoresHighBits(t *testing.T) {
	c, err := Lookup(reflect.TypeFor[bool](), typesystem.Raw)
	if err != nil {
		t.Fatal(err)
	}
	v, _ := c.LiftArg(0xFF00)
	if v.Bool() {
		t.Error("bits above the value size must be ignored")
	}

	c, _ = Lookup(reflect.TypeFor[int16](), typesystem.Raw)
	v, _ = c.LiftArg(0xABCD_FFFE)
	if v.Int() != -2 {
		t.Errorf("int16 lift = %d", v.Int())
	}
}

func TestLookupCachesAndRejects(t *testing.T) {
	a, err := Lookup(reflect.TypeFor[int32](), typesystem.Raw)
	if err != nil {
		t.Fatal(err)
	}
	b, _ := Lookup(reflect.TypeFor[int32](), typesystem.Raw)
	if a != b {
		t.Error("converters should be cached")
	}

	unsupported := []reflect.Type{
		nil,
		reflect.TypeFor[[]int32](),
		reflect.TypeFor[map[string]int](),
		reflect.TypeFor[*int32](),
		reflect.TypeFor[struct{ S string }](),
		reflect.TypeFor[struct{ P *int32 }](),
	}
	for _, typ := range unsupported {
		if _, err := Lookup(typ, typesystem.Automation); err == nil {
			t.Errorf("Lookup(%v) should fail", typ)
		}
	}
}

func TestFactoryTakesPrecedence(t *testing.T) {
	type handle uint32
	tb := NewTable()
	calls := 0
	tb.RegisterFactory(func(typ reflect.Type, ts typesystem.TypeSystem) (Converter, error) {
		calls++
		if typ != reflect.TypeFor[handle]() {
			return nil, nil
		}
		c := newScalarConverter(typ, ts)
		c.name = "HANDLE"
		return c, nil
	})

	c, err := tb.Lookup(reflect.TypeFor[handle](), typesystem.Raw)
	if err != nil {
		t.Fatal(err)
	}
	if c.ForeignName() != "HANDLE" {
		t.Errorf("factory not used: %s", c.ForeignName())
	}
	if c, _ := tb.Lookup(reflect.TypeFor[uint32](), typesystem.Raw); c.ForeignName() != "unsigned long" {
		t.Errorf("fallthrough broken: %s", c.ForeignName())
	}
	if calls != 2 {
		t.Errorf("factory called %d times", calls)
	}
}

func TestPlainConverter(t *testing.T) {
	h := useHeap(t)

	c, err := Lookup(reflect.TypeFor[point](), typesystem.Raw)
	if err != nil {
		t.Fatal(err)
	}
	if !c.ByRef() || c.Size() != 16 {
		t.Errorf("point converter ByRef=%v Size=%d", c.ByRef(), c.Size())
	}

	in := point{X: -1, Y: 42, Tag: 7}
	al := NewAllocationList()
	w, err := c.LowerArg(reflect.ValueOf(in), al)
	if err != nil {
		t.Fatal(err)
	}
	if al.Count() != 1 {
		t.Errorf("lease should hold the copy")
	}
	v, err := c.LiftArg(w)
	if err != nil {
		t.Fatal(err)
	}
	if v.Interface().(point) != in {
		t.Errorf("LiftArg = %+v", v)
	}
	al.FreeAndRelease(h)
	assertNoLeaks(t, h)

	if _, err := c.LiftArg(0); err == nil {
		t.Error("null struct pointer should fail")
	}
}

func TestGUIDConverter(t *testing.T) {
	id := guid.MustParse("{6B29FC40-CA47-1067-B31D-00DD010662DA}")
	c, err := Lookup(reflect.TypeFor[guid.GUID](), typesystem.Automation)
	if err != nil {
		t.Fatal(err)
	}
	if c.ForeignName() != "GUID" || c.Size() != 16 {
		t.Errorf("GUID converter %s/%d", c.ForeignName(), c.Size())
	}

	var slot [16]byte
	if err := c.LowerOut(reflect.ValueOf(id), unsafe.Pointer(&slot)); err != nil {
		t.Fatal(err)
	}
	// Data1 is stored in native (little-endian) order.
	if slot[0] != 0x40 || slot[3] != 0x6B || slot[8] != 0xB3 {
		t.Errorf("unexpected GUID bytes % x", slot)
	}
	v, _ := c.LiftOut(unsafe.Pointer(&slot))
	if v.Interface().(guid.GUID) != id {
		t.Errorf("LiftOut = %v", v)
	}
}

func TestReturnHelpers(t *testing.T) {
	h := useHeap(t)

	c, _ := Lookup(reflect.TypeFor[string](), typesystem.Automation)
	w, err := LowerReturn(c, reflect.ValueOf("direct"))
	if err != nil {
		t.Fatal(err)
	}
	if h.Stats().Allocations != 1 {
		t.Error("a direct string return transfers an owned BSTR")
	}
	v, err := LiftReturn(c, w)
	if err != nil {
		t.Fatal(err)
	}
	if v.String() != "direct" {
		t.Errorf("LiftReturn = %q", v.String())
	}
	assertNoLeaks(t, h)

	c, _ = Lookup(reflect.TypeFor[int16](), typesystem.Raw)
	w, _ = LowerReturn(c, reflect.ValueOf(int16(-1)))
	if w != 0xFFFF {
		t.Errorf("int16 return word = %#x", w)
	}
	v, _ = LiftReturn(c, w)
	if v.Int() != -1 {
		t.Errorf("int16 lifted = %d", v.Int())
	}

	c, _ = Lookup(reflect.TypeFor[guid.GUID](), typesystem.Raw)
	_, err = LowerReturn(c, reflect.ValueOf(guid.Zero))
	var e *errors.Error
	if !stderrors.As(err, &e) || e.Kind != errors.KindUnsupported {
		t.Errorf("ByRef direct return should be unsupported, got %v", err)
	}
}
