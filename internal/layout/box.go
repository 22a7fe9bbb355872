package layout

import (
	"fmt"
	"reflect"
	"unsafe"
)

// Box describes one class's object allocation:
//
//	struct {
//		Vtbl0 ... VtblN uintptr // vtable list, Vtbl0 is the root slot
//		RefCount uint32
//		Value    T
//	}
//
// Offsets are taken from the derived struct type, so they are exactly what
// the Go compiler uses for allocations of that type.
type Box struct {
	Type           reflect.Type
	SlotOffsets    []uintptr
	RefCountOffset uintptr
	ValueOffset    uintptr
}

// NewBox derives the box layout for a class with the given number of
// vtable-list slots holding a value of type value.
func NewBox(slots int, value reflect.Type) (*Box, error) {
	if slots < 1 {
		return nil, fmt.Errorf("box needs at least the root slot, got %d", slots)
	}
	if value == nil {
		return nil, fmt.Errorf("box value type is nil")
	}

	fields := make([]reflect.StructField, 0, slots+2)
	for i := 0; i < slots; i++ {
		fields = append(fields, reflect.StructField{
			Name: fmt.Sprintf("Vtbl%d", i),
			Type: reflect.TypeOf(uintptr(0)),
		})
	}
	fields = append(fields,
		reflect.StructField{Name: "RefCount", Type: reflect.TypeOf(uint32(0))},
		reflect.StructField{Name: "Value", Type: value},
	)

	typ := reflect.StructOf(fields)
	b := &Box{
		Type:        typ,
		SlotOffsets: make([]uintptr, slots),
	}
	for i := 0; i < slots; i++ {
		b.SlotOffsets[i] = typ.Field(i).Offset
	}
	b.RefCountOffset = typ.Field(slots).Offset
	b.ValueOffset = typ.Field(slots + 1).Offset
	return b, nil
}

// Slots returns the number of vtable-list slots.
func (b *Box) Slots() int {
	return len(b.SlotOffsets)
}

// Size returns the allocation size.
func (b *Box) Size() uintptr {
	return b.Type.Size()
}

// New allocates a zeroed box and returns a pointer to its first byte.
func (b *Box) New() unsafe.Pointer {
	return reflect.New(b.Type).UnsafePointer()
}

// Slot returns a pointer to vtable-list slot i of the box at base.
func (b *Box) Slot(base unsafe.Pointer, i int) *uintptr {
	return (*uintptr)(unsafe.Add(base, b.SlotOffsets[i]))
}

// RefCount returns a pointer to the reference count of the box at base.
func (b *Box) RefCount(base unsafe.Pointer) *uint32 {
	return (*uint32)(unsafe.Add(base, b.RefCountOffset))
}

// Value returns a pointer to the value of the box at base.
func (b *Box) Value(base unsafe.Pointer) unsafe.Pointer {
	return unsafe.Add(base, b.ValueOffset)
}

// BaseFromSlot maps the address of slot i back to the start of the box.
func (b *Box) BaseFromSlot(slotAddr uintptr, i int) uintptr {
	return slotAddr - b.SlotOffsets[i]
}

// BaseFromValue maps the address of the value back to the start of the box.
func (b *Box) BaseFromValue(valueAddr uintptr) uintptr {
	return valueAddr - b.ValueOffset
}
