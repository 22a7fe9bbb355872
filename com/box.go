package com

import (
	"fmt"
	"math"
	"reflect"
	"runtime"
	"sync/atomic"
	"unsafe"

	"github.com/wippyai/com-runtime/errors"
	"github.com/wippyai/com-runtime/extern"
	"github.com/wippyai/com-runtime/guid"
	"github.com/wippyai/com-runtime/registry"
	"github.com/wippyai/com-runtime/typesystem"
)

// destroyedCount marks an object whose count reached zero. Neither AddRef
// nor Release ever moves a count away from it.
const destroyedCount = math.MaxUint32

// finalReleaser is implemented by values that must act when their object
// is destroyed.
type finalReleaser interface {
	finalRelease()
}

// liveObject keeps a referenced object reachable and at a fixed address
// while foreign code holds integer pointers to it.
type liveObject struct {
	base   unsafe.Pointer
	pinner runtime.Pinner
}

// addRef increments the count of the object at base. The 0 to 1 transition
// registers the object as live.
func (c *Class) addRef(base unsafe.Pointer) uint32 {
	rc := c.box.RefCount(base)
	for {
		cur := atomic.LoadUint32(rc)
		switch cur {
		case destroyedCount:
			violate("AddRef", uintptr(base), "object already destroyed")
		case destroyedCount - 1:
			violate("AddRef", uintptr(base), "reference count overflow")
		}
		n := cur + 1
		if !atomic.CompareAndSwapUint32(rc, cur, n) {
			continue
		}
		if n == 1 {
			c.activate(base)
		} else {
			c.objects.RefChanged(uintptr(base), registry.EventAddRef, n)
		}
		return n
	}
}

func (c *Class) activate(base unsafe.Pointer) {
	o := &liveObject{base: base}
	o.pinner.Pin(base)
	if _, err := c.objects.Insert(uintptr(base), c.Decl.Name, c.valueOf(base).Interface(), o); err != nil {
		o.pinner.Unpin()
		violate("AddRef", uintptr(base), err.Error())
	}
	c.lib.live.Add(1)
	Logger().Debug("object live", zapClass(c), zapAddr(uintptr(base)))
}

// release decrements the count of the object at base and destroys it when
// the count reaches zero. Releasing at zero is a protocol violation.
func (c *Class) release(base unsafe.Pointer) uint32 {
	rc := c.box.RefCount(base)
	for {
		cur := atomic.LoadUint32(rc)
		switch cur {
		case 0:
			violate("Release", uintptr(base), "reference count is already zero")
		case destroyedCount:
			violate("Release", uintptr(base), "object already destroyed")
		}
		next := cur - 1
		if next == 0 {
			next = destroyedCount
		}
		if !atomic.CompareAndSwapUint32(rc, cur, next) {
			continue
		}
		if cur == 1 {
			c.destroy(base)
			return 0
		}
		c.objects.RefChanged(uintptr(base), registry.EventRelease, next)
		return next
	}
}

func (c *Class) destroy(base unsafe.Pointer) {
	e, ok := c.objects.Remove(uintptr(base))
	if !ok {
		violate("Release", uintptr(base), "object was never registered")
	}
	if fr, ok := c.valueOf(base).Interface().(finalReleaser); ok {
		fr.finalRelease()
	}
	if o, ok := e.Keep.(*liveObject); ok {
		o.pinner.Unpin()
	}
	c.lib.live.Add(-1)
	Logger().Debug("object destroyed", zapClass(c), zapAddr(uintptr(base)))
}

// refCount reads the current count. A destroyed object reports zero.
func (c *Class) refCount(base unsafe.Pointer) uint32 {
	n := atomic.LoadUint32(c.box.RefCount(base))
	if n == destroyedCount {
		return 0
	}
	return n
}

// Box is an in-process handle to an object. It does not own a reference:
// a freshly constructed object has a count of zero until the first AddRef
// or successful QueryInterface.
type Box[T any] struct {
	class *Class
	base  unsafe.Pointer
}

// New constructs an object holding v. T must be declared as a class of lib.
func New[T any](lib *Library, v T) (*Box[T], error) {
	c, err := lib.classFor(reflect.TypeFor[T]())
	if err != nil {
		return nil, err
	}
	return &Box[T]{class: c, base: c.newObject(reflect.ValueOf(v))}, nil
}

// BoxFromPointer recovers the object behind an interface pointer vended by
// a class of lib. The pointer's vtable identifies the slot, so any of the
// object's interface pointers works.
func BoxFromPointer[T any](lib *Library, ptr uintptr) (*Box[T], error) {
	c, err := lib.classFor(reflect.TypeFor[T]())
	if err != nil {
		return nil, err
	}
	base, ok := c.baseOf(ptr)
	if !ok {
		return nil, errors.InvalidInput(errors.PhaseQuery,
			fmt.Sprintf("%#x is not an interface pointer of class %s", ptr, c.Decl.Name))
	}
	return &Box[T]{class: c, base: base}, nil
}

// BoxFromValue recovers the object holding *v by subtracting the value
// offset. v must point into an object built by New or the class factory;
// nothing checks this.
func BoxFromValue[T any](lib *Library, v *T) (*Box[T], error) {
	c, err := lib.classFor(reflect.TypeFor[T]())
	if err != nil {
		return nil, err
	}
	base := c.box.BaseFromValue(uintptr(unsafe.Pointer(v)))
	return &Box[T]{class: c, base: extern.Ptr(base)}, nil
}

// Value returns the contained value.
func (b *Box[T]) Value() *T {
	return (*T)(b.class.box.Value(b.base))
}

// Addr returns the object address, which is also its IUnknown pointer.
func (b *Box[T]) Addr() uintptr {
	return uintptr(b.base)
}

// Class returns the object's class.
func (b *Box[T]) Class() *Class {
	return b.class
}

// AddRef increments the reference count and returns the new count.
func (b *Box[T]) AddRef() uint32 {
	return b.class.addRef(b.base)
}

// Release decrements the reference count and returns the new count. The
// object is destroyed when it reaches zero; releasing again panics with a
// *ProtocolViolation.
func (b *Box[T]) Release() uint32 {
	return b.class.release(b.base)
}

// RefCount returns the current reference count.
func (b *Box[T]) RefCount() uint32 {
	return b.class.refCount(b.base)
}

// Live reports whether the object holds at least one reference.
func (b *Box[T]) Live() bool {
	return b.class.objects.Contains(uintptr(b.base))
}

// QueryInterface returns an owned pointer to the interface iid.
func (b *Box[T]) QueryInterface(iid guid.GUID) (uintptr, error) {
	ptr, ok := b.class.queryInterface(b.base, iid)
	if !ok {
		return 0, errors.NoInterface(iid.String())
	}
	return ptr, nil
}

// Pointer returns a borrowed pointer to itf's ts vtable slot without
// touching the reference count.
func (b *Box[T]) Pointer(itf *Interface, ts typesystem.TypeSystem) (uintptr, bool) {
	i, ok := b.class.slotOf[slotKey{itf, ts}]
	if !ok {
		return 0, false
	}
	return b.class.slotAddr(b.base, i), true
}

func (b *Box[T]) String() string {
	return fmt.Sprintf("%s@%#x", b.class.Decl.Name, uintptr(b.base))
}
