package com

import (
	"reflect"
	"unsafe"

	"github.com/wippyai/com-runtime/errors"
	"github.com/wippyai/com-runtime/extern"
	"github.com/wippyai/com-runtime/typesystem"
)

// itfValue is implemented by Itf[I] and *Rc[I].
type itfValue interface {
	pointers() [typesystem.Count]uintptr
	interfaceType() reflect.Type
}

type itfSetter interface {
	setPointers(ptrs [typesystem.Count]uintptr)
}

type rcValue interface {
	itfValue
	adopt(ptrs [typesystem.Count]uintptr)
	detach() [typesystem.Count]uintptr
	Release() uint32
	Released() bool
}

var (
	itfValueType = reflect.TypeFor[itfValue]()
	rcValueType  = reflect.TypeFor[rcValue]()
)

func isItfType(t reflect.Type) bool {
	return t != nil && t.Kind() == reflect.Struct && t.Implements(itfValueType)
}

func isRcType(t reflect.Type) bool {
	return t != nil && t.Kind() == reflect.Pointer && t.Implements(rcValueType)
}

func init() {
	extern.RegisterFactory(interfaceConverterFactory)
}

// interfaceConverterFactory passes Itf[I] and *Rc[I] across as a single
// interface pointer in the parameter's type system. An Itf argument is
// borrowed; an *Rc output transfers its reference to the receiver.
func interfaceConverterFactory(t reflect.Type, ts typesystem.TypeSystem) (extern.Converter, error) {
	switch {
	case isItfType(t):
		return &itfConverter{t: t, ts: ts, target: reflect.Zero(t).Interface().(itfValue).interfaceType()}, nil
	case isRcType(t):
		return &itfConverter{t: t, ts: ts, target: reflect.Zero(t).Interface().(itfValue).interfaceType(), owned: true}, nil
	}
	return nil, nil
}

type itfConverter struct {
	t      reflect.Type
	target reflect.Type
	ts     typesystem.TypeSystem
	owned  bool
}

func (c *itfConverter) GoType() reflect.Type { return c.t }
func (c *itfConverter) ForeignName() string { return c.target.Name() + "*" }
func (c *itfConverter) Size() uintptr { return ptrSize }
func (c *itfConverter) ByRef() bool { return false }

// ownedPointer returns a new reference to the object behind ptrs in the
// converter's type system, querying across type systems when needed.
func (c *itfConverter) ownedPointer(ptrs [typesystem.Count]uintptr) (uintptr, error) {
	if p := ptrs[c.ts]; p != 0 {
		callAddRef(p)
		return p, nil
	}
	return c.crossQuery(ptrs)
}

func (c *itfConverter) crossQuery(ptrs [typesystem.Count]uintptr) (uintptr, error) {
	other := ptrs[c.ts.Other()]
	if other == 0 {
		return 0, nil
	}
	rt, err := lookupInterface(c.target)
	if err != nil {
		return 0, err
	}
	p, hr := callQueryInterface(other, rt.IID(c.ts))
	if hr.Failed() || p == 0 {
		return 0, errors.NoInterface(rt.Name() + "_" + c.ts.Key())
	}
	return p, nil
}

func (c *itfConverter) LowerArg(v reflect.Value, al *extern.AllocationList) (uintptr, error) {
	ptrs := v.Interface().(itfValue).pointers()
	if p := ptrs[c.ts]; p != 0 {
		return p, nil
	}
	p, err := c.crossQuery(ptrs)
	if err != nil || p == 0 {
		return 0, err
	}
	al.OnFree(func() { callRelease(p) })
	return p, nil
}

func (c *itfConverter) LiftArg(w uintptr) (reflect.Value, error) {
	if c.owned {
		return reflect.Value{}, errors.Unsupported(errors.PhaseUnmarshal, "owned interface as an input")
	}
	return c.wrap(w), nil
}

func (c *itfConverter) wrap(w uintptr) reflect.Value {
	var ptrs [typesystem.Count]uintptr
	ptrs[c.ts] = w
	if c.owned {
		if w == 0 {
			return reflect.Zero(c.t)
		}
		rc := reflect.New(c.t.Elem())
		rc.Interface().(rcValue).adopt(ptrs)
		return rc
	}
	itf := reflect.New(c.t)
	itf.Interface().(itfSetter).setPointers(ptrs)
	return itf.Elem()
}

func (c *itfConverter) LowerOut(v reflect.Value, dst unsafe.Pointer) error {
	if !c.owned {
		p, err := c.ownedPointer(v.Interface().(itfValue).pointers())
		if err != nil {
			return err
		}
		*(*uintptr)(dst) = p
		return nil
	}

	if v.IsNil() {
		*(*uintptr)(dst) = 0
		return nil
	}
	rc := v.Interface().(rcValue)
	if rc.Released() {
		return errors.InvalidInput(errors.PhaseMarshal, "output holds a released reference")
	}
	ptrs := rc.pointers()
	if p := ptrs[c.ts]; p != 0 {
		rc.detach()
		*(*uintptr)(dst) = p
		return nil
	}
	p, err := c.crossQuery(ptrs)
	if err != nil {
		return err
	}
	rc.Release()
	*(*uintptr)(dst) = p
	return nil
}

func (c *itfConverter) LiftOut(src unsafe.Pointer) (reflect.Value, error) {
	slot := (*uintptr)(src)
	w := *slot
	*slot = 0
	return c.wrap(w), nil
}

func (c *itfConverter) FreeOut(src unsafe.Pointer) {
	if w := *(*uintptr)(src); w != 0 {
		callRelease(w)
	}
}

func (c *itfConverter) ZeroOut(dst unsafe.Pointer) {
	*(*uintptr)(dst) = 0
}
