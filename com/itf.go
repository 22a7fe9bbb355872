package com

import (
	"fmt"
	"reflect"

	"github.com/wippyai/com-runtime/errors"
	"github.com/wippyai/com-runtime/hresult"
	"github.com/wippyai/com-runtime/typesystem"
)

// Itf is a borrowed interface pointer to an I, holding at most one raw
// pointer per type system, all to the same object. It owns no reference
// and must not outlive the reference it was obtained from. An Itf with
// both pointers null is the null interface.
type Itf[I any] struct {
	ptrs [typesystem.Count]uintptr
}

// NullItf returns the null interface.
func NullItf[I any]() Itf[I] {
	return Itf[I]{}
}

// Wrap makes an Itf from a pointer in type system ts.
func Wrap[I any](ts typesystem.TypeSystem, ptr uintptr) Itf[I] {
	var i Itf[I]
	i.ptrs[ts] = ptr
	return i
}

// FromPointers makes an Itf from both pointers. Either may be null.
func FromPointers[I any](automation, raw uintptr) Itf[I] {
	var i Itf[I]
	i.ptrs[typesystem.Automation] = automation
	i.ptrs[typesystem.Raw] = raw
	return i
}

// Ptr returns the pointer for ts, or 0.
func (i Itf[I]) Ptr(ts typesystem.TypeSystem) uintptr {
	return i.ptrs[ts]
}

// IsNull reports whether both pointers are null.
func (i Itf[I]) IsNull() bool {
	return i.ptrs == [typesystem.Count]uintptr{}
}

// first returns a populated pointer in the order of I's library.
func (i Itf[I]) first() (uintptr, typesystem.TypeSystem, bool) {
	if i.IsNull() {
		return 0, 0, false
	}
	for _, ts := range orderFor(reflect.TypeFor[I]()) {
		if p := i.ptrs[ts]; p != 0 {
			return p, ts, true
		}
	}
	return 0, 0, false
}

// AsOwned takes a new reference and wraps it.
func (i Itf[I]) AsOwned() (*Rc[I], error) {
	p, _, ok := i.first()
	if !ok {
		return nil, errors.NilPointer(errors.PhaseQuery, nil, reflect.TypeFor[I]().String())
	}
	callAddRef(p)
	return Attach(i), nil
}

// Get returns a Go value implementing I. Interfaces declared implicit
// resolve to the object's own value when the pointer belongs to a live
// object of their single class; every other interface gets the registered
// proxy, which calls through the vtable.
func (i Itf[I]) Get() (I, error) {
	var zero I
	if i.IsNull() {
		return zero, errors.NilPointer(errors.PhaseQuery, nil, reflect.TypeFor[I]().String())
	}
	rt, err := InterfaceOf[I]()
	if err != nil {
		return zero, err
	}
	if c := rt.implicit; c != nil {
		for _, p := range i.ptrs {
			if v, ok := c.direct(p); ok {
				return v.(I), nil
			}
		}
	}
	fn, ok := proxyFor(rt.Decl.GoType)
	if !ok {
		return zero, errors.NotFound(errors.PhaseQuery, "proxy", rt.Name())
	}
	return fn(NewInvoker(rt, i.ptrs)).(I), nil
}

// Invoker returns a dynamic invoker over the pointer.
func (i Itf[I]) Invoker() (*Invoker, error) {
	if i.IsNull() {
		return nil, errors.NilPointer(errors.PhaseQuery, nil, reflect.TypeFor[I]().String())
	}
	rt, err := InterfaceOf[I]()
	if err != nil {
		return nil, err
	}
	return NewInvoker(rt, i.ptrs), nil
}

// Call invokes a method by name; see Invoker.Call.
func (i Itf[I]) Call(name string, args ...any) ([]any, error) {
	inv, err := i.Invoker()
	if err != nil {
		return nil, err
	}
	return inv.Call(name, args...)
}

func (i Itf[I]) String() string {
	return fmt.Sprintf("Itf[%s]{automation: %#x, raw: %#x}",
		reflect.TypeFor[I](), i.ptrs[typesystem.Automation], i.ptrs[typesystem.Raw])
}

func (i Itf[I]) pointers() [typesystem.Count]uintptr {
	return i.ptrs
}

func (i *Itf[I]) setPointers(ptrs [typesystem.Count]uintptr) {
	i.ptrs = ptrs
}

func (Itf[I]) interfaceType() reflect.Type {
	return reflect.TypeFor[I]()
}

// QueryInterface asks the object behind i for interface T, trying T's IIDs
// in the order of T's library. The result owns one reference.
func QueryInterface[T, I any](i Itf[I]) (*Rc[T], error) {
	p, _, ok := i.first()
	if !ok {
		return nil, errors.NilPointer(errors.PhaseQuery, nil, reflect.TypeFor[I]().String())
	}
	target, err := InterfaceOf[T]()
	if err != nil {
		return nil, err
	}
	for _, ts := range target.lib.opts.callOrder() {
		out, hr := callQueryInterface(p, target.IID(ts))
		if hr == hresult.S_OK && out != 0 {
			return Attach(Wrap[T](ts, out)), nil
		}
	}
	return nil, errors.NoInterface(target.Name())
}
