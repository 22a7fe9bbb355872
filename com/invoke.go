package com

import (
	"fmt"
	"reflect"
	"unsafe"

	"go.uber.org/zap"

	"github.com/wippyai/com-runtime/com/internal/thunk"
	"github.com/wippyai/com-runtime/errors"
	"github.com/wippyai/com-runtime/extern"
	"github.com/wippyai/com-runtime/model"
	"github.com/wippyai/com-runtime/typesystem"
)

// Invoker calls an interface's methods through the vtables of an interface
// pointer. When the pointer is populated in both type systems the library's
// PreferRaw option picks one; the results are the same either way.
type Invoker struct {
	itf  *Interface
	ptrs [typesystem.Count]uintptr
}

// NewInvoker builds an invoker for itf over the given pointers, indexed by
// type system.
func NewInvoker(itf *Interface, ptrs [typesystem.Count]uintptr) *Invoker {
	return &Invoker{itf: itf, ptrs: ptrs}
}

// Interface returns the interface being called.
func (inv *Invoker) Interface() *Interface {
	return inv.itf
}

// pick chooses the pointer outbound calls go through.
func (inv *Invoker) pick() (uintptr, typesystem.TypeSystem, error) {
	for _, ts := range inv.itf.lib.opts.callOrder() {
		if p := inv.ptrs[ts]; p != 0 {
			return p, ts, nil
		}
	}
	return 0, 0, errors.NilPointer(errors.PhaseDispatch, nil, inv.itf.Name())
}

// Call invokes the named method with Go arguments and returns its outputs:
// the Out and Retval values of a fallible method, or the direct result of an
// infallible one. A failed status code comes back as a *errors.ComError
// carrying the error channel's details when the object provides them.
func (inv *Invoker) Call(name string, args ...any) ([]any, error) {
	vals, err := inv.call(name, args)
	if err != nil {
		return nil, err
	}
	out := make([]any, len(vals))
	for i, v := range vals {
		out[i] = v.Interface()
	}
	return out, nil
}

func (inv *Invoker) call(name string, args []any) ([]reflect.Value, error) {
	ptr, ts, err := inv.pick()
	if err != nil {
		return nil, err
	}
	plan, ok := inv.itf.plan(ts, name)
	if !ok {
		return nil, errors.NotFound(errors.PhaseDispatch, "method", inv.itf.Name()+"."+name)
	}
	m := plan.method
	if n := len(m.Inputs()); n != len(args) {
		return nil, errors.InvalidInput(errors.PhaseDispatch,
			fmt.Sprintf("%s.%s takes %d arguments, got %d", inv.itf.Name(), name, n, len(args)))
	}

	al := extern.NewAllocationList()
	defer al.FreeAndRelease(extern.Heap())

	words := make([]uintptr, 1+len(m.Params))
	words[0] = ptr
	var (
		outs     []unsafe.Pointer
		outConvs []extern.Converter
		k        int
	)
	for j, p := range m.Params {
		c := plan.params[j]
		if p.Dir == model.In {
			v, err := argValue(args[k], p.Type)
			if err != nil {
				return nil, err
			}
			k++
			w, err := c.LowerArg(v, al)
			if err != nil {
				return nil, err
			}
			words[j+1] = w
			continue
		}
		slot, err := al.Alloc(c.Size())
		if err != nil {
			return nil, err
		}
		c.ZeroOut(extern.Ptr(slot))
		words[j+1] = slot
		outs = append(outs, extern.Ptr(slot))
		outConvs = append(outConvs, c)
	}

	ret := thunk.Call(vtableEntry(ptr, plan.index), plan.sig, words...)

	if m.Infallible {
		if plan.ret == nil {
			return nil, nil
		}
		v, err := extern.LiftReturn(plan.ret, ret)
		if err != nil {
			return nil, err
		}
		return []reflect.Value{v}, nil
	}

	if hr := wordHR(ret); hr.Failed() {
		for i, c := range outConvs {
			c.FreeOut(outs[i])
		}
		Logger().Debug("outbound call failed",
			zap.String("interface", inv.itf.Name()),
			zap.String("method", name),
			zap.Stringer("code", hr))
		return nil, LoadErrorIfSupported(ptr, inv.itf.IID(ts), hr)
	}
	return extern.LiftOuts(outConvs, outs)
}

// argValue fits a Go argument to the declared parameter type. Values of
// the exact type pass through, named types convert to their declared
// counterpart of the same kind and integers convert when the value fits.
func argValue(a any, t reflect.Type) (reflect.Value, error) {
	if a == nil {
		return reflect.Zero(t), nil
	}
	v := reflect.ValueOf(a)
	switch {
	case v.Type() == t:
		return v, nil
	case v.Kind() == t.Kind() && v.Type().ConvertibleTo(t):
		return v.Convert(t), nil
	case isInteger(v.Kind()) && isInteger(t.Kind()):
		c := v.Convert(t)
		if !c.Convert(v.Type()).Equal(v) {
			return reflect.Value{}, errors.Overflow(errors.PhaseMarshal, nil, a, t.String())
		}
		return c, nil
	}
	return reflect.Value{}, errors.TypeMismatch(errors.PhaseMarshal, nil, v.Type().String(), t.String())
}

func isInteger(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return true
	}
	return false
}

// Invoke0 calls a fallible method without outputs.
func Invoke0(inv *Invoker, name string, args ...any) error {
	_, err := inv.call(name, args)
	return err
}

// Invoke1 calls a method with a single output.
func Invoke1[T any](inv *Invoker, name string, args ...any) (T, error) {
	var zero T
	vals, err := inv.call(name, args)
	if err != nil {
		return zero, err
	}
	return as[T](vals, 0)
}

// Invoke2 calls a method with two outputs.
func Invoke2[A, B any](inv *Invoker, name string, args ...any) (A, B, error) {
	var (
		za A
		zb B
	)
	vals, err := inv.call(name, args)
	if err != nil {
		return za, zb, err
	}
	a, err := as[A](vals, 0)
	if err != nil {
		return za, zb, err
	}
	b, err := as[B](vals, 1)
	if err != nil {
		return za, zb, err
	}
	return a, b, nil
}

// MustInvoke0 calls an infallible method without a result.
func MustInvoke0(inv *Invoker, name string, args ...any) {
	if err := Invoke0(inv, name, args...); err != nil {
		panic(err)
	}
}

// MustInvoke1 calls an infallible method. Infallible methods have no
// status code, so a failure to make the call at all panics.
func MustInvoke1[T any](inv *Invoker, name string, args ...any) T {
	v, err := Invoke1[T](inv, name, args...)
	if err != nil {
		panic(err)
	}
	return v
}

func as[T any](vals []reflect.Value, i int) (T, error) {
	var zero T
	if i >= len(vals) {
		return zero, errors.OutOfBounds(errors.PhaseUnmarshal, nil, i, len(vals))
	}
	v, ok := vals[i].Interface().(T)
	if !ok {
		return zero, errors.TypeMismatch(errors.PhaseUnmarshal, nil, reflect.TypeFor[T]().String(), vals[i].Type().String())
	}
	return v, nil
}
