package com

import (
	"reflect"
	"sync/atomic"

	"github.com/wippyai/com-runtime/errors"
	"github.com/wippyai/com-runtime/typesystem"
)

// Rc owns exactly one reference to the object behind its Itf. Go has no
// destructors, so the owner must call Release; Release is idempotent and
// decrements the count at most once.
type Rc[I any] struct {
	itf      Itf[I]
	released atomic.Bool
}

// Attach adopts a reference the caller already owns, without AddRef.
func Attach[I any](itf Itf[I]) *Rc[I] {
	return &Rc[I]{itf: itf}
}

// IntoRc turns a freshly built object into an owned I. The object's
// initial zero count becomes the Rc's single reference through one
// QueryInterface, with no extra AddRef/Release pair.
func IntoRc[I, T any](b *Box[T]) (*Rc[I], error) {
	rt, err := InterfaceOf[I]()
	if err != nil {
		return nil, err
	}
	for _, ts := range rt.lib.opts.callOrder() {
		if ptr, ok := b.class.queryInterface(b.base, rt.IID(ts)); ok {
			return Attach(Wrap[I](ts, ptr)), nil
		}
	}
	return nil, errors.NoInterface(rt.Name())
}

// Itf returns the borrowed view. It is valid until Release.
func (r *Rc[I]) Itf() Itf[I] {
	return r.itf
}

// Ptr returns the pointer for ts, or 0.
func (r *Rc[I]) Ptr(ts typesystem.TypeSystem) uintptr {
	return r.itf.Ptr(ts)
}

// IsNull reports whether the Rc wraps the null interface.
func (r *Rc[I]) IsNull() bool {
	return r == nil || r.itf.IsNull()
}

// Get returns a Go value implementing I; see Itf.Get.
func (r *Rc[I]) Get() (I, error) {
	return r.itf.Get()
}

// Call invokes a method by name; see Invoker.Call.
func (r *Rc[I]) Call(name string, args ...any) ([]any, error) {
	return r.itf.Call(name, args...)
}

// Clone takes another reference.
func (r *Rc[I]) Clone() (*Rc[I], error) {
	if r.released.Load() {
		return nil, errors.InvalidInput(errors.PhaseRuntime, "clone of a released reference")
	}
	return r.itf.AsOwned()
}

// Release gives the reference back and returns the object's remaining
// count. Later calls do nothing and return 0.
func (r *Rc[I]) Release() uint32 {
	if r == nil || !r.released.CompareAndSwap(false, true) {
		return 0
	}
	p, _, ok := r.itf.first()
	if !ok {
		return 0
	}
	return callRelease(p)
}

// Detach hands the reference to the caller, who becomes responsible for
// releasing the returned pointer.
func (r *Rc[I]) Detach() Itf[I] {
	r.released.Store(true)
	return r.itf
}

// Released reports whether Release or Detach was called.
func (r *Rc[I]) Released() bool {
	return r.released.Load()
}

func (r *Rc[I]) String() string {
	return "Rc" + r.itf.String()[3:]
}

func (r *Rc[I]) pointers() [typesystem.Count]uintptr {
	if r == nil {
		return [typesystem.Count]uintptr{}
	}
	return r.itf.ptrs
}

func (r *Rc[I]) adopt(ptrs [typesystem.Count]uintptr) {
	r.itf.ptrs = ptrs
}

func (*Rc[I]) interfaceType() reflect.Type {
	return reflect.TypeFor[I]()
}

func (r *Rc[I]) detach() [typesystem.Count]uintptr {
	if r == nil {
		return [typesystem.Count]uintptr{}
	}
	return r.Detach().ptrs
}
