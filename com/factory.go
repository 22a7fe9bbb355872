package com

import (
	"reflect"

	"go.uber.org/zap"

	"github.com/wippyai/com-runtime/errors"
	"github.com/wippyai/com-runtime/extern"
	"github.com/wippyai/com-runtime/guid"
	"github.com/wippyai/com-runtime/hresult"
	"github.com/wippyai/com-runtime/typesystem"
)

// classFactory creates instances of one class of a library. The factory
// object lives in the runtime library but keeps its target library loaded
// until it is destroyed.
type classFactory struct {
	lib   *Library
	class *Class
}

func (f *classFactory) CreateInstance(outer uintptr, riid guid.GUID) (uintptr, error) {
	if outer != 0 {
		return 0, errors.NewComError(hresult.CLASS_E_NOAGGREGATION)
	}
	v, err := f.class.construct()
	if err != nil {
		return 0, err
	}
	ptr, err := f.class.instantiate(v, riid)
	if err != nil {
		return 0, err
	}
	Logger().Debug("instance created",
		zapClass(f.class), zapIID(riid), zapAddr(ptr))
	return ptr, nil
}

// LockServer counts server locks. Unlocking a library nobody locked fails
// and leaves the count at zero.
func (f *classFactory) LockServer(lock int32) error {
	if lock != 0 {
		f.lib.locks.Add(1)
		return nil
	}
	for {
		n := f.lib.locks.Load()
		if n == 0 {
			return errors.Fail(hresult.E_UNEXPECTED, "%s is not locked", f.lib.Decl.Name)
		}
		if f.lib.locks.CompareAndSwap(n, n-1) {
			return nil
		}
	}
}

func (f *classFactory) finalRelease() {
	f.lib.factories.Add(-1)
}

type classFactoryProxy struct {
	inv *Invoker
}

func (p classFactoryProxy) CreateInstance(outer uintptr, riid guid.GUID) (uintptr, error) {
	return Invoke1[uintptr](p.inv, "CreateInstance", outer, riid)
}

func (p classFactoryProxy) LockServer(lock int32) error {
	return Invoke0(p.inv, "LockServer", lock)
}

// heapAllocator gives foreign clients access to the heap every buffer the
// runtime hands out comes from.
type heapAllocator struct{}

func (*heapAllocator) Alloc(size uintptr) (uintptr, error) {
	return extern.Heap().Alloc(size)
}

func (*heapAllocator) Free(ptr uintptr) {
	if ptr != 0 {
		extern.Heap().Free(ptr)
	}
}

func (*heapAllocator) AllocBSTR(s string) (uintptr, error) {
	return extern.AllocBSTR(s)
}

func (*heapAllocator) FreeBSTR(bstr uintptr) {
	extern.FreeBSTR(bstr)
}

type allocatorProxy struct {
	inv *Invoker
}

func (p allocatorProxy) Alloc(size uintptr) (uintptr, error) {
	return Invoke1[uintptr](p.inv, "Alloc", size)
}

func (p allocatorProxy) Free(ptr uintptr) {
	MustInvoke0(p.inv, "Free", ptr)
}

func (p allocatorProxy) AllocBSTR(s string) (uintptr, error) {
	return Invoke1[uintptr](p.inv, "AllocBSTR", s)
}

func (p allocatorProxy) FreeBSTR(bstr uintptr) {
	MustInvoke0(p.inv, "FreeBSTR", bstr)
}

// getClassObject builds a class factory for c and queries it for iid.
func getClassObject(c *Class, iid guid.GUID) (uintptr, error) {
	fc, err := runtimeLibrary().classFor(reflect.TypeFor[classFactory]())
	if err != nil {
		return 0, err
	}
	ptr, err := fc.instantiate(reflect.ValueOf(classFactory{lib: c.lib, class: c}), iid)
	if err != nil {
		return 0, err
	}
	c.lib.factories.Add(1)
	Logger().Debug("class object created", zapClass(c), zapIID(iid))
	return ptr, nil
}

// CreateInstance creates an instance of the class clsid of lib through its
// class factory, the way a client would, and returns it as an owned I.
// The type systems are tried in the library's call order.
func CreateInstance[I any](lib *Library, clsid guid.GUID) (*Rc[I], error) {
	rt, err := InterfaceOf[I]()
	if err != nil {
		return nil, err
	}
	fp, err := lib.GetClassObject(clsid, IID_IClassFactory)
	if err != nil {
		return nil, err
	}
	factory := Attach(Wrap[ClassFactory](typesystem.Automation, fp))
	defer factory.Release()

	cf, err := factory.Get()
	if err != nil {
		return nil, err
	}
	var lastErr error
	for _, ts := range lib.opts.callOrder() {
		ptr, err := cf.CreateInstance(0, rt.IID(ts))
		if err == nil {
			return Attach(Wrap[I](ts, ptr)), nil
		}
		lastErr = err
		Logger().Debug("create instance attempt failed",
			zap.Stringer("clsid", clsid), zap.Stringer("ts", ts), zap.Error(err))
	}
	return nil, lastErr
}
