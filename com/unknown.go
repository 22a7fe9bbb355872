package com

import (
	"unsafe"

	"github.com/wippyai/com-runtime/com/internal/thunk"
	"github.com/wippyai/com-runtime/extern"
	"github.com/wippyai/com-runtime/guid"
	"github.com/wippyai/com-runtime/hresult"
)

// Vtable entries the runtime serves for every interface slot.
const (
	entryQueryInterface = iota
	entryAddRef
	entryRelease
	entrySupportsErrorInfo
)

func hrWord(hr hresult.HRESULT) uintptr {
	return uintptr(hr.Uint32())
}

func wordHR(w uintptr) hresult.HRESULT {
	return hresult.FromUint32(uint32(w))
}

func readGUID(p uintptr) guid.GUID {
	return *(*guid.GUID)(extern.Ptr(p))
}

// unknownEntries registers the IUnknown trampolines for one slot. Each slot
// gets its own trampolines because the slot index fixes the offset used to
// find the object.
func (c *Class) unknownEntries(slot int) ([]uintptr, error) {
	fns := []struct {
		name  string
		words int
		fn    thunk.Func
	}{
		{"QueryInterface", 3, func(args []uintptr) uintptr {
			return hrWord(c.inboundQueryInterface(slot, args[0], args[1], args[2]))
		}},
		{"AddRef", 1, func(args []uintptr) uintptr {
			return uintptr(c.addRef(c.liveBase("AddRef", slot, args[0])))
		}},
		{"Release", 1, func(args []uintptr) uintptr {
			return uintptr(c.release(c.liveBase("Release", slot, args[0])))
		}},
	}
	out := make([]uintptr, 0, len(fns))
	for _, f := range fns {
		addr, err := thunk.Register(c.thunkName(slot, f.name), thunk.Words(f.words), f.fn)
		if err != nil {
			return nil, err
		}
		out = append(out, addr)
	}
	return out, nil
}

func (c *Class) supportErrorInfoEntry() (uintptr, error) {
	return thunk.Register(c.thunkName(0, "InterfaceSupportsErrorInfo"), thunk.Words(2), func(args []uintptr) uintptr {
		c.liveBase("InterfaceSupportsErrorInfo", 0, args[0])
		if args[1] == 0 {
			return hrWord(hresult.E_INVALIDARG)
		}
		if c.supportsErrorInfo(readGUID(args[1])) {
			return hrWord(hresult.S_OK)
		}
		return hrWord(hresult.S_FALSE)
	})
}

// liveBase recovers the object behind a pointer received through slot.
// Foreign callers may only use objects they hold a reference to.
func (c *Class) liveBase(op string, slot int, this uintptr) unsafe.Pointer {
	base := c.box.BaseFromSlot(this, slot)
	if !c.objects.Contains(base) {
		violate(op, base, "object is not live")
	}
	return extern.Ptr(base)
}

func (c *Class) inboundQueryInterface(slot int, this, riid, ppv uintptr) hresult.HRESULT {
	base := c.liveBase("QueryInterface", slot, this)
	if ppv == 0 {
		return hresult.E_POINTER
	}
	out := (*uintptr)(extern.Ptr(ppv))
	*out = 0
	if riid == 0 {
		return hresult.E_INVALIDARG
	}
	ptr, ok := c.queryInterface(base, readGUID(riid))
	if !ok {
		return hresult.E_NOINTERFACE
	}
	*out = ptr
	return hresult.S_OK
}

// vtableEntry reads entry index of the vtable behind an interface pointer.
func vtableEntry(ptr uintptr, index int) uintptr {
	vtbl := *(*uintptr)(extern.Ptr(ptr))
	return *(*uintptr)(extern.Ptr(vtbl + uintptr(index)*ptrSize))
}

func callAddRef(ptr uintptr) uint32 {
	return uint32(thunk.Call(vtableEntry(ptr, entryAddRef), thunk.Words(1), ptr))
}

func callRelease(ptr uintptr) uint32 {
	return uint32(thunk.Call(vtableEntry(ptr, entryRelease), thunk.Words(1), ptr))
}

// callQueryInterface asks the object behind ptr for iid. The IID and the
// result slot live on the foreign heap for the duration of the call.
func callQueryInterface(ptr uintptr, iid guid.GUID) (uintptr, hresult.HRESULT) {
	h := extern.Heap()
	riid, err := h.Alloc(unsafe.Sizeof(guid.GUID{}))
	if err != nil {
		return 0, hresult.E_OUTOFMEMORY
	}
	defer h.Free(riid)
	ppv, err := h.Alloc(ptrSize)
	if err != nil {
		return 0, hresult.E_OUTOFMEMORY
	}
	defer h.Free(ppv)

	*(*guid.GUID)(extern.Ptr(riid)) = iid
	hr := wordHR(thunk.Call(vtableEntry(ptr, entryQueryInterface), thunk.Words(3), ptr, riid, ppv))
	out := *(*uintptr)(extern.Ptr(ppv))
	if hr.Failed() {
		return 0, hr
	}
	return out, hr
}

// unknownProxy is the outbound view of any interface pointer as IUnknown.
type unknownProxy struct {
	inv *Invoker
}

func (p unknownProxy) QueryInterface(riid guid.GUID) (uintptr, error) {
	return Invoke1[uintptr](p.inv, "QueryInterface", riid)
}

func (p unknownProxy) AddRef() uint32 {
	return MustInvoke1[uint32](p.inv, "AddRef")
}

func (p unknownProxy) Release() uint32 {
	return MustInvoke1[uint32](p.inv, "Release")
}

type supportErrorInfoProxy struct {
	inv *Invoker
}

func (p supportErrorInfoProxy) InterfaceSupportsErrorInfo(riid guid.GUID) hresult.HRESULT {
	return MustInvoke1[hresult.HRESULT](p.inv, "InterfaceSupportsErrorInfo", riid)
}
