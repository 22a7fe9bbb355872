package com

import (
	"fmt"
	"reflect"
	"unsafe"

	"github.com/wippyai/com-runtime/errors"
	"github.com/wippyai/com-runtime/extern"
	"github.com/wippyai/com-runtime/guid"
	"github.com/wippyai/com-runtime/internal/layout"
	"github.com/wippyai/com-runtime/model"
	"github.com/wippyai/com-runtime/registry"
	"github.com/wippyai/com-runtime/typesystem"
)

const ptrSize = unsafe.Sizeof(uintptr(0))

// Class is a class declaration bound to a library: its object layout, one
// vtable per vtable-list slot and the query-interface match table.
type Class struct {
	Decl    *model.Class
	lib     *Library
	objects *registry.Table
	box     *layout.Box
	ptrType reflect.Type
	ctor    func() (reflect.Value, error)

	// slots[0] is the root slot (IUnknown plus ISupportErrorInfo). Then one
	// slot per (interface, type system), interfaces in declaration order,
	// Automation before Raw.
	slots    []classSlot
	byIID    map[guid.GUID]int
	slotOf   map[slotKey]int
	byVtable map[uintptr]int

	clsid     guid.GUID
	creatable bool
}

type classSlot struct {
	itf *Interface
	ts  typesystem.TypeSystem
	// methods[i] is the index of vtable entry i in the method set of *T,
	// or -1 for entries served by the runtime.
	methods []int
	vtbl    []uintptr
}

type slotKey struct {
	itf *Interface
	ts  typesystem.TypeSystem
}

func newClass(l *Library, decl *model.Class) (*Class, error) {
	c := &Class{
		Decl:     decl,
		lib:      l,
		objects:  l.objects,
		ptrType:  reflect.PointerTo(decl.GoType),
		byIID:    make(map[guid.GUID]int),
		slotOf:   make(map[slotKey]int),
		byVtable: make(map[uintptr]int),
	}
	c.clsid, c.creatable = decl.CLSID(l.Decl.Name)

	c.slots = append(c.slots, classSlot{})
	for _, d := range decl.Interfaces {
		if d.Chain()[0] != model.IUnknown {
			return nil, errors.Registration("class", decl.Name,
				fmt.Errorf("interface %s does not derive from IUnknown", d.Name))
		}
		rt, err := l.bind(d)
		if err != nil {
			return nil, err
		}
		for _, ts := range typesystem.All {
			c.slotOf[slotKey{rt, ts}] = len(c.slots)
			c.slots = append(c.slots, classSlot{itf: rt, ts: ts})
		}
	}

	box, err := layout.NewBox(len(c.slots), decl.GoType)
	if err != nil {
		return nil, errors.Registration("class", decl.Name, err)
	}
	c.box = box

	c.byIID[model.IID_IUnknown] = 0
	c.byIID[IID_ISupportErrorInfo] = 0
	for i := 1; i < len(c.slots); i++ {
		s := c.slots[i]
		for _, owner := range s.itf.Decl.Chain() {
			if owner == model.IUnknown {
				continue
			}
			base, err := l.bind(owner)
			if err != nil {
				return nil, err
			}
			// A base shared by two interfaces resolves to the first slot.
			if _, ok := c.byIID[base.IID(s.ts)]; !ok {
				c.byIID[base.IID(s.ts)] = i
			}
		}
	}

	for i := range c.slots {
		if err := c.buildVtable(i); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func (c *Class) buildVtable(i int) error {
	s := &c.slots[i]
	vtbl, err := c.unknownEntries(i)
	if err != nil {
		return errors.Registration("class", c.Decl.Name, err)
	}
	s.vtbl = vtbl
	if s.itf == nil {
		sei, err := c.supportErrorInfoEntry()
		if err != nil {
			return errors.Registration("class", c.Decl.Name, err)
		}
		s.vtbl = append(s.vtbl, sei)
		s.methods = []int{-1, -1, -1, -1}
	} else {
		s.methods = []int{-1, -1, -1}
		for j := len(s.vtbl); j < len(s.itf.methods); j++ {
			m := s.itf.methods[j]
			gm, ok := c.ptrType.MethodByName(m.Name)
			if !ok {
				return errors.Registration("class", c.Decl.Name,
					fmt.Errorf("%s has no method %s for %s", c.ptrType, m.Name, s.itf.Name()))
			}
			addr, err := c.dispatchEntry(i, j)
			if err != nil {
				return errors.Registration("class", c.Decl.Name, err)
			}
			s.methods = append(s.methods, gm.Index)
			s.vtbl = append(s.vtbl, addr)
		}
	}
	c.byVtable[uintptr(unsafe.Pointer(&s.vtbl[0]))] = i
	return nil
}

func (c *Class) thunkName(slot int, method string) string {
	s := c.slots[slot]
	if s.itf == nil {
		return fmt.Sprintf("%s::%s", c.Decl.Name, method)
	}
	return fmt.Sprintf("%s::%s_%s::%s", c.Decl.Name, s.itf.Name(), s.ts.Key(), method)
}

// Name returns the declared class name.
func (c *Class) Name() string {
	return c.Decl.Name
}

// CLSID returns the class ID, if the class is creatable.
func (c *Class) CLSID() (guid.GUID, bool) {
	return c.clsid, c.creatable
}

// Library returns the library the class belongs to.
func (c *Class) Library() *Library {
	return c.lib
}

// SlotCount returns the number of vtable-list slots, the root slot included.
func (c *Class) SlotCount() int {
	return len(c.slots)
}

// Offset returns the byte offset of the slot holding itf's ts vtable from
// the start of the object.
func (c *Class) Offset(itf *Interface, ts typesystem.TypeSystem) (uintptr, bool) {
	i, ok := c.slotOf[slotKey{itf, ts}]
	if !ok {
		return 0, false
	}
	return c.box.SlotOffsets[i], true
}

// ValueOffset returns the byte offset of the value from the start of the
// object.
func (c *Class) ValueOffset() uintptr {
	return c.box.ValueOffset
}

// Size returns the size of one object allocation.
func (c *Class) Size() uintptr {
	return c.box.Size()
}

// Lookup returns the vtable-list slot that answers iid.
func (c *Class) Lookup(iid guid.GUID) (int, bool) {
	i, ok := c.byIID[iid]
	return i, ok
}

// slotAddr returns the interface pointer for slot i of the object at base.
func (c *Class) slotAddr(base unsafe.Pointer, i int) uintptr {
	return uintptr(unsafe.Pointer(c.box.Slot(base, i)))
}

// newObject allocates an object holding v. The reference count starts at
// zero; the caller keeps the returned pointer reachable until the first
// AddRef registers the object.
func (c *Class) newObject(v reflect.Value) unsafe.Pointer {
	base := c.box.New()
	for i := range c.slots {
		*c.box.Slot(base, i) = uintptr(unsafe.Pointer(&c.slots[i].vtbl[0]))
	}
	c.valueOf(base).Elem().Set(v)
	Logger().Debug("object constructed",
		zapClass(c), zapAddr(uintptr(base)))
	return base
}

// valueOf returns the *T stored in the object at base.
func (c *Class) valueOf(base unsafe.Pointer) reflect.Value {
	return reflect.NewAt(c.Decl.GoType, c.box.Value(base))
}

// construct makes a fresh value for the class factory.
func (c *Class) construct() (reflect.Value, error) {
	if c.ctor != nil {
		return c.ctor()
	}
	return reflect.New(c.Decl.GoType).Elem(), nil
}

// instantiate builds an object and queries it for iid in one step, so the
// returned pointer holds the only reference.
func (c *Class) instantiate(v reflect.Value, iid guid.GUID) (uintptr, error) {
	base := c.newObject(v)
	ptr, ok := c.queryInterface(base, iid)
	if !ok {
		return 0, errors.NoInterface(iid.String())
	}
	return ptr, nil
}

// queryInterface vends a new reference to the slot answering iid.
func (c *Class) queryInterface(base unsafe.Pointer, iid guid.GUID) (uintptr, bool) {
	i, ok := c.byIID[iid]
	if !ok {
		Logger().Debug("query interface miss",
			zapClass(c), zapAddr(uintptr(base)), zapIID(iid))
		return 0, false
	}
	c.addRef(base)
	return c.slotAddr(base, i), true
}

// supportsErrorInfo answers ISupportErrorInfo for iid.
func (c *Class) supportsErrorInfo(iid guid.GUID) bool {
	if !c.Decl.SupportsInfo || !c.lib.opts.SupportErrorInfo {
		return false
	}
	if iid == model.IID_IUnknown || iid == IID_ISupportErrorInfo {
		return false
	}
	_, ok := c.byIID[iid]
	return ok
}

// baseOf maps an interface pointer vended by this class back to its object.
func (c *Class) baseOf(ptr uintptr) (unsafe.Pointer, bool) {
	if ptr == 0 {
		return nil, false
	}
	i, ok := c.byVtable[*(*uintptr)(extern.Ptr(ptr))]
	if !ok {
		return nil, false
	}
	return extern.Ptr(c.box.BaseFromSlot(ptr, i)), true
}

// direct returns the in-process value behind ptr when ptr is a live object
// of this class.
func (c *Class) direct(ptr uintptr) (any, bool) {
	base, ok := c.baseOf(ptr)
	if !ok || !c.objects.Contains(uintptr(base)) {
		return nil, false
	}
	return c.valueOf(base).Interface(), true
}

func (c *Class) String() string {
	return c.Decl.Name
}
