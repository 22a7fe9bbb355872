package com

import (
	"fmt"
	"reflect"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/wippyai/com-runtime/com/internal/thunk"
	"github.com/wippyai/com-runtime/errors"
	"github.com/wippyai/com-runtime/extern"
	"github.com/wippyai/com-runtime/guid"
	"github.com/wippyai/com-runtime/hresult"
	"github.com/wippyai/com-runtime/model"
	"github.com/wippyai/com-runtime/registry"
)

// Library is a loaded library: its interfaces bound, its classes laid out
// and its DllGetClassObject entry point registered.
type Library struct {
	Decl    *model.Library
	opts    Options
	objects *registry.Table

	interfaces map[*model.Interface]*Interface
	classes    []*Class
	byType     map[reflect.Type]*Class
	byCLSID    map[guid.GUID]*Class

	live      atomic.Int64
	locks     atomic.Int64
	factories atomic.Int64
	entry     uintptr
}

// NewLibrary loads decl.
func NewLibrary(decl *model.Library, opts Options) (*Library, error) {
	runtimeLibrary()
	if decl.Name == RuntimeLibrary {
		return nil, errors.Duplicate("library", decl.Name)
	}
	return newLibrary(decl, opts)
}

func newLibrary(decl *model.Library, opts Options) (*Library, error) {
	if err := decl.Validate(); err != nil {
		return nil, err
	}

	l := &Library{
		Decl:       decl,
		opts:       opts,
		objects:    opts.objects(),
		interfaces: make(map[*model.Interface]*Interface),
		byType:     make(map[reflect.Type]*Class),
		byCLSID:    make(map[guid.GUID]*Class),
	}
	for _, itf := range decl.Interfaces {
		if _, err := l.bind(itf); err != nil {
			return nil, err
		}
	}

	implicit := make(map[*Interface]*Class)
	for _, cd := range decl.Classes {
		if _, dup := l.byType[cd.GoType]; dup {
			return nil, errors.Registration("class", cd.Name, fmt.Errorf("Go type %s already used by another class", cd.GoType))
		}
		c, err := newClass(l, cd)
		if err != nil {
			return nil, err
		}
		for _, d := range cd.Interfaces {
			if !d.Implicit {
				continue
			}
			rt := l.interfaces[d]
			if other, ok := implicit[rt]; ok {
				return nil, errors.Registration("interface", d.Name,
					fmt.Errorf("implicit interface implemented by %s and %s", other.Decl.Name, cd.Name))
			}
			implicit[rt] = c
		}
		l.classes = append(l.classes, c)
		l.byType[cd.GoType] = c
		if c.creatable {
			l.byCLSID[c.clsid] = c
		}
	}
	for rt, c := range implicit {
		rt.implicit = c
	}

	entry, err := thunk.Register(decl.Name+"::DllGetClassObject", thunk.Words(3), func(args []uintptr) uintptr {
		return hrWord(l.DllGetClassObject(args[0], args[1], args[2]))
	})
	if err != nil {
		return nil, errors.Registration("library", decl.Name, err)
	}
	l.entry = entry

	Logger().Debug("library loaded",
		zap.String("library", decl.Name),
		zap.Int("interfaces", len(l.interfaces)),
		zap.Int("classes", len(l.classes)))
	return l, nil
}

// Name returns the library name.
func (l *Library) Name() string {
	return l.Decl.Name
}

// Options returns the configuration the library was loaded with.
func (l *Library) Options() Options {
	return l.opts
}

// Objects returns the table tracking the library's live objects.
func (l *Library) Objects() *registry.Table {
	return l.objects
}

// Interface returns a bound interface by name.
func (l *Library) Interface(name string) (*Interface, bool) {
	d, ok := l.Decl.Interface(name)
	if !ok {
		return nil, false
	}
	rt, ok := l.interfaces[d]
	return rt, ok
}

// Interfaces returns the bound interfaces in declaration order.
func (l *Library) Interfaces() []*Interface {
	out := make([]*Interface, 0, len(l.Decl.Interfaces))
	for _, d := range l.Decl.Interfaces {
		out = append(out, l.interfaces[d])
	}
	return out
}

// Class returns a class by name.
func (l *Library) Class(name string) (*Class, bool) {
	for _, c := range l.classes {
		if c.Decl.Name == name {
			return c, true
		}
	}
	return nil, false
}

// Classes returns the classes in declaration order.
func (l *Library) Classes() []*Class {
	return l.classes
}

func (l *Library) classFor(t reflect.Type) (*Class, error) {
	c, ok := l.byType[t]
	if !ok {
		return nil, errors.NotFound(errors.PhaseFactory, "class for Go type", t.String())
	}
	return c, nil
}

// SetConstructor makes the class factory build T values with fn instead of
// starting from the zero value.
func SetConstructor[T any](l *Library, fn func() (T, error)) error {
	c, err := l.classFor(reflect.TypeFor[T]())
	if err != nil {
		return err
	}
	c.ctor = func() (reflect.Value, error) {
		v, err := fn()
		if err != nil {
			return reflect.Value{}, err
		}
		return reflect.ValueOf(v), nil
	}
	return nil
}

// GetClassObject returns a class factory for clsid, queried for iid. The
// runtime's allocator class is served by every library.
func (l *Library) GetClassObject(clsid, iid guid.GUID) (uintptr, error) {
	c, ok := l.byCLSID[clsid]
	if !ok && clsid == CLSID_Allocator {
		c, ok = runtimeLibrary().byCLSID[clsid]
	}
	if !ok {
		return 0, errors.ClassNotAvailable(clsid.String())
	}
	return getClassObject(c, iid)
}

// DllGetClassObject is the library's exported entry point.
func (l *Library) DllGetClassObject(rclsid, riid, ppv uintptr) hresult.HRESULT {
	if ppv == 0 {
		return hresult.E_POINTER
	}
	out := (*uintptr)(extern.Ptr(ppv))
	*out = 0
	if rclsid == 0 || riid == 0 {
		return hresult.E_INVALIDARG
	}
	ptr, err := l.GetClassObject(readGUID(rclsid), readGUID(riid))
	if err != nil {
		Logger().Debug("class object unavailable",
			zap.String("library", l.Decl.Name), zap.Error(err))
		return errors.Code(err)
	}
	*out = ptr
	return hresult.S_OK
}

// EntryPoint returns the code address of DllGetClassObject.
func (l *Library) EntryPoint() uintptr {
	return l.entry
}

// CanUnloadNow reports S_OK when no object of the library is alive, none
// of its class factories is outstanding and no client holds a server lock.
func (l *Library) CanUnloadNow() hresult.HRESULT {
	if l.live.Load() == 0 && l.factories.Load() == 0 && l.locks.Load() == 0 {
		return hresult.S_OK
	}
	return hresult.S_FALSE
}

// Live returns the number of the library's objects holding references.
func (l *Library) Live() int64 {
	return l.live.Load()
}

// Signature describes which words of a call travel in floating-point
// registers. Interface.Signature gives it for a declared method.
type Signature = thunk.Sig

// Call invokes the native function at a code address, such as EntryPoint
// or a vtable entry, with integer or pointer arguments.
func Call(addr uintptr, args ...uintptr) uintptr {
	return thunk.Call(addr, thunk.Words(len(args)), args...)
}

// CallWith invokes the native function at addr with the words classified
// by sig.
func CallWith(addr uintptr, sig Signature, args ...uintptr) uintptr {
	return thunk.Call(addr, sig, args...)
}

// NativeEntryPoints reports whether vtable entries and EntryPoint are
// machine code that foreign callers can jump to. Builds with the purego
// tag, or for platforms without a trampoline backend, serve Go callers
// only.
func NativeEntryPoints() bool {
	return thunk.Native()
}

// HRESULT reads a call result word as a status code.
func HRESULT(w uintptr) hresult.HRESULT {
	return wordHR(w)
}
