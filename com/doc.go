// Package com hosts Go values as COM objects and calls COM interfaces from Go.
//
// # Quick Start
//
// Declare the interface and the class, then load the library:
//
//	type Math interface {
//	    Sqrt(x float64) (float64, error)
//	}
//
//	imath := model.MustDeclareInterface("IMath", reflect.TypeFor[Math]())
//	calc, _ := model.ClassOf[Calc]("Calc", []*model.Interface{imath}, model.WithGeneratedCLSID())
//
//	decl := model.NewLibrary("calculator")
//	decl.AddClass(calc)
//	lib, err := com.NewLibrary(decl, com.DefaultOptions())
//
// Objects are Go values laid out behind a list of vtable pointers:
//
//	box, _ := com.New(lib, Calc{})
//	rc, _ := com.IntoRc[Math](box) // owns the only reference
//	defer rc.Release()
//
//	m, _ := rc.Get()
//	root, err := m.Sqrt(4)
//
// Foreign clients start from the library entry point:
//
//	hr := com.HRESULT(com.Call(lib.EntryPoint(), rclsid, riid, ppv))
//
// EntryPoint and every vtable entry are machine code. With cgo on unix
// they are C trampolines that re-enter Go; on windows they come from
// syscall.NewCallback. The purego build tag swaps in addresses that only
// Call can jump through, see NativeEntryPoints.
//
// # Type Systems
//
// Every interface has two variants with distinct IIDs: Automation
// (BSTR strings, VARIANT_BOOL) and Raw (C strings, C bool). An object
// implements both, so its vtable list holds one slot per interface and type
// system plus the root slot serving IUnknown and ISupportErrorInfo.
// When a choice between the two arises (the pointer a call goes through,
// the IID queried first, the pointer IntoRc vends) the library that bound
// the interface decides: Raw first unless its Options.PreferRaw is off.
//
// # Ownership
//
// Itf is a borrowed pointer, Rc an owned one. Interface inputs are always
// Itf and interface outputs always *Rc. Go has no destructors: Rc.Release
// must be called explicitly. Releasing an object past zero panics with a
// *ProtocolViolation.
//
// # Errors
//
// A method returning an error reports its status code through the vtable
// and, when its class supports error info, leaves an IErrorInfo object in
// the calling goroutine's error channel. Failed outbound calls come back as
// *errors.ComError with that info attached.
package com
