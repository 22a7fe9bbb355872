// Package comruntime hosts Go values as COM-compatible objects and calls
// COM-compatible objects from Go.
//
// Objects cross the boundary as vtable pointers. A class's interfaces each
// get two vtables, one per type system: Automation marshals strings as BSTR
// and carries VARIANT arguments, Raw passes UTF-8 C strings and plain scalars.
// Status codes are HRESULTs and failures leave rich error info on a
// per-goroutine error channel.
//
// # Architecture Overview
//
// The library is organized into several packages with distinct responsibilities:
//
//	comruntime/          Root package with the Allocator interface
//	├── com/             Libraries, classes, object boxes, dispatch and proxies
//	├── model/           Interface, method and class declarations
//	├── extern/          Converters between Go values and foreign words
//	├── alloc/           Tracking heap for foreign buffers
//	├── registry/        Table of live objects
//	├── typesystem/      Automation and Raw
//	├── guid/            GUID type, text forms and name-derived IDs
//	├── hresult/         Status codes
//	├── errors/          Structured errors and COM error info
//	├── typelib/         Type library manifests and export
//	└── cmd/             comtool and comrun
//
// # Quick Start
//
// Declare an interface and a class, load the library and create an instance
// through its class factory:
//
//	IMath := model.MustDeclareInterface("IMath", reflect.TypeFor[Math]())
//	class, _ := model.ClassOf[Calc]("Calc", []*model.Interface{IMath}, model.WithGeneratedCLSID())
//
//	decl := model.NewLibrary("calculator")
//	decl.AddClass(class)
//	lib, err := com.NewLibrary(decl, com.DefaultOptions())
//
//	m, err := com.CreateInstance[Math](lib, clsid)
//	defer m.Release()
//
// Foreign clients load the library through its DllGetClassObject entry
// point instead; see package com.
//
// # Thread Safety
//
// Libraries are immutable once loaded. Reference counts are atomic, so
// objects may be shared between goroutines; the Go value behind an object
// is not locked and must synchronize its own state.
package comruntime
