package com

import (
	"reflect"
	"sync"

	"github.com/wippyai/com-runtime/guid"
	"github.com/wippyai/com-runtime/hresult"
	"github.com/wippyai/com-runtime/model"
)

// RuntimeLibrary names the library holding the runtime's own classes.
const RuntimeLibrary = "comruntime"

// SupportErrorInfo is served by vtable-list slot 0 of every object.
type SupportErrorInfo interface {
	InterfaceSupportsErrorInfo(riid guid.GUID) hresult.HRESULT
}

// ErrorInfo exposes the rich information attached to a failure.
type ErrorInfo interface {
	GetGUID() (guid.GUID, error)
	GetSource() (string, error)
	GetDescription() (string, error)
	GetHelpFile() (string, error)
	GetHelpContext() (uint32, error)
}

// ClassFactory creates instances of one class.
type ClassFactory interface {
	CreateInstance(outer uintptr, riid guid.GUID) (uintptr, error)
	LockServer(lock int32) error
}

// MemoryAllocator lets foreign clients allocate and free memory from the
// heap the runtime hands buffers out of.
type MemoryAllocator interface {
	Alloc(size uintptr) (uintptr, error)
	Free(ptr uintptr)
	AllocBSTR(s string) (uintptr, error)
	FreeBSTR(bstr uintptr)
}

var (
	IID_ISupportErrorInfo = guid.MustParse("{DF0B3D60-548F-101B-8E65-08002B2BA4F5}")
	IID_IErrorInfo        = guid.MustParse("{1CF2B120-547D-101B-8E65-08002B2BA4F5}")
	IID_IClassFactory     = guid.MustParse("{00000001-0000-0000-C000-000000000046}")

	CLSID_Allocator = guid.GenerateCLSID(RuntimeLibrary, "Allocator")
)

var (
	ISupportErrorInfo = model.MustDeclareInterface("ISupportErrorInfo",
		reflect.TypeFor[SupportErrorInfo](),
		model.WithIID(IID_ISupportErrorInfo),
		model.WithRawIID(IID_ISupportErrorInfo),
		model.WithParamNames("InterfaceSupportsErrorInfo", "riid"),
		model.WithConst("InterfaceSupportsErrorInfo"),
	)

	IErrorInfo = model.MustDeclareInterface("IErrorInfo",
		reflect.TypeFor[ErrorInfo](),
		model.WithIID(IID_IErrorInfo),
		model.WithMethodOrder("GetGUID", "GetSource", "GetDescription", "GetHelpFile", "GetHelpContext"),
		model.WithParamNames("GetGUID", "guid"),
		model.WithParamNames("GetSource", "source"),
		model.WithParamNames("GetDescription", "description"),
		model.WithParamNames("GetHelpFile", "helpFile"),
		model.WithParamNames("GetHelpContext", "helpContext"),
		model.WithConst("GetGUID", "GetSource", "GetDescription", "GetHelpFile", "GetHelpContext"),
	)

	IClassFactory = model.MustDeclareInterface("IClassFactory",
		reflect.TypeFor[ClassFactory](),
		model.WithIID(IID_IClassFactory),
		model.WithMethodOrder("CreateInstance", "LockServer"),
		model.WithParamNames("CreateInstance", "outer", "riid", "object"),
		model.WithParamNames("LockServer", "lock"),
	)

	IAllocator = model.MustDeclareInterface("IAllocator",
		reflect.TypeFor[MemoryAllocator](),
		model.WithMethodOrder("Alloc", "Free", "AllocBSTR", "FreeBSTR"),
		model.WithParamNames("Alloc", "size", "ptr"),
		model.WithParamNames("Free", "ptr"),
		model.WithParamNames("AllocBSTR", "s", "bstr"),
		model.WithParamNames("FreeBSTR", "bstr"),
	)
)

var (
	runtimeLib     *Library
	runtimeLibErr  error
	runtimeLibOnce sync.Once
)

// runtimeLibrary returns the library serving error info objects, class
// factories and the allocator.
func runtimeLibrary() *Library {
	runtimeLibOnce.Do(func() {
		runtimeLib, runtimeLibErr = buildRuntimeLibrary()
	})
	if runtimeLibErr != nil {
		panic(runtimeLibErr)
	}
	return runtimeLib
}

func buildRuntimeLibrary() (*Library, error) {
	decl := model.NewLibrary(RuntimeLibrary)

	classes := []struct {
		name string
		typ  reflect.Type
		itf  *model.Interface
		opts []model.ClassOption
	}{
		{"ErrorInfo", reflect.TypeFor[errorInfoObject](), IErrorInfo, []model.ClassOption{model.WithoutErrorInfo()}},
		{"ClassFactory", reflect.TypeFor[classFactory](), IClassFactory, nil},
		{"Allocator", reflect.TypeFor[heapAllocator](), IAllocator, []model.ClassOption{model.WithCLSID(CLSID_Allocator)}},
	}
	for _, c := range classes {
		class, err := model.DeclareClass(c.name, c.typ, []*model.Interface{c.itf}, c.opts...)
		if err != nil {
			return nil, err
		}
		if err := decl.AddClass(class); err != nil {
			return nil, err
		}
	}

	lib, err := newLibrary(decl, DefaultOptions())
	if err != nil {
		return nil, err
	}
	for _, itf := range []*model.Interface{model.IUnknown, ISupportErrorInfo} {
		if _, err := lib.bind(itf); err != nil {
			return nil, err
		}
	}
	return lib, nil
}

func init() {
	RegisterProxy(func(inv *Invoker) ErrorInfo { return errorInfoProxy{inv} })
	RegisterProxy(func(inv *Invoker) ClassFactory { return classFactoryProxy{inv} })
	RegisterProxy(func(inv *Invoker) MemoryAllocator { return allocatorProxy{inv} })
	RegisterProxy(func(inv *Invoker) SupportErrorInfo { return supportErrorInfoProxy{inv} })
	RegisterProxy(func(inv *Invoker) model.Unknown { return unknownProxy{inv} })
}
