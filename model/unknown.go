package model

import (
	"reflect"

	"github.com/wippyai/com-runtime/guid"
)

// IID_IUnknown is the root interface ID, identical in both type systems.
var IID_IUnknown = guid.New(0x00000000, 0x0000, 0x0000, [8]byte{0xC0, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x46})

// Unknown mirrors the IUnknown vtable. Declared interfaces do not embed it:
// the runtime implements these three slots for every object.
type Unknown interface {
	QueryInterface(riid guid.GUID) (uintptr, error)
	AddRef() uint32
	Release() uint32
}

// IUnknown is the root of every interface chain.
var IUnknown *Interface

func init() {
	IUnknown = MustDeclareInterface("IUnknown", reflect.TypeFor[Unknown](),
		WithoutBase(),
		WithIID(IID_IUnknown),
		WithRawIID(IID_IUnknown),
		WithMethodOrder("QueryInterface", "AddRef", "Release"),
		WithParamNames("QueryInterface", "riid", "ppv"),
	)
}
