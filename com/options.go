package com

import (
	"reflect"

	"github.com/wippyai/com-runtime/registry"
	"github.com/wippyai/com-runtime/typesystem"
)

// Options configures a Library.
type Options struct {
	// Objects tracks live objects. Nil means registry.Default().
	Objects *registry.Table
	// SupportErrorInfo lets classes advertise extended error info. Classes
	// declared WithoutErrorInfo never do.
	SupportErrorInfo bool
	// PreferRaw orders the type systems for every choice between them that
	// concerns an interface this library bound: the pointer outbound calls,
	// AddRef and QueryInterface go through, the IID tried first when
	// querying for it, and the pointer IntoRc vends. Raw needs fewer
	// allocations; results are the same.
	PreferRaw bool
}

// DefaultOptions returns default library configuration.
func DefaultOptions() Options {
	return Options{
		SupportErrorInfo: true,
		PreferRaw:        true,
	}
}

func (o Options) objects() *registry.Table {
	if o.Objects != nil {
		return o.Objects
	}
	return registry.Default()
}

// orderFor returns the type system order for Go interface type t, set by
// the library that bound it. Unbound types use the default order.
func orderFor(t reflect.Type) [typesystem.Count]typesystem.TypeSystem {
	if rt, err := lookupInterface(t); err == nil {
		return rt.lib.opts.callOrder()
	}
	return DefaultOptions().callOrder()
}

// callOrder lists type systems in the order outbound calls try them.
func (o Options) callOrder() [typesystem.Count]typesystem.TypeSystem {
	if o.PreferRaw {
		return [typesystem.Count]typesystem.TypeSystem{typesystem.Raw, typesystem.Automation}
	}
	return [typesystem.Count]typesystem.TypeSystem{typesystem.Automation, typesystem.Raw}
}
