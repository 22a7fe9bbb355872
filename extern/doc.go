// Package extern converts Go values to and from their foreign
// representation in each type system.
//
// A Converter is resolved once per (Go type, type system) pair and cached:
//
//	c, err := extern.Lookup(reflect.TypeFor[string](), typesystem.Automation)
//
// Built in conversions cover bool, sized integers, floats, strings (BSTR or
// char*), GUID, VARIANT and pointer-free structs whose Go layout equals the C
// layout. Other packages add conversions with RegisterFactory.
//
// Every foreign buffer comes from the process heap (see SetHeap). Inputs are
// lowered into an AllocationList that is freed when the call returns;
// outputs transfer ownership to the receiver. OutputGuard makes a set of
// output writes all-or-nothing.
package extern
