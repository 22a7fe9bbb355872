// Package model holds interface, class and library declarations: the data
// the object model is built from.
//
// An interface is declared from a Go interface type. Method signatures map
// onto vtable entries as follows:
//
//	Sqrt(x float64) (float64, error)   HRESULT Sqrt([in] double x, [out, retval] double* retval)
//	Store(k string, v int32) error     HRESULT Store([in] BSTR k, [in] long v)
//	Count() uint32                     ULONG Count()
//
// A trailing error result makes the method fallible: the status code travels
// as the return value and every other result becomes an out parameter, the
// last one marked retval. Methods without an error result are infallible and
// return at most one word-sized value directly.
//
// Every interface exists in two variants, one per type system, each with its
// own IID. Declared IIDs win; missing ones are generated from the library
// name, the interface name and the type system.
//
//	var IMath = model.MustDeclareInterface("IMath", reflect.TypeFor[Math](),
//		model.WithIID(guid.MustParse("{...}")),
//		model.WithParamNames("Sqrt", "value"),
//	)
package model
