// Package typelib describes libraries for tools and non-Go clients.
//
// A TypeLib lists every interface variant with its IID and full vtable,
// and every class with its CLSID and vtable-list layout. It comes from a
// hand-written TOML manifest or from a loaded library:
//
//	m, err := typelib.LoadManifest("calculator.toml")
//	tl, err := m.Resolve()
//
//	tl := typelib.Export(lib)
//	tl.Encode(os.Stdout, typelib.FormatJSON)
//
// TOML, JSON and msgpack encodings are supported.
package typelib
