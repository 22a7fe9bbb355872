package typelib

import (
	"reflect"

	"github.com/wippyai/com-runtime/com"
	"github.com/wippyai/com-runtime/extern"
	"github.com/wippyai/com-runtime/model"
	"github.com/wippyai/com-runtime/typesystem"
)

// Export describes a loaded library, class layouts included.
func Export(lib *com.Library) *TypeLib {
	t := &TypeLib{
		Name:  lib.Name(),
		LIBID: formatID(lib.Decl.LIBID()),
	}

	for _, rt := range lib.Interfaces() {
		itf := Interface{Name: rt.Name()}
		if b := rt.Decl.Base; b != nil && b != model.IUnknown {
			itf.Base = b.Name
		}
		for _, ts := range typesystem.All {
			v := Variant{TypeSystem: ts.Key(), IID: formatID(rt.IID(ts))}
			for i, m := range rt.Methods() {
				v.Methods = append(v.Methods, exportMethod(m, i, ts))
			}
			itf.Variants = append(itf.Variants, v)
		}
		t.Interfaces = append(t.Interfaces, itf)
	}

	for _, c := range lib.Classes() {
		class := Class{
			Name:      c.Name(),
			ErrorInfo: c.Decl.SupportsInfo && lib.Options().SupportErrorInfo,
		}
		if clsid, ok := c.CLSID(); ok {
			class.CLSID = formatID(clsid)
		}
		for _, d := range c.Decl.Interfaces {
			class.Interfaces = append(class.Interfaces, d.Name)
			rt, ok := lib.Interface(d.Name)
			if !ok {
				continue
			}
			for _, ts := range typesystem.All {
				if off, ok := c.Offset(rt, ts); ok {
					class.Slots = append(class.Slots, Slot{Interface: d.Name, TypeSystem: ts.Key(), Offset: uint64(off)})
				}
			}
		}
		t.Classes = append(t.Classes, class)
	}
	return t
}

func exportMethod(m *model.Method, index int, ts typesystem.TypeSystem) Method {
	out := Method{Name: m.Name, Index: index, Const: m.Const, Returns: "HRESULT"}
	if m.Infallible {
		out.Returns = "void"
		if m.Return != nil {
			out.Returns = typeName(m.Return, ts)
		}
	}
	for _, p := range m.Params {
		out.Params = append(out.Params, Param{Name: p.Name, Type: typeName(p.Type, ts), Dir: p.Dir.String()})
	}
	return out
}

func typeName(t reflect.Type, ts typesystem.TypeSystem) string {
	c, err := extern.Lookup(t, ts)
	if err != nil {
		return t.String()
	}
	return c.ForeignName()
}
