package typelib

import (
	"github.com/wippyai/com-runtime/guid"
	"github.com/wippyai/com-runtime/typesystem"
)

// TypeLib describes a library's interfaces and classes with every ID
// resolved and every type named the way foreign code sees it. IDs are
// hyphenated upper-case GUID text.
type TypeLib struct {
	Name       string      `toml:"name" json:"name" msgpack:"name"`
	LIBID      string      `toml:"libid" json:"libid" msgpack:"libid"`
	Interfaces []Interface `toml:"interface" json:"interfaces" msgpack:"interfaces"`
	Classes    []Class     `toml:"class" json:"classes" msgpack:"classes"`
}

// Interface is one interface with a variant per type system.
type Interface struct {
	Name     string    `toml:"name" json:"name" msgpack:"name"`
	Base     string    `toml:"base,omitempty" json:"base,omitempty" msgpack:"base,omitempty"`
	Variants []Variant `toml:"variant" json:"variants" msgpack:"variants"`
}

// Variant is the vtable of an interface in one type system.
type Variant struct {
	TypeSystem string   `toml:"type_system" json:"type_system" msgpack:"type_system"`
	IID        string   `toml:"iid" json:"iid" msgpack:"iid"`
	Methods    []Method `toml:"method" json:"methods" msgpack:"methods"`
}

// Method is one vtable entry. Index counts from the start of the vtable,
// IUnknown's entries included.
type Method struct {
	Name    string  `toml:"name" json:"name" msgpack:"name"`
	Index   int     `toml:"index" json:"index" msgpack:"index"`
	Params  []Param `toml:"param,omitempty" json:"params,omitempty" msgpack:"params,omitempty"`
	Returns string  `toml:"returns" json:"returns" msgpack:"returns"`
	Const   bool    `toml:"const,omitempty" json:"const,omitempty" msgpack:"const,omitempty"`
}

// Param is a method parameter. Dir is "in", "out" or "retval".
type Param struct {
	Name string `toml:"name" json:"name" msgpack:"name"`
	Type string `toml:"type" json:"type" msgpack:"type"`
	Dir  string `toml:"dir" json:"dir" msgpack:"dir"`
}

// Class is a class and, when exported from a loaded library, the layout of
// its vtable list.
type Class struct {
	Name       string   `toml:"name" json:"name" msgpack:"name"`
	CLSID      string   `toml:"clsid,omitempty" json:"clsid,omitempty" msgpack:"clsid,omitempty"`
	Interfaces []string `toml:"interfaces" json:"interfaces" msgpack:"interfaces"`
	ErrorInfo  bool     `toml:"error_info" json:"error_info" msgpack:"error_info"`
	Slots      []Slot   `toml:"slot,omitempty" json:"slots,omitempty" msgpack:"slots,omitempty"`
}

// Slot is one entry of a class's vtable list.
type Slot struct {
	Interface  string `toml:"interface" json:"interface" msgpack:"interface"`
	TypeSystem string `toml:"type_system" json:"type_system" msgpack:"type_system"`
	Offset     uint64 `toml:"offset" json:"offset" msgpack:"offset"`
}

// Interface looks up an interface by name.
func (t *TypeLib) Interface(name string) (*Interface, bool) {
	for i := range t.Interfaces {
		if t.Interfaces[i].Name == name {
			return &t.Interfaces[i], true
		}
	}
	return nil, false
}

// Class looks up a class by name.
func (t *TypeLib) Class(name string) (*Class, bool) {
	for i := range t.Classes {
		if t.Classes[i].Name == name {
			return &t.Classes[i], true
		}
	}
	return nil, false
}

// Variant returns the variant for ts.
func (i *Interface) Variant(ts typesystem.TypeSystem) (*Variant, bool) {
	for k := range i.Variants {
		if i.Variants[k].TypeSystem == ts.Key() {
			return &i.Variants[k], true
		}
	}
	return nil, false
}

func formatID(g guid.GUID) string {
	return g.Hyphenated(true)
}
