// Package typesystem names the two binary encodings a COM interface is
// compiled into.
//
// Automation targets scripting hosts: strings are BSTRs (length-prefixed
// UTF-16), booleans are VARIANT_BOOL and dynamic values are VARIANTs.
// Raw targets C clients: strings are NUL-terminated UTF-8 and booleans are a
// single 0/1 byte widened to a word.
//
// Every interface exists once per type system, each variant with its own IID
// and vtable. An object exposes both; callers pick one.
package typesystem

import (
	"fmt"
	"strings"
)

// TypeSystem selects one of the two ABI encodings.
type TypeSystem uint8

const (
	Automation TypeSystem = iota
	Raw
)

// All lists the type systems in vtable-list order.
var All = [...]TypeSystem{Automation, Raw}

// Count is the number of type systems.
const Count = len(All)

// String returns "Automation" or "Raw".
func (ts TypeSystem) String() string {
	switch ts {
	case Automation:
		return "Automation"
	case Raw:
		return "Raw"
	}
	return fmt.Sprintf("TypeSystem(%d)", uint8(ts))
}

// Key is the lower-case tag mixed into generated IIDs.
func (ts TypeSystem) Key() string {
	return strings.ToLower(ts.String())
}

// Valid reports whether ts is one of the known type systems.
func (ts TypeSystem) Valid() bool {
	return ts == Automation || ts == Raw
}

// Other returns the opposite type system.
func (ts TypeSystem) Other() TypeSystem {
	if ts == Automation {
		return Raw
	}
	return Automation
}

// StringType is the foreign name of the string representation.
func (ts TypeSystem) StringType() string {
	if ts == Automation {
		return "BSTR"
	}
	return "char*"
}

// BoolType is the foreign name of the boolean representation.
func (ts TypeSystem) BoolType() string {
	if ts == Automation {
		return "VARIANT_BOOL"
	}
	return "bool"
}

// Parse accepts "automation" or "raw" in any case.
func Parse(s string) (TypeSystem, error) {
	switch strings.ToLower(s) {
	case "automation":
		return Automation, nil
	case "raw":
		return Raw, nil
	}
	return 0, fmt.Errorf("unknown type system %q", s)
}

// MarshalText implements encoding.TextMarshaler.
func (ts TypeSystem) MarshalText() ([]byte, error) {
	if !ts.Valid() {
		return nil, fmt.Errorf("unknown type system %d", uint8(ts))
	}
	return []byte(ts.Key()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (ts *TypeSystem) UnmarshalText(text []byte) error {
	v, err := Parse(string(text))
	if err != nil {
		return err
	}
	*ts = v
	return nil
}
