package model

import (
	"fmt"
	"reflect"
	"slices"

	"github.com/wippyai/com-runtime/errors"
	"github.com/wippyai/com-runtime/guid"
)

// Class is a class declaration: a Go struct type and the interfaces its
// pointer type implements. IUnknown is always implied and never listed.
type Class struct {
	GoType       reflect.Type
	clsid        *guid.GUID
	Name         string
	Interfaces   []*Interface
	generateID   bool
	SupportsInfo bool
}

// ClassOption configures a class declaration.
type ClassOption func(*Class)

// WithCLSID makes the class creatable under the given class ID.
func WithCLSID(clsid guid.GUID) ClassOption {
	return func(c *Class) { c.clsid = &clsid }
}

// WithGeneratedCLSID makes the class creatable under a class ID derived
// from the library and class names.
func WithGeneratedCLSID() ClassOption {
	return func(c *Class) { c.generateID = true }
}

// WithoutErrorInfo stops the class from advertising ISupportErrorInfo
// support for its interfaces. Callers then never read the error channel
// after its failures.
func WithoutErrorInfo() ClassOption {
	return func(c *Class) { c.SupportsInfo = false }
}

// DeclareClass builds a class declaration. Interfaces are deduplicated and
// keep their first-seen order, which fixes the vtable-list layout.
func DeclareClass(name string, goType reflect.Type, interfaces []*Interface, opts ...ClassOption) (*Class, error) {
	if goType == nil {
		return nil, errors.Registration("class", name, fmt.Errorf("nil Go type"))
	}
	if goType.Kind() == reflect.Pointer || goType.Kind() == reflect.Interface {
		return nil, errors.Registration("class", name, fmt.Errorf("class type must be a value type, got %s", goType))
	}

	c := &Class{Name: name, GoType: goType, SupportsInfo: true}
	for _, opt := range opts {
		opt(c)
	}

	ptr := reflect.PointerTo(goType)
	for _, itf := range interfaces {
		if itf == nil {
			return nil, errors.Registration("class", name, fmt.Errorf("nil interface"))
		}
		if itf == IUnknown || slices.Contains(c.Interfaces, itf) {
			continue
		}
		if !ptr.Implements(itf.GoType) {
			return nil, errors.Registration("class", name, fmt.Errorf("%s does not implement %s", ptr, itf.Name))
		}
		c.Interfaces = append(c.Interfaces, itf)
	}
	return c, nil
}

// ClassOf declares the Go type T as a class.
func ClassOf[T any](name string, interfaces []*Interface, opts ...ClassOption) (*Class, error) {
	return DeclareClass(name, reflect.TypeFor[T](), interfaces, opts...)
}

// CLSID returns the class ID within library. Classes without one are
// library-internal: they can be constructed in-process but not created
// through the class factory.
func (c *Class) CLSID(library string) (guid.GUID, bool) {
	if c.clsid != nil {
		return *c.clsid, true
	}
	if c.generateID {
		return guid.GenerateCLSID(library, c.Name), true
	}
	return guid.Zero, false
}

// Implements reports whether the class lists itf or an interface derived
// from it.
func (c *Class) Implements(itf *Interface) bool {
	if itf == IUnknown {
		return true
	}
	for _, own := range c.Interfaces {
		if own.Derives(itf) {
			return true
		}
	}
	return false
}

func (c *Class) String() string {
	return c.Name
}
