package model

import (
	"fmt"

	"github.com/wippyai/com-runtime/errors"
	"github.com/wippyai/com-runtime/guid"
	"github.com/wippyai/com-runtime/typesystem"
)

// Library groups the declarations that ship together. Its name seeds every
// generated ID.
type Library struct {
	libid      *guid.GUID
	Name       string
	Interfaces []*Interface
	Classes    []*Class
}

// NewLibrary creates an empty library.
func NewLibrary(name string) *Library {
	return &Library{Name: name}
}

// SetLIBID overrides the generated library ID.
func (l *Library) SetLIBID(id guid.GUID) {
	l.libid = &id
}

// LIBID returns the library ID.
func (l *Library) LIBID() guid.GUID {
	if l.libid != nil {
		return *l.libid
	}
	return guid.GenerateLIBID(l.Name)
}

// AddInterface adds an interface and, transitively, its bases.
func (l *Library) AddInterface(itf *Interface) error {
	if itf == nil || itf == IUnknown {
		return nil
	}
	for _, existing := range l.Interfaces {
		if existing == itf {
			return nil
		}
		if existing.Name == itf.Name {
			return errors.Duplicate("interface", itf.Name)
		}
	}
	if err := l.AddInterface(itf.Base); err != nil {
		return err
	}
	l.Interfaces = append(l.Interfaces, itf)
	return nil
}

// AddClass adds a class and the interfaces it implements.
func (l *Library) AddClass(c *Class) error {
	for _, existing := range l.Classes {
		if existing.Name == c.Name {
			return errors.Duplicate("class", c.Name)
		}
	}
	if id, ok := c.CLSID(l.Name); ok {
		for _, existing := range l.Classes {
			if other, ok := existing.CLSID(l.Name); ok && other == id {
				return errors.Registration("class", c.Name, fmt.Errorf("CLSID %s already used by %s", id, existing.Name))
			}
		}
	}
	for _, itf := range c.Interfaces {
		if err := l.AddInterface(itf); err != nil {
			return err
		}
	}
	l.Classes = append(l.Classes, c)
	return nil
}

// Validate checks that no two interface variants share an IID.
func (l *Library) Validate() error {
	seen := make(map[guid.GUID]string)
	for _, itf := range l.Interfaces {
		for _, ts := range typesystem.All {
			iid := itf.IID(l.Name, ts)
			key := itf.Name + "/" + ts.String()
			if prev, ok := seen[iid]; ok {
				return errors.Registration("interface", itf.Name, fmt.Errorf("IID %s shared by %s and %s", iid, prev, key))
			}
			seen[iid] = key
		}
	}
	return nil
}

// Interface looks up an interface by name.
func (l *Library) Interface(name string) (*Interface, bool) {
	for _, itf := range l.Interfaces {
		if itf.Name == name {
			return itf, true
		}
	}
	return nil, false
}

// Class looks up a class by name.
func (l *Library) Class(name string) (*Class, bool) {
	for _, c := range l.Classes {
		if c.Name == name {
			return c, true
		}
	}
	return nil, false
}
