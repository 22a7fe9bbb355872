package model

import (
	"fmt"
	"reflect"
	"slices"

	"github.com/wippyai/com-runtime/errors"
	"github.com/wippyai/com-runtime/guid"
	"github.com/wippyai/com-runtime/typesystem"
)

// Interface is an interface declaration: a Go interface type giving the
// method signatures plus the data reflection cannot recover (method order,
// parameter names, IIDs, base interface).
type Interface struct {
	GoType   reflect.Type
	Base     *Interface
	iids     [typesystem.Count]*guid.GUID
	Name     string
	Methods  []*Method
	NoBase   bool
	Implicit bool
}

// InterfaceOption configures an interface declaration.
type InterfaceOption func(*interfaceConfig)

type interfaceConfig struct {
	base       *Interface
	iids       [typesystem.Count]*guid.GUID
	order      []string
	paramNames map[string][]string
	consts     []string
	noBase     bool
	implicit   bool
}

// WithIID sets the Automation IID. Without it the IID is generated from the
// library and interface names.
func WithIID(iid guid.GUID) InterfaceOption {
	return func(c *interfaceConfig) { c.iids[typesystem.Automation] = &iid }
}

// WithRawIID sets the Raw IID.
func WithRawIID(iid guid.GUID) InterfaceOption {
	return func(c *interfaceConfig) { c.iids[typesystem.Raw] = &iid }
}

// WithBase derives the interface from base instead of IUnknown. The Go type
// must embed the base's Go type.
func WithBase(base *Interface) InterfaceOption {
	return func(c *interfaceConfig) { c.base = base }
}

// WithoutBase declares a root interface: its vtable starts with its own
// methods.
func WithoutBase() InterfaceOption {
	return func(c *interfaceConfig) { c.noBase = true }
}

// WithMethodOrder fixes the vtable order of the interface's own methods.
// Reflection reports methods sorted by name, so without this option the
// vtable is in alphabetical order.
func WithMethodOrder(names ...string) InterfaceOption {
	return func(c *interfaceConfig) { c.order = names }
}

// WithParamNames names a method's parameters: inputs first, then outputs.
func WithParamNames(method string, names ...string) InterfaceOption {
	return func(c *interfaceConfig) {
		if c.paramNames == nil {
			c.paramNames = make(map[string][]string)
		}
		c.paramNames[method] = names
	}
}

// WithConst marks methods that only read object state.
func WithConst(methods ...string) InterfaceOption {
	return func(c *interfaceConfig) { c.consts = append(c.consts, methods...) }
}

// AsImplicit marks an interface that exists only for a single class. Its
// pointers may be resolved by direct cast instead of vtable dispatch.
func AsImplicit() InterfaceOption {
	return func(c *interfaceConfig) { c.implicit = true }
}

// DeclareInterface builds an interface declaration from a Go interface type.
func DeclareInterface(name string, goType reflect.Type, opts ...InterfaceOption) (*Interface, error) {
	if goType == nil || goType.Kind() != reflect.Interface {
		return nil, errors.Registration("interface", name, fmt.Errorf("%v is not an interface type", goType))
	}

	var cfg interfaceConfig
	for _, opt := range opts {
		opt(&cfg)
	}

	itf := &Interface{
		Name:     name,
		GoType:   goType,
		NoBase:   cfg.noBase,
		Implicit: cfg.implicit,
		iids:     cfg.iids,
	}
	if !cfg.noBase {
		itf.Base = cfg.base
		if itf.Base == nil {
			itf.Base = IUnknown
		}
	}

	// IUnknown's methods are served by the runtime, never by the Go type.
	inherited := make(map[string]bool)
	for b := itf.Base; b != nil && b != IUnknown; b = b.Base {
		if !goType.Implements(b.GoType) {
			return nil, errors.Registration("interface", name, fmt.Errorf("%s does not embed base %s", goType, b.Name))
		}
		for i := 0; i < b.GoType.NumMethod(); i++ {
			inherited[b.GoType.Method(i).Name] = true
		}
	}

	var own []string
	for i := 0; i < goType.NumMethod(); i++ {
		if n := goType.Method(i).Name; !inherited[n] {
			own = append(own, n)
		}
	}

	order := own
	if cfg.order != nil {
		if err := checkOrder(own, cfg.order); err != nil {
			return nil, errors.Registration("interface", name, err)
		}
		order = cfg.order
	}

	for _, mname := range order {
		rm, _ := goType.MethodByName(mname)
		m, err := methodFromFunc(mname, rm.Type, cfg.paramNames[mname])
		if err != nil {
			return nil, errors.Registration("interface", name, err)
		}
		m.Const = slices.Contains(cfg.consts, mname)
		itf.Methods = append(itf.Methods, m)
	}
	return itf, nil
}

// MustDeclareInterface is like DeclareInterface but panics on error.
// Intended for package-level declarations.
func MustDeclareInterface(name string, goType reflect.Type, opts ...InterfaceOption) *Interface {
	itf, err := DeclareInterface(name, goType, opts...)
	if err != nil {
		panic(err)
	}
	return itf
}

// InterfaceOf declares the Go interface type I.
func InterfaceOf[I any](name string, opts ...InterfaceOption) (*Interface, error) {
	return DeclareInterface(name, reflect.TypeFor[I](), opts...)
}

func checkOrder(own, order []string) error {
	if len(order) != len(own) {
		return fmt.Errorf("method order lists %d methods, interface declares %d", len(order), len(own))
	}
	seen := make(map[string]bool, len(order))
	for _, n := range order {
		if seen[n] {
			return fmt.Errorf("method %s listed twice", n)
		}
		seen[n] = true
		if !slices.Contains(own, n) {
			return fmt.Errorf("method %s is not declared by the interface", n)
		}
	}
	return nil
}

// DeclaredIID returns the explicit IID for ts, if one was given.
func (i *Interface) DeclaredIID(ts typesystem.TypeSystem) (guid.GUID, bool) {
	if p := i.iids[ts]; p != nil {
		return *p, true
	}
	return guid.Zero, false
}

// IID returns the interface ID of the ts variant. Undeclared IIDs are
// generated from the library name, the interface name and the type system,
// so they are stable across rebuilds.
func (i *Interface) IID(library string, ts typesystem.TypeSystem) guid.GUID {
	if iid, ok := i.DeclaredIID(ts); ok {
		return iid
	}
	return guid.GenerateIID(library, i.Name, ts.Key())
}

// Chain returns the interface and its bases, root first.
func (i *Interface) Chain() []*Interface {
	var chain []*Interface
	for it := i; it != nil; it = it.Base {
		chain = append(chain, it)
	}
	slices.Reverse(chain)
	return chain
}

// AllMethods returns the full vtable method list: the base chain's methods
// first, then this interface's own.
func (i *Interface) AllMethods() []*Method {
	var all []*Method
	for _, it := range i.Chain() {
		all = append(all, it.Methods...)
	}
	return all
}

// Method looks up a method anywhere in the chain.
func (i *Interface) Method(name string) (*Method, int, bool) {
	for idx, m := range i.AllMethods() {
		if m.Name == name {
			return m, idx, true
		}
	}
	return nil, -1, false
}

// Derives reports whether i is other or inherits from it.
func (i *Interface) Derives(other *Interface) bool {
	for it := i; it != nil; it = it.Base {
		if it == other {
			return true
		}
	}
	return false
}

func (i *Interface) String() string {
	return i.Name
}
