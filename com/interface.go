package com

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/wippyai/com-runtime/com/internal/thunk"
	"github.com/wippyai/com-runtime/errors"
	"github.com/wippyai/com-runtime/extern"
	"github.com/wippyai/com-runtime/guid"
	"github.com/wippyai/com-runtime/model"
	"github.com/wippyai/com-runtime/typesystem"
)

// Interface is an interface declaration bound to a library: IIDs are
// resolved and every method has a conversion plan per type system.
type Interface struct {
	Decl *model.Interface
	lib  *Library
	iids [typesystem.Count]guid.GUID
	// methods is the full vtable order, IUnknown's methods included;
	// owners[i] is the declaration methods[i] comes from.
	methods  []*model.Method
	owners   []*model.Interface
	plans    [typesystem.Count][]*methodPlan
	implicit *Class
}

// methodPlan is one vtable entry with the converters for its parameters.
type methodPlan struct {
	method *model.Method
	params []extern.Converter
	ret    extern.Converter
	index  int
	sig    thunk.Sig
}

var (
	interfacesMu sync.RWMutex
	interfaces   = make(map[reflect.Type]*Interface)

	proxiesMu sync.RWMutex
	proxies   = make(map[reflect.Type]func(*Invoker) any)
)

// RegisterProxy installs the constructor of I's outbound proxy: a Go value
// implementing I by calling through an Invoker. Itf[I].Get returns it.
func RegisterProxy[I any](fn func(*Invoker) I) {
	proxiesMu.Lock()
	defer proxiesMu.Unlock()
	proxies[reflect.TypeFor[I]()] = func(inv *Invoker) any { return fn(inv) }
}

func proxyFor(t reflect.Type) (func(*Invoker) any, bool) {
	proxiesMu.RLock()
	defer proxiesMu.RUnlock()
	fn, ok := proxies[t]
	return fn, ok
}

// InterfaceOf returns the bound interface whose Go type is I.
func InterfaceOf[I any]() (*Interface, error) {
	return lookupInterface(reflect.TypeFor[I]())
}

func lookupInterface(t reflect.Type) (*Interface, error) {
	if t == reflect.TypeFor[model.Unknown]() {
		runtimeLibrary()
	}
	interfacesMu.RLock()
	rt, ok := interfaces[t]
	interfacesMu.RUnlock()
	if !ok {
		return nil, errors.NotFound(errors.PhaseQuery, "interface", t.String())
	}
	return rt, nil
}

// bind resolves decl within the library. A Go interface type can be bound
// once; binding it again from another library is allowed only with
// identical IIDs.
func (l *Library) bind(decl *model.Interface) (*Interface, error) {
	if rt, ok := l.interfaces[decl]; ok {
		return rt, nil
	}

	rt := &Interface{Decl: decl, lib: l}
	for _, ts := range typesystem.All {
		rt.iids[ts] = decl.IID(l.Decl.Name, ts)
	}

	interfacesMu.Lock()
	defer interfacesMu.Unlock()

	if existing, ok := interfaces[decl.GoType]; ok {
		if existing.Decl != decl || existing.iids != rt.iids {
			return nil, errors.Registration("interface", decl.Name,
				fmt.Errorf("Go type %s already bound by library %s", decl.GoType, existing.lib.Decl.Name))
		}
		l.interfaces[decl] = existing
		return existing, nil
	}

	for _, owner := range decl.Chain() {
		for _, m := range owner.Methods {
			rt.methods = append(rt.methods, m)
			rt.owners = append(rt.owners, owner)
		}
	}
	if err := rt.buildPlans(); err != nil {
		return nil, err
	}

	interfaces[decl.GoType] = rt
	l.interfaces[decl] = rt
	return rt, nil
}

func (rt *Interface) buildPlans() error {
	for _, ts := range typesystem.All {
		plans := make([]*methodPlan, len(rt.methods))
		for i, m := range rt.methods {
			p := &methodPlan{method: m, index: i, params: make([]extern.Converter, len(m.Params))}
			for j, param := range m.Params {
				c, err := extern.Lookup(param.Type, ts)
				if err != nil {
					return errors.Registration("interface", rt.Decl.Name,
						fmt.Errorf("%s parameter %s: %w", m.Name, param.Name, err))
				}
				if err := checkPointerDirection(param); err != nil {
					return errors.Registration("interface", rt.Decl.Name, fmt.Errorf("%s: %w", m.Name, err))
				}
				p.params[j] = c
			}
			if m.Return != nil {
				c, err := extern.Lookup(m.Return, ts)
				if err != nil {
					return errors.Registration("interface", rt.Decl.Name, fmt.Errorf("%s result: %w", m.Name, err))
				}
				if c.ByRef() || isItfType(m.Return) {
					return errors.Registration("interface", rt.Decl.Name,
						fmt.Errorf("%s cannot return %s directly", m.Name, m.Return))
				}
				p.ret = c
			}
			p.sig = p.signature()
			plans[i] = p
		}
		rt.plans[ts] = plans
	}
	return nil
}

// signature classifies the words of a call: the interface pointer, then
// one word per parameter. Outputs are pointers; only scalar floats passed
// by value travel in floating-point registers.
func (p *methodPlan) signature() thunk.Sig {
	sig := thunk.Sig{Float: make([]bool, 1+len(p.params))}
	for j, c := range p.params {
		sig.Float[j+1] = p.method.Params[j].Dir == model.In && floatWord(c)
	}
	sig.FloatResult = p.ret != nil && floatWord(p.ret)
	return sig
}

func floatWord(c extern.Converter) bool {
	if c.ByRef() {
		return false
	}
	k := c.GoType().Kind()
	return k == reflect.Float32 || k == reflect.Float64
}

// Signature returns how the named method's words travel in the native
// calling convention, for use with CallWith.
func (rt *Interface) Signature(ts typesystem.TypeSystem, name string) (Signature, bool) {
	p, ok := rt.plan(ts, name)
	if !ok {
		return Signature{}, false
	}
	return p.sig, true
}

// checkPointerDirection enforces who owns interface references: inputs are
// borrowed (Itf), outputs transfer ownership (*Rc).
func checkPointerDirection(p model.Param) error {
	if p.Dir == model.In && isRcType(p.Type) {
		return fmt.Errorf("input %s must be an Itf, inputs are borrowed", p.Name)
	}
	if p.Dir != model.In && isItfType(p.Type) {
		return fmt.Errorf("output %s must be an *Rc, outputs are owned", p.Name)
	}
	return nil
}

// Name returns the declared interface name.
func (rt *Interface) Name() string {
	return rt.Decl.Name
}

// IID returns the interface ID of the variant for ts.
func (rt *Interface) IID(ts typesystem.TypeSystem) guid.GUID {
	return rt.iids[ts]
}

// Methods returns every vtable entry in order, IUnknown's first.
func (rt *Interface) Methods() []*model.Method {
	return rt.methods
}

// plan finds a method by name. Derived interfaces cannot redeclare a base
// method, so names are unique across the chain.
func (rt *Interface) plan(ts typesystem.TypeSystem, name string) (*methodPlan, bool) {
	for _, p := range rt.plans[ts] {
		if p.method.Name == name {
			return p, true
		}
	}
	return nil, false
}

func (rt *Interface) String() string {
	return rt.Decl.Name
}
