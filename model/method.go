package model

import (
	"fmt"
	"reflect"
)

// Direction is the data flow of a parameter.
type Direction uint8

const (
	In Direction = iota
	Out
	Retval
)

func (d Direction) String() string {
	switch d {
	case In:
		return "in"
	case Out:
		return "out"
	case Retval:
		return "retval"
	}
	return fmt.Sprintf("Direction(%d)", uint8(d))
}

// Param is one method parameter. Out and Retval parameters are passed as
// pointers to caller-owned slots.
type Param struct {
	Type reflect.Type
	Name string
	Dir  Direction
}

// Method is one vtable entry. Params lists In parameters in declaration
// order, followed by the Out parameters and finally the Retval.
type Method struct {
	Return     reflect.Type
	Name       string
	Params     []Param
	Infallible bool
	Const      bool
}

var errorType = reflect.TypeOf((*error)(nil)).Elem()

// methodFromFunc derives a method from a Go signature (without receiver):
//
//	func(in...) error                 fallible, no outputs
//	func(in...) (T, error)            fallible, T is the retval
//	func(in...) (A, B, T, error)      fallible, A and B are out, T is the retval
//	func(in...)                       infallible, no return
//	func(in...) T                     infallible, T returned directly
func methodFromFunc(name string, ft reflect.Type, names []string) (*Method, error) {
	if ft.Kind() != reflect.Func {
		return nil, fmt.Errorf("method %s: %s is not a function", name, ft)
	}
	if ft.IsVariadic() {
		return nil, fmt.Errorf("method %s: variadic methods have no vtable form", name)
	}

	m := &Method{Name: name}
	nameAt := func(i int, fallback string) string {
		if i < len(names) && names[i] != "" {
			return names[i]
		}
		return fallback
	}

	for i := 0; i < ft.NumIn(); i++ {
		m.Params = append(m.Params, Param{
			Name: nameAt(i, fmt.Sprintf("arg%d", i)),
			Type: ft.In(i),
			Dir:  In,
		})
	}

	nout := ft.NumOut()
	if nout > 0 && ft.Out(nout-1) == errorType {
		results := nout - 1
		for i := 0; i < results; i++ {
			dir := Out
			fallback := fmt.Sprintf("out%d", i)
			if i == results-1 {
				dir = Retval
				fallback = "retval"
			}
			m.Params = append(m.Params, Param{
				Name: nameAt(ft.NumIn()+i, fallback),
				Type: ft.Out(i),
				Dir:  dir,
			})
		}
		return m, nil
	}

	m.Infallible = true
	switch nout {
	case 0:
	case 1:
		m.Return = ft.Out(0)
	default:
		return nil, fmt.Errorf("method %s: infallible methods return at most one value, got %d", name, nout)
	}
	return m, nil
}

// Inputs returns the In parameters.
func (m *Method) Inputs() []Param {
	var in []Param
	for _, p := range m.Params {
		if p.Dir == In {
			in = append(in, p)
		}
	}
	return in
}

// Outputs returns the Out and Retval parameters in slot order.
func (m *Method) Outputs() []Param {
	var out []Param
	for _, p := range m.Params {
		if p.Dir != In {
			out = append(out, p)
		}
	}
	return out
}

// Retval returns the Retval parameter, if any.
func (m *Method) Retval() (Param, bool) {
	for _, p := range m.Params {
		if p.Dir == Retval {
			return p, true
		}
	}
	return Param{}, false
}

// Signature renders the method for diagnostics and tooling.
func (m *Method) Signature() string {
	s := m.Name + "("
	for i, p := range m.Params {
		if i > 0 {
			s += ", "
		}
		if p.Dir != In {
			s += "[" + p.Dir.String() + "] "
		}
		s += p.Name + " " + p.Type.String()
	}
	s += ")"
	switch {
	case !m.Infallible:
		s += " HRESULT"
	case m.Return != nil:
		s += " " + m.Return.String()
	}
	return s
}
