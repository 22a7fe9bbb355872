package com

import (
	"math"
	"sync"
	"testing"

	"github.com/wippyai/com-runtime/errors"
	"github.com/wippyai/com-runtime/hresult"
	"github.com/wippyai/com-runtime/model"
)

type Math interface {
	Sqrt(x float64) (float64, error)
	Add(a, b int32) int32
}

type Scientific interface {
	Math
	Pow(x, y float64) (float64, error)
	Twin() (*Rc[Math], error)
	SumRoots(other Itf[Math], x float64) (float64, error)
	Label() (string, error)
	Explode() error
}

type Counter interface {
	Next() (int32, error)
}

type calc struct {
	label string
	next  int32
}

func (c *calc) Sqrt(x float64) (float64, error) {
	if x < 0 {
		return 0, errors.Fail(hresult.E_INVALIDARG, "cannot take the square root of %v", x)
	}
	return math.Sqrt(x), nil
}

func (c *calc) Add(a, b int32) int32 {
	return a + b
}

func (c *calc) Pow(x, y float64) (float64, error) {
	return math.Pow(x, y), nil
}

func (c *calc) Twin() (*Rc[Math], error) {
	b, err := New(fixture.lib, calc{label: c.label + "'"})
	if err != nil {
		return nil, err
	}
	return IntoRc[Math](b)
}

func (c *calc) SumRoots(other Itf[Math], x float64) (float64, error) {
	m, err := other.Get()
	if err != nil {
		return 0, err
	}
	theirs, err := m.Sqrt(x)
	if err != nil {
		return 0, err
	}
	ours, err := c.Sqrt(x)
	if err != nil {
		return 0, err
	}
	return ours + theirs, nil
}

func (c *calc) Label() (string, error) {
	return c.label, nil
}

func (c *calc) Explode() error {
	panic("kaboom")
}

func (c *calc) Next() (int32, error) {
	c.next++
	return c.next, nil
}

// quiet reports failures by status code only.
type quiet struct {
	calc
}

type mathProxy struct {
	inv *Invoker
}

func (p mathProxy) Sqrt(x float64) (float64, error) {
	return Invoke1[float64](p.inv, "Sqrt", x)
}

func (p mathProxy) Add(a, b int32) int32 {
	return MustInvoke1[int32](p.inv, "Add", a, b)
}

type scientificProxy struct {
	mathProxy
}

func (p scientificProxy) Pow(x, y float64) (float64, error) {
	return Invoke1[float64](p.inv, "Pow", x, y)
}

func (p scientificProxy) Twin() (*Rc[Math], error) {
	return Invoke1[*Rc[Math]](p.inv, "Twin")
}

func (p scientificProxy) SumRoots(other Itf[Math], x float64) (float64, error) {
	return Invoke1[float64](p.inv, "SumRoots", other, x)
}

func (p scientificProxy) Label() (string, error) {
	return Invoke1[string](p.inv, "Label")
}

func (p scientificProxy) Explode() error {
	return Invoke0(p.inv, "Explode")
}

type calcFixture struct {
	lib        *Library
	imath      *model.Interface
	scientific *model.Interface
	counter    *model.Interface
	calc       *Class
	quiet      *Class
}

var (
	fixture     calcFixture
	fixtureErr  error
	fixtureOnce sync.Once
)

func testFixture(t *testing.T) *calcFixture {
	t.Helper()
	fixtureOnce.Do(func() {
		fixtureErr = buildFixture()
	})
	if fixtureErr != nil {
		t.Fatalf("build fixture: %v", fixtureErr)
	}
	return &fixture
}

func buildFixture() error {
	var err error
	f := &fixture

	f.imath, err = model.InterfaceOf[Math]("IMath",
		model.WithMethodOrder("Sqrt", "Add"),
		model.WithParamNames("Sqrt", "x", "result"),
		model.WithConst("Sqrt", "Add"))
	if err != nil {
		return err
	}
	f.scientific, err = model.InterfaceOf[Scientific]("IScientific",
		model.WithBase(f.imath),
		model.WithMethodOrder("Pow", "Twin", "SumRoots", "Label", "Explode"))
	if err != nil {
		return err
	}
	f.counter, err = model.InterfaceOf[Counter]("ICounter", model.AsImplicit())
	if err != nil {
		return err
	}

	decl := model.NewLibrary("calctest")
	calcDecl, err := model.ClassOf[calc]("Calc",
		[]*model.Interface{f.scientific, f.counter}, model.WithGeneratedCLSID())
	if err != nil {
		return err
	}
	quietDecl, err := model.ClassOf[quiet]("Quiet",
		[]*model.Interface{f.imath}, model.WithoutErrorInfo())
	if err != nil {
		return err
	}
	for _, c := range []*model.Class{calcDecl, quietDecl} {
		if err := decl.AddClass(c); err != nil {
			return err
		}
	}

	f.lib, err = NewLibrary(decl, DefaultOptions())
	if err != nil {
		return err
	}
	f.calc, _ = f.lib.Class("Calc")
	f.quiet, _ = f.lib.Class("Quiet")

	RegisterProxy(func(inv *Invoker) Math { return mathProxy{inv} })
	RegisterProxy(func(inv *Invoker) Scientific { return scientificProxy{mathProxy{inv}} })

	return SetConstructor(f.lib, func() (calc, error) {
		return calc{label: "factory", next: 100}, nil
	})
}

// expectViolation runs fn and requires it to panic with a
// *ProtocolViolation.
func expectViolation(t *testing.T, fn func()) *ProtocolViolation {
	t.Helper()
	var got *ProtocolViolation
	func() {
		defer func() {
			r := recover()
			if r == nil {
				return
			}
			v, ok := r.(*ProtocolViolation)
			if !ok {
				panic(r)
			}
			got = v
		}()
		fn()
	}()
	if got == nil {
		t.Fatal("expected a protocol violation")
	}
	return got
}
