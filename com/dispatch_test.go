package com

import (
	stderrors "errors"
	"math"
	"runtime"
	"strings"
	"testing"

	"github.com/wippyai/com-runtime/errors"
	"github.com/wippyai/com-runtime/extern"
	"github.com/wippyai/com-runtime/hresult"
	"github.com/wippyai/com-runtime/typesystem"
)

func newMath(t *testing.T, label string) (*Box[calc], *Rc[Math]) {
	t.Helper()
	f := testFixture(t)
	b, err := New(f.lib, calc{label: label})
	if err != nil {
		t.Fatal(err)
	}
	rc, err := IntoRc[Math](b)
	if err != nil {
		t.Fatal(err)
	}
	return b, rc
}

func TestDispatch_Sqrt(t *testing.T) {
	b, rc := newMath(t, "sqrt")
	if rc.Ptr(typesystem.Raw) == 0 || rc.Ptr(typesystem.Automation) != 0 {
		t.Fatalf("IntoRc should prefer Raw: %v", rc)
	}
	if b.RefCount() != 1 {
		t.Fatalf("RefCount = %d, want 1", b.RefCount())
	}

	m, err := rc.Get()
	if err != nil {
		t.Fatal(err)
	}
	got, err := m.Sqrt(4)
	if err != nil {
		t.Fatal(err)
	}
	if got != 2 {
		t.Errorf("Sqrt(4) = %v, want 2", got)
	}

	_, err = m.Sqrt(-1)
	var ce *errors.ComError
	if !stderrors.As(err, &ce) {
		t.Fatalf("Sqrt(-1) error = %T %v", err, err)
	}
	if ce.Code != hresult.E_INVALIDARG {
		t.Errorf("code = %s, want E_INVALIDARG", ce.Code)
	}
	if ce.Info == nil || !strings.Contains(ce.Info.Description, "square root") {
		t.Fatalf("missing description: %+v", ce.Info)
	}
	f := testFixture(t)
	rtMath, _ := f.lib.Interface("IMath")
	if ce.Info.Source != "Calc" || ce.Info.GUID != rtMath.IID(typesystem.Raw) {
		t.Errorf("info = %+v", ce.Info)
	}

	if got := m.Add(40, 2); got != 42 {
		t.Errorf("Add = %d", got)
	}

	if got := rc.Release(); got != 0 {
		t.Fatalf("Release = %d, want 0", got)
	}
	if rc.Release() != 0 {
		t.Error("second Rc.Release must be a no-op")
	}
	if b.Live() {
		t.Fatal("object should be destroyed")
	}

	ptr := rc.Ptr(typesystem.Raw)
	expectViolation(t, func() { callRelease(ptr) })
	runtime.KeepAlive(b)
}

// rawSqrt calls IMath.Sqrt through the raw vtable the way a C client
// would.
func rawSqrt(t *testing.T, ptr uintptr, x float64, out uintptr) hresult.HRESULT {
	t.Helper()
	rtMath, _ := testFixture(t).lib.Interface("IMath")
	sig, ok := rtMath.Signature(typesystem.Raw, "Sqrt")
	if !ok {
		t.Fatal("IMath has no Sqrt")
	}
	return HRESULT(CallWith(vtableEntry(ptr, 3), sig, ptr, uintptr(math.Float64bits(x)), out))
}

func TestDispatch_OutputZeroedOnFailure(t *testing.T) {
	b, rc := newMath(t, "raw")
	defer rc.Release()
	ptr := rc.Ptr(typesystem.Raw)

	out, err := extern.Heap().Alloc(8)
	if err != nil {
		t.Fatal(err)
	}
	defer extern.Heap().Free(out)
	*(*uint64)(extern.Ptr(out)) = math.Float64bits(123)

	if hr := rawSqrt(t, ptr, -1, out); hr != hresult.E_INVALIDARG {
		t.Fatalf("hr = %s", hr)
	}
	if got := *(*uint64)(extern.Ptr(out)); got != 0 {
		t.Errorf("output after failure = %#x, want 0", got)
	}
	if _, ok := PendingError(); !ok {
		t.Error("failure should leave error info behind")
	}

	if hr := rawSqrt(t, ptr, 9, 0); hr != hresult.E_POINTER {
		t.Errorf("null output: hr = %s, want E_POINTER", hr)
	}

	hr := rawSqrt(t, ptr, 9, out)
	if hr != hresult.S_OK || math.Float64frombits(*(*uint64)(extern.Ptr(out))) != 3 {
		t.Errorf("Sqrt(9): hr %s, out %v", hr, math.Float64frombits(*(*uint64)(extern.Ptr(out))))
	}
	runtime.KeepAlive(b)
}

func TestDispatch_NullOutputClearsChannel(t *testing.T) {
	b, rc := newMath(t, "stale")
	defer rc.Release()
	ptr := rc.Ptr(typesystem.Raw)
	rtMath, _ := testFixture(t).lib.Interface("IMath")

	out, err := extern.Heap().Alloc(8)
	if err != nil {
		t.Fatal(err)
	}
	defer extern.Heap().Free(out)

	if hr := rawSqrt(t, ptr, -1, out); hr != hresult.E_INVALIDARG {
		t.Fatalf("Sqrt(-1): hr = %s", hr)
	}
	hr := rawSqrt(t, ptr, 4, 0)
	if hr != hresult.E_POINTER {
		t.Fatalf("null output: hr = %s", hr)
	}

	ce := LoadErrorIfSupported(ptr, rtMath.IID(typesystem.Raw), hr)
	if ce.Code != hresult.E_POINTER {
		t.Errorf("code = %s", ce.Code)
	}
	if ce.Info != nil {
		t.Errorf("E_POINTER picked up an earlier failure's info: %+v", ce.Info)
	}
	runtime.KeepAlive(b)
}

func TestDispatch_QuietFailureClearsChannel(t *testing.T) {
	b, rc := newMath(t, "loud")
	defer rc.Release()

	out, err := extern.Heap().Alloc(8)
	if err != nil {
		t.Fatal(err)
	}
	defer extern.Heap().Free(out)
	if hr := rawSqrt(t, rc.Ptr(typesystem.Raw), -1, out); hr != hresult.E_INVALIDARG {
		t.Fatalf("Calc Sqrt(-1): hr = %s", hr)
	}

	qb, err := New(testFixture(t).lib, quiet{})
	if err != nil {
		t.Fatal(err)
	}
	qrc, err := IntoRc[Math](qb)
	if err != nil {
		t.Fatal(err)
	}
	defer qrc.Release()
	q, _ := qrc.Get()
	if _, err := q.Sqrt(-4); err == nil {
		t.Fatal("Quiet Sqrt(-4) should fail")
	}

	if info, ok := PendingError(); ok {
		t.Errorf("channel still holds %q from %q", info.Description, info.Source)
	}
	runtime.KeepAlive(b)
}

func TestDispatch_InboundQueryInterface(t *testing.T) {
	b, rc := newMath(t, "qi")
	defer rc.Release()
	ptr := rc.Ptr(typesystem.Raw)

	got, hr := callQueryInterface(ptr, IID_IClassFactory)
	if hr != hresult.E_NOINTERFACE || got != 0 {
		t.Errorf("QI(IClassFactory) = %#x, %s", got, hr)
	}

	ppv, _ := extern.Heap().Alloc(8)
	defer extern.Heap().Free(ppv)
	*(*uintptr)(extern.Ptr(ppv)) = 0xdead
	if hr := HRESULT(Call(vtableEntry(ptr, entryQueryInterface), ptr, 0, ppv)); hr != hresult.E_INVALIDARG {
		t.Errorf("null riid: %s", hr)
	}
	if *(*uintptr)(extern.Ptr(ppv)) != 0 {
		t.Error("ppv should be cleared")
	}
	if hr := HRESULT(Call(vtableEntry(ptr, entryQueryInterface), ptr, ppv, 0)); hr != hresult.E_POINTER {
		t.Errorf("null ppv: %s", hr)
	}
	if b.RefCount() != 1 {
		t.Errorf("failed queries changed the count: %d", b.RefCount())
	}
}

func TestDispatch_QueryInterfacePrefersRaw(t *testing.T) {
	b, rc := newMath(t, "prefer")
	defer rc.Release()

	sci, err := QueryInterface[Scientific](rc.Itf())
	if err != nil {
		t.Fatal(err)
	}
	defer sci.Release()
	if sci.Ptr(typesystem.Raw) == 0 {
		t.Errorf("QueryInterface should return the Raw variant: %v", sci)
	}
	if b.RefCount() != 2 {
		t.Errorf("RefCount = %d, want 2", b.RefCount())
	}

	s, err := sci.Get()
	if err != nil {
		t.Fatal(err)
	}
	label, err := s.Label()
	if err != nil || label != "prefer" {
		t.Errorf("Label = %q, %v", label, err)
	}
	if v, err := s.Pow(2, 10); err != nil || v != 1024 {
		t.Errorf("Pow = %v, %v", v, err)
	}

	if _, err := QueryInterface[ClassFactory](rc.Itf()); err == nil {
		t.Error("object is not a class factory")
	}
}

func TestDispatch_AutomationPointer(t *testing.T) {
	b, rc := newMath(t, "automation")
	defer rc.Release()

	rtMath, err := InterfaceOf[Math]()
	if err != nil {
		t.Fatal(err)
	}
	p, err := b.QueryInterface(rtMath.IID(typesystem.Automation))
	if err != nil {
		t.Fatal(err)
	}
	auto := Attach(Wrap[Math](typesystem.Automation, p))
	defer auto.Release()

	m, err := auto.Get()
	if err != nil {
		t.Fatal(err)
	}
	if v, err := m.Sqrt(16); err != nil || v != 4 {
		t.Errorf("Sqrt(16) via Automation = %v, %v", v, err)
	}
	out, err := auto.Call("Add", 1, 2)
	if err != nil {
		t.Fatal(err)
	}
	if out[0].(int32) != 3 {
		t.Errorf("Add via Call = %v", out)
	}
	if _, err := auto.Call("Add", 1); err == nil {
		t.Error("wrong argument count should fail")
	}
	if _, err := auto.Call("Add", int64(math.MaxInt64), 1); err == nil {
		t.Error("overflowing argument should fail")
	}
	if _, err := auto.Call("Missing"); err == nil {
		t.Error("unknown method should fail")
	}
}

func TestDispatch_InterfaceParameters(t *testing.T) {
	b, rc := newMath(t, "left")
	defer rc.Release()

	sci, err := QueryInterface[Scientific](rc.Itf())
	if err != nil {
		t.Fatal(err)
	}
	defer sci.Release()
	s, _ := sci.Get()

	twin, err := s.Twin()
	if err != nil {
		t.Fatal(err)
	}
	if twin.IsNull() {
		t.Fatal("Twin returned null")
	}
	tb, err := BoxFromPointer[calc](testFixture(t).lib, twin.Ptr(typesystem.Raw))
	if err != nil {
		t.Fatal(err)
	}
	if tb.RefCount() != 1 || tb.Value().label != "left'" {
		t.Errorf("twin: count %d, label %q", tb.RefCount(), tb.Value().label)
	}

	sum, err := s.SumRoots(twin.Itf(), 9)
	if err != nil {
		t.Fatal(err)
	}
	if sum != 6 {
		t.Errorf("SumRoots = %v, want 6", sum)
	}
	if tb.RefCount() != 1 {
		t.Errorf("borrowed argument changed the count: %d", tb.RefCount())
	}

	_, err = s.SumRoots(twin.Itf(), -4)
	if errors.Code(err) != hresult.E_INVALIDARG {
		t.Errorf("nested failure: %v", err)
	}

	if _, err := s.SumRoots(NullItf[Math](), 4); err == nil {
		t.Error("null argument should fail")
	}

	if twin.Release() != 0 || tb.Live() {
		t.Error("twin should be destroyed")
	}
	runtime.KeepAlive(tb)
	runtime.KeepAlive(b)
}

func TestDispatch_Panic(t *testing.T) {
	_, rc := newMath(t, "panic")
	defer rc.Release()

	sci, err := QueryInterface[Scientific](rc.Itf())
	if err != nil {
		t.Fatal(err)
	}
	defer sci.Release()
	s, _ := sci.Get()

	err = s.Explode()
	var ce *errors.ComError
	if !stderrors.As(err, &ce) || ce.Code != hresult.E_UNEXPECTED {
		t.Fatalf("Explode = %v", err)
	}
	if !strings.Contains(ce.Description(), "kaboom") {
		t.Errorf("description = %q", ce.Description())
	}
}

func TestDispatch_WithoutErrorInfo(t *testing.T) {
	f := testFixture(t)
	b, err := New(f.lib, quiet{})
	if err != nil {
		t.Fatal(err)
	}
	rc, err := IntoRc[Math](b)
	if err != nil {
		t.Fatal(err)
	}
	defer rc.Release()

	m, _ := rc.Get()
	_, err = m.Sqrt(-1)
	var ce *errors.ComError
	if !stderrors.As(err, &ce) || ce.Code != hresult.E_INVALIDARG {
		t.Fatalf("Sqrt(-1) = %v", err)
	}
	if ce.Info != nil {
		t.Errorf("class without error info reported %+v", ce.Info)
	}
	if _, ok := PendingError(); ok {
		t.Error("channel should be empty")
	}
}

func TestItf_Implicit(t *testing.T) {
	f := testFixture(t)
	b, err := New(f.lib, calc{next: 7})
	if err != nil {
		t.Fatal(err)
	}
	rc, err := IntoRc[Counter](b)
	if err != nil {
		t.Fatal(err)
	}
	defer rc.Release()

	c, err := rc.Get()
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := c.(*calc); !ok {
		t.Fatalf("implicit interface should resolve to the value, got %T", c)
	}
	if n, _ := c.Next(); n != 8 || b.Value().next != 8 {
		t.Errorf("Next = %d, value %d", n, b.Value().next)
	}
}

func TestItf_Null(t *testing.T) {
	n := NullItf[Math]()
	if !n.IsNull() {
		t.Fatal("NullItf is not null")
	}
	if _, err := n.Get(); err == nil {
		t.Error("Get on null should fail")
	}
	if _, err := n.AsOwned(); err == nil {
		t.Error("AsOwned on null should fail")
	}
	if _, err := QueryInterface[Scientific](n); err == nil {
		t.Error("QueryInterface on null should fail")
	}

	var rc *Rc[Math]
	if !rc.IsNull() || rc.Release() != 0 {
		t.Error("nil Rc should be null")
	}
}

func TestRc_CloneAndDetach(t *testing.T) {
	b, rc := newMath(t, "clone")

	c, err := rc.Clone()
	if err != nil {
		t.Fatal(err)
	}
	if b.RefCount() != 2 {
		t.Fatalf("RefCount = %d, want 2", b.RefCount())
	}
	itf := c.Detach()
	if !c.Released() || c.Release() != 0 {
		t.Error("detached Rc must not release")
	}
	if b.RefCount() != 2 {
		t.Fatalf("RefCount = %d, want 2", b.RefCount())
	}
	Attach(itf).Release()
	rc.Release()
	if _, err := rc.Clone(); err == nil {
		t.Error("Clone after Release should fail")
	}
	if b.Live() {
		t.Error("object should be destroyed")
	}
	runtime.KeepAlive(b)
}
