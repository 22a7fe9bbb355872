package com

import (
	stderrors "errors"
	"runtime"
	"testing"

	"golang.org/x/sync/errgroup"

	"github.com/wippyai/com-runtime/errors"
	"github.com/wippyai/com-runtime/model"
	"github.com/wippyai/com-runtime/typesystem"
)

func TestBox_Lifecycle(t *testing.T) {
	f := testFixture(t)
	live := f.lib.Live()

	b, err := New(f.lib, calc{label: "a"})
	if err != nil {
		t.Fatal(err)
	}
	if b.RefCount() != 0 || b.Live() {
		t.Fatalf("fresh object: count %d, live %v", b.RefCount(), b.Live())
	}
	if got := b.AddRef(); got != 1 {
		t.Fatalf("AddRef = %d, want 1", got)
	}
	if !b.Live() || f.lib.Live() != live+1 {
		t.Fatal("object should be live after the first AddRef")
	}
	if got := b.AddRef(); got != 2 {
		t.Fatalf("AddRef = %d, want 2", got)
	}
	if got := b.Release(); got != 1 {
		t.Fatalf("Release = %d, want 1", got)
	}
	if got := b.Release(); got != 0 {
		t.Fatalf("Release = %d, want 0", got)
	}
	if b.Live() || f.lib.Live() != live {
		t.Fatal("object should be destroyed")
	}

	v := expectViolation(t, func() { b.Release() })
	if v.Op != "Release" {
		t.Errorf("violation op = %q", v.Op)
	}
	expectViolation(t, func() { b.AddRef() })
	runtime.KeepAlive(b)
}

func TestBox_ReleaseUnreferenced(t *testing.T) {
	f := testFixture(t)

	b, err := New(f.lib, calc{})
	if err != nil {
		t.Fatal(err)
	}
	expectViolation(t, func() { b.Release() })
}

func TestBox_DestroyedStaysDestroyed(t *testing.T) {
	f := testFixture(t)
	live := f.lib.Live()

	b, err := New(f.lib, calc{})
	if err != nil {
		t.Fatal(err)
	}
	b.AddRef()
	b.Release()

	for i := range 3 {
		v := expectViolation(t, func() { b.AddRef() })
		if v.Op != "AddRef" {
			t.Errorf("attempt %d: violation op = %q", i, v.Op)
		}
		if b.Live() {
			t.Fatalf("attempt %d: destroyed object came back to life", i)
		}
		if b.RefCount() != 0 {
			t.Fatalf("attempt %d: RefCount = %d", i, b.RefCount())
		}
	}
	expectViolation(t, func() { b.Release() })
	if f.lib.Live() != live {
		t.Errorf("library live = %d, want %d", f.lib.Live(), live)
	}
	runtime.KeepAlive(b)
}

func TestBox_ConcurrentRefCount(t *testing.T) {
	f := testFixture(t)

	b, err := New(f.lib, calc{})
	if err != nil {
		t.Fatal(err)
	}
	b.AddRef()

	const workers, rounds = 8, 1000
	var g errgroup.Group
	for range workers {
		g.Go(func() error {
			for range rounds {
				b.AddRef()
			}
			for range rounds {
				b.Release()
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		t.Fatal(err)
	}

	if got := b.RefCount(); got != 1 {
		t.Fatalf("RefCount = %d, want 1", got)
	}
	if b.Release() != 0 || b.Live() {
		t.Fatal("final Release should destroy the object")
	}
	runtime.KeepAlive(b)
}

func TestBox_Offsets(t *testing.T) {
	f := testFixture(t)

	b, err := New(f.lib, calc{label: "offsets"})
	if err != nil {
		t.Fatal(err)
	}
	b.AddRef()
	defer b.Release()

	if got := b.Class().SlotCount(); got != 5 {
		t.Fatalf("SlotCount = %d, want 5", got)
	}

	for _, d := range []*model.Interface{f.scientific, f.counter} {
		rt, ok := f.lib.Interface(d.Name)
		if !ok {
			t.Fatalf("interface %s not bound", d.Name)
		}
		for _, ts := range typesystem.All {
			off, ok := f.calc.Offset(rt, ts)
			if !ok {
				t.Fatalf("no slot for %s/%s", d.Name, ts)
			}
			ptr, ok := b.Pointer(rt, ts)
			if !ok || ptr != b.Addr()+off {
				t.Fatalf("Pointer(%s, %s) = %#x, want %#x", d.Name, ts, ptr, b.Addr()+off)
			}
			back, err := BoxFromPointer[calc](f.lib, ptr)
			if err != nil {
				t.Fatal(err)
			}
			if back.Addr() != b.Addr() {
				t.Errorf("%s/%s: recovered %#x, want %#x", d.Name, ts, back.Addr(), b.Addr())
			}
		}
	}

	fromValue, err := BoxFromValue(f.lib, b.Value())
	if err != nil {
		t.Fatal(err)
	}
	if fromValue.Addr() != b.Addr() {
		t.Errorf("BoxFromValue = %#x, want %#x", fromValue.Addr(), b.Addr())
	}
	if fromValue.Value().label != "offsets" {
		t.Errorf("value = %+v", fromValue.Value())
	}
}

func TestBox_FromForeignPointer(t *testing.T) {
	f := testFixture(t)

	q, err := New(f.lib, quiet{})
	if err != nil {
		t.Fatal(err)
	}
	q.AddRef()
	defer q.Release()

	_, err = BoxFromPointer[calc](f.lib, q.Addr())
	var e *errors.Error
	if !stderrors.As(err, &e) || e.Kind != errors.KindInvalidInput {
		t.Errorf("pointer of another class: %v", err)
	}
	if _, err := BoxFromPointer[calc](f.lib, 0); err == nil {
		t.Error("null pointer should fail")
	}
}

func TestBox_QueryInterface(t *testing.T) {
	f := testFixture(t)
	rtMath, _ := f.lib.Interface("IMath")
	rtSci, _ := f.lib.Interface("IScientific")

	b, err := New(f.lib, calc{})
	if err != nil {
		t.Fatal(err)
	}

	unk, err := b.QueryInterface(model.IID_IUnknown)
	if err != nil {
		t.Fatal(err)
	}
	if unk != b.Addr() {
		t.Errorf("IUnknown pointer = %#x, want object address %#x", unk, b.Addr())
	}

	for _, ts := range typesystem.All {
		// A base interface resolves to the slot of the interface deriving it.
		p, err := b.QueryInterface(rtMath.IID(ts))
		if err != nil {
			t.Fatal(err)
		}
		want, _ := b.Pointer(rtSci, ts)
		if p != want {
			t.Errorf("IMath/%s = %#x, want IScientific slot %#x", ts, p, want)
		}
		b.Release()
	}

	if _, err := b.QueryInterface(IID_IClassFactory); err == nil {
		t.Error("class does not implement IClassFactory")
	}
	if got := b.RefCount(); got != 1 {
		t.Errorf("RefCount = %d, want 1", got)
	}
	if b.Release() != 0 {
		t.Error("object should be destroyed")
	}
	runtime.KeepAlive(b)
}
