package com

import (
	"fmt"
	"reflect"
	"unsafe"

	"go.uber.org/zap"

	"github.com/wippyai/com-runtime/com/internal/thunk"
	"github.com/wippyai/com-runtime/errors"
	"github.com/wippyai/com-runtime/extern"
	"github.com/wippyai/com-runtime/guid"
	"github.com/wippyai/com-runtime/hresult"
	"github.com/wippyai/com-runtime/model"
)

// dispatchEntry registers the trampoline for vtable entry index of slot.
// The trampoline takes the interface pointer followed by one word per
// parameter; out parameters are pointers to caller-owned slots.
func (c *Class) dispatchEntry(slot, index int) (uintptr, error) {
	s := &c.slots[slot]
	plan := s.itf.plans[s.ts][index]
	return thunk.Register(c.thunkName(slot, plan.method.Name), plan.sig, func(args []uintptr) uintptr {
		if len(args) != 1+len(plan.params) {
			violate(plan.method.Name, args[0],
				fmt.Sprintf("called with %d arguments, expected %d", len(args)-1, len(plan.params)))
		}
		base := c.liveBase(plan.method.Name, slot, args[0])
		recv := c.valueOf(base).Method(s.methods[index])
		if plan.method.Infallible {
			return c.callInfallible(plan, recv, args[1:])
		}
		return hrWord(c.callFallible(s, plan, recv, args[1:]))
	})
}

// callFallible runs a method that reports failure through its status code.
// Every output is zeroed before the call so a failure never leaves garbage
// behind, and outputs are only handed over once all of them converted.
func (c *Class) callFallible(s *classSlot, plan *methodPlan, recv reflect.Value, words []uintptr) (hr hresult.HRESULT) {
	m := plan.method
	iid := s.itf.IID(s.ts)

	outs := make([]unsafe.Pointer, 0, len(words))
	for j, p := range m.Params {
		if p.Dir == model.In {
			continue
		}
		if words[j] == 0 {
			return StoreError(errors.NewComError(hresult.E_POINTER))
		}
		dst := extern.Ptr(words[j])
		plan.params[j].ZeroOut(dst)
		outs = append(outs, dst)
	}

	defer func() {
		r := recover()
		if r == nil {
			return
		}
		if _, ok := r.(*ProtocolViolation); ok {
			panic(r)
		}
		Logger().Error("method panicked",
			zapClass(c), zap.String("method", m.Name), zap.Any("panic", r))
		hr = c.fail(iid, errors.Fail(hresult.E_UNEXPECTED, "%s.%s panicked: %v", s.itf.Name(), m.Name, r))
	}()

	in := make([]reflect.Value, 0, len(words)-len(outs))
	for j, p := range m.Params {
		if p.Dir != model.In {
			continue
		}
		v, err := plan.params[j].LiftArg(words[j])
		if err != nil {
			return c.fail(iid, err)
		}
		in = append(in, v)
	}

	results := recv.Call(in)
	if err, _ := results[len(results)-1].Interface().(error); err != nil {
		return c.fail(iid, err)
	}

	g := extern.NewOutputGuard()
	defer g.Close()
	k := 0
	for j, p := range m.Params {
		if p.Dir == model.In {
			continue
		}
		if err := g.Write(plan.params[j], results[k], outs[k]); err != nil {
			return c.fail(iid, err)
		}
		k++
	}
	g.Commit()
	return hresult.S_OK
}

// callInfallible runs a method without a status code. Such methods have no
// way to report a conversion failure, so one is a panic.
func (c *Class) callInfallible(plan *methodPlan, recv reflect.Value, words []uintptr) uintptr {
	m := plan.method
	in := make([]reflect.Value, len(words))
	for j := range m.Params {
		v, err := plan.params[j].LiftArg(words[j])
		if err != nil {
			panic(fmt.Errorf("%s.%s: %w", c.Decl.Name, m.Name, err))
		}
		in[j] = v
	}

	results := recv.Call(in)
	if plan.ret == nil {
		return 0
	}
	w, err := extern.LowerReturn(plan.ret, results[0])
	if err != nil {
		panic(fmt.Errorf("%s.%s: %w", c.Decl.Name, m.Name, err))
	}
	return w
}

// fail turns a method error into its status code. When the class
// advertises error info for iid the details go to the error channel,
// stamped with the interface and class; otherwise the channel is cleared
// so a later read cannot pair an older description with this code.
func (c *Class) fail(iid guid.GUID, err error) hresult.HRESULT {
	ce := errors.ToComError(err)
	Logger().Debug("method failed",
		zapClass(c), zapIID(iid), zap.Stringer("code", ce.Code), zap.Error(err))
	if !c.supportsErrorInfo(iid) {
		SetErrorInfo(0)
		return ce.Code
	}

	info := errors.ErrorInfo{Description: ce.Description()}
	if ce.Info != nil {
		info = *ce.Info
	}
	if info.GUID.IsZero() {
		info.GUID = iid
	}
	if info.Source == "" {
		info.Source = c.Decl.Name
	}
	return StoreError(&errors.ComError{Code: ce.Code, Info: &info})
}
