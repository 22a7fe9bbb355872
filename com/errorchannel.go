package com

import (
	"go.uber.org/zap"

	"github.com/wippyai/com-runtime/com/internal/gls"
	"github.com/wippyai/com-runtime/errors"
	"github.com/wippyai/com-runtime/guid"
	"github.com/wippyai/com-runtime/hresult"
	"github.com/wippyai/com-runtime/model"
	"github.com/wippyai/com-runtime/typesystem"
)

// pending is the error channel: at most one owned IErrorInfo pointer per
// goroutine. A store overwrites whatever was there. Error info left unread
// by a goroutine that exits is released by the slot's next sweep, not at
// exit.
var pending = gls.Slot[uintptr]{Drop: dropErrorInfo}

func dropErrorInfo(ptr uintptr) {
	Logger().Debug("releasing error info of an exited goroutine", zapAddr(ptr))
	callRelease(ptr)
}

// SweepErrorInfo releases the error info of goroutines that exited
// without reading it and returns how many were released. Stores sweep on
// their own as the channel grows.
func SweepErrorInfo() int {
	return pending.Sweep()
}

// SetErrorInfo installs ptr, an owned IErrorInfo reference, as the pending
// error of the calling goroutine and releases the one it replaces. A null
// ptr clears the channel.
func SetErrorInfo(ptr uintptr) {
	prev, ok := pending.Take()
	if ptr != 0 {
		pending.Set(ptr)
	}
	if ok && prev != 0 {
		callRelease(prev)
	}
}

// GetErrorInfo removes the pending error. The caller owns the returned
// reference.
func GetErrorInfo() (uintptr, bool) {
	p, ok := pending.Take()
	return p, ok && p != 0
}

// StoreError reports ce through the error channel and returns its code.
// Errors without rich info clear the channel.
func StoreError(ce *errors.ComError) hresult.HRESULT {
	if ce.Info == nil {
		SetErrorInfo(0)
		return ce.Code
	}

	lib := runtimeLibrary()
	b, err := New(lib, errorInfoObject{info: *ce.Info})
	if err != nil {
		Logger().Warn("cannot build error info", zap.Error(err))
		SetErrorInfo(0)
		return ce.Code
	}
	ptr, err := b.QueryInterface(IID_IErrorInfo)
	if err != nil {
		Logger().Warn("cannot build error info", zap.Error(err))
		SetErrorInfo(0)
		return ce.Code
	}
	SetErrorInfo(ptr)
	Logger().Debug("error stored",
		zap.Stringer("code", ce.Code),
		zap.String("description", ce.Info.Description))
	return ce.Code
}

// LoadErrorIfSupported builds the error for a failed call on ptr through
// interface iid. The pending error info is attached only when the object
// says it supports error info for iid. IUnknown and ISupportErrorInfo are
// used while handling errors and never consult the channel.
func LoadErrorIfSupported(ptr uintptr, iid guid.GUID, code hresult.HRESULT) *errors.ComError {
	ce := errors.NewComError(code)
	if ptr == 0 || iid == model.IID_IUnknown || iid == IID_ISupportErrorInfo {
		return ce
	}

	sp, hr := callQueryInterface(ptr, IID_ISupportErrorInfo)
	if hr != hresult.S_OK || sp == 0 {
		return ce
	}
	defer callRelease(sp)

	sei, err := Wrap[SupportErrorInfo](typesystem.Automation, sp).Get()
	if err != nil || sei.InterfaceSupportsErrorInfo(iid) != hresult.S_OK {
		return ce
	}
	if info, ok := PendingError(); ok {
		ce.Info = info
	}
	return ce
}

// PendingError reads and clears the calling goroutine's error info.
func PendingError() (*errors.ErrorInfo, bool) {
	p, ok := GetErrorInfo()
	if !ok {
		return nil, false
	}
	defer callRelease(p)

	ei, err := Wrap[ErrorInfo](typesystem.Automation, p).Get()
	if err != nil {
		Logger().Warn("cannot read error info", zap.Error(err))
		return nil, false
	}
	info := &errors.ErrorInfo{}
	var errs [5]error
	info.GUID, errs[0] = ei.GetGUID()
	info.Source, errs[1] = ei.GetSource()
	info.Description, errs[2] = ei.GetDescription()
	info.HelpFile, errs[3] = ei.GetHelpFile()
	info.HelpContext, errs[4] = ei.GetHelpContext()
	for _, err := range errs {
		if err != nil {
			Logger().Warn("cannot read error info", zap.Error(err))
			return nil, false
		}
	}
	return info, true
}

// errorInfoObject is the IErrorInfo object the channel holds.
type errorInfoObject struct {
	info errors.ErrorInfo
}

func (e *errorInfoObject) GetGUID() (guid.GUID, error) { return e.info.GUID, nil }
func (e *errorInfoObject) GetSource() (string, error) { return e.info.Source, nil }
func (e *errorInfoObject) GetDescription() (string, error) { return e.info.Description, nil }
func (e *errorInfoObject) GetHelpFile() (string, error) { return e.info.HelpFile, nil }
func (e *errorInfoObject) GetHelpContext() (uint32, error) { return e.info.HelpContext, nil }

type errorInfoProxy struct {
	inv *Invoker
}

func (p errorInfoProxy) GetGUID() (guid.GUID, error) {
	return Invoke1[guid.GUID](p.inv, "GetGUID")
}

func (p errorInfoProxy) GetSource() (string, error) {
	return Invoke1[string](p.inv, "GetSource")
}

func (p errorInfoProxy) GetDescription() (string, error) {
	return Invoke1[string](p.inv, "GetDescription")
}

func (p errorInfoProxy) GetHelpFile() (string, error) {
	return Invoke1[string](p.inv, "GetHelpFile")
}

func (p errorInfoProxy) GetHelpContext() (uint32, error) {
	return Invoke1[uint32](p.inv, "GetHelpContext")
}
