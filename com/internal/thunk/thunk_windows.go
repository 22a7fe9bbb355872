//go:build windows && (amd64 || arm64) && !purego

package thunk

import (
	"errors"
	"syscall"
)

const backend = "windows"

// errFloat reports a signature callbacks cannot carry: the runtime's
// callback frames spill only the integer argument registers.
var errFloat = errors.New("floating-point words are not supported by windows callbacks")

func mint(e *entry) (uintptr, error) {
	if e.sig.usesFloat() {
		return 0, errFloat
	}
	n := len(e.sig.Float)
	fn := e.fn
	// Callers pass at most MaxIntArgs words; the unused ones are never read
	// past n.
	return syscall.NewCallback(func(a0, a1, a2, a3, a4, a5 uintptr) uintptr {
		args := [MaxIntArgs]uintptr{a0, a1, a2, a3, a4, a5}
		return fn(args[:n])
	}), nil
}

func call(addr uintptr, sig Sig, args []uintptr) uintptr {
	if sig.usesFloat() {
		panic("thunk: " + errFloat.Error())
	}
	r, _, _ := syscall.SyscallN(addr, args...)
	return r
}
