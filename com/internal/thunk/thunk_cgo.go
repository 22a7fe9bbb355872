//go:build cgo && !windows && (amd64 || arm64) && !purego

package thunk

/*
#include "trampoline.h"
*/
import "C"

import (
	"fmt"
	"unsafe"
)

const backend = "cgo"

const (
	intSlots   = C.COMRT_INT_SLOTS
	floatSlots = C.COMRT_FLOAT_SLOTS
)

// pool[i] is the function behind trampoline i. Float-result trampolines
// follow the integer ones.
var (
	pool       [intSlots + floatSlots]*entry
	usedInt    int
	usedFloats int
)

func mint(e *entry) (uintptr, error) {
	if e.sig.FloatResult {
		if usedFloats == floatSlots {
			return 0, fmt.Errorf("all %d floating-point trampolines are in use", floatSlots)
		}
		i := usedFloats
		usedFloats++
		pool[intSlots+i] = e
		return uintptr(C.comrt_float_entry(C.int(i))), nil
	}
	if usedInt == intSlots {
		return 0, fmt.Errorf("all %d trampolines are in use", intSlots)
	}
	i := usedInt
	usedInt++
	pool[i] = e
	return uintptr(C.comrt_int_entry(C.int(i))), nil
}

//export comrtDispatch
func comrtDispatch(id C.int, ints *C.uintptr_t, floats *C.uint64_t) C.uint64_t {
	mu.RLock()
	e := pool[id]
	mu.RUnlock()
	if e == nil {
		panic(fmt.Sprintf("thunk: trampoline %d entered before registration", id))
	}

	in := unsafe.Slice((*uintptr)(unsafe.Pointer(ints)), MaxIntArgs)
	fl := unsafe.Slice((*uint64)(unsafe.Pointer(floats)), MaxFloatArgs)
	args := make([]uintptr, len(e.sig.Float))
	var ni, nf int
	for i := range args {
		if e.sig.Float[i] {
			args[i] = uintptr(fl[nf])
			nf++
		} else {
			args[i] = in[ni]
			ni++
		}
	}
	return C.uint64_t(e.fn(args))
}

func call(addr uintptr, sig Sig, args []uintptr) uintptr {
	var (
		in     [MaxIntArgs]C.uintptr_t
		fl     [MaxFloatArgs]C.uint64_t
		ni, nf int
	)
	for i, w := range args {
		if sig.isFloat(i) {
			fl[nf] = C.uint64_t(w)
			nf++
		} else {
			in[ni] = C.uintptr_t(w)
			ni++
		}
	}
	var floatResult C.int
	if sig.FloatResult {
		floatResult = 1
	}
	return uintptr(C.comrt_call(C.uintptr_t(addr), &in[0], &fl[0], floatResult))
}
