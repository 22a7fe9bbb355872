// Package thunk turns Go functions into native entry points and calls
// through native function pointers.
//
// Every argument and the result is one machine word. A Sig tells the
// backend which words travel in floating-point registers. The backend is
// picked at build time:
//
//	cgo      unix on amd64 and arm64: a fixed pool of C trampolines
//	windows  syscall.NewCallback inbound, syscall.SyscallN outbound
//	table    the purego tag or any other platform: addresses are private
//	         cells that only Call can jump through
package thunk

import (
	"fmt"
	"sync"
)

// Func is a foreign-callable function: word-sized arguments in, one
// word-sized result out.
type Func func(args []uintptr) uintptr

// Register limits. Every backend enforces the same ones so a class that
// loads on one platform loads on all of them.
const (
	MaxIntArgs   = 6
	MaxFloatArgs = 8
)

// Sig describes the words of a call the way the native calling convention
// sees them.
type Sig struct {
	// Float has one entry per argument word, the interface pointer
	// included, and marks words holding floating-point bit patterns.
	Float []bool
	// FloatResult marks a floating-point result.
	FloatResult bool
}

// Words returns the signature of n integer words.
func Words(n int) Sig {
	return Sig{Float: make([]bool, n)}
}

func (s Sig) isFloat(i int) bool {
	return i < len(s.Float) && s.Float[i]
}

// split counts the integer and floating-point words among the first n.
func (s Sig) split(n int) (ints, floats int) {
	for i := range n {
		if s.isFloat(i) {
			floats++
		} else {
			ints++
		}
	}
	return ints, floats
}

func (s Sig) usesFloat() bool {
	if s.FloatResult {
		return true
	}
	for _, f := range s.Float {
		if f {
			return true
		}
	}
	return false
}

func (s Sig) check(n int) error {
	ints, floats := s.split(n)
	if ints > MaxIntArgs || floats > MaxFloatArgs {
		return fmt.Errorf("%d integer and %d floating-point words do not fit in registers (at most %d and %d)",
			ints, floats, MaxIntArgs, MaxFloatArgs)
	}
	return nil
}

type entry struct {
	fn   Func
	name string
	sig  Sig
}

var (
	mu     sync.RWMutex
	byAddr = make(map[uintptr]*entry)
)

// Register mints a native entry point for fn. Entry points live for the
// rest of the process.
func Register(name string, sig Sig, fn Func) (uintptr, error) {
	if fn == nil {
		panic("thunk: nil function")
	}
	if err := sig.check(len(sig.Float)); err != nil {
		return 0, fmt.Errorf("thunk: %s: %w", name, err)
	}
	e := &entry{fn: fn, name: name, sig: sig}

	mu.Lock()
	defer mu.Unlock()
	addr, err := mint(e)
	if err != nil {
		return 0, fmt.Errorf("thunk: %s: %w", name, err)
	}
	byAddr[addr] = e
	return addr, nil
}

// Lookup returns the Go function behind an address minted by Register.
func Lookup(addr uintptr) (Func, bool) {
	mu.RLock()
	e, ok := byAddr[addr]
	mu.RUnlock()
	if !ok {
		return nil, false
	}
	return e.fn, true
}

// Name returns the debug name given at registration.
func Name(addr uintptr) string {
	mu.RLock()
	e, ok := byAddr[addr]
	mu.RUnlock()
	if !ok {
		return ""
	}
	return e.name
}

// Call invokes the native function at addr. Words past the end of
// sig.Float are integers.
func Call(addr uintptr, sig Sig, args ...uintptr) uintptr {
	if addr == 0 {
		panic("thunk: call through a null code address")
	}
	if err := sig.check(len(args)); err != nil {
		panic(fmt.Sprintf("thunk: call %#x: %v", addr, err))
	}
	return call(addr, sig, args)
}

// Count reports how many entry points have been minted.
func Count() int {
	mu.RLock()
	defer mu.RUnlock()
	return len(byAddr)
}

// Backend names the active backend.
func Backend() string {
	return backend
}

// Native reports whether minted addresses are real code that foreign
// callers can jump to.
func Native() bool {
	return backend != "table"
}
