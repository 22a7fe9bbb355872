package extern

import (
	"reflect"
	"unsafe"

	"github.com/wippyai/com-runtime/errors"
)

// OutputGuard tracks out-parameters written during an inbound call. If the
// call fails after some outputs were written, Close frees them and zeroes
// their slots so the caller never sees a half-populated result.
//
//	g := NewOutputGuard()
//	defer g.Close()
//	... g.Write(c, v, dst) for each output ...
//	g.Commit()
type OutputGuard struct {
	entries   []guardEntry
	committed bool
}

type guardEntry struct {
	c   Converter
	dst unsafe.Pointer
}

func NewOutputGuard() *OutputGuard {
	return &OutputGuard{}
}

// Write lowers v into dst. On failure dst is zeroed and not recorded.
func (g *OutputGuard) Write(c Converter, v reflect.Value, dst unsafe.Pointer) error {
	if dst == nil {
		return errors.NilPointer(errors.PhaseDispatch, nil, c.ForeignName()+"*")
	}
	if err := c.LowerOut(v, dst); err != nil {
		c.ZeroOut(dst)
		return err
	}
	g.entries = append(g.entries, guardEntry{c: c, dst: dst})
	return nil
}

// Commit hands every written output to the caller.
func (g *OutputGuard) Commit() {
	g.committed = true
	g.entries = nil
}

// Close reverts uncommitted writes, newest first.
func (g *OutputGuard) Close() {
	if g.committed {
		return
	}
	for i := len(g.entries) - 1; i >= 0; i-- {
		e := g.entries[i]
		e.c.FreeOut(e.dst)
		e.c.ZeroOut(e.dst)
	}
	g.entries = nil
}

// Len returns the number of outputs written so far.
func (g *OutputGuard) Len() int {
	return len(g.entries)
}

// LiftOuts takes ownership of every slot in srcs. If one fails, the slots
// not yet lifted are freed so nothing leaks, and the first error is returned.
func LiftOuts(cs []Converter, srcs []unsafe.Pointer) ([]reflect.Value, error) {
	out := make([]reflect.Value, len(cs))
	for i, c := range cs {
		v, err := c.LiftOut(srcs[i])
		if err != nil {
			for j := i + 1; j < len(cs); j++ {
				cs[j].FreeOut(srcs[j])
			}
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

// LowerReturn converts the direct result of an infallible method into the
// return register. Ownership of any allocation passes to the caller.
func LowerReturn(c Converter, v reflect.Value) (uintptr, error) {
	if c.ByRef() {
		return 0, errors.Unsupported(errors.PhaseDispatch, c.ForeignName()+" as a direct return value")
	}
	var slot uint64
	if err := c.LowerOut(v, unsafe.Pointer(&slot)); err != nil {
		return 0, err
	}
	return readWord(unsafe.Pointer(&slot), c.Size()), nil
}

// LiftReturn converts a return register back to Go, taking ownership.
func LiftReturn(c Converter, w uintptr) (reflect.Value, error) {
	if c.ByRef() {
		return reflect.Value{}, errors.Unsupported(errors.PhaseDispatch, c.ForeignName()+" as a direct return value")
	}
	var slot uint64
	writeWord(unsafe.Pointer(&slot), c.Size(), w)
	return c.LiftOut(unsafe.Pointer(&slot))
}
