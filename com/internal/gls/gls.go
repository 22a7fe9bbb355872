// Package gls provides per-goroutine slots.
//
// COM keeps the pending error info in thread-local storage. A synchronous
// call and the error read that follows it always run on the same goroutine,
// so keying by goroutine gives the same one-slot-per-caller semantics.
//
// Go has no hook for goroutine exit. A value left behind by a goroutine
// that exits stays in its slot until the next sweep, which runs whenever
// the slot has doubled since the last one, or on demand.
package gls

import (
	"bytes"
	"runtime"
	"sync"

	"github.com/petermattis/goid"
)

// getID reads the goroutine id. goid.Get reads it straight out of the
// runtime's g struct; if that disagrees with the stack header, which only
// happens when the g layout moved under a new toolchain, the stack header
// wins.
var getID = goid.Get

func init() {
	if !fastAgrees() {
		getID = slowID
	}
}

func slowID() int64 {
	var buf [64]byte
	return goid.ExtractGID(buf[:runtime.Stack(buf[:], false)])
}

func fastAgrees() bool {
	if goid.Get() != slowID() {
		return false
	}
	ok := make(chan bool)
	go func() { ok <- goid.Get() == slowID() }()
	return <-ok
}

// ID returns the current goroutine's id.
func ID() int64 {
	return getID()
}

// liveIDs lists every goroutine that exists right now.
func liveIDs() map[int64]struct{} {
	buf := make([]byte, 64<<10)
	for {
		n := runtime.Stack(buf, true)
		if n < len(buf) {
			buf = buf[:n]
			break
		}
		buf = make([]byte, 2*len(buf))
	}
	ids := make(map[int64]struct{})
	for _, trace := range bytes.Split(buf, []byte("\n\n")) {
		if bytes.HasPrefix(trace, []byte("goroutine ")) {
			ids[goid.ExtractGID(trace)] = struct{}{}
		}
	}
	return ids
}

// minSweep is the slot size below which Set never sweeps.
const minSweep = 64

// Slot holds at most one value per goroutine.
type Slot[T any] struct {
	// Drop, if set, receives each value a sweep discards.
	Drop func(T)

	values  map[int64]T
	sweepAt int
	mu      sync.Mutex
}

// Set replaces the current goroutine's value.
func (s *Slot[T]) Set(v T) {
	id := ID()
	s.mu.Lock()
	if s.values == nil {
		s.values = make(map[int64]T)
	}
	s.values[id] = v
	crowded := len(s.values) >= max(s.sweepAt, minSweep)
	s.mu.Unlock()
	if crowded {
		s.Sweep()
	}
}

// Take removes and returns the current goroutine's value.
func (s *Slot[T]) Take() (T, bool) {
	id := ID()
	s.mu.Lock()
	v, ok := s.values[id]
	if ok {
		delete(s.values, id)
	}
	s.mu.Unlock()
	return v, ok
}

// Peek returns the current goroutine's value without removing it.
func (s *Slot[T]) Peek() (T, bool) {
	id := ID()
	s.mu.Lock()
	v, ok := s.values[id]
	s.mu.Unlock()
	return v, ok
}

// Len reports how many goroutines currently hold a value.
func (s *Slot[T]) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.values)
}

// Sweep discards the values of goroutines that have exited, hands them to
// Drop and returns how many there were.
//
// The goroutine list is taken under the lock: every value in the map was
// set by a goroutine that already existed, and goroutine ids are never
// reused, so an id missing from the list belongs to an exited goroutine.
func (s *Slot[T]) Sweep() int {
	s.mu.Lock()
	live := liveIDs()
	var dropped []T
	for id, v := range s.values {
		if _, ok := live[id]; !ok {
			dropped = append(dropped, v)
			delete(s.values, id)
		}
	}
	s.sweepAt = 2 * len(s.values)
	s.mu.Unlock()

	if s.Drop != nil {
		for _, v := range dropped {
			s.Drop(v)
		}
	}
	return len(dropped)
}
