package gls

import (
	"sync"
	"testing"
	"time"
)

func TestIDStable(t *testing.T) {
	a, b := ID(), ID()
	if a == 0 || a != b {
		t.Fatalf("ID() = %d then %d", a, b)
	}

	var other int64
	done := make(chan struct{})
	go func() {
		other = ID()
		close(done)
	}()
	<-done
	if other == a {
		t.Error("different goroutines share an id")
	}
}

func TestSlotSingleValue(t *testing.T) {
	var s Slot[string]
	if _, ok := s.Take(); ok {
		t.Fatal("empty slot returned a value")
	}

	s.Set("first")
	s.Set("second")
	if v, ok := s.Peek(); !ok || v != "second" {
		t.Fatalf("Peek = %q, %v", v, ok)
	}
	if v, ok := s.Take(); !ok || v != "second" {
		t.Fatalf("Take = %q, %v; last store should win", v, ok)
	}
	if _, ok := s.Take(); ok {
		t.Fatal("second Take should find nothing")
	}
}

func TestSlotPerGoroutine(t *testing.T) {
	var s Slot[int]
	s.Set(-1)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, ok := s.Peek(); ok {
				t.Errorf("goroutine %d sees another goroutine's value", i)
			}
			s.Set(i)
			if v, ok := s.Take(); !ok || v != i {
				t.Errorf("goroutine %d: Take = %d, %v", i, v, ok)
			}
		}(i)
	}
	wg.Wait()

	if v, ok := s.Take(); !ok || v != -1 {
		t.Errorf("own value = %d, %v", v, ok)
	}
	if s.Len() != 0 {
		t.Errorf("Len = %d", s.Len())
	}
}

func TestIDMatchesStackHeader(t *testing.T) {
	if got, want := ID(), slowID(); got != want {
		t.Fatalf("ID() = %d, stack header says %d", got, want)
	}
}

func TestSweepDropsExitedGoroutines(t *testing.T) {
	var (
		dropMu  sync.Mutex
		dropped = make(map[int]bool)
	)
	s := Slot[int]{Drop: func(v int) {
		dropMu.Lock()
		dropped[v] = true
		dropMu.Unlock()
	}}
	s.Set(-1)

	const n = 500
	var wg sync.WaitGroup
	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Set(i)
		}()
	}
	wg.Wait()

	// wg.Done runs before a goroutine is fully gone; give the stragglers
	// a moment to leave the goroutine list.
	deadline := time.Now().Add(5 * time.Second)
	for s.Len() > 1 && time.Now().Before(deadline) {
		s.Sweep()
		if s.Len() > 1 {
			time.Sleep(10 * time.Millisecond)
		}
	}
	if s.Len() != 1 {
		t.Fatalf("Len = %d after the writers exited, want 1", s.Len())
	}
	if v, ok := s.Peek(); !ok || v != -1 {
		t.Errorf("live goroutine's value = %d, %v", v, ok)
	}

	dropMu.Lock()
	defer dropMu.Unlock()
	if len(dropped) != n {
		t.Errorf("dropped %d values, want %d", len(dropped), n)
	}
}

func TestSetSweepsWhenCrowded(t *testing.T) {
	var s Slot[int]
	var wg sync.WaitGroup
	for i := range minSweep - 1 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.Set(i)
		}()
	}
	wg.Wait()
	time.Sleep(50 * time.Millisecond)

	// The store that reaches minSweep sweeps out the exited writers.
	s.Set(-1)
	if s.Len() >= minSweep {
		t.Errorf("Len = %d, Set should have swept", s.Len())
	}
	if v, ok := s.Take(); !ok || v != -1 {
		t.Errorf("own value = %d, %v", v, ok)
	}
}
