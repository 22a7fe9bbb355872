package registry

import (
	"sync"
)

// Table tracks live objects and notifies observers of their lifecycle.
type Table struct {
	backend   *LocalBackend
	observers map[uint64]Observer
	nextObs   uint64
	obsMu     sync.RWMutex
}

// NewTable creates a table with a LocalBackend.
func NewTable() *Table {
	return &Table{
		backend:   NewLocalBackend(),
		observers: make(map[uint64]Observer),
	}
}

var defaultTable = NewTable()

// Default returns the process-wide object table.
func Default() *Table {
	return defaultTable
}

// Insert registers the object at addr. keep is retained until Remove.
func (t *Table) Insert(addr uintptr, class string, value, keep any) (Handle, error) {
	handle, err := t.backend.Create(addr, class, value, keep)
	if err != nil {
		return 0, err
	}

	t.notify(Event{
		Type:   EventCreated,
		Handle: handle,
		Addr:   addr,
		Class:  class,
		Value:  value,
	})
	return handle, nil
}

// Get returns a live entry by handle.
func (t *Table) Get(handle Handle) (Entry, bool) {
	return t.backend.Get(handle)
}

// Find returns the live entry for the object at addr.
func (t *Table) Find(addr uintptr) (Entry, bool) {
	h, ok := t.backend.Lookup(addr)
	if !ok {
		return Entry{}, false
	}
	return t.backend.Get(h)
}

// Contains reports whether an object is live at addr.
func (t *Table) Contains(addr uintptr) bool {
	_, ok := t.backend.Lookup(addr)
	return ok
}

// Remove unregisters the object at addr, runs its Dropper and reports
// EventDestroyed.
func (t *Table) Remove(addr uintptr) (Entry, bool) {
	h, ok := t.backend.Lookup(addr)
	if !ok {
		return Entry{}, false
	}
	e, ok := t.backend.Drop(h)
	if !ok {
		return Entry{}, false
	}

	if d, ok := e.Value.(Dropper); ok {
		d.Drop()
	}

	t.notify(Event{
		Type:   EventDestroyed,
		Handle: e.Handle,
		Addr:   e.Addr,
		Class:  e.Class,
		Value:  e.Value,
	})
	return e, true
}

// RefChanged reports a reference count change for the object at addr.
func (t *Table) RefChanged(addr uintptr, typ EventType, count uint32) {
	if !t.observed() {
		return
	}
	e, ok := t.Find(addr)
	if !ok {
		return
	}
	t.notify(Event{
		Type:     typ,
		Handle:   e.Handle,
		Addr:     addr,
		Class:    e.Class,
		Value:    e.Value,
		RefCount: count,
	})
}

// Subscribe adds an observer and returns a function that removes it.
func (t *Table) Subscribe(o Observer) (cancel func()) {
	t.obsMu.Lock()
	defer t.obsMu.Unlock()
	t.nextObs++
	id := t.nextObs
	t.observers[id] = o
	return func() {
		t.obsMu.Lock()
		defer t.obsMu.Unlock()
		delete(t.observers, id)
	}
}

// Len returns the number of live objects.
func (t *Table) Len() int {
	return t.backend.Len()
}

// Snapshot returns every live object in handle order.
func (t *Table) Snapshot() []Entry {
	var out []Entry
	t.backend.Each(func(e Entry) bool {
		out = append(out, e)
		return true
	})
	return out
}

// Close stops accepting objects and returns the ones still alive, which
// indicates leaked references.
func (t *Table) Close() []Entry {
	return t.backend.Close()
}

func (t *Table) observed() bool {
	t.obsMu.RLock()
	defer t.obsMu.RUnlock()
	return len(t.observers) > 0
}

func (t *Table) notify(e Event) {
	t.obsMu.RLock()
	obs := make([]Observer, 0, len(t.observers))
	for _, o := range t.observers {
		obs = append(obs, o)
	}
	t.obsMu.RUnlock()

	for _, o := range obs {
		o.OnObjectEvent(e)
	}
}
