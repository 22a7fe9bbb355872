package registry

import (
	"sync"

	"github.com/wippyai/com-runtime/errors"
)

var ErrClosed = errors.New(errors.PhaseRuntime, errors.KindInvalidInput).
	Detail("object table closed").
	Build()

// LocalBackend is the in-memory store behind a Table. Entries are indexed
// both by handle and by object address.
type LocalBackend struct {
	entries  []entry
	freeList []Handle
	byAddr   map[uintptr]Handle
	mu       sync.RWMutex
	closed   bool
}

type entry struct {
	value any
	// keep holds whatever must stay reachable while foreign code owns
	// references, typically the object box itself.
	keep  any
	class string
	addr  uintptr
	valid bool
}

func NewLocalBackend() *LocalBackend {
	return &LocalBackend{
		entries:  make([]entry, 0, 64),
		freeList: make([]Handle, 0, 16),
		byAddr:   make(map[uintptr]Handle, 64),
	}
}

// Create stores an object and returns its handle. An address can only be
// live once.
func (b *LocalBackend) Create(addr uintptr, class string, value, keep any) (Handle, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return 0, ErrClosed
	}
	if addr == 0 {
		return 0, errors.NilPointer(errors.PhaseRuntime, nil, class)
	}
	if _, dup := b.byAddr[addr]; dup {
		return 0, errors.Duplicate("object", class)
	}

	e := entry{
		value: value,
		keep:  keep,
		class: class,
		addr:  addr,
		valid: true,
	}

	var handle Handle
	if len(b.freeList) > 0 {
		handle = b.freeList[len(b.freeList)-1]
		b.freeList = b.freeList[:len(b.freeList)-1]
		b.entries[handle-1] = e
	} else {
		b.entries = append(b.entries, e)
		handle = Handle(len(b.entries))
	}
	b.byAddr[addr] = handle
	return handle, nil
}

// Lookup finds the handle of the object at addr.
func (b *LocalBackend) Lookup(addr uintptr) (Handle, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	h, ok := b.byAddr[addr]
	return h, ok
}

// Get returns a snapshot of a live entry.
func (b *LocalBackend) Get(handle Handle) (Entry, bool) {
	if handle == 0 {
		return Entry{}, false
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	idx := handle - 1
	if int(idx) >= len(b.entries) {
		return Entry{}, false
	}

	e := b.entries[idx]
	if !e.valid {
		return Entry{}, false
	}
	return Entry{Value: e.value, Keep: e.keep, Class: e.class, Addr: e.addr, Handle: handle}, true
}

// Drop removes an entry and returns its final snapshot.
func (b *LocalBackend) Drop(handle Handle) (Entry, bool) {
	if handle == 0 {
		return Entry{}, false
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	idx := handle - 1
	if int(idx) >= len(b.entries) {
		return Entry{}, false
	}

	e := &b.entries[idx]
	if !e.valid {
		return Entry{}, false
	}

	out := Entry{Value: e.value, Keep: e.keep, Class: e.class, Addr: e.addr, Handle: handle}
	delete(b.byAddr, e.addr)
	*e = entry{}
	b.freeList = append(b.freeList, handle)

	return out, true
}

// Close forgets every entry. Values are not dropped; objects that foreign
// code still references must outlive the table.
func (b *LocalBackend) Close() []Entry {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil
	}
	b.closed = true

	var live []Entry
	for i, e := range b.entries {
		if e.valid {
			live = append(live, Entry{Value: e.value, Keep: e.keep, Class: e.class, Addr: e.addr, Handle: Handle(i + 1)})
		}
	}

	b.entries = nil
	b.freeList = nil
	b.byAddr = nil
	return live
}

// Len returns the number of live objects.
func (b *LocalBackend) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.byAddr)
}

// Each iterates over live objects in handle order.
func (b *LocalBackend) Each(fn func(Entry) bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for i, e := range b.entries {
		if e.valid {
			if !fn(Entry{Value: e.value, Keep: e.keep, Class: e.class, Addr: e.addr, Handle: Handle(i + 1)}) {
				break
			}
		}
	}
}
