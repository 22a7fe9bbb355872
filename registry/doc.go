// Package registry tracks live COM objects.
//
// Foreign code holds objects by raw address, which the Go garbage collector
// cannot see. Every object is therefore inserted into a Table when it is
// first handed out and removed when its reference count reaches zero. The
// table keeps the object reachable in between and lets the runtime tell a
// live object from a stale or forged pointer.
//
//	table := registry.NewTable()
//
//	// Register the object at its base address
//	handle, err := table.Insert(addr, "Calc", value, box)
//
//	// Look it up by address
//	entry, ok := table.Find(addr)
//
//	// Final release
//	entry, ok = table.Remove(addr)
//
// # Observers
//
// Observers see creation, reference count changes and destruction:
//
//	cancel := table.Subscribe(registry.ObserverFunc(func(e registry.Event) {
//	    log.Printf("%s %s refs=%d", e.Class, e.Type, e.RefCount)
//	}))
//	defer cancel()
//
// Values implementing Dropper have Drop called when removed.
package registry
