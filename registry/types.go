package registry

// Handle identifies a live object in a table. Handle 0 is reserved and
// always invalid. Handles are recycled once an object is destroyed.
type Handle uint32

// EventType classifies object lifecycle notifications.
type EventType uint8

const (
	EventCreated EventType = iota
	EventAddRef
	EventRelease
	EventDestroyed
)

func (e EventType) String() string {
	switch e {
	case EventCreated:
		return "created"
	case EventAddRef:
		return "addref"
	case EventRelease:
		return "release"
	case EventDestroyed:
		return "destroyed"
	}
	return "unknown"
}

// Event describes one lifecycle change of an object.
type Event struct {
	Value    any
	Class    string
	Addr     uintptr
	Handle   Handle
	RefCount uint32
	Type     EventType
}

// Observer receives notifications about object lifecycle events.
// Observers run synchronously on the goroutine that caused the event and
// must not call back into the table.
type Observer interface {
	OnObjectEvent(Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Event)

func (f ObserverFunc) OnObjectEvent(e Event) { f(e) }

// Entry is a snapshot of a live object. Keep is the value passed to Insert.
type Entry struct {
	Value  any
	Keep   any
	Class  string
	Addr   uintptr
	Handle Handle
}

// Dropper is optionally implemented by object values that need cleanup
// when the last reference goes away.
type Dropper interface {
	Drop()
}
