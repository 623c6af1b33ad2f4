package resource

// Handle is an opaque reference to an entry in a table.
// Handle 0 is reserved and always invalid.
type Handle uint32

// EventType identifies a table lifecycle event.
type EventType uint8

const (
	EventCreated EventType = iota
	EventDropped
	EventBound
)

func (t EventType) String() string {
	switch t {
	case EventCreated:
		return "created"
	case EventDropped:
		return "dropped"
	case EventBound:
		return "bound"
	default:
		return "unknown"
	}
}

// Event represents a table lifecycle event.
type Event struct {
	Value  any
	Name   string // set for EventBound and for named entries
	Handle Handle
	TypeID uint32
	Type   EventType
}

// Observer receives notifications about table lifecycle events.
type Observer interface {
	OnResourceEvent(Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Event)

// OnResourceEvent calls f(e).
func (f ObserverFunc) OnResourceEvent(e Event) {
	f(e)
}
