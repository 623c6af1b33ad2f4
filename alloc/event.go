package alloc

import "github.com/wippyai/rc"

// EventType identifies an allocator event.
type EventType uint8

const (
	EventAlloc EventType = iota
	EventFree
	EventBadFree
)

func (t EventType) String() string {
	switch t {
	case EventAlloc:
		return "alloc"
	case EventFree:
		return "free"
	case EventBadFree:
		return "bad-free"
	default:
		return "unknown"
	}
}

// Event describes one allocation or free seen by a Tracking allocator.
type Event struct {
	Err    error // set for EventBadFree
	Layout rc.Layout
	Addr   uintptr
	Type   EventType
}

// Observer receives allocator events.
type Observer interface {
	OnAllocEvent(Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Event)

// OnAllocEvent calls f(e).
func (f ObserverFunc) OnAllocEvent(e Event) {
	f(e)
}
