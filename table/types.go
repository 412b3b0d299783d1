package table

import "strconv"

// Handle is an opaque reference to a box in a table.
// Handle 0 is reserved and always invalid.
type Handle uint32

func (h Handle) String() string {
	return "#" + strconv.FormatUint(uint64(h), 10)
}

// EventType identifies a box lifecycle notification.
type EventType uint8

const (
	EventCreated EventType = iota
	EventDropped
	EventTaken
)

func (t EventType) String() string {
	switch t {
	case EventCreated:
		return "created"
	case EventDropped:
		return "dropped"
	case EventTaken:
		return "taken"
	default:
		return "unknown"
	}
}

// Event represents a box lifecycle event.
type Event struct {
	Handle Handle
	Ptr    uint32
	Type   EventType
}

// Observer receives notifications about box lifecycle events.
type Observer interface {
	OnBoxEvent(Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Event)

func (f ObserverFunc) OnBoxEvent(e Event) { f(e) }
