package countdown

import "time"

// EventKind classifies what happened to the timer.
type EventKind int

const (
	EventStarted EventKind = iota
	EventTick
	EventPaused
	EventResumed
	EventAdjusted
	EventAdded
	EventStopped
	EventFiring
	EventExpired
)

var eventNames = map[EventKind]string{
	EventStarted:  "started",
	EventTick:     "tick",
	EventPaused:   "paused",
	EventResumed:  "resumed",
	EventAdjusted: "adjusted",
	EventAdded:    "added",
	EventStopped:  "stopped",
	EventFiring:   "firing",
	EventExpired:  "expired",
}

func (k EventKind) String() string {
	if name, ok := eventNames[k]; ok {
		return name
	}
	return "unknown"
}

// Event is delivered to observers after every state or time change.
type Event struct {
	Kind      EventKind
	RunID     string
	State     State
	Remaining int
	Planned   int
	At        time.Time

	// Delta is the change in remaining seconds on EventAdjusted and
	// EventAdded.
	Delta int

	// Err is the shutdown trigger's result on EventExpired.
	Err error
}

// Observer receives timer events. Observe may be called from the countdown
// goroutine and from the goroutine that mutated the timer, so
// implementations must be safe for concurrent use.
type Observer interface {
	Observe(Event)
}

// ObserverFunc adapts a plain function to Observer.
type ObserverFunc func(Event)

func (f ObserverFunc) Observe(e Event) { f(e) }

// Chan returns an Observer that forwards events to ch without blocking.
// Events are dropped while ch is full.
func Chan(ch chan<- Event) Observer {
	return ObserverFunc(func(e Event) {
		select {
		case ch <- e:
		default:
		}
	})
}
