package ecs

// Event is a generic ECS event payload.
type Event struct {
	Type   string
	Entity Entity
	Data   any
}

// EventQueue is a simple FIFO queue drained by observers (logging, the
// viewer) before the end of the tick.
type EventQueue struct {
	items []Event
}

// Push adds an event.
func (q *EventQueue) Push(evt Event) {
	if q == nil {
		return
	}
	q.items = append(q.items, evt)
}

// Drain returns all events and clears the queue.
func (q *EventQueue) Drain() []Event {
	if q == nil || len(q.items) == 0 {
		return nil
	}
	out := q.items
	q.items = nil
	return out
}

func (q *EventQueue) flush() {
	if q == nil {
		return
	}
	q.items = nil
}

// Subscription identifies one observer connected to a Signal.
type Subscription uint64

// Signal is a synchronous observer list. Emit calls observers in the order
// they were connected, on the caller's goroutine, before returning.
type Signal struct {
	next      Subscription
	observers []observer
}

type observer struct {
	id Subscription
	fn func()
}

// Connect registers fn and returns the handle needed to disconnect it.
func (s *Signal) Connect(fn func()) Subscription {
	if s == nil || fn == nil {
		return 0
	}
	s.next++
	s.observers = append(s.observers, observer{id: s.next, fn: fn})
	return s.next
}

// Disconnect removes an observer. Unknown handles are ignored.
func (s *Signal) Disconnect(id Subscription) {
	if s == nil || id == 0 {
		return
	}
	for i, o := range s.observers {
		if o.id == id {
			s.observers = append(s.observers[:i:i], s.observers[i+1:]...)
			return
		}
	}
}

// Emit invokes every observer. Observers connected or disconnected while
// emitting take effect on the next Emit.
func (s *Signal) Emit() {
	if s == nil || len(s.observers) == 0 {
		return
	}
	snapshot := append([]observer(nil), s.observers...)
	for _, o := range snapshot {
		o.fn()
	}
}

func (s *Signal) Len() int {
	if s == nil {
		return 0
	}
	return len(s.observers)
}
