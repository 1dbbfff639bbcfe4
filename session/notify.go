package session

import (
	"github.com/bkuner/opcUaUnifiedAutomation/uatype"
)

// EventKind tells a consumer why it was woken.
type EventKind uint8

const (
	// EventData indicates a pushed or pulled value is ready to be read.
	EventData EventKind = iota
	// EventWriteDone indicates the outcome of a write is known.
	EventWriteDone
	// EventStatus indicates the item status changed because of the connection state.
	EventStatus
)

func (k EventKind) String() string {
	switch k {
	case EventData:
		return "data"
	case EventWriteDone:
		return "write-done"
	case EventStatus:
		return "status"
	default:
		return "unknown"
	}
}

// Event is delivered to the consumer of an item.
type Event struct {
	Kind   EventKind
	Item   *Item
	Status uatype.StatusCode
}

// Consumer is the local side of an item. Notify is called once per completed operation from
// the notifier goroutine of the session, never from the protocol callback context.
type Consumer interface {
	Notify(ev Event)
}

// ConsumerFunc adapts a function to a Consumer.
type ConsumerFunc func(ev Event)

// Notify calls f(ev).
func (f ConsumerFunc) Notify(ev Event) { f(ev) }

// notify queues a wake-up for the consumer of it.
func (s *Session) notify(it *Item, kind EventKind, status uatype.StatusCode) {
	if it.cfg.consumer == nil {
		return
	}
	s.notices.Post(Event{Kind: kind, Item: it, Status: status})
}

func (s *Session) deliver(ev Event) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("panic in item consumer", "item", ev.Item.index, "event", ev.Kind, "panic", r)
		}
	}()

	ev.Item.cfg.consumer.Notify(ev)
}
