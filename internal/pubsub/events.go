package pubsub

import (
	"context"
	"encoding/json"
)

const (
	CreatedEvent EventType = "created"
	UpdatedEvent EventType = "updated"
	DeletedEvent EventType = "deleted"
)

type Subscriber[T any] interface {
	Subscribe(context.Context) <-chan Event[T]
}

type (
	PayloadType = string

	// Typed is implemented by payloads that name themselves on the wire.
	Typed interface {
		PayloadType() PayloadType
	}

	// EventType identifies the type of event
	EventType string

	// Event represents an event in the lifecycle of a resource
	Event[T any] struct {
		Type    EventType `json:"type"`
		Payload T         `json:"payload"`
	}

	Publisher[T any] interface {
		Publish(EventType, T)
	}
)

const (
	PayloadTypeSession  PayloadType = "session"
	PayloadTypeExchange PayloadType = "exchange"
	PayloadTypeParseJob PayloadType = "parse_job"
	PayloadTypeTurn     PayloadType = "turn"
)

func (t EventType) MarshalText() ([]byte, error) {
	return []byte(t), nil
}

func (t *EventType) UnmarshalText(data []byte) error {
	*t = EventType(data)
	return nil
}

// MarshalJSON adds a "kind" field naming the payload when it implements
// [Typed], so a single SSE stream can carry several resources.
func (e Event[T]) MarshalJSON() ([]byte, error) {
	type Alias Event[T]

	kind := ""
	if typed, ok := any(e.Payload).(Typed); ok {
		kind = typed.PayloadType()
	}

	return json.Marshal(&struct {
		Kind PayloadType `json:"kind,omitempty"`
		*Alias
	}{
		Kind:  kind,
		Alias: (*Alias)(&e),
	})
}
