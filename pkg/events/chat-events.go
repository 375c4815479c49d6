package events

import (
	"encoding/json"

	"github.com/rs/zerolog"
)

type EventType string

const (
	// EventTypeStart is published when a reply stream begins, before the
	// first fragment arrives.
	EventTypeStart             EventType = "start"
	EventTypePartialCompletion EventType = "partial"
	EventTypeFinal             EventType = "final"
	EventTypeInterrupt         EventType = "interrupt"
	EventTypeError             EventType = "error"
)

// Event is the common interface for stream lifecycle events.
type Event interface {
	Type() EventType
	Metadata() EventMetadata
}

// EventMetadata locates an event within the conversation state: the chat the
// stream belongs to and the assistant message being produced.
type EventMetadata struct {
	ChatID    string `json:"chat_id"`
	MessageID string `json:"message_id"`
}

func (em EventMetadata) MarshalZerologObject(e *zerolog.Event) {
	e.Str("chat_id", em.ChatID)
	e.Str("message_id", em.MessageID)
}

type EventImpl struct {
	Type_     EventType     `json:"type"`
	Metadata_ EventMetadata `json:"meta"`
}

func (e *EventImpl) Type() EventType         { return e.Type_ }
func (e *EventImpl) Metadata() EventMetadata { return e.Metadata_ }

func (e *EventImpl) MarshalZerologObject(ev *zerolog.Event) {
	ev.Str("type", string(e.Type_))
	ev.Object("meta", e.Metadata_)
}

var _ Event = (*EventImpl)(nil)

// EventPartialCompletion carries one streamed fragment. Completion is the full
// accumulated text so far, so consumers can replace their copy wholesale
// instead of concatenating deltas onto possibly stale state.
type EventPartialCompletion struct {
	EventImpl
	Delta      string `json:"delta"`
	Completion string `json:"completion"`
}

// EventFinal carries the completed reply text.
type EventFinal struct {
	EventImpl
	Text string `json:"text"`
}

// EventInterrupt is published when a stream is cancelled before completion;
// Text holds the content accumulated up to that point.
type EventInterrupt struct {
	EventImpl
	Text string `json:"text"`
}

type EventError struct {
	EventImpl
	ErrorString string `json:"error_string"`
}

func NewStartEvent(meta EventMetadata) *EventImpl {
	return &EventImpl{Type_: EventTypeStart, Metadata_: meta}
}

func NewPartialCompletionEvent(meta EventMetadata, delta string, completion string) *EventPartialCompletion {
	return &EventPartialCompletion{
		EventImpl: EventImpl{Type_: EventTypePartialCompletion, Metadata_: meta},
		Delta:     delta, Completion: completion,
	}
}

func NewFinalEvent(meta EventMetadata, text string) *EventFinal {
	return &EventFinal{
		EventImpl: EventImpl{Type_: EventTypeFinal, Metadata_: meta},
		Text:      text,
	}
}

func NewInterruptEvent(meta EventMetadata, text string) *EventInterrupt {
	return &EventInterrupt{
		EventImpl: EventImpl{Type_: EventTypeInterrupt, Metadata_: meta},
		Text:      text,
	}
}

func NewErrorEvent(meta EventMetadata, err error) *EventError {
	return &EventError{
		EventImpl:   EventImpl{Type_: EventTypeError, Metadata_: meta},
		ErrorString: err.Error(),
	}
}

// NewEventFromJSON decodes a published payload back into its concrete event
// type, for subscribers reading from a watermill topic.
func NewEventFromJSON(b []byte) (Event, error) {
	var peek EventImpl
	if err := json.Unmarshal(b, &peek); err != nil {
		return nil, err
	}

	switch peek.Type_ {
	case EventTypePartialCompletion:
		var e EventPartialCompletion
		if err := json.Unmarshal(b, &e); err != nil {
			return nil, err
		}
		return &e, nil
	case EventTypeFinal:
		var e EventFinal
		if err := json.Unmarshal(b, &e); err != nil {
			return nil, err
		}
		return &e, nil
	case EventTypeInterrupt:
		var e EventInterrupt
		if err := json.Unmarshal(b, &e); err != nil {
			return nil, err
		}
		return &e, nil
	case EventTypeError:
		var e EventError
		if err := json.Unmarshal(b, &e); err != nil {
			return nil, err
		}
		return &e, nil
	case EventTypeStart:
		return &peek, nil
	}

	return &peek, nil
}
