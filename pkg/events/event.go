package events

import "time"

// Domain event type codes published on the NATS bus.
const (
	TypeDocumentIngested = "DOCUMENT_INGESTED"
	TypeDocumentProgress = "DOCUMENT_PROGRESS"
	TypeNoteCreated      = "NOTE_CREATED"
)

// Event defines the contract for all system events.
type Event interface {
	// EventType returns the unique code for this event (e.g., "DOCUMENT_INGESTED").
	EventType() string

	// Payload returns the data associated with the event.
	Payload() map[string]interface{}

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

// BaseEvent is a plain implementation used by publishers that do not need
// their own event types.
type BaseEvent struct {
	Type       string
	Data       map[string]interface{}
	OccurredAt time.Time
}

func (e BaseEvent) EventType() string {
	return e.Type
}

func (e BaseEvent) Payload() map[string]interface{} {
	return e.Data
}

func (e BaseEvent) Timestamp() time.Time {
	return e.OccurredAt
}
