package agent

import "time"

// EventType enumerates the progress events an agent run can emit.
type EventType string

const (
	EventSearching  EventType = "searching"
	EventReasoning  EventType = "reasoning"
	EventNoteTaking EventType = "note_taking"
	EventAction     EventType = "action"
	EventText       EventType = "text"
)

// Event is one entry in the ordered stream a run produces. Events are
// immutable after emission and are consumed strictly in append order.
type Event struct {
	Type      EventType   `json:"type"`
	Content   interface{} `json:"content"`
	Timestamp time.Time   `json:"timestamp"`
}

// ActionPayload is the content of an "action" event describing a note write
// that was materialized during final synthesis.
type ActionPayload struct {
	Action    string `json:"action"` // "create_new" or "edit_current"
	NoteId    string `json:"note_id"`
	Title     string `json:"title"`
	Filename  string `json:"filename"`
	Markdown  string `json:"markdown"`
	UpdatedAt string `json:"updated_at"`
}
