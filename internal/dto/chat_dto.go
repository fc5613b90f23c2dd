package dto

// ChatMessage mirrors one turn of the client-side conversation.
type ChatMessage struct {
	Role    string `json:"role" validate:"required,oneof=user assistant system"`
	Content string `json:"content" validate:"required"`
}

// ChatRequest starts a research run. The client sends the whole visible
// conversation plus the editor state so edit actions can target the open
// note.
type ChatRequest struct {
	Messages        []ChatMessage `json:"messages" validate:"required,min=1,dive"`
	CurrentNote     string        `json:"current_note"`
	AllowEdits      bool          `json:"allow_edits"`
	ActiveNoteTitle string        `json:"active_note_title"`
	ActiveNoteId    string        `json:"active_note_id"`
	Scope           []string      `json:"scope"` // file ids limiting retrieval, empty = all
}
