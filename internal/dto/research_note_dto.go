package dto

import "time"

type NoteResponse struct {
	Id        string    `json:"id"`
	Title     string    `json:"title"`
	Filename  string    `json:"filename"`
	Content   string    `json:"content"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NoteSummaryResponse omits the body for listings.
type NoteSummaryResponse struct {
	Id        string    `json:"id"`
	Title     string    `json:"title"`
	Filename  string    `json:"filename"`
	UpdatedAt time.Time `json:"updated_at"`
}

type CreateNoteRequest struct {
	Title   string `json:"title" validate:"required"`
	Content string `json:"content"`
}

type UpdateNoteRequest struct {
	Content string `json:"content" validate:"required"`
}
