package dto

import (
	"time"

	"github.com/google/uuid"
)

// UploadResponse is phase one: the PDF is stored and inspected, nothing is
// ingested yet. Duplicate reports the file already exists in the index.
type UploadResponse struct {
	UploadId    uuid.UUID  `json:"upload_id"`
	Filename    string     `json:"filename"`
	Title       string     `json:"title"`
	NumPages    int        `json:"num_pages"`
	Size        int64      `json:"size"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
	Duplicate   bool       `json:"duplicate"`
	ExistingId  *uuid.UUID `json:"existing_file_id,omitempty"`
}

// ConfirmUploadRequest is phase two: the client confirms ingestion, possibly
// overriding the suggested title and attaching tags.
type ConfirmUploadRequest struct {
	UploadId string   `json:"upload_id" validate:"required,uuid"`
	Title    string   `json:"title"`
	Tags     []string `json:"tags"`
}

type ConfirmUploadResponse struct {
	FileId uuid.UUID `json:"file_id"`
	Status string    `json:"status"`
}

type IngestStatusResponse struct {
	FileId         uuid.UUID `json:"file_id"`
	Filename       string    `json:"filename"`
	Status         string    `json:"status"`
	TotalChunks    int       `json:"total_chunks"`
	IngestedChunks int       `json:"ingested_chunks"`
	Error          string    `json:"error,omitempty"`
}
