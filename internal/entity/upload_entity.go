package entity

import (
	"time"

	"github.com/google/uuid"
)

// PendingUpload is phase one of a document upload: the file is on disk and
// hashed, but ingestion has not been confirmed yet. Pending entries expire
// if the client never confirms.
type PendingUpload struct {
	UploadId    uuid.UUID
	Filename    string
	Path        string // stored file location
	ContentHash string // sha256 of the file bytes
	Size        int64
	NumPages    int
	Title       string // extracted suggestion, client may override
	PublishedAt *time.Time
	CreatedAt   time.Time
}

// Ingestion status codes.
const (
	IngestStatusPending    = "pending"
	IngestStatusProcessing = "processing"
	IngestStatusCompleted  = "completed"
	IngestStatusFailed     = "failed"
)

// IngestStatus tracks how far a confirmed upload has progressed.
type IngestStatus struct {
	FileId         uuid.UUID
	Filename       string
	Status         string
	TotalChunks    int
	IngestedChunks int
	Error          string
	UpdatedAt      time.Time
}
