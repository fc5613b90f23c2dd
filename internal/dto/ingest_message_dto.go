package dto

import (
	"time"

	"github.com/google/uuid"
)

// IngestDocumentMessage is the pub/sub job queued when an upload is
// confirmed. The consumer re-extracts from Path rather than carrying the
// whole document text through the bus.
type IngestDocumentMessage struct {
	FileId      uuid.UUID  `json:"file_id"`
	Path        string     `json:"path"`
	Filename    string     `json:"filename"`
	Title       string     `json:"title"`
	Tags        []string   `json:"tags"`
	ContentHash string     `json:"content_hash"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
}
