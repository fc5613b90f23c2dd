package entity

import (
	"time"

	"github.com/google/uuid"
)

// DocumentChunk is one embedded slice of an ingested document.
type DocumentChunk struct {
	Id             uuid.UUID
	FileId         uuid.UUID
	ChunkIndex     int
	Filename       string
	Title          string
	Page           int // first page of the chunk, 1-based, 0 when unknown
	PageEnd        int // last page of the chunk, inclusive, 0 when unknown
	Content        string
	Context        string // situating sentence prepended before embedding
	ContentHash    string // sha256 of the whole source document
	Tags           []string
	PublishedAt    *time.Time
	EmbeddingValue []float32
	CreatedAt      time.Time
	UpdatedAt      *time.Time
	DeletedAt      *time.Time
	IsDeleted      bool
}

// DocumentInfo is the per-file aggregate shown in document listings.
type DocumentInfo struct {
	FileId      uuid.UUID
	Filename    string
	Title       string
	Tags        []string
	ContentHash string
	PublishedAt *time.Time
	NumChunks   int
	CreatedAt   time.Time
}
