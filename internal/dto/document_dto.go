package dto

import (
	"time"

	"github.com/google/uuid"
)

type DocumentResponse struct {
	FileId      uuid.UUID  `json:"file_id"`
	Filename    string     `json:"filename"`
	Title       string     `json:"title"`
	Tags        []string   `json:"tags"`
	NumChunks   int        `json:"num_chunks"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

type UpdateDocumentRequest struct {
	Title *string   `json:"title"`
	Tags  *[]string `json:"tags"`
}

type DocumentChunkResponse struct {
	Id         uuid.UUID `json:"id"`
	ChunkIndex int       `json:"chunk_index"`
	Page       int       `json:"page,omitempty"`
	PageEnd    int       `json:"page_end,omitempty"`
	Content    string    `json:"content"`
	Context    string    `json:"context,omitempty"`
}

type TagListResponse struct {
	Tags []string `json:"tags"`
}

// SearchChunksRequest scopes either by explicit file ids or by a tag; a
// tag expands to every file carrying it.
type SearchChunksRequest struct {
	Query string   `json:"query" validate:"required"`
	TopK  int      `json:"top_k"`
	Scope []string `json:"scope"`
	Tag   string   `json:"tag"`
}

type ScoredChunkResponse struct {
	FileId     uuid.UUID `json:"file_id"`
	Filename   string    `json:"filename"`
	ChunkIndex int       `json:"chunk_index"`
	Page       int       `json:"page,omitempty"`
	PageEnd    int       `json:"page_end,omitempty"`
	Content    string    `json:"content"`
	Similarity float64   `json:"similarity"`
}
