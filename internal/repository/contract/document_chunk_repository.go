package contract

import (
	"context"

	"origami-be/internal/entity"
	"origami-be/internal/repository/specification"

	"github.com/google/uuid"
)

// ScoredDocumentChunk wraps DocumentChunk with its similarity score
type ScoredDocumentChunk struct {
	Chunk      *entity.DocumentChunk
	Similarity float64 // 0.0 to 1.0 (1.0 = identical)
}

type DocumentChunkRepository interface {
	// Upsert writes one chunk, replacing an existing (file_id, chunk_index)
	// row so re-ingesting a document is idempotent.
	Upsert(ctx context.Context, chunk *entity.DocumentChunk) error
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteByFileId(ctx context.Context, fileId uuid.UUID) error
	FindOne(ctx context.Context, specs ...specification.Specification) (*entity.DocumentChunk, error)
	FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.DocumentChunk, error)
	Count(ctx context.Context, specs ...specification.Specification) (int64, error)

	// FindFirstByHash returns any chunk of the document with this content
	// hash, or nil. Used to detect re-uploads.
	FindFirstByHash(ctx context.Context, hash string) (*entity.DocumentChunk, error)

	// ListDocuments aggregates chunks into one row per ingested file.
	ListDocuments(ctx context.Context) ([]*entity.DocumentInfo, error)

	UpdateTagsByFileId(ctx context.Context, fileId uuid.UUID, tags []string) error
	UpdateTitleByFileId(ctx context.Context, fileId uuid.UUID, title string) error
	DistinctTags(ctx context.Context) ([]string, error)
	FileIdsByTag(ctx context.Context, tag string) ([]uuid.UUID, error)

	// SearchSimilarWithScore runs cosine search over chunks, optionally
	// restricted to fileIds, dropping hits below threshold.
	SearchSimilarWithScore(ctx context.Context, embedding []float32, limit int, fileIds []uuid.UUID, threshold float64) ([]*ScoredDocumentChunk, error)
}
