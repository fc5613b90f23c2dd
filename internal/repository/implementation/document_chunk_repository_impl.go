package implementation

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"origami-be/internal/entity"
	"origami-be/internal/mapper"
	"origami-be/internal/model"
	"origami-be/internal/repository/contract"
	"origami-be/internal/repository/specification"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type DocumentChunkRepositoryImpl struct {
	db     *gorm.DB
	mapper *mapper.DocumentChunkMapper
}

func NewDocumentChunkRepository(db *gorm.DB) contract.DocumentChunkRepository {
	return &DocumentChunkRepositoryImpl{
		db:     db,
		mapper: mapper.NewDocumentChunkMapper(),
	}
}

func (r *DocumentChunkRepositoryImpl) applySpecifications(db *gorm.DB, specs ...specification.Specification) *gorm.DB {
	for _, spec := range specs {
		db = spec.Apply(db)
	}
	return db
}

func (r *DocumentChunkRepositoryImpl) Upsert(ctx context.Context, chunk *entity.DocumentChunk) error {
	m := r.mapper.ToModel(chunk)
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "file_id"}, {Name: "chunk_index"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"filename", "title", "page", "page_end", "content", "context",
			"content_hash", "tags", "published_at", "embedding_value", "updated_at",
		}),
	}).Create(m).Error
	if err != nil {
		return err
	}
	*chunk = *r.mapper.ToEntity(m)
	return nil
}

func (r *DocumentChunkRepositoryImpl) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Delete(&model.DocumentChunk{}, id).Error
}

func (r *DocumentChunkRepositoryImpl) DeleteByFileId(ctx context.Context, fileId uuid.UUID) error {
	// Hard delete: a removed document must not linger in similarity search.
	return r.db.WithContext(ctx).Unscoped().
		Where("file_id = ?", fileId).
		Delete(&model.DocumentChunk{}).Error
}

func (r *DocumentChunkRepositoryImpl) FindOne(ctx context.Context, specs ...specification.Specification) (*entity.DocumentChunk, error) {
	var m model.DocumentChunk
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.First(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return r.mapper.ToEntity(&m), nil
}

func (r *DocumentChunkRepositoryImpl) FindAll(ctx context.Context, specs ...specification.Specification) ([]*entity.DocumentChunk, error) {
	var models []*model.DocumentChunk
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	if err := query.Find(&models).Error; err != nil {
		return nil, err
	}
	return r.mapper.ToEntities(models), nil
}

func (r *DocumentChunkRepositoryImpl) Count(ctx context.Context, specs ...specification.Specification) (int64, error) {
	var count int64
	query := r.applySpecifications(r.db.WithContext(ctx), specs...)
	err := query.Model(&model.DocumentChunk{}).Count(&count).Error
	return count, err
}

func (r *DocumentChunkRepositoryImpl) FindFirstByHash(ctx context.Context, hash string) (*entity.DocumentChunk, error) {
	return r.FindOne(ctx, specification.ByContentHash{Hash: hash})
}

func (r *DocumentChunkRepositoryImpl) ListDocuments(ctx context.Context) ([]*entity.DocumentInfo, error) {
	type row struct {
		FileId      uuid.UUID
		Filename    string
		Title       string
		Tags        []byte
		ContentHash string
		PublishedAt *time.Time
		NumChunks   int
		CreatedAt   time.Time
	}
	var rows []row

	err := r.db.WithContext(ctx).
		Model(&model.DocumentChunk{}).
		Select("file_id, MIN(filename) as filename, MIN(title) as title, " +
			"(ARRAY_AGG(tags))[1] as tags, MIN(content_hash) as content_hash, " +
			"MIN(published_at) as published_at, COUNT(*) as num_chunks, " +
			"MIN(created_at) as created_at").
		Group("file_id").
		Order("MIN(created_at) DESC").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	out := make([]*entity.DocumentInfo, 0, len(rows))
	for _, rw := range rows {
		info := &entity.DocumentInfo{
			FileId:      rw.FileId,
			Filename:    rw.Filename,
			Title:       rw.Title,
			ContentHash: rw.ContentHash,
			PublishedAt: rw.PublishedAt,
			NumChunks:   rw.NumChunks,
			CreatedAt:   rw.CreatedAt,
		}
		if len(rw.Tags) > 0 {
			_ = json.Unmarshal(rw.Tags, &info.Tags)
		}
		out = append(out, info)
	}
	return out, nil
}

func (r *DocumentChunkRepositoryImpl) UpdateTagsByFileId(ctx context.Context, fileId uuid.UUID, tags []string) error {
	data, err := json.Marshal(tags)
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).
		Model(&model.DocumentChunk{}).
		Where("file_id = ?", fileId).
		Update("tags", data).Error
}

func (r *DocumentChunkRepositoryImpl) UpdateTitleByFileId(ctx context.Context, fileId uuid.UUID, title string) error {
	return r.db.WithContext(ctx).
		Model(&model.DocumentChunk{}).
		Where("file_id = ?", fileId).
		Update("title", title).Error
}

func (r *DocumentChunkRepositoryImpl) DistinctTags(ctx context.Context) ([]string, error) {
	var tags []string
	err := r.db.WithContext(ctx).
		Model(&model.DocumentChunk{}).
		Select("DISTINCT jsonb_array_elements_text(tags)").
		Where("deleted_at IS NULL").
		Order("1").
		Scan(&tags).Error
	if err != nil {
		return nil, err
	}
	return tags, nil
}

func (r *DocumentChunkRepositoryImpl) FileIdsByTag(ctx context.Context, tag string) ([]uuid.UUID, error) {
	needle, err := json.Marshal([]string{tag})
	if err != nil {
		return nil, err
	}
	var ids []uuid.UUID
	// jsonb containment: tags @> '["tag"]'
	err = r.db.WithContext(ctx).
		Model(&model.DocumentChunk{}).
		Select("DISTINCT file_id").
		Where("tags @> ?", string(needle)).
		Scan(&ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *DocumentChunkRepositoryImpl) SearchSimilarWithScore(ctx context.Context, embedding []float32, limit int, fileIds []uuid.UUID, threshold float64) ([]*contract.ScoredDocumentChunk, error) {
	if limit <= 0 {
		limit = 5
	}

	// Cosine distance in pgvector is 1 - cosine_similarity, so
	// 1 - (embedding_value <=> query_vector) gives the similarity back.
	type result struct {
		model.DocumentChunk
		Similarity float64
	}
	var results []result

	queryVector := pgvector.NewVector(embedding)

	query := r.db.WithContext(ctx).
		Table("document_chunks").
		Select("document_chunks.*, 1 - (embedding_value <=> ?) as similarity", queryVector).
		Where("deleted_at IS NULL")
	if len(fileIds) > 0 {
		query = query.Where("file_id IN ?", fileIds)
	}
	if threshold > 0 {
		query = query.Where("1 - (embedding_value <=> ?) >= ?", queryVector, threshold)
	}

	err := query.
		Order("similarity DESC").
		Limit(limit).
		Scan(&results).Error
	if err != nil {
		return nil, err
	}

	scored := make([]*contract.ScoredDocumentChunk, len(results))
	for i, res := range results {
		scored[i] = &contract.ScoredDocumentChunk{
			Chunk:      r.mapper.ToEntity(&res.DocumentChunk),
			Similarity: res.Similarity,
		}
	}
	return scored, nil
}
