package mapper

import (
	"encoding/json"
	"time"

	"origami-be/internal/entity"
	"origami-be/internal/model"

	"github.com/pgvector/pgvector-go"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type DocumentChunkMapper struct{}

func NewDocumentChunkMapper() *DocumentChunkMapper {
	return &DocumentChunkMapper{}
}

func (m *DocumentChunkMapper) ToEntity(e *model.DocumentChunk) *entity.DocumentChunk {
	if e == nil {
		return nil
	}

	var deletedAt *time.Time
	if e.DeletedAt.Valid {
		t := e.DeletedAt.Time
		deletedAt = &t
	}

	var updatedAt *time.Time
	if !e.UpdatedAt.IsZero() {
		t := e.UpdatedAt
		updatedAt = &t
	}

	var tags []string
	if len(e.Tags) > 0 {
		// A corrupt tags column degrades to no tags rather than an error.
		_ = json.Unmarshal(e.Tags, &tags)
	}

	return &entity.DocumentChunk{
		Id:             e.Id,
		FileId:         e.FileId,
		ChunkIndex:     e.ChunkIndex,
		Filename:       e.Filename,
		Title:          e.Title,
		Page:           e.Page,
		PageEnd:        e.PageEnd,
		Content:        e.Content,
		Context:        e.Context,
		ContentHash:    e.ContentHash,
		Tags:           tags,
		PublishedAt:    e.PublishedAt,
		EmbeddingValue: e.EmbeddingValue.Slice(),
		CreatedAt:      e.CreatedAt,
		UpdatedAt:      updatedAt,
		DeletedAt:      deletedAt,
		IsDeleted:      e.DeletedAt.Valid,
	}
}

func (m *DocumentChunkMapper) ToModel(e *entity.DocumentChunk) *model.DocumentChunk {
	if e == nil {
		return nil
	}

	var deletedAt gorm.DeletedAt
	if e.DeletedAt != nil {
		deletedAt = gorm.DeletedAt{Time: *e.DeletedAt, Valid: true}
	} else if e.IsDeleted {
		deletedAt = gorm.DeletedAt{Time: time.Now(), Valid: true}
	}

	var updatedAt time.Time
	if e.UpdatedAt != nil {
		updatedAt = *e.UpdatedAt
	}

	return &model.DocumentChunk{
		Id:             e.Id,
		FileId:         e.FileId,
		ChunkIndex:     e.ChunkIndex,
		Filename:       e.Filename,
		Title:          e.Title,
		Page:           e.Page,
		PageEnd:        e.PageEnd,
		Content:        e.Content,
		Context:        e.Context,
		ContentHash:    e.ContentHash,
		Tags:           tagsToJSON(e.Tags),
		PublishedAt:    e.PublishedAt,
		EmbeddingValue: pgvector.NewVector(e.EmbeddingValue),
		CreatedAt:      e.CreatedAt,
		UpdatedAt:      updatedAt,
		DeletedAt:      deletedAt,
	}
}

func (m *DocumentChunkMapper) ToEntities(chunks []*model.DocumentChunk) []*entity.DocumentChunk {
	entities := make([]*entity.DocumentChunk, len(chunks))
	for i, e := range chunks {
		entities[i] = m.ToEntity(e)
	}
	return entities
}

func tagsToJSON(tags []string) datatypes.JSON {
	if tags == nil {
		tags = []string{}
	}
	data, err := json.Marshal(tags)
	if err != nil {
		return datatypes.JSON("[]")
	}
	return datatypes.JSON(data)
}
