package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type DocumentChunk struct {
	Id             uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	FileId         uuid.UUID       `gorm:"type:uuid;not null;index;uniqueIndex:idx_document_chunks_file_chunk"`
	ChunkIndex     int             `gorm:"not null;uniqueIndex:idx_document_chunks_file_chunk"`
	Filename       string          `gorm:"type:text;not null"`
	Title          string          `gorm:"type:text"`
	Page           int             `gorm:"default:0"`
	PageEnd        int             `gorm:"default:0"`
	Content        string          `gorm:"type:text"`
	Context        string          `gorm:"type:text"`
	ContentHash    string          `gorm:"type:char(64);index"`
	Tags           datatypes.JSON  `gorm:"type:jsonb"`
	PublishedAt    *time.Time
	EmbeddingValue pgvector.Vector `gorm:"type:vector(768)"` // nomic-embed-text and text-embedding-004 are both 768-d
	CreatedAt      time.Time       `gorm:"autoCreateTime"`
	UpdatedAt      time.Time       `gorm:"autoUpdateTime"`
	DeletedAt      gorm.DeletedAt  `gorm:"index"`
}

func (DocumentChunk) TableName() string {
	return "document_chunks"
}
