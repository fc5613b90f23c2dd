package specification

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ByFileID filters chunks belonging to one uploaded document.
type ByFileID struct {
	FileID uuid.UUID
}

func (s ByFileID) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("file_id = ?", s.FileID)
}

// ByFileIDs filters chunks belonging to any of the given documents.
type ByFileIDs struct {
	FileIDs []uuid.UUID
}

func (s ByFileIDs) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("file_id IN ?", s.FileIDs)
}

// ByContentHash filters by source document hash, used for upload dedup.
type ByContentHash struct {
	Hash string
}

func (s ByContentHash) Apply(db *gorm.DB) *gorm.DB {
	return db.Where("content_hash = ?", s.Hash)
}

// OrderByChunkIndex keeps chunks in document order.
type OrderByChunkIndex struct{}

func (s OrderByChunkIndex) Apply(db *gorm.DB) *gorm.DB {
	return db.Order("chunk_index ASC")
}
