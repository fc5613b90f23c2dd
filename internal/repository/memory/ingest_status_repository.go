package memory

import (
	"time"

	"origami-be/internal/entity"

	"github.com/patrickmn/go-cache"
)

// IngestStatusRepository tracks per-file ingestion progress for status
// polling. Completed and failed entries age out after an hour.
type IngestStatusRepository struct {
	cache *cache.Cache
}

func NewIngestStatusRepository() *IngestStatusRepository {
	c := cache.New(1*time.Hour, 10*time.Minute)
	return &IngestStatusRepository{
		cache: c,
	}
}

func (r *IngestStatusRepository) Save(status *entity.IngestStatus) {
	status.UpdatedAt = time.Now()
	r.cache.Set(status.FileId.String(), status, cache.DefaultExpiration)
}

func (r *IngestStatusRepository) Get(fileId string) (*entity.IngestStatus, bool) {
	if x, found := r.cache.Get(fileId); found {
		return x.(*entity.IngestStatus), true
	}
	return nil, false
}
