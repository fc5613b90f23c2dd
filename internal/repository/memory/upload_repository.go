package memory

import (
	"time"

	"origami-be/internal/entity"

	"github.com/patrickmn/go-cache"
)

// UploadRepository holds phase-one uploads awaiting confirmation. Entries
// expire after 30 minutes; an expired upload must be re-uploaded.
type UploadRepository struct {
	cache *cache.Cache
}

func NewUploadRepository() *UploadRepository {
	c := cache.New(30*time.Minute, 10*time.Minute)
	return &UploadRepository{
		cache: c,
	}
}

func (r *UploadRepository) Save(upload *entity.PendingUpload) {
	r.cache.Set(upload.UploadId.String(), upload, cache.DefaultExpiration)
}

func (r *UploadRepository) Get(uploadId string) (*entity.PendingUpload, bool) {
	if x, found := r.cache.Get(uploadId); found {
		return x.(*entity.PendingUpload), true
	}
	return nil, false
}

func (r *UploadRepository) Delete(uploadId string) {
	r.cache.Delete(uploadId)
}
