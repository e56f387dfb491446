package media

import (
	"context"

	"github.com/clipstream/media-server/internal/models"
)

const statusCachePrefix = "video-status:"

// StatusCacheKey builds the cache key for a job name. Shared by the usecase
// (reads) and the worker (invalidation on every transition).
func StatusCacheKey(name string) string {
	return statusCachePrefix + name
}

// RedisRepository caches job status records for reads. The worker invalidates
// the cached entry on every status transition.
type RedisRepository interface {
	GetStatusCtx(ctx context.Context, key string) (*models.VideoStatus, error)
	SetStatusCtx(ctx context.Context, key string, seconds int, status *models.VideoStatus) error
	DeleteStatusCtx(ctx context.Context, key string) error
}
