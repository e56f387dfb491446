package media

import (
	"context"

	"github.com/clipstream/media-server/internal/models"
)

// UseCase normalizes accepted uploads into servable media and exposes job status.
type UseCase interface {
	// NormalizeImages re-encodes every accepted image to canonical JPEG and
	// moves it to public image storage. Files are processed independently: a
	// failed file is skipped, it never aborts its siblings.
	NormalizeImages(ctx context.Context, files []models.UploadedFile) ([]models.Media, error)
	// StoreVideos moves accepted videos into public video storage unchanged.
	StoreVideos(ctx context.Context, files []models.UploadedFile) ([]models.Media, error)
	// EnqueueHLS hands accepted videos to the transcode queue and returns URLs
	// pointing at manifests that exist only after the job reaches Success.
	EnqueueHLS(ctx context.Context, files []models.UploadedFile) ([]models.Media, error)
	GetVideoStatus(ctx context.Context, name string) (*models.VideoStatus, error)
}
