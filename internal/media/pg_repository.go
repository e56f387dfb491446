package media

import (
	"context"

	"github.com/clipstream/media-server/internal/models"
)

// Repository is the durable job status store, keyed by unique job name.
type Repository interface {
	// UpsertStatus writes or overwrites the record for a name with a
	// server-assigned update timestamp. A stale non-terminal write against a
	// Success record is ignored and returns (nil, nil).
	UpsertStatus(ctx context.Context, name string, status models.EncodingStatus, message string) (*models.VideoStatus, error)
	GetStatus(ctx context.Context, name string) (*models.VideoStatus, error)
	// FailInterrupted marks every non-terminal record as Failed. Called once on
	// worker startup: queued jobs do not survive a restart, their status
	// records must not dangle in Pending/Processing forever.
	FailInterrupted(ctx context.Context, message string) (int64, error)
}
