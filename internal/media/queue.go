package media

import "context"

// Queue accepts transcode work. Enqueue is non-blocking: it returns as soon as
// the Pending status record is written, never waiting on the transcode itself.
type Queue interface {
	Enqueue(ctx context.Context, sourcePath string) error
}
