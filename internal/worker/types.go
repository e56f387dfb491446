package worker

import (
	"time"

	"github.com/clipstream/media-server/internal/media"
)

const (
	defaultQueueSize      = 100
	defaultMaxRetries     = 3
	defaultRetryBackoff   = 5 * time.Second
	cpuCheckInterval      = 10 * time.Second
	interruptedJobMessage = "interrupted by worker restart"
)

var _ media.Queue = (*Worker)(nil)
