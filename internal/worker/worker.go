package worker

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/clipstream/media-server/internal/config"
	"github.com/clipstream/media-server/internal/encoder"
	"github.com/clipstream/media-server/internal/media"
	"github.com/clipstream/media-server/internal/models"
	"github.com/clipstream/media-server/pkg/logger"
	"github.com/clipstream/media-server/pkg/utils"
	"github.com/pkg/errors"
)

// Worker is the transcode queue: a buffered channel drained by exactly one
// consumer goroutine, so at most one encoder invocation is ever in flight.
// Job ordering is FIFO by enqueue time, no priorities, no reordering.
type Worker struct {
	cfg        *config.Config
	logger     logger.Logger
	statusRepo media.Repository
	redisRepo  media.RedisRepository
	fileRepo   media.FileRepository
	encoder    encoder.HLSEncoder
	jobs       chan *models.EncodeJob
	wg         sync.WaitGroup
}

func NewWorker(
	cfg *config.Config,
	log logger.Logger,
	statusRepo media.Repository,
	redisRepo media.RedisRepository,
	fileRepo media.FileRepository,
	enc encoder.HLSEncoder,
) *Worker {
	queueSize := cfg.Worker.QueueSize
	if queueSize <= 0 {
		queueSize = defaultQueueSize
	}
	return &Worker{
		cfg:        cfg,
		logger:     log,
		statusRepo: statusRepo,
		redisRepo:  redisRepo,
		fileRepo:   fileRepo,
		encoder:    enc,
		jobs:       make(chan *models.EncodeJob, queueSize),
	}
}

// Start sweeps status records left non-terminal by a previous run, then
// launches the single consumer.
func (w *Worker) Start(ctx context.Context) {
	count, err := w.statusRepo.FailInterrupted(ctx, interruptedJobMessage)
	if err != nil {
		w.logger.Errorf("worker failed to sweep interrupted jobs: %v", err)
	} else if count > 0 {
		w.logger.Warnf("marked %d interrupted jobs as Failed", count)
	}

	w.wg.Add(1)
	go w.run(ctx)
	w.logger.Info("transcode worker started")
}

// Stop closes the queue and waits for the in-flight job to finish.
func (w *Worker) Stop() {
	close(w.jobs)
	w.wg.Wait()
}

// Enqueue writes the Pending status record for the job derived from
// sourcePath, then hands the job to the consumer. It returns as soon as the
// record is written and never waits for transcoding. Safe for concurrent use.
func (w *Worker) Enqueue(ctx context.Context, sourcePath string) error {
	name := utils.GetNameFromFilename(filepath.Base(sourcePath))
	if _, err := w.statusRepo.UpsertStatus(ctx, name, models.StatusPending, ""); err != nil {
		return errors.Wrap(err, "worker.Enqueue.UpsertStatus")
	}
	w.invalidateCache(ctx, name)

	select {
	case w.jobs <- &models.EncodeJob{Name: name, SourcePath: sourcePath}:
		return nil
	default:
		w.setStatus(ctx, name, models.StatusFailed, "transcode queue is full")
		return errors.New("transcode queue is full")
	}
}

func (w *Worker) run(ctx context.Context) {
	defer w.wg.Done()
	for job := range w.jobs {
		select {
		case <-ctx.Done():
			return
		default:
		}
		w.waitForCPU(ctx)
		w.process(ctx, job)
	}
}

// waitForCPU holds the queue while the host is above the configured CPU
// ceiling. The encoder is resource hungry, the ceiling keeps it from piling
// onto an already saturated machine.
func (w *Worker) waitForCPU(ctx context.Context) {
	for {
		canAcceptJob, usage := utils.CheckCPUUsage(w.cfg.Worker.MaxCPUUsage)
		if canAcceptJob {
			return
		}
		w.logger.Infof("CPU usage %.2f%% too high, waiting", usage)
		select {
		case <-ctx.Done():
			return
		case <-time.After(cpuCheckInterval):
		}
	}
}

func (w *Worker) process(ctx context.Context, job *models.EncodeJob) {
	maxRetries := w.cfg.Worker.MaxRetries
	if maxRetries <= 0 {
		maxRetries = defaultMaxRetries
	}
	outputDir := w.fileRepo.HLSOutputDir(job.Name)

	for job.Attempts < maxRetries {
		job.Attempts++
		w.setStatus(ctx, job.Name, models.StatusProcessing, "")

		err := w.encoder.EncodeHLS(ctx, job.SourcePath, outputDir)
		if err == nil {
			if removeErr := w.fileRepo.Remove(job.SourcePath); removeErr != nil {
				w.logger.Errorf("encode %s: failed to delete source: %v", job.Name, removeErr)
				w.setStatus(ctx, job.Name, models.StatusFailed, removeErr.Error())
				return
			}
			w.setStatus(ctx, job.Name, models.StatusSuccess, "")
			w.logger.Infof("encode %s success after %d attempt(s)", job.Name, job.Attempts)
			return
		}

		w.logger.Errorf("encode %s attempt %d/%d: %v", job.Name, job.Attempts, maxRetries, err)
		w.setStatus(ctx, job.Name, models.StatusFailed, err.Error())

		if job.Attempts < maxRetries {
			select {
			case <-ctx.Done():
				return
			case <-time.After(w.retryBackoff() * time.Duration(job.Attempts)):
			}
		}
	}

	w.logger.Errorf("encode %s gave up after %d attempts", job.Name, job.Attempts)
}

func (w *Worker) retryBackoff() time.Duration {
	if w.cfg.Worker.RetryBackoffMs > 0 {
		return time.Duration(w.cfg.Worker.RetryBackoffMs) * time.Millisecond
	}
	return defaultRetryBackoff
}

// setStatus mirrors a transition into the status store and drops the cached
// read. Failures are logged, never propagated: a status write must not kill
// the consumer loop.
func (w *Worker) setStatus(ctx context.Context, name string, status models.EncodingStatus, message string) {
	if _, err := w.statusRepo.UpsertStatus(ctx, name, status, message); err != nil {
		w.logger.Errorf("failed to mark %s as %s: %v", name, status, err)
	}
	w.invalidateCache(ctx, name)
}

func (w *Worker) invalidateCache(ctx context.Context, name string) {
	if w.redisRepo == nil {
		return
	}
	if err := w.redisRepo.DeleteStatusCtx(ctx, media.StatusCacheKey(name)); err != nil {
		w.logger.Errorf("failed to invalidate status cache for %s: %v", name, err)
	}
}
