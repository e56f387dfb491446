package worker

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/clipstream/media-server/internal/config"
	"github.com/clipstream/media-server/internal/media"
	mediaRepository "github.com/clipstream/media-server/internal/media/repository"
	"github.com/clipstream/media-server/internal/models"
	"github.com/clipstream/media-server/pkg/logger"
	"github.com/stretchr/testify/require"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	base := t.TempDir()
	return &config.Config{
		Logger: config.Logger{Development: true, Encoding: "console", Level: "error"},
		Media: config.MediaConfig{
			ImageTempDir: filepath.Join(base, "tmp", "images"),
			VideoTempDir: filepath.Join(base, "tmp", "videos"),
			ImageDir:     filepath.Join(base, "public", "images"),
			VideoDir:     filepath.Join(base, "public", "videos"),
			JPEGQuality:  80,
		},
		Worker: config.WorkerConfig{
			QueueSize:      16,
			MaxRetries:     3,
			RetryBackoffMs: 1,
			MaxCPUUsage:    0, // disabled in tests
		},
	}
}

func testLogger(cfg *config.Config) logger.Logger {
	log := logger.NewApiLogger(cfg)
	log.InitLogger()
	return log
}

type statusEvent struct {
	status models.EncodingStatus
	at     time.Time
}

// memStatusRepo mirrors the postgres repository semantics in memory,
// including the terminal-Success upsert guard.
type memStatusRepo struct {
	mu      sync.Mutex
	records map[string]*models.VideoStatus
	history map[string][]statusEvent
}

var _ media.Repository = (*memStatusRepo)(nil)

func newMemStatusRepo() *memStatusRepo {
	return &memStatusRepo{
		records: make(map[string]*models.VideoStatus),
		history: make(map[string][]statusEvent),
	}
}

func (m *memStatusRepo) UpsertStatus(ctx context.Context, name string, status models.EncodingStatus, message string) (*models.VideoStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	existing, ok := m.records[name]
	if ok && existing.Status == models.StatusSuccess {
		return nil, nil
	}
	if !ok {
		existing = &models.VideoStatus{Name: name, CreatedAt: now}
		m.records[name] = existing
	}
	existing.Status = status
	existing.Message = message
	existing.UpdatedAt = now
	m.history[name] = append(m.history[name], statusEvent{status: status, at: now})
	copied := *existing
	return &copied, nil
}

func (m *memStatusRepo) GetStatus(ctx context.Context, name string) (*models.VideoStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	record, ok := m.records[name]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *record
	return &copied, nil
}

func (m *memStatusRepo) FailInterrupted(ctx context.Context, message string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var count int64
	for _, record := range m.records {
		if !record.Status.Terminal() {
			record.Status = models.StatusFailed
			record.Message = message
			record.UpdatedAt = time.Now()
			count++
		}
	}
	return count, nil
}

func (m *memStatusRepo) eventsFor(name string) []statusEvent {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]statusEvent(nil), m.history[name]...)
}

type nopCache struct{}

var _ media.RedisRepository = nopCache{}

func (nopCache) GetStatusCtx(ctx context.Context, key string) (*models.VideoStatus, error) {
	return nil, nil
}

func (nopCache) SetStatusCtx(ctx context.Context, key string, seconds int, status *models.VideoStatus) error {
	return nil
}

func (nopCache) DeleteStatusCtx(ctx context.Context, key string) error {
	return nil
}

// fakeEncoder records invocations and fails the first failures calls.
type fakeEncoder struct {
	mu       sync.Mutex
	failures int // -1 means always fail
	calls    []string
}

func (e *fakeEncoder) EncodeHLS(ctx context.Context, sourcePath, outputDir string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls = append(e.calls, sourcePath)
	if e.failures == -1 {
		return fmt.Errorf("encoder exploded on %s", sourcePath)
	}
	if e.failures > 0 {
		e.failures--
		return fmt.Errorf("encoder exploded on %s", sourcePath)
	}
	return nil
}

func (e *fakeEncoder) callCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return len(e.calls)
}

func (e *fakeEncoder) callOrder() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.calls...)
}

func newTestWorker(t *testing.T, cfg *config.Config, enc *fakeEncoder, repo *memStatusRepo) *Worker {
	t.Helper()
	fileRepo := mediaRepository.NewFileRepo(cfg)
	require.NoError(t, fileRepo.InitDirs())
	return NewWorker(cfg, testLogger(cfg), repo, nopCache{}, fileRepo, enc)
}

func writeSource(t *testing.T, cfg *config.Config, name string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(cfg.Media.VideoTempDir, 0o755))
	path := filepath.Join(cfg.Media.VideoTempDir, name)
	require.NoError(t, os.WriteFile(path, []byte("not really a video"), 0o644))
	return path
}

func TestWorkerProcessesJobsInFIFOOrder(t *testing.T) {
	cfg := testConfig(t)
	repo := newMemStatusRepo()
	enc := &fakeEncoder{}
	w := newTestWorker(t, cfg, enc, repo)

	pathA := writeSource(t, cfg, "aaa111.mp4")
	pathB := writeSource(t, cfg, "bbb222.mp4")

	ctx := context.Background()
	w.Start(ctx)
	require.NoError(t, w.Enqueue(ctx, pathA))
	require.NoError(t, w.Enqueue(ctx, pathB))
	w.Stop()

	require.Equal(t, []string{pathA, pathB}, enc.callOrder())

	for _, name := range []string{"aaa111", "bbb222"} {
		record, err := repo.GetStatus(ctx, name)
		require.NoError(t, err)
		require.Equal(t, models.StatusSuccess, record.Status)
	}

	// Sources are deleted once their job succeeds.
	_, err := os.Stat(pathA)
	require.True(t, os.IsNotExist(err))
	_, err = os.Stat(pathB)
	require.True(t, os.IsNotExist(err))

	// Serialization: B may only enter Processing after A reached Success.
	eventsA := repo.eventsFor("aaa111")
	eventsB := repo.eventsFor("bbb222")
	successA := eventsA[len(eventsA)-1]
	require.Equal(t, models.StatusSuccess, successA.status)
	for _, ev := range eventsB {
		if ev.status == models.StatusProcessing {
			require.False(t, ev.at.Before(successA.at))
		}
	}
}

func TestEnqueueWritesPendingRecordImmediately(t *testing.T) {
	cfg := testConfig(t)
	repo := newMemStatusRepo()
	enc := &fakeEncoder{}
	w := newTestWorker(t, cfg, enc, repo)
	// Worker deliberately not started: every record must exist the moment
	// the concurrent Enqueue calls return.

	const n = 8
	ctx := context.Background()
	errs := make(chan error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			path := filepath.Join(cfg.Media.VideoTempDir, fmt.Sprintf("job%02d.mp4", i))
			errs <- w.Enqueue(ctx, path)
		}(i)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	for i := 0; i < n; i++ {
		record, err := repo.GetStatus(ctx, fmt.Sprintf("job%02d", i))
		require.NoError(t, err)
		require.Equal(t, models.StatusPending, record.Status)
	}
	require.Zero(t, enc.callCount())
}

func TestFailedJobRetriesAreBounded(t *testing.T) {
	cfg := testConfig(t)
	repo := newMemStatusRepo()
	enc := &fakeEncoder{failures: -1}
	w := newTestWorker(t, cfg, enc, repo)

	path := writeSource(t, cfg, "doomed.mp4")

	ctx := context.Background()
	w.Start(ctx)
	require.NoError(t, w.Enqueue(ctx, path))
	w.Stop()

	require.Equal(t, cfg.Worker.MaxRetries, enc.callCount())

	record, err := repo.GetStatus(ctx, "doomed")
	require.NoError(t, err)
	require.Equal(t, models.StatusFailed, record.Status)
	require.Contains(t, record.Message, "encoder exploded")

	// A failed source is not guaranteed deleted.
	_, err = os.Stat(path)
	require.NoError(t, err)
}

func TestJobSucceedsAfterRetry(t *testing.T) {
	cfg := testConfig(t)
	repo := newMemStatusRepo()
	enc := &fakeEncoder{failures: 1}
	w := newTestWorker(t, cfg, enc, repo)

	path := writeSource(t, cfg, "flaky.mp4")

	ctx := context.Background()
	w.Start(ctx)
	require.NoError(t, w.Enqueue(ctx, path))
	w.Stop()

	require.Equal(t, 2, enc.callCount())

	record, err := repo.GetStatus(ctx, "flaky")
	require.NoError(t, err)
	require.Equal(t, models.StatusSuccess, record.Status)

	_, err = os.Stat(path)
	require.True(t, os.IsNotExist(err))
}

func TestEnqueueFailsWhenQueueIsFull(t *testing.T) {
	cfg := testConfig(t)
	cfg.Worker.QueueSize = 1
	repo := newMemStatusRepo()
	enc := &fakeEncoder{}
	w := newTestWorker(t, cfg, enc, repo)
	// Not started: the single buffered slot fills up immediately.

	ctx := context.Background()
	require.NoError(t, w.Enqueue(ctx, filepath.Join(cfg.Media.VideoTempDir, "first.mp4")))
	err := w.Enqueue(ctx, filepath.Join(cfg.Media.VideoTempDir, "second.mp4"))
	require.Error(t, err)

	record, err := repo.GetStatus(ctx, "second")
	require.NoError(t, err)
	require.Equal(t, models.StatusFailed, record.Status)
}

func TestStartSweepsInterruptedRecords(t *testing.T) {
	cfg := testConfig(t)
	repo := newMemStatusRepo()
	ctx := context.Background()

	_, err := repo.UpsertStatus(ctx, "stale1", models.StatusPending, "")
	require.NoError(t, err)
	_, err = repo.UpsertStatus(ctx, "stale2", models.StatusProcessing, "")
	require.NoError(t, err)
	_, err = repo.UpsertStatus(ctx, "done", models.StatusSuccess, "")
	require.NoError(t, err)

	enc := &fakeEncoder{}
	w := newTestWorker(t, cfg, enc, repo)
	w.Start(ctx)
	w.Stop()

	for _, name := range []string{"stale1", "stale2"} {
		record, err := repo.GetStatus(ctx, name)
		require.NoError(t, err)
		require.Equal(t, models.StatusFailed, record.Status)
		require.Equal(t, interruptedJobMessage, record.Message)
	}
	record, err := repo.GetStatus(ctx, "done")
	require.NoError(t, err)
	require.Equal(t, models.StatusSuccess, record.Status)
}
