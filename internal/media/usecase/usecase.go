package usecase

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"sync"

	"github.com/clipstream/media-server/internal/config"
	"github.com/clipstream/media-server/internal/media"
	"github.com/clipstream/media-server/internal/models"
	"github.com/clipstream/media-server/pkg/logger"
	"github.com/clipstream/media-server/pkg/utils"
	"github.com/pkg/errors"
)

type mediaUC struct {
	cfg       *config.Config
	mediaRepo media.Repository
	redisRepo media.RedisRepository
	fileRepo  media.FileRepository
	queue     media.Queue
	logger    logger.Logger
}

func NewMediaUseCase(
	cfg *config.Config,
	mediaRepo media.Repository,
	redisRepo media.RedisRepository,
	fileRepo media.FileRepository,
	queue media.Queue,
	log logger.Logger,
) media.UseCase {
	return &mediaUC{
		cfg:       cfg,
		mediaRepo: mediaRepo,
		redisRepo: redisRepo,
		fileRepo:  fileRepo,
		queue:     queue,
		logger:    log,
	}
}

// NormalizeImages fans out over the accepted files. A file that fails to
// re-encode is logged and skipped, its siblings are unaffected.
func (u *mediaUC) NormalizeImages(ctx context.Context, files []models.UploadedFile) ([]models.Media, error) {
	results := make([]*models.Media, len(files))
	var wg sync.WaitGroup

	for idx, file := range files {
		wg.Add(1)
		go func(idx int, file models.UploadedFile) {
			defer wg.Done()
			name := utils.GetNameFromFilename(filepath.Base(file.TempPath))
			storedName, err := u.fileRepo.SaveImageAsJPEG(file.TempPath, name)
			if err != nil {
				u.logger.Errorf("NormalizeImages %s: %v", file.OriginalName, err)
				return
			}
			results[idx] = &models.Media{
				URL:  u.staticURL("image", storedName),
				Type: models.MediaTypeImage,
			}
		}(idx, file)
	}
	wg.Wait()

	medias := make([]models.Media, 0, len(files))
	for _, r := range results {
		if r != nil {
			medias = append(medias, *r)
		}
	}
	if len(medias) == 0 {
		return nil, errors.New("failed to process any uploaded image")
	}
	return medias, nil
}

func (u *mediaUC) StoreVideos(ctx context.Context, files []models.UploadedFile) ([]models.Media, error) {
	medias := make([]models.Media, 0, len(files))
	for _, file := range files {
		storedName, err := u.fileRepo.MoveToVideoStore(file.TempPath)
		if err != nil {
			u.logger.Errorf("StoreVideos %s: %v", file.OriginalName, err)
			return nil, err
		}
		medias = append(medias, models.Media{
			URL:  u.staticURL("video-stream", storedName),
			Type: models.MediaTypeVideo,
		})
	}
	return medias, nil
}

// EnqueueHLS leaves each file in temp storage and hands its path to the
// queue. The returned manifest URL is playable only once the job status
// reaches Success, callers poll GetVideoStatus until then.
func (u *mediaUC) EnqueueHLS(ctx context.Context, files []models.UploadedFile) ([]models.Media, error) {
	medias := make([]models.Media, 0, len(files))
	for _, file := range files {
		name := utils.GetNameFromFilename(filepath.Base(file.TempPath))
		if err := u.queue.Enqueue(ctx, file.TempPath); err != nil {
			u.logger.Errorf("EnqueueHLS %s: %v", name, err)
			return nil, err
		}
		medias = append(medias, models.Media{
			URL:  u.staticURL("video-hls", name, "master.m3u8"),
			Type: models.MediaTypeHLS,
		})
	}
	return medias, nil
}

func (u *mediaUC) GetVideoStatus(ctx context.Context, name string) (*models.VideoStatus, error) {
	key := media.StatusCacheKey(name)

	cached, err := u.redisRepo.GetStatusCtx(ctx, key)
	if err != nil {
		u.logger.Errorf("GetVideoStatus cache read %s: %v", name, err)
	}
	if cached != nil {
		return cached, nil
	}

	record, err := u.mediaRepo.GetStatus(ctx, name)
	if err != nil {
		return nil, err
	}

	if err = u.redisRepo.SetStatusCtx(ctx, key, u.cfg.Redis.StatusCacheSeconds, record); err != nil {
		u.logger.Errorf("GetVideoStatus cache write %s: %v", name, err)
	}
	return record, nil
}

func (u *mediaUC) staticURL(elem ...string) string {
	base := strings.TrimRight(u.cfg.Server.BaseURL, "/")
	return fmt.Sprintf("%s/static/%s", base, strings.Join(elem, "/"))
}
