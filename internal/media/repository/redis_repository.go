package repository

import (
	"context"
	"encoding/json"
	"time"

	"github.com/clipstream/media-server/internal/media"
	"github.com/clipstream/media-server/internal/models"
	"github.com/go-redis/redis/v8"
	"github.com/pkg/errors"
)

type mediaRedisRepo struct {
	redisClient *redis.Client
}

func NewMediaRedisRepo(redisClient *redis.Client) media.RedisRepository {
	return &mediaRedisRepo{
		redisClient: redisClient,
	}
}

func (m *mediaRedisRepo) GetStatusCtx(ctx context.Context, key string) (*models.VideoStatus, error) {
	statusBytes, err := m.redisClient.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "mediaRedisRepo.GetStatusCtx.Get")
	}
	status := &models.VideoStatus{}
	if err = json.Unmarshal(statusBytes, status); err != nil {
		return nil, errors.Wrap(err, "mediaRedisRepo.GetStatusCtx.Unmarshal")
	}
	return status, nil
}

func (m *mediaRedisRepo) SetStatusCtx(ctx context.Context, key string, seconds int, status *models.VideoStatus) error {
	statusBytes, err := json.Marshal(status)
	if err != nil {
		return errors.Wrap(err, "mediaRedisRepo.SetStatusCtx.Marshal")
	}
	if err = m.redisClient.Set(ctx, key, statusBytes, time.Second*time.Duration(seconds)).Err(); err != nil {
		return errors.Wrap(err, "mediaRedisRepo.SetStatusCtx.Set")
	}
	return nil
}

func (m *mediaRedisRepo) DeleteStatusCtx(ctx context.Context, key string) error {
	if err := m.redisClient.Del(ctx, key).Err(); err != nil {
		return errors.Wrap(err, "mediaRedisRepo.DeleteStatusCtx.Del")
	}
	return nil
}
