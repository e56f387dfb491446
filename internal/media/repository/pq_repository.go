package repository

import (
	"context"
	"database/sql"

	"github.com/clipstream/media-server/internal/media"
	"github.com/clipstream/media-server/internal/models"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"
)

type mediaRepo struct {
	db *sqlx.DB
}

func NewMediaRepo(db *sqlx.DB) media.Repository {
	return &mediaRepo{
		db: db,
	}
}

func (m *mediaRepo) UpsertStatus(ctx context.Context, name string, status models.EncodingStatus, message string) (*models.VideoStatus, error) {
	record := &models.VideoStatus{}
	if err := m.db.QueryRowxContext(
		ctx,
		upsertStatusQuery,
		name,
		status,
		message,
	).StructScan(record); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			// Stale write against a Success record, skipped by the upsert guard.
			return nil, nil
		}
		return nil, errors.Wrap(err, "mediaRepo.UpsertStatus.StructScan")
	}
	return record, nil
}

func (m *mediaRepo) GetStatus(ctx context.Context, name string) (*models.VideoStatus, error) {
	record := &models.VideoStatus{}
	if err := m.db.QueryRowxContext(
		ctx,
		getStatusQuery,
		name,
	).StructScan(record); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sql.ErrNoRows
		}
		return nil, errors.Wrap(err, "mediaRepo.GetStatus.StructScan")
	}
	return record, nil
}

func (m *mediaRepo) FailInterrupted(ctx context.Context, message string) (int64, error) {
	res, err := m.db.ExecContext(ctx, failInterruptedQuery, message)
	if err != nil {
		return 0, errors.Wrap(err, "mediaRepo.FailInterrupted.ExecContext")
	}
	count, err := res.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "mediaRepo.FailInterrupted.RowsAffected")
	}
	return count, nil
}
