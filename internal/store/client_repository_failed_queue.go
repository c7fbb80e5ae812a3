package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/devninja1/kiosk-app/internal/logger"
	"github.com/devninja1/kiosk-app/models"
)

type failedQueueRepository struct {
	*DB
	logger *logger.Logger
}

func NewFailedQueueRepository(db *DB, logger *logger.Logger) FailedQueueRepository {
	return &failedQueueRepository{
		DB:     db,
		logger: logger,
	}
}

func scanFailedRequest(row rowScanner) (models.FailedRequest, error) {
	var (
		req     models.FailedRequest
		payload []byte
	)
	err := row.Scan(
		&req.ID,
		&req.URL,
		&req.Method,
		&payload,
		&req.IdempotencyKey,
		&req.CreatedAt,
		&req.Error,
		&req.Timestamp,
	)
	if err != nil {
		return models.FailedRequest{}, err
	}
	if len(payload) > 0 {
		req.Payload = payload
	}
	return req, nil
}

func (f *failedQueueRepository) GetAll(ctx context.Context) ([]models.FailedRequest, error) {
	log := logger.FromContext(ctx)

	query, args, err := buildSelectQueueQuery(tableFailedSyncQueue, failedColumns)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	rows, err := f.DB.QueryContext(ctx, query, args...)
	if err != nil {
		log.Err(err).Str("func", "failedQueueRepository.GetAll").Msg("failed to query failed requests")
		return nil, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}
	defer rows.Close()

	items := make([]models.FailedRequest, 0)
	for rows.Next() {
		item, scanErr := scanFailedRequest(rows)
		if scanErr != nil {
			log.Err(scanErr).Str("func", "failedQueueRepository.GetAll").Msg("failed to scan failed request row")
			return nil, fmt.Errorf("%w: %w", ErrScanningRows, scanErr)
		}
		items = append(items, item)
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, fmt.Errorf("%w: %w", ErrScanningRows, rowsErr)
	}

	return items, nil
}

func (f *failedQueueRepository) GetByKey(ctx context.Context, id int64) (models.FailedRequest, error) {
	query, args, err := buildSelectQueueItemQuery(tableFailedSyncQueue, failedColumns, id)
	if err != nil {
		return models.FailedRequest{}, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	item, err := scanFailedRequest(f.DB.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return models.FailedRequest{}, fmt.Errorf("%w: id=%d", ErrQueueItemNotFound, id)
	}
	if err != nil {
		logger.FromContext(ctx).Err(err).
			Str("func", "failedQueueRepository.GetByKey").
			Int64("id", id).
			Msg("failed to scan failed request row")
		return models.FailedRequest{}, fmt.Errorf("%w: %w", ErrScanningRow, err)
	}

	return item, nil
}

func (f *failedQueueRepository) Add(ctx context.Context, req models.FailedRequest) (models.FailedRequest, error) {
	query, args, err := buildInsertFailedQuery(req)
	if err != nil {
		return models.FailedRequest{}, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	var res sql.Result
	err = f.withRetry(ctx, func(ctx context.Context) error {
		var execErr error
		res, execErr = f.DB.ExecContext(ctx, query, args...)
		return execErr
	})
	if err != nil {
		if isUniqueViolation(err) {
			return models.FailedRequest{}, fmt.Errorf("%w: id=%d", ErrDuplicateKey, req.ID)
		}
		logger.FromContext(ctx).Err(err).
			Str("func", "failedQueueRepository.Add").
			Str("method", req.Method).
			Str("url", req.URL).
			Msg("failed to insert failed request")
		return models.FailedRequest{}, fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}

	if req.ID == 0 {
		if req.ID, err = res.LastInsertId(); err != nil {
			return models.FailedRequest{}, fmt.Errorf("failed to read inserted id: %w", err)
		}
	}

	return req, nil
}

func (f *failedQueueRepository) Update(ctx context.Context, req models.FailedRequest) (models.FailedRequest, error) {
	affected, err := execStatement(ctx, f.DB, "failedQueueRepository.Update", func() (string, []any, error) {
		return buildUpdateFailedQuery(req)
	})
	if err != nil {
		return models.FailedRequest{}, err
	}
	if affected == 0 {
		return models.FailedRequest{}, fmt.Errorf("%w: id=%d", ErrQueueItemNotFound, req.ID)
	}
	return req, nil
}

func (f *failedQueueRepository) BulkAdd(ctx context.Context, reqs []models.FailedRequest) ([]models.FailedRequest, error) {
	stored := make([]models.FailedRequest, 0, len(reqs))
	for _, req := range reqs {
		item, err := f.Add(ctx, req)
		if err != nil {
			return stored, err
		}
		stored = append(stored, item)
	}
	return stored, nil
}

func (f *failedQueueRepository) Delete(ctx context.Context, id int64) error {
	return execDelete(ctx, f.DB, "failedQueueRepository.Delete", func() (string, []any, error) {
		return buildDeleteQueueItemQuery(tableFailedSyncQueue, id)
	})
}

func (f *failedQueueRepository) Clear(ctx context.Context) error {
	return execDelete(ctx, f.DB, "failedQueueRepository.Clear", func() (string, []any, error) {
		return buildClearQueueQuery(tableFailedSyncQueue)
	})
}

func (f *failedQueueRepository) Count(ctx context.Context) (int, error) {
	return queryCount(ctx, f.DB, "failedQueueRepository.Count", func() (string, []any, error) {
		return buildCountQueueQuery(tableFailedSyncQueue)
	})
}

func (f *failedQueueRepository) TrimOldest(ctx context.Context, keep int) (int64, error) {
	if keep < 0 {
		keep = 0
	}
	return execStatement(ctx, f.DB, "failedQueueRepository.TrimOldest", func() (string, []any, error) {
		return buildTrimFailedQuery(keep)
	})
}
