package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/devninja1/kiosk-app/internal/logger"
	"github.com/devninja1/kiosk-app/models"
)

type queueRepository struct {
	*DB
	logger *logger.Logger
}

func NewQueueRepository(db *DB, logger *logger.Logger) QueueRepository {
	return &queueRepository{
		DB:     db,
		logger: logger,
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanQueuedRequest(row rowScanner) (models.QueuedRequest, error) {
	var (
		req     models.QueuedRequest
		payload []byte
	)
	if err := row.Scan(&req.ID, &req.URL, &req.Method, &payload, &req.IdempotencyKey, &req.CreatedAt); err != nil {
		return models.QueuedRequest{}, err
	}
	if len(payload) > 0 {
		req.Payload = payload
	}
	return req, nil
}

func (q *queueRepository) GetAll(ctx context.Context) ([]models.QueuedRequest, error) {
	log := logger.FromContext(ctx)

	query, args, err := buildSelectQueueQuery(tableSyncQueue, queueColumns)
	if err != nil {
		log.Err(err).Str("func", "queueRepository.GetAll").Msg("failed to build select query")
		return nil, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	rows, err := q.DB.QueryContext(ctx, query, args...)
	if err != nil {
		log.Err(err).Str("func", "queueRepository.GetAll").Msg("failed to query pending requests")
		return nil, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}
	defer rows.Close()

	items := make([]models.QueuedRequest, 0)
	for rows.Next() {
		item, scanErr := scanQueuedRequest(rows)
		if scanErr != nil {
			log.Err(scanErr).Str("func", "queueRepository.GetAll").Msg("failed to scan pending request row")
			return nil, fmt.Errorf("%w: %w", ErrScanningRows, scanErr)
		}
		items = append(items, item)
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		log.Err(rowsErr).Str("func", "queueRepository.GetAll").Msg("error iterating pending request rows")
		return nil, fmt.Errorf("%w: %w", ErrScanningRows, rowsErr)
	}

	return items, nil
}

func (q *queueRepository) GetByKey(ctx context.Context, id int64) (models.QueuedRequest, error) {
	log := logger.FromContext(ctx)

	query, args, err := buildSelectQueueItemQuery(tableSyncQueue, queueColumns, id)
	if err != nil {
		return models.QueuedRequest{}, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	item, err := scanQueuedRequest(q.DB.QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return models.QueuedRequest{}, fmt.Errorf("%w: id=%d", ErrQueueItemNotFound, id)
	}
	if err != nil {
		log.Err(err).Str("func", "queueRepository.GetByKey").Int64("id", id).Msg("failed to scan pending request row")
		return models.QueuedRequest{}, fmt.Errorf("%w: %w", ErrScanningRow, err)
	}

	return item, nil
}

func (q *queueRepository) Add(ctx context.Context, req models.QueuedRequest) (models.QueuedRequest, error) {
	log := logger.FromContext(ctx)

	query, args, err := buildInsertQueueQuery(req)
	if err != nil {
		return models.QueuedRequest{}, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	var res sql.Result
	err = q.withRetry(ctx, func(ctx context.Context) error {
		var execErr error
		res, execErr = q.DB.ExecContext(ctx, query, args...)
		return execErr
	})
	if err != nil {
		if isUniqueViolation(err) {
			return models.QueuedRequest{}, fmt.Errorf("%w: id=%d", ErrDuplicateKey, req.ID)
		}
		log.Err(err).
			Str("func", "queueRepository.Add").
			Str("method", req.Method).
			Str("url", req.URL).
			Msg("failed to insert pending request")
		return models.QueuedRequest{}, fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}

	if req.ID == 0 {
		if req.ID, err = res.LastInsertId(); err != nil {
			return models.QueuedRequest{}, fmt.Errorf("failed to read inserted id: %w", err)
		}
	}

	return req, nil
}

func (q *queueRepository) Update(ctx context.Context, req models.QueuedRequest) (models.QueuedRequest, error) {
	log := logger.FromContext(ctx)

	query, args, err := buildUpdateQueueQuery(req)
	if err != nil {
		return models.QueuedRequest{}, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	var res sql.Result
	err = q.withRetry(ctx, func(ctx context.Context) error {
		var execErr error
		res, execErr = q.DB.ExecContext(ctx, query, args...)
		return execErr
	})
	if err != nil {
		log.Err(err).Str("func", "queueRepository.Update").Int64("id", req.ID).Msg("failed to update pending request")
		return models.QueuedRequest{}, fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return models.QueuedRequest{}, fmt.Errorf("failed to read affected rows: %w", err)
	}
	if affected == 0 {
		return models.QueuedRequest{}, fmt.Errorf("%w: id=%d", ErrQueueItemNotFound, req.ID)
	}

	return req, nil
}

func (q *queueRepository) BulkAdd(ctx context.Context, reqs []models.QueuedRequest) ([]models.QueuedRequest, error) {
	stored := make([]models.QueuedRequest, 0, len(reqs))
	for _, req := range reqs {
		item, err := q.Add(ctx, req)
		if err != nil {
			return stored, err
		}
		stored = append(stored, item)
	}
	return stored, nil
}

func (q *queueRepository) Delete(ctx context.Context, id int64) error {
	return execDelete(ctx, q.DB, "queueRepository.Delete", func() (string, []any, error) {
		return buildDeleteQueueItemQuery(tableSyncQueue, id)
	})
}

func (q *queueRepository) Clear(ctx context.Context) error {
	return execDelete(ctx, q.DB, "queueRepository.Clear", func() (string, []any, error) {
		return buildClearQueueQuery(tableSyncQueue)
	})
}

func (q *queueRepository) Count(ctx context.Context) (int, error) {
	return queryCount(ctx, q.DB, "queueRepository.Count", func() (string, []any, error) {
		return buildCountQueueQuery(tableSyncQueue)
	})
}

// execDelete runs a DELETE built by build. Deleting absent rows is not an
// error.
func execDelete(ctx context.Context, db *DB, fn string, build func() (string, []any, error)) error {
	_, err := execStatement(ctx, db, fn, build)
	return err
}

func execStatement(ctx context.Context, db *DB, fn string, build func() (string, []any, error)) (int64, error) {
	log := logger.FromContext(ctx)

	query, args, err := build()
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	var res sql.Result
	err = db.withRetry(ctx, func(ctx context.Context) error {
		var execErr error
		res, execErr = db.ExecContext(ctx, query, args...)
		return execErr
	})
	if err != nil {
		log.Err(err).Str("func", fn).Msg("failed to execute statement")
		return 0, fmt.Errorf("%w: %w", ErrExecutingStatement, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to read affected rows: %w", err)
	}
	return affected, nil
}

func queryCount(ctx context.Context, db *DB, fn string, build func() (string, []any, error)) (int, error) {
	log := logger.FromContext(ctx)

	query, args, err := build()
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	var count int
	if err = db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		log.Err(err).Str("func", fn).Msg("failed to count rows")
		return 0, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}
	return count, nil
}
