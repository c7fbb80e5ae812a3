package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/devninja1/kiosk-app/internal/logger"
	"github.com/devninja1/kiosk-app/models"
)

type recordRepository struct {
	*DB
	logger *logger.Logger
}

func NewRecordRepository(db *DB, logger *logger.Logger) RecordRepository {
	return &recordRepository{
		DB:     db,
		logger: logger,
	}
}

func (r *recordRepository) GetAll(ctx context.Context, collection string) ([]models.StoredRecord, error) {
	log := logger.FromContext(ctx)

	query, args, err := buildSelectRecordsQuery(collection)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		log.Err(err).
			Str("func", "recordRepository.GetAll").
			Str("collection", collection).
			Msg("failed to query records")
		return nil, fmt.Errorf("%w: %w", ErrExecutingQuery, err)
	}
	defer rows.Close()

	records := make([]models.StoredRecord, 0)
	for rows.Next() {
		var (
			rec  models.StoredRecord
			data []byte
		)
		if scanErr := rows.Scan(&rec.ID, &data); scanErr != nil {
			log.Err(scanErr).
				Str("func", "recordRepository.GetAll").
				Str("collection", collection).
				Msg("failed to scan record row")
			return nil, fmt.Errorf("%w: %w", ErrScanningRows, scanErr)
		}
		rec.Data = data
		records = append(records, rec)
	}

	if rowsErr := rows.Err(); rowsErr != nil {
		return nil, fmt.Errorf("%w: %w", ErrScanningRows, rowsErr)
	}

	return records, nil
}

func (r *recordRepository) GetByKey(ctx context.Context, collection string, id int64) (json.RawMessage, error) {
	query, args, err := buildSelectRecordQuery(collection, id)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
	}

	var data []byte
	err = r.DB.QueryRowContext(ctx, query, args...).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s/%d", ErrRecordNotFound, collection, id)
	}
	if err != nil {
		logger.FromContext(ctx).Err(err).
			Str("func", "recordRepository.GetByKey").
			Str("collection", collection).
			Int64("id", id).
			Msg("failed to scan record row")
		return nil, fmt.Errorf("%w: %w", ErrScanningRow, err)
	}

	return data, nil
}

func (r *recordRepository) Add(ctx context.Context, collection string, record models.StoredRecord) error {
	_, err := execStatement(ctx, r.DB, "recordRepository.Add", func() (string, []any, error) {
		return buildInsertRecordQuery(collection, record)
	})
	if err != nil && isUniqueViolation(err) {
		return fmt.Errorf("%w: %s/%d", ErrDuplicateKey, collection, record.ID)
	}
	return err
}

func (r *recordRepository) Update(ctx context.Context, collection string, record models.StoredRecord) error {
	affected, err := execStatement(ctx, r.DB, "recordRepository.Update", func() (string, []any, error) {
		return buildUpdateRecordQuery(collection, record)
	})
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s/%d", ErrRecordNotFound, collection, record.ID)
	}
	return nil
}

func (r *recordRepository) Put(ctx context.Context, collection string, record models.StoredRecord) error {
	_, err := execStatement(ctx, r.DB, "recordRepository.Put", func() (string, []any, error) {
		return buildUpsertRecordQuery(collection, record)
	})
	return err
}

func (r *recordRepository) BulkAdd(ctx context.Context, collection string, records []models.StoredRecord) error {
	for _, record := range records {
		if err := r.Add(ctx, collection, record); err != nil {
			return err
		}
	}
	return nil
}

func (r *recordRepository) Delete(ctx context.Context, collection string, id int64) error {
	return execDelete(ctx, r.DB, "recordRepository.Delete", func() (string, []any, error) {
		return buildDeleteRecordQuery(collection, id)
	})
}

func (r *recordRepository) Clear(ctx context.Context, collection string) error {
	return execDelete(ctx, r.DB, "recordRepository.Clear", func() (string, []any, error) {
		return buildClearRecordsQuery(collection)
	})
}

func (r *recordRepository) Count(ctx context.Context, collection string) (int, error) {
	return queryCount(ctx, r.DB, "recordRepository.Count", func() (string, []any, error) {
		return buildCountRecordsQuery(collection)
	})
}

func (r *recordRepository) ReplaceAll(ctx context.Context, collection string, records []models.StoredRecord) error {
	log := logger.FromContext(ctx)

	return r.withRetry(ctx, func(ctx context.Context) error {
		tx, err := r.DB.BeginTx(ctx, nil)
		if err != nil {
			log.Err(err).Str("func", "recordRepository.ReplaceAll").Msg("failed to begin transaction")
			return fmt.Errorf("%w: %w", ErrBeginningTransaction, err)
		}
		defer tx.Rollback()

		query, args, err := buildClearRecordsQuery(collection)
		if err != nil {
			return fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
		}
		if _, err = tx.ExecContext(ctx, query, args...); err != nil {
			log.Err(err).
				Str("func", "recordRepository.ReplaceAll").
				Str("collection", collection).
				Msg("failed to clear collection")
			return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
		}

		for _, record := range records {
			query, args, err = buildUpsertRecordQuery(collection, record)
			if err != nil {
				return fmt.Errorf("%w: %w", ErrBuildingSQLQuery, err)
			}
			if _, err = tx.ExecContext(ctx, query, args...); err != nil {
				log.Err(err).
					Str("func", "recordRepository.ReplaceAll").
					Str("collection", collection).
					Int64("id", record.ID).
					Msg("failed to insert record")
				return fmt.Errorf("%w: %w", ErrExecutingStatement, err)
			}
		}

		if err = tx.Commit(); err != nil {
			log.Err(err).Str("func", "recordRepository.ReplaceAll").Msg("failed to commit transaction")
			return fmt.Errorf("%w: %w", ErrCommitingTransaction, err)
		}
		return nil
	})
}
