package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/devninja1/kiosk-app/internal/logger"
	"github.com/devninja1/kiosk-app/migrations"
	"github.com/sethvargo/go-retry"
)

const (
	retryBaseDelay  = 20 * time.Millisecond
	retryMaxRetries = 4
)

// DB wraps the SQLite connection shared by all repositories.
type DB struct {
	*sql.DB
	errorClassificator ErrorClassificator
	logger             *logger.Logger
}

// Migrate applies pending schema migrations.
func (db *DB) Migrate() error {
	return migrations.Migrate(db.DB)
}

// withRetry runs fn, retrying with exponential backoff while the classifier
// reports the failure as [Retryable] (another connection holds the write
// lock). Without a classifier fn runs once.
func (db *DB) withRetry(ctx context.Context, fn func(ctx context.Context) error) error {
	if db.errorClassificator == nil {
		return fn(ctx)
	}

	backoff := retry.WithMaxRetries(retryMaxRetries, retry.NewExponential(retryBaseDelay))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := fn(ctx)
		if err != nil && db.errorClassificator.Classify(err) == Retryable {
			db.logger.Debug().Err(err).Msg("database busy, retrying")
			return retry.RetryableError(err)
		}
		return err
	})
}
