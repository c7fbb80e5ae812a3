package store

import (
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/devninja1/kiosk-app/models"
)

const (
	tableSyncQueue       = "sync_queue"
	tableFailedSyncQueue = "failed_sync_queue"
	tableRecords         = "records"
)

var (
	builder = sq.StatementBuilder.PlaceholderFormat(sq.Question)

	queueColumns  = []string{"id", "url", "method", "payload", "idempotency_key", "created_at"}
	failedColumns = []string{"id", "url", "method", "payload", "idempotency_key", "created_at", "error", "failed_at"}
)

// ── queue collections ──────────────────────────────────────────────────────

func buildSelectQueueQuery(table string, columns []string) (string, []any, error) {
	return builder.
		Select(columns...).
		From(table).
		OrderBy("id ASC").
		ToSql()
}

func buildSelectQueueItemQuery(table string, columns []string, id int64) (string, []any, error) {
	return builder.
		Select(columns...).
		From(table).
		Where(sq.Eq{"id": id}).
		ToSql()
}

func queueInsertMap(req models.QueuedRequest) map[string]any {
	createdAt := req.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	values := map[string]any{
		"url":             req.URL,
		"method":          req.Method,
		"payload":         []byte(req.Payload),
		"idempotency_key": req.IdempotencyKey,
		"created_at":      createdAt,
	}
	if req.ID != 0 {
		values["id"] = req.ID
	}
	return values
}

func buildInsertQueueQuery(req models.QueuedRequest) (string, []any, error) {
	return builder.
		Insert(tableSyncQueue).
		SetMap(queueInsertMap(req)).
		ToSql()
}

func buildInsertFailedQuery(req models.FailedRequest) (string, []any, error) {
	values := queueInsertMap(req.QueuedRequest)
	values["error"] = req.Error
	values["failed_at"] = req.Timestamp

	return builder.
		Insert(tableFailedSyncQueue).
		SetMap(values).
		ToSql()
}

func buildUpdateQueueQuery(req models.QueuedRequest) (string, []any, error) {
	return builder.
		Update(tableSyncQueue).
		Set("url", req.URL).
		Set("method", req.Method).
		Set("payload", []byte(req.Payload)).
		Set("idempotency_key", req.IdempotencyKey).
		Where(sq.Eq{"id": req.ID}).
		ToSql()
}

func buildUpdateFailedQuery(req models.FailedRequest) (string, []any, error) {
	return builder.
		Update(tableFailedSyncQueue).
		Set("url", req.URL).
		Set("method", req.Method).
		Set("payload", []byte(req.Payload)).
		Set("idempotency_key", req.IdempotencyKey).
		Set("error", req.Error).
		Set("failed_at", req.Timestamp).
		Where(sq.Eq{"id": req.ID}).
		ToSql()
}

func buildDeleteQueueItemQuery(table string, id int64) (string, []any, error) {
	return builder.
		Delete(table).
		Where(sq.Eq{"id": id}).
		ToSql()
}

func buildClearQueueQuery(table string) (string, []any, error) {
	return builder.Delete(table).ToSql()
}

func buildCountQueueQuery(table string) (string, []any, error) {
	return builder.
		Select("COUNT(*)").
		From(table).
		ToSql()
}

func buildTrimFailedQuery(keep int) (string, []any, error) {
	newest := builder.
		Select("id").
		From(tableFailedSyncQueue).
		OrderBy("id DESC").
		Limit(uint64(keep))

	newestSQL, newestArgs, err := newest.ToSql()
	if err != nil {
		return "", nil, err
	}

	return builder.
		Delete(tableFailedSyncQueue).
		Where(sq.Expr("id NOT IN ("+newestSQL+")", newestArgs...)).
		ToSql()
}

// ── record collections ─────────────────────────────────────────────────────

func buildSelectRecordsQuery(collection string) (string, []any, error) {
	return builder.
		Select("id", "data").
		From(tableRecords).
		Where(sq.Eq{"collection": collection}).
		OrderBy("id ASC").
		ToSql()
}

func buildSelectRecordQuery(collection string, id int64) (string, []any, error) {
	return builder.
		Select("data").
		From(tableRecords).
		Where(sq.Eq{"collection": collection, "id": id}).
		ToSql()
}

func buildInsertRecordQuery(collection string, record models.StoredRecord) (string, []any, error) {
	return builder.
		Insert(tableRecords).
		Columns("collection", "id", "data", "updated_at").
		Values(collection, record.ID, []byte(record.Data), time.Now().UTC()).
		ToSql()
}

func buildUpsertRecordQuery(collection string, record models.StoredRecord) (string, []any, error) {
	return builder.
		Insert(tableRecords).
		Columns("collection", "id", "data", "updated_at").
		Values(collection, record.ID, []byte(record.Data), time.Now().UTC()).
		Suffix("ON CONFLICT (collection, id) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at").
		ToSql()
}

func buildUpdateRecordQuery(collection string, record models.StoredRecord) (string, []any, error) {
	return builder.
		Update(tableRecords).
		Set("data", []byte(record.Data)).
		Set("updated_at", time.Now().UTC()).
		Where(sq.Eq{"collection": collection, "id": record.ID}).
		ToSql()
}

func buildDeleteRecordQuery(collection string, id int64) (string, []any, error) {
	return builder.
		Delete(tableRecords).
		Where(sq.Eq{"collection": collection, "id": id}).
		ToSql()
}

func buildClearRecordsQuery(collection string) (string, []any, error) {
	return builder.
		Delete(tableRecords).
		Where(sq.Eq{"collection": collection}).
		ToSql()
}

func buildCountRecordsQuery(collection string) (string, []any, error) {
	return builder.
		Select("COUNT(*)").
		From(tableRecords).
		Where(sq.Eq{"collection": collection}).
		ToSql()
}
