package db

import (
	"context"
	"fmt"
	"time"

	"github.com/mewroo/marketx/pkg/db/clickhouse"
	"github.com/mewroo/marketx/pkg/db/models"
)

// initIngestState creates the ingest_state watermark log.
// Plain MergeTree, append-only: SetState inserts, never updates, and GetState
// reduces to the newest row per key by updated_at.
func (db *DB) initIngestState(ctx context.Context) error {
	schemaSQL := models.ColumnsToSchemaSQL(models.IngestStateColumns)

	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS "%s"."%s" (
			%s
		) ENGINE = %s
		ORDER BY (source, target, key, updated_at)
	`, db.Name, models.IngestStateTableName, schemaSQL, clickhouse.MergeTree)
	if err := db.Exec(ctx, query); err != nil {
		return fmt.Errorf("create %s: %w", models.IngestStateTableName, err)
	}

	return nil
}

// GetState returns the watermarks of the most recently written state row for the
// given (source, target, key), or (nil, nil) when the key has never been ingested.
// Multiple rows per key are expected; the one with the maximum updated_at wins.
func (db *DB) GetState(ctx context.Context, source, target, key string) (lastTS, lastAsOf *time.Time, err error) {
	query := fmt.Sprintf(`
		SELECT last_ts, last_asof_date
		FROM "%s"."%s"
		WHERE source = ? AND target = ? AND key = ?
		ORDER BY updated_at DESC
		LIMIT 1
	`, db.Name, models.IngestStateTableName)

	row := db.QueryRow(ctx, query, source, target, key)
	if err := row.Scan(&lastTS, &lastAsOf); err != nil {
		if clickhouse.IsNoRows(err) {
			return nil, nil, nil
		}
		return nil, nil, fmt.Errorf("get state %s/%s/%s: %w", source, target, key, err)
	}

	return lastTS, lastAsOf, nil
}

// SetState appends a new state row for the key. Prior rows are never overwritten
// or deleted; they are superseded by the later updated_at.
func (db *DB) SetState(ctx context.Context, source, target, key string, lastTS, lastAsOf *time.Time) error {
	query := fmt.Sprintf(`
		INSERT INTO "%s"."%s" (source, target, key, last_ts, last_asof_date, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, db.Name, models.IngestStateTableName)

	if err := db.Exec(ctx, query, source, target, key, lastTS, lastAsOf, time.Now().UTC()); err != nil {
		return fmt.Errorf("set state %s/%s/%s: %w", source, target, key, err)
	}

	return nil
}
