package db

import (
	"context"
	"fmt"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/mewroo/marketx/pkg/db/clickhouse"
	"github.com/mewroo/marketx/pkg/db/models"
)

// initMembership creates the industry_membership table.
func (db *DB) initMembership(ctx context.Context) error {
	schemaSQL := models.ColumnsToSchemaSQL(models.MembershipColumns)

	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS "%s"."%s" (
			%s
		) ENGINE = %s
		ORDER BY (asof_date, sector_key, industry_key, ticker)
	`, db.Name, models.MembershipTableName, schemaSQL, clickhouse.Engine(clickhouse.ReplacingMergeTree, "ingested_at"))
	if err := db.Exec(ctx, query); err != nil {
		return fmt.Errorf("create %s: %w", models.MembershipTableName, err)
	}

	return nil
}

// InsertMemberships bulk-inserts industry membership rows.
func (db *DB) InsertMemberships(ctx context.Context, rows []*models.Membership) error {
	if len(rows) == 0 {
		return nil
	}

	query := fmt.Sprintf(
		`INSERT INTO "%s"."%s" (asof_date, sector_key, industry_key, ticker, ticker_name, source, ingested_at) VALUES`,
		db.Name, models.MembershipTableName,
	)
	batch, err := db.PrepareBatch(ctx, query)
	if err != nil {
		return err
	}
	defer func(batch driver.Batch) {
		_ = batch.Abort()
	}(batch)

	for _, row := range rows {
		err = batch.Append(
			row.AsOfDate,
			row.SectorKey,
			row.IndustryKey,
			row.Ticker,
			row.TickerName,
			row.Source,
			row.IngestedAt,
		)
		if err != nil {
			return err
		}
	}

	return batch.Send()
}

// LatestMembershipTickers returns the distinct tickers of the most recent
// membership snapshot. This is the default entity-selector set for price and
// market-cap ingestion.
func (db *DB) LatestMembershipTickers(ctx context.Context) ([]string, error) {
	query := fmt.Sprintf(`
		SELECT DISTINCT ticker
		FROM "%s"."%s"
		WHERE asof_date = (SELECT max(asof_date) FROM "%s"."%s")
	`, db.Name, models.MembershipTableName, db.Name, models.MembershipTableName)

	rows, err := db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("latest membership tickers: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var tickers []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, err
		}
		tickers = append(tickers, t)
	}

	return tickers, nil
}
