package db

import (
	"context"
	"fmt"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/mewroo/marketx/pkg/db/clickhouse"
	"github.com/mewroo/marketx/pkg/db/models"
)

// initMarketCap creates the market_cap table.
func (db *DB) initMarketCap(ctx context.Context) error {
	schemaSQL := models.ColumnsToSchemaSQL(models.MarketCapColumns)

	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS "%s"."%s" (
			%s
		) ENGINE = %s
		ORDER BY (ticker, asof_date)
	`, db.Name, models.MarketCapTableName, schemaSQL, clickhouse.Engine(clickhouse.ReplacingMergeTree, "ingested_at"))
	if err := db.Exec(ctx, query); err != nil {
		return fmt.Errorf("create %s: %w", models.MarketCapTableName, err)
	}

	return nil
}

// InsertMarketCaps bulk-inserts market-cap snapshot rows.
func (db *DB) InsertMarketCaps(ctx context.Context, rows []*models.MarketCap) error {
	if len(rows) == 0 {
		return nil
	}

	query := fmt.Sprintf(
		`INSERT INTO "%s"."%s" (asof_date, ticker, market_cap, currency, source, ingested_at) VALUES`,
		db.Name, models.MarketCapTableName,
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
			row.Ticker,
			row.MarketCap,
			row.Currency,
			row.Source,
			row.IngestedAt,
		)
		if err != nil {
			return err
		}
	}

	return batch.Send()
}
