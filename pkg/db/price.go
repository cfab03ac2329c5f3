package db

import (
	"context"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/mewroo/marketx/pkg/db/clickhouse"
	"github.com/mewroo/marketx/pkg/db/models"
)

// initPrices creates the stock_prices table.
// ReplacingMergeTree(ingested_at) keyed on (ticker, interval, ts): overlap re-fetches
// and forced re-runs converge to the most recently written bar per key.
func (db *DB) initPrices(ctx context.Context) error {
	schemaSQL := models.ColumnsToSchemaSQL(models.PriceColumns)

	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS "%s"."%s" (
			%s
		) ENGINE = %s
		ORDER BY (ticker, interval, ts)
	`, db.Name, models.PricesTableName, schemaSQL, clickhouse.Engine(clickhouse.ReplacingMergeTree, "ingested_at"))
	if err := db.Exec(ctx, query); err != nil {
		return fmt.Errorf("create %s: %w", models.PricesTableName, err)
	}

	return nil
}

// InsertPrices bulk-inserts OHLCV rows.
func (db *DB) InsertPrices(ctx context.Context, rows []*models.Price) error {
	if len(rows) == 0 {
		return nil
	}

	query := fmt.Sprintf(
		`INSERT INTO "%s"."%s" (ts, ticker, interval, open, high, low, close, adj_close, volume, source, ingested_at) VALUES`,
		db.Name, models.PricesTableName,
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
			row.TS,
			row.Ticker,
			row.Interval,
			row.Open,
			row.High,
			row.Low,
			row.Close,
			row.AdjClose,
			row.Volume,
			row.Source,
			row.IngestedAt,
		)
		if err != nil {
			return err
		}
	}

	return batch.Send()
}

// Symbols returns up to limit distinct tickers that have price rows.
func (db *DB) Symbols(ctx context.Context, limit int) ([]string, error) {
	query := fmt.Sprintf(`
		SELECT DISTINCT ticker
		FROM "%s"."%s"
		ORDER BY ticker
		LIMIT ?
	`, db.Name, models.PricesTableName)

	rows, err := db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("symbols: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var symbols []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, err
		}
		symbols = append(symbols, s)
	}

	return symbols, nil
}

// SymbolMeta reports the covered price range for one ticker.
type SymbolMeta struct {
	Symbol  string     `json:"symbol"`
	MinDate *time.Time `json:"min_date"`
	MaxDate *time.Time `json:"max_date"`
}

// Meta returns the min/max timestamps of the ticker's price rows, or nil bounds
// if the ticker has no rows.
func (db *DB) Meta(ctx context.Context, symbol string) (*SymbolMeta, error) {
	query := fmt.Sprintf(`
		SELECT minOrNull(ts) AS min_date, maxOrNull(ts) AS max_date
		FROM "%s"."%s"
		WHERE ticker = ?
	`, db.Name, models.PricesTableName)

	meta := &SymbolMeta{Symbol: symbol}
	row := db.QueryRow(ctx, query, symbol)
	if err := row.Scan(&meta.MinDate, &meta.MaxDate); err != nil {
		if clickhouse.IsNoRows(err) {
			return meta, nil
		}
		return nil, fmt.Errorf("meta %s: %w", symbol, err)
	}

	return meta, nil
}

// HistoryPoint is one bucketed close for the history endpoint.
type HistoryPoint struct {
	TS    time.Time `ch:"bucket" json:"ts"`
	Close float64   `ch:"close" json:"close"`
}

// BucketExpr maps a granularity name to the ClickHouse bucketing expression over ts.
// Unknown granularities fall back to daily buckets.
func BucketExpr(granularity string) string {
	switch granularity {
	case "week":
		return "toStartOfWeek(ts)"
	case "month":
		return "toStartOfMonth(ts)"
	default:
		return "toDate(ts)"
	}
}

// History returns bucketed closes for the ticker in [start, end).
func (db *DB) History(ctx context.Context, symbol string, start, end time.Time, granularity string) ([]HistoryPoint, error) {
	query := fmt.Sprintf(`
		SELECT
			toDateTime(%s) AS bucket,
			anyLast(close) AS close
		FROM (
			SELECT ts, close
			FROM "%s"."%s"
			WHERE ticker = ?
			  AND ts >= ?
			  AND ts < ?
			ORDER BY ts
		)
		GROUP BY bucket
		ORDER BY bucket
	`, BucketExpr(granularity), db.Name, models.PricesTableName)

	var points []HistoryPoint
	if err := db.Select(ctx, &points, query, symbol, start, end); err != nil {
		return nil, fmt.Errorf("history %s: %w", symbol, err)
	}

	return points, nil
}
