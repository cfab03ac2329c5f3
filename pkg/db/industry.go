package db

import (
	"context"
	"fmt"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"github.com/mewroo/marketx/pkg/db/clickhouse"
	"github.com/mewroo/marketx/pkg/db/models"
)

// initDimIndustry creates the dim_industry table.
// ReplacingMergeTree(ingested_at) keyed on (sector_key, industry_key, asof_date):
// re-running the snapshot job for the same as-of date converges to the latest write.
func (db *DB) initDimIndustry(ctx context.Context) error {
	schemaSQL := models.ColumnsToSchemaSQL(models.DimIndustryColumns)

	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS "%s"."%s" (
			%s
		) ENGINE = %s
		ORDER BY (sector_key, industry_key, asof_date)
	`, db.Name, models.DimIndustryTableName, schemaSQL, clickhouse.Engine(clickhouse.ReplacingMergeTree, "ingested_at"))
	if err := db.Exec(ctx, query); err != nil {
		return fmt.Errorf("create %s: %w", models.DimIndustryTableName, err)
	}

	return nil
}

// InsertIndustries bulk-inserts industry catalog rows.
func (db *DB) InsertIndustries(ctx context.Context, rows []*models.Industry) error {
	if len(rows) == 0 {
		return nil
	}

	query := fmt.Sprintf(
		`INSERT INTO "%s"."%s" (sector_key, industry_key, industry_name, industry_symbol, market_weight, asof_date, ingested_at) VALUES`,
		db.Name, models.DimIndustryTableName,
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
			row.SectorKey,
			row.IndustryKey,
			row.IndustryName,
			row.IndustrySymbol,
			row.MarketWeight,
			row.AsOfDate,
			row.IngestedAt,
		)
		if err != nil {
			return err
		}
	}

	return batch.Send()
}

// IndustryCatalogEntry is one (sector, industry) pair with the latest known name.
type IndustryCatalogEntry struct {
	SectorKey    string `ch:"sector_key"`
	IndustryKey  string `ch:"industry_key"`
	IndustryName string `ch:"industry_name"`
}

// IndustryCatalog returns the distinct (sector, industry) pairs across all snapshots,
// with the name taken from the most recent as-of date.
func (db *DB) IndustryCatalog(ctx context.Context) ([]IndustryCatalogEntry, error) {
	query := fmt.Sprintf(`
		SELECT
			sector_key,
			industry_key,
			argMax(industry_name, asof_date) AS industry_name
		FROM "%s"."%s"
		GROUP BY sector_key, industry_key
	`, db.Name, models.DimIndustryTableName)

	var rows []IndustryCatalogEntry
	if err := db.Select(ctx, &rows, query); err != nil {
		return nil, fmt.Errorf("industry catalog: %w", err)
	}

	return rows, nil
}
