package ingest

import (
	"context"
	"time"

	"github.com/mewroo/marketx/pkg/db/models"
	"go.uber.org/zap"
)

// DimIndustryJob ingests the sector→industry catalog snapshot.
//
// Snapshot policy: one watermark row (source, dim_industry, ALL) with
// last_asof_date; re-running for an already-covered as-of date is a no-op
// unless forced. Store-level ReplacingMergeTree dedup backs this up.
type DimIndustryJob struct {
	Store    Store
	Provider MarketData
	Logger   *zap.Logger

	// Sectors to walk; nil means DefaultSectors.
	Sectors []string
	// AsOf is the snapshot date; zero means UTC midnight of the run.
	AsOf  time.Time
	Force bool
}

// Run executes the job and returns the number of rows written.
func (j *DimIndustryJob) Run(ctx context.Context) (int, error) {
	ingestedAt := UTCNow()
	asof := j.AsOf
	if asof.IsZero() {
		asof = StartOfDay(ingestedAt)
	}
	sectors := j.Sectors
	if len(sectors) == 0 {
		sectors = DefaultSectors
	}

	_, lastAsOf, err := j.Store.GetState(ctx, Source, TargetDimIndustry, StateKeyAll)
	if err != nil {
		return 0, err
	}
	if SkipSnapshot(lastAsOf, asof, j.Force) {
		j.Logger.Info("dim_industry already ingested for asof date, skipping",
			zap.Time("asof", asof),
			zap.Timep("last_asof", lastAsOf))
		return 0, nil
	}

	var rows []*models.Industry
	for _, sectorKey := range sectors {
		table, err := j.Provider.SectorIndustries(ctx, sectorKey)
		if err != nil {
			// Per-entity failure: this sector is excluded, the batch continues.
			j.Logger.Warn("dim_industry sector fetch failed",
				zap.String("sector", sectorKey),
				zap.Error(err))
			continue
		}
		if table.Empty() {
			j.Logger.Warn("dim_industry sector returned no industries",
				zap.String("sector", sectorKey))
			continue
		}

		sectorRows, err := NormalizeIndustries(sectorKey, table, asof, ingestedAt)
		if err != nil {
			// Schema detection failed for the whole table: skip it, no partial extraction.
			j.Logger.Warn("dim_industry sector has unexpected schema",
				zap.String("sector", sectorKey),
				zap.Error(err))
			continue
		}

		rows = append(rows, sectorRows...)
	}

	if err := j.Store.InsertIndustries(ctx, rows); err != nil {
		return 0, err
	}

	if err := j.Store.SetState(ctx, Source, TargetDimIndustry, StateKeyAll, nil, &asof); err != nil {
		return 0, err
	}

	j.Logger.Info("dim_industry ingested",
		zap.Int("rows", len(rows)),
		zap.Time("asof", asof))

	return len(rows), nil
}
