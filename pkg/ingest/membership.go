package ingest

import (
	"context"
	"time"

	"github.com/mewroo/marketx/pkg/db/models"
	"go.uber.org/zap"
)

// MembershipJob ingests per-industry top-constituent membership rows for all
// industries known to the dim_industry catalog.
//
// Snapshot policy with a single ALL watermark key, like DimIndustryJob.
type MembershipJob struct {
	Store    Store
	Provider MarketData
	Logger   *zap.Logger

	// AsOf is the snapshot date; zero means UTC midnight of the run.
	AsOf  time.Time
	Force bool
}

// Run executes the job and returns the number of rows written.
func (j *MembershipJob) Run(ctx context.Context) (int, error) {
	ingestedAt := UTCNow()
	asof := j.AsOf
	if asof.IsZero() {
		asof = StartOfDay(ingestedAt)
	}

	_, lastAsOf, err := j.Store.GetState(ctx, Source, TargetMembership, StateKeyAll)
	if err != nil {
		return 0, err
	}
	if SkipSnapshot(lastAsOf, asof, j.Force) {
		j.Logger.Info("membership already ingested for asof date, skipping",
			zap.Time("asof", asof),
			zap.Timep("last_asof", lastAsOf))
		return 0, nil
	}

	catalog, err := j.Store.IndustryCatalog(ctx)
	if err != nil {
		return 0, err
	}

	var rows []*models.Membership
	for _, entry := range catalog {
		table, err := j.Provider.IndustryTopCompanies(ctx, entry.IndustryKey)
		if err != nil {
			// The provider 404s for some industry keys; exclude and continue.
			j.Logger.Warn("membership industry fetch failed",
				zap.String("industry", entry.IndustryKey),
				zap.Error(err))
			continue
		}
		if table.Empty() {
			continue
		}

		industryRows, err := NormalizeTopCompanies(entry.SectorKey, entry.IndustryKey, table, asof, ingestedAt)
		if err != nil {
			j.Logger.Warn("membership industry has unexpected schema",
				zap.String("industry", entry.IndustryKey),
				zap.Error(err))
			continue
		}

		rows = append(rows, industryRows...)
	}

	if err := j.Store.InsertMemberships(ctx, rows); err != nil {
		return 0, err
	}

	if err := j.Store.SetState(ctx, Source, TargetMembership, StateKeyAll, nil, &asof); err != nil {
		return 0, err
	}

	j.Logger.Info("membership ingested",
		zap.Int("rows", len(rows)),
		zap.Int("industries", len(catalog)),
		zap.Time("asof", asof))

	return len(rows), nil
}
