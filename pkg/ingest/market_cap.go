package ingest

import (
	"context"
	"time"

	"github.com/mewroo/marketx/pkg/db/models"
	"go.uber.org/zap"
)

// MarketCapJob ingests one market-capitalization snapshot row per ticker.
//
// Snapshot policy per ticker: each ticker keeps its own watermark key, so a
// partially failed run only re-fetches the tickers that did not land.
// Watermarks advance only after the batch write succeeds.
type MarketCapJob struct {
	Store    Store
	Provider MarketData
	Logger   *zap.Logger

	// Tickers to snapshot; nil means the latest membership set.
	Tickers []string
	// AsOf is the snapshot date; zero means UTC midnight of the run.
	AsOf  time.Time
	Force bool
}

// Run executes the job and returns the number of rows written.
func (j *MarketCapJob) Run(ctx context.Context) (int, error) {
	ingestedAt := UTCNow()
	asof := j.AsOf
	if asof.IsZero() {
		asof = StartOfDay(ingestedAt)
	}

	tickers := j.Tickers
	if len(tickers) == 0 {
		var err error
		tickers, err = j.Store.LatestMembershipTickers(ctx)
		if err != nil {
			return 0, err
		}
	}
	tickers = SanitizeTickers(tickers)

	var batch []*models.MarketCap
	for _, ticker := range tickers {
		_, lastAsOf, err := j.Store.GetState(ctx, Source, TargetMarketCap, ticker)
		if err != nil {
			return 0, err
		}
		if SkipSnapshot(lastAsOf, asof, j.Force) {
			continue
		}

		info, err := j.Provider.TickerInfo(ctx, ticker)
		if err != nil {
			// Per-entity failure: exclude the ticker, leave its watermark alone.
			j.Logger.Warn("market_cap ticker fetch failed",
				zap.String("ticker", ticker),
				zap.Error(err))
			continue
		}

		marketCap, currency, ok := MarketCapFromInfo(info)
		if !ok {
			// Some tickers don't publish a market cap; skip without advancing.
			j.Logger.Debug("market_cap missing for ticker",
				zap.String("ticker", ticker))
			continue
		}

		batch = append(batch, &models.MarketCap{
			AsOfDate:   asof,
			Ticker:     ticker,
			MarketCap:  marketCap,
			Currency:   currency,
			Source:     ProvenanceInfo,
			IngestedAt: ingestedAt,
		})
	}

	if err := j.Store.InsertMarketCaps(ctx, batch); err != nil {
		return 0, err
	}

	for _, row := range batch {
		if err := j.Store.SetState(ctx, Source, TargetMarketCap, row.Ticker, nil, &asof); err != nil {
			// Forward-only log: earlier advances in this run stay in place.
			return len(batch), err
		}
	}

	j.Logger.Info("market_cap ingested",
		zap.Int("rows", len(batch)),
		zap.Int("tickers", len(tickers)),
		zap.Time("asof", asof))

	return len(batch), nil
}
