package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/mewroo/marketx/pkg/utils"
	"go.uber.org/zap"
)

// Price ingestion defaults, overridable per invocation.
const (
	DefaultInterval     = "1d"
	DefaultOverlapDays  = 5
	DefaultLookbackDays = 370
	DefaultChunkSize    = 50
)

// PricesJob ingests OHLCV time series incrementally.
//
// Time-series policy per (ticker, interval) key: the fetch window start is
// min(now − lookback, watermark − overlap) — widened, never narrowed — and
// fetched rows at or before the watermark are discarded before writing.
// Chunking groups tickers per provider call purely for throughput; chunk
// boundaries carry no correctness semantics.
type PricesJob struct {
	Store    Store
	Provider MarketData
	Logger   *zap.Logger

	// Tickers to ingest; nil means the latest membership set.
	Tickers      []string
	Interval     string
	OverlapDays  int
	LookbackDays int
	ChunkSize    int
	Force        bool
}

func (j *PricesJob) defaults() {
	if j.Interval == "" {
		j.Interval = DefaultInterval
	}
	if j.OverlapDays <= 0 {
		j.OverlapDays = DefaultOverlapDays
	}
	if j.LookbackDays <= 0 {
		j.LookbackDays = DefaultLookbackDays
	}
	if j.ChunkSize <= 0 {
		j.ChunkSize = DefaultChunkSize
	}
}

// stateKey is the watermark key for one ticker's series at this interval.
func (j *PricesJob) stateKey(ticker string) string {
	return fmt.Sprintf("%s|%s", ticker, j.Interval)
}

// Run executes the job and returns the number of rows written.
func (j *PricesJob) Run(ctx context.Context) (int, error) {
	j.defaults()
	ingestedAt := UTCNow()

	tickers := j.Tickers
	if len(tickers) == 0 {
		var err error
		tickers, err = j.Store.LatestMembershipTickers(ctx)
		if err != nil {
			return 0, err
		}
	}
	tickers = SanitizeTickers(tickers)

	total := 0
	for _, chunk := range utils.Chunk(tickers, j.ChunkSize) {
		n, err := j.runChunk(ctx, chunk, ingestedAt)
		total += n
		if err != nil {
			return total, err
		}
	}

	return total, nil
}

// runChunk plans, fetches, normalizes, filters and writes one ticker chunk.
// Per-ticker fetch/parse failures are logged and excluded; store failures
// propagate and abort the run.
func (j *PricesJob) runChunk(ctx context.Context, chunk []string, ingestedAt time.Time) (int, error) {
	// Plan: one watermark read per ticker. The same watermark drives both the
	// chunk-wide window start (min over tickers, widening only) and the strict
	// per-ticker filter after the fetch. Force mode keeps the widening but
	// bypasses the filter.
	watermarks := make(map[string]*time.Time, len(chunk))
	earliest := ingestedAt.AddDate(0, 0, -j.LookbackDays)
	for _, ticker := range chunk {
		lastTS, _, err := j.Store.GetState(ctx, Source, TargetPrices, j.stateKey(ticker))
		if err != nil {
			return 0, err
		}
		watermarks[ticker] = lastTS

		if start := SeriesWindowStart(ingestedAt, lastTS, j.LookbackDays, j.OverlapDays); start.Before(earliest) {
			earliest = start
		}
	}

	tables, fetchErrs := j.Provider.DownloadHistory(ctx, chunk, earliest, j.Interval)
	for ticker, err := range fetchErrs {
		j.Logger.Warn("price fetch failed for ticker",
			zap.String("ticker", ticker),
			zap.Error(err))
	}
	if len(tables) == 0 && len(fetchErrs) > 0 {
		// The whole chunk failed upstream: skip it, watermarks untouched; the
		// next run's overlap window re-covers the range.
		j.Logger.Warn("price chunk failed entirely, skipping",
			zap.Strings("tickers", chunk),
			zap.Time("window_start", earliest))
		return 0, nil
	}

	total := 0
	for _, ticker := range chunk {
		table, ok := tables[ticker]
		if !ok {
			continue
		}

		rows, err := NormalizePrices(ticker, j.Interval, table, ingestedAt)
		if err != nil {
			j.Logger.Warn("price table has unexpected schema",
				zap.String("ticker", ticker),
				zap.Error(err))
			continue
		}

		lastTS := watermarks[ticker]
		filtered := rows[:0]
		for _, row := range rows {
			if AfterWatermark(row.TS, lastTS, j.Force) {
				filtered = append(filtered, row)
			}
		}
		if len(filtered) == 0 {
			continue
		}

		if err := j.Store.InsertPrices(ctx, filtered); err != nil {
			return total, err
		}

		maxTS := filtered[0].TS
		for _, row := range filtered[1:] {
			if row.TS.After(maxTS) {
				maxTS = row.TS
			}
		}
		if lastTS != nil && maxTS.Before(*lastTS) {
			// Forced refetches may end short of the watermark; never regress it.
			maxTS = *lastTS
		}
		if err := j.Store.SetState(ctx, Source, TargetPrices, j.stateKey(ticker), &maxTS, nil); err != nil {
			return total, err
		}

		total += len(filtered)
	}

	return total, nil
}
