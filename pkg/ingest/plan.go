package ingest

import (
	"time"
)

// SkipSnapshot decides the snapshot-policy fast path: a job for as-of date asof
// is a no-op iff a watermark exists at or beyond asof and force mode is off.
// This is defense-in-depth alongside the store's replace-on-merge dedup.
func SkipSnapshot(lastAsOf *time.Time, asof time.Time, force bool) bool {
	if force || lastAsOf == nil {
		return false
	}
	return !lastAsOf.Before(asof)
}

// SeriesWindowStart computes the fetch-window start for time-series ingestion.
//
// With no prior watermark the window covers the default lookback. With one, the
// window start is min(now − lookback, last − overlap): widened to keep the full
// lookback covered when resuming, never narrowed. The overlap absorbs provider
// revisions near the watermark; the strict post-fetch filter keeps it from
// duplicating appends. Force mode does not change the window, only the filter.
func SeriesWindowStart(now time.Time, lastTS *time.Time, lookbackDays, overlapDays int) time.Time {
	start := now.UTC().AddDate(0, 0, -lookbackDays)
	if lastTS == nil {
		return start
	}
	resume := lastTS.UTC().AddDate(0, 0, -overlapDays)
	if resume.Before(start) {
		return resume
	}
	return start
}

// AfterWatermark reports whether a row at ts survives the strict watermark
// filter: rows at or before the watermark are discarded before writing, so the
// overlap window only serves to catch corrections. A nil watermark or force
// mode admits everything.
func AfterWatermark(ts time.Time, lastTS *time.Time, force bool) bool {
	if force || lastTS == nil {
		return true
	}
	return ts.After(*lastTS)
}
