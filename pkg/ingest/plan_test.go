package ingest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestSkipSnapshot(t *testing.T) {
	asof := date(2024, 3, 15)
	earlier := date(2024, 3, 14)
	later := date(2024, 3, 16)

	tests := []struct {
		name     string
		lastAsOf *time.Time
		asof     time.Time
		force    bool
		want     bool
	}{
		{"no watermark", nil, asof, false, false},
		{"watermark behind asof", &earlier, asof, false, false},
		{"watermark at asof", &asof, asof, false, true},
		{"watermark beyond asof", &later, asof, false, true},
		{"force overrides current watermark", &asof, asof, true, false},
		{"force overrides future watermark", &later, asof, true, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SkipSnapshot(tt.lastAsOf, tt.asof, tt.force))
		})
	}
}

func TestSeriesWindowStart(t *testing.T) {
	now := date(2024, 6, 1)
	recent := date(2024, 5, 20)
	old := date(2023, 1, 10)

	tests := []struct {
		name   string
		lastTS *time.Time
		want   time.Time
	}{
		// 370 days before 2024-06-01, spanning the 2024 leap day.
		{"no watermark covers full lookback", nil, date(2023, 5, 28)},
		{"recent watermark keeps full lookback", &recent, date(2023, 5, 28)},
		{"stale watermark widens past lookback", &old, date(2023, 1, 5)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SeriesWindowStart(now, tt.lastTS, 370, 5)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSeriesWindowStartNeverNarrows(t *testing.T) {
	now := date(2024, 6, 1)
	lookbackStart := now.AddDate(0, 0, -370)

	for _, last := range []time.Time{
		date(2022, 1, 1),
		date(2023, 6, 1),
		date(2024, 5, 31),
		now,
	} {
		got := SeriesWindowStart(now, &last, 370, 5)
		assert.False(t, got.After(lookbackStart), "window start %v must not be after %v", got, lookbackStart)
		assert.False(t, got.After(last.AddDate(0, 0, -5)), "window start %v must cover the overlap behind %v", got, last)
	}
}

func TestAfterWatermark(t *testing.T) {
	mark := date(2024, 1, 10)

	tests := []struct {
		name   string
		ts     time.Time
		lastTS *time.Time
		force  bool
		want   bool
	}{
		{"no watermark admits all", date(2020, 1, 1), nil, false, true},
		{"before watermark filtered", date(2024, 1, 9), &mark, false, false},
		{"at watermark filtered", mark, &mark, false, false},
		{"after watermark admitted", date(2024, 1, 11), &mark, false, true},
		{"force admits at watermark", mark, &mark, true, true},
		{"force admits before watermark", date(2024, 1, 1), &mark, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, AfterWatermark(tt.ts, tt.lastTS, tt.force))
		})
	}
}
