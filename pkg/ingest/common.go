package ingest

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mewroo/marketx/pkg/db"
	"github.com/mewroo/marketx/pkg/db/models"
	"github.com/mewroo/marketx/pkg/provider"
)

// Source identifies the upstream provider in ingest_state rows and provenance tags.
const Source = "marketdata"

// Watermark targets, one per entity family.
const (
	TargetDimIndustry = "dim_industry"
	TargetMembership  = "industry_membership"
	TargetPrices      = "stock_prices"
	TargetMarketCap   = "market_cap"
)

// StateKeyAll is the watermark key for whole-catalog snapshot jobs.
const StateKeyAll = "ALL"

// Provenance tags written to the source column of fact rows.
const (
	ProvenanceTopCompanies = Source + "_top_companies"
	ProvenanceInfo         = Source + "_info"
)

// DefaultSectors is the sector catalog walked when no selector is given.
var DefaultSectors = []string{
	"basic-materials",
	"communication-services",
	"consumer-cyclical",
	"consumer-defensive",
	"energy",
	"financial-services",
	"healthcare",
	"industrials",
	"real-estate",
	"technology",
	"utilities",
}

// Store is the columnar-store surface the ingestion jobs depend on.
// *db.DB satisfies it; tests substitute an in-memory fake.
type Store interface {
	GetState(ctx context.Context, source, target, key string) (lastTS, lastAsOf *time.Time, err error)
	SetState(ctx context.Context, source, target, key string, lastTS, lastAsOf *time.Time) error

	IndustryCatalog(ctx context.Context) ([]db.IndustryCatalogEntry, error)
	LatestMembershipTickers(ctx context.Context) ([]string, error)

	InsertIndustries(ctx context.Context, rows []*models.Industry) error
	InsertMemberships(ctx context.Context, rows []*models.Membership) error
	InsertPrices(ctx context.Context, rows []*models.Price) error
	InsertMarketCaps(ctx context.Context, rows []*models.MarketCap) error
}

// MarketData is the external fetch surface the ingestion jobs depend on.
// *provider.Client satisfies it.
type MarketData interface {
	SectorIndustries(ctx context.Context, sectorKey string) (*provider.Table, error)
	IndustryTopCompanies(ctx context.Context, industryKey string) (*provider.Table, error)
	TickerInfo(ctx context.Context, ticker string) (map[string]any, error)
	DownloadHistory(ctx context.Context, symbols []string, start time.Time, interval string) (map[string]*provider.Table, map[string]error)
}

// UTCNow returns the current instant truncated to second granularity in UTC.
func UTCNow() time.Time {
	return time.Now().UTC().Truncate(time.Second)
}

// StartOfDay returns UTC midnight of the given instant.
func StartOfDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// ParseAsOfDate parses an as-of date argument: empty means UTC midnight of now,
// otherwise 'YYYY-MM-DD' or a full RFC3339 timestamp. Naive values are UTC.
func ParseAsOfDate(s string) (time.Time, error) {
	if strings.TrimSpace(s) == "" {
		return StartOfDay(UTCNow()), nil
	}
	s = strings.TrimSpace(s)
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return t.UTC(), nil
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC().Truncate(time.Second), nil
	}
	if t, err := time.Parse("2006-01-02T15:04:05", s); err == nil {
		return t.UTC().Truncate(time.Second), nil
	}
	return time.Time{}, fmt.Errorf("invalid asof date %q", s)
}

// SanitizeTickers trims, drops empties and "nan" placeholders, and dedups.
func SanitizeTickers(in []string) []string {
	out := make([]string, 0, len(in))
	seen := map[string]bool{}
	for _, t := range in {
		t = strings.TrimSpace(t)
		if t == "" || strings.EqualFold(t, "nan") {
			continue
		}
		if !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	return out
}
