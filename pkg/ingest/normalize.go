package ingest

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/mewroo/marketx/pkg/db/models"
	"github.com/mewroo/marketx/pkg/provider"
)

// Column alias tables. The provider's response shape is not contractually
// stable, so every semantically required field is probed case-insensitively
// against its known spellings, preferred alias first.
var (
	industryKeyAliases = []string{"key", "industry_key", "industry key"}
	nameAliases        = []string{"name", "longname", "shortname"}
	symbolAliases      = []string{"symbol", "ticker"}
	weightAliases      = []string{"market weight", "market_weight", "weight"}

	tsAliases       = []string{"ts", "date", "datetime", "timestamp"}
	openAliases     = []string{"open"}
	highAliases     = []string{"high"}
	lowAliases      = []string{"low"}
	closeAliases    = []string{"close"}
	adjCloseAliases = []string{"adj close", "adj_close", "adjclose", "adjusted close"}
	volumeAliases   = []string{"volume", "vol"}

	marketCapKeys = []string{"marketCap", "market_cap", "marketcap"}
	currencyKeys  = []string{"currency"}
)

// asString coerces a loose cell to a trimmed string. Numeric cells are
// formatted; nil becomes "".
func asString(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(s)
	case float64:
		if math.IsNaN(s) {
			return ""
		}
		return strconv.FormatFloat(s, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(s)
	default:
		return strings.TrimSpace(fmt.Sprintf("%v", s))
	}
}

// missingIdent reports whether an identifier cell normalizes to absent:
// empty string or the literal string form of not-a-number.
func missingIdent(s string) bool {
	return s == "" || strings.EqualFold(s, "nan")
}

// asFloat coerces a loose cell to a float64. Strings are parsed; anything
// unparseable, NaN, or nil reports false.
func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return 0, false
		}
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case string:
		n = strings.TrimSpace(n)
		if n == "" {
			return 0, false
		}
		f, err := strconv.ParseFloat(n, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// floatOr coerces with a fallback for sparse fields.
func floatOr(v any, fallback float64) float64 {
	if f, ok := asFloat(v); ok {
		return f
	}
	return fallback
}

// asTime coerces a loose cell to a second-granularity UTC instant.
// Accepts RFC3339 timestamps, date-time and date strings (naive values are
// assumed UTC), and numeric epoch seconds.
func asTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case string:
		t = strings.TrimSpace(t)
		if t == "" {
			return time.Time{}, false
		}
		for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02 15:04:05", "2006-01-02"} {
			if parsed, err := time.Parse(layout, t); err == nil {
				return parsed.UTC().Truncate(time.Second), true
			}
		}
		return time.Time{}, false
	case float64:
		if math.IsNaN(t) || t <= 0 {
			return time.Time{}, false
		}
		return time.Unix(int64(t), 0).UTC(), true
	default:
		return time.Time{}, false
	}
}

// NormalizeIndustries maps a sector's raw industry table to canonical catalog rows.
// The industry key may arrive as a column or as the table's row index; name,
// symbol and weight columns are required — a table without them is rejected
// whole (no partial extraction), which the caller logs and skips.
func NormalizeIndustries(sectorKey string, table *provider.Table, asof, ingestedAt time.Time) ([]*models.Industry, error) {
	if table.Empty() {
		return nil, nil
	}

	t := table.ResetIndex()

	keyCol := t.ColumnIndex(industryKeyAliases...)
	if keyCol < 0 {
		// Provider renames drift; fall back to the leading column as the key.
		keyCol = 0
	}

	nameCol := t.ColumnIndex(nameAliases...)
	symbolCol := t.ColumnIndex(symbolAliases...)
	weightCol := t.ColumnIndex(weightAliases...)
	if nameCol < 0 || symbolCol < 0 || weightCol < 0 {
		return nil, fmt.Errorf("sector %s: unexpected columns %v", sectorKey, t.Columns)
	}

	rows := make([]*models.Industry, 0, len(t.Data))
	for i := range t.Data {
		industryKey := asString(t.Cell(i, keyCol))
		if missingIdent(industryKey) {
			continue
		}

		rows = append(rows, &models.Industry{
			SectorKey:      sectorKey,
			IndustryKey:    industryKey,
			IndustryName:   asString(t.Cell(i, nameCol)),
			IndustrySymbol: asString(t.Cell(i, symbolCol)),
			MarketWeight:   floatOr(t.Cell(i, weightCol), 0),
			AsOfDate:       asof,
			IngestedAt:     ingestedAt,
		})
	}

	return rows, nil
}

// NormalizeTopCompanies maps an industry's raw top-constituent table to
// canonical membership rows. The ticker may live in a column or in the table's
// index; the display-name column is optional.
func NormalizeTopCompanies(sectorKey, industryKey string, table *provider.Table, asof, ingestedAt time.Time) ([]*models.Membership, error) {
	if table.Empty() {
		return nil, nil
	}

	t := table
	symbolCol := t.ColumnIndex(symbolAliases...)
	if symbolCol < 0 && t.HasIndex() {
		// Sometimes the index carries the tickers.
		idxName := strings.ToLower(t.IndexName)
		if strings.Contains(idxName, "symbol") || strings.Contains(idxName, "ticker") {
			t = t.ResetIndex()
			symbolCol = t.ColumnIndex(symbolAliases...)
		}
	}
	if symbolCol < 0 {
		return nil, fmt.Errorf("industry %s: no ticker column in %v", industryKey, t.Columns)
	}

	nameCol := t.ColumnIndex(nameAliases...)

	rows := make([]*models.Membership, 0, len(t.Data))
	for i := range t.Data {
		ticker := asString(t.Cell(i, symbolCol))
		if missingIdent(ticker) {
			continue
		}

		tickerName := ""
		if nameCol >= 0 {
			tickerName = asString(t.Cell(i, nameCol))
		}

		rows = append(rows, &models.Membership{
			AsOfDate:    asof,
			SectorKey:   sectorKey,
			IndustryKey: industryKey,
			Ticker:      ticker,
			TickerName:  tickerName,
			Source:      ProvenanceTopCompanies,
			IngestedAt:  ingestedAt,
		})
	}

	return rows, nil
}

// NormalizePrices maps a ticker's raw OHLCV table to canonical price rows.
// The timestamp may live in a column or in the index; rows without a parseable
// timestamp or close are dropped. Sparse fields fall back rather than fail:
// missing adjusted close falls back to close, missing O/H/L individually fall
// back to close, missing volume to zero — price continuity over strict fidelity.
func NormalizePrices(ticker, interval string, table *provider.Table, ingestedAt time.Time) ([]*models.Price, error) {
	if table.Empty() {
		return nil, nil
	}

	t := table.ResetIndex()

	tsCol := t.ColumnIndex(tsAliases...)
	if tsCol < 0 {
		// History tables conventionally lead with the timestamp.
		tsCol = 0
	}

	closeCol := t.ColumnIndex(closeAliases...)
	if closeCol < 0 {
		return nil, fmt.Errorf("ticker %s: no close column in %v", ticker, t.Columns)
	}

	openCol := t.ColumnIndex(openAliases...)
	highCol := t.ColumnIndex(highAliases...)
	lowCol := t.ColumnIndex(lowAliases...)
	adjCol := t.ColumnIndex(adjCloseAliases...)
	volCol := t.ColumnIndex(volumeAliases...)

	rows := make([]*models.Price, 0, len(t.Data))
	for i := range t.Data {
		ts, ok := asTime(t.Cell(i, tsCol))
		if !ok {
			continue
		}

		closeVal, ok := asFloat(t.Cell(i, closeCol))
		if !ok {
			continue
		}

		row := &models.Price{
			TS:       ts,
			Ticker:   ticker,
			Interval: interval,
			Open:     floatOr(t.Cell(i, openCol), closeVal),
			High:     floatOr(t.Cell(i, highCol), closeVal),
			Low:      floatOr(t.Cell(i, lowCol), closeVal),
			Close:    closeVal,
			AdjClose: closeVal,
			Volume:   0,
			Source:   Source,
		}
		if adjCol >= 0 {
			row.AdjClose = floatOr(t.Cell(i, adjCol), closeVal)
		}
		if volCol >= 0 {
			row.Volume = int64(floatOr(t.Cell(i, volCol), 0))
		}
		row.IngestedAt = ingestedAt

		rows = append(rows, row)
	}

	return rows, nil
}

// MarketCapFromInfo probes a ticker's scalar info dict for market cap and
// currency. Some tickers legitimately carry no market cap; ok is false then.
func MarketCapFromInfo(info map[string]any) (marketCap float64, currency string, ok bool) {
	lower := make(map[string]any, len(info))
	for k, v := range info {
		lower[strings.ToLower(k)] = v
	}

	for _, key := range marketCapKeys {
		if v, found := lower[strings.ToLower(key)]; found {
			if f, isNum := asFloat(v); isNum {
				marketCap = f
				ok = true
				break
			}
		}
	}
	if !ok {
		return 0, "", false
	}

	for _, key := range currencyKeys {
		if v, found := lower[strings.ToLower(key)]; found {
			currency = asString(v)
			break
		}
	}

	return marketCap, currency, true
}
