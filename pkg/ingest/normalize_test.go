package ingest

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mewroo/marketx/pkg/provider"
)

var (
	testAsOf     = date(2024, 3, 15)
	testIngested = time.Date(2024, 3, 15, 21, 0, 0, 0, time.UTC)
)

func TestNormalizeIndustries(t *testing.T) {
	t.Run("key in index, mixed-case columns", func(t *testing.T) {
		table := &provider.Table{
			Columns:   []string{"Name", "Symbol", "Market Weight"},
			IndexName: "key",
			Index:     []any{"gold", "silver"},
			Data: [][]any{
				{"Gold", "^YH311", 0.4},
				{"Silver", "^YH312", 0.1},
			},
		}

		rows, err := NormalizeIndustries("basic-materials", table, testAsOf, testIngested)
		require.NoError(t, err)
		require.Len(t, rows, 2)

		assert.Equal(t, "basic-materials", rows[0].SectorKey)
		assert.Equal(t, "gold", rows[0].IndustryKey)
		assert.Equal(t, "Gold", rows[0].IndustryName)
		assert.Equal(t, "^YH311", rows[0].IndustrySymbol)
		assert.InDelta(t, 0.4, rows[0].MarketWeight, 1e-9)
		assert.Equal(t, testAsOf, rows[0].AsOfDate)
		assert.Equal(t, testIngested, rows[0].IngestedAt)
	})

	t.Run("unnamed index falls back to leading column", func(t *testing.T) {
		table := &provider.Table{
			Columns: []string{"name", "symbol", "weight"},
			Index:   []any{"gold"},
			Data:    [][]any{{"Gold", "^YH311", "0.25"}},
		}

		rows, err := NormalizeIndustries("basic-materials", table, testAsOf, testIngested)
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, "gold", rows[0].IndustryKey)
		assert.InDelta(t, 0.25, rows[0].MarketWeight, 1e-9)
	})

	t.Run("nan and empty keys dropped", func(t *testing.T) {
		table := &provider.Table{
			Columns:   []string{"name", "symbol", "weight"},
			IndexName: "key",
			Index:     []any{"gold", "nan", nil},
			Data: [][]any{
				{"Gold", "^YH311", 0.4},
				{"Broken", "^X", 0.0},
				{"AlsoBroken", "^Y", 0.0},
			},
		}

		rows, err := NormalizeIndustries("basic-materials", table, testAsOf, testIngested)
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, "gold", rows[0].IndustryKey)
	})

	t.Run("unparseable weight defaults to zero", func(t *testing.T) {
		table := &provider.Table{
			Columns:   []string{"name", "symbol", "weight"},
			IndexName: "key",
			Index:     []any{"gold"},
			Data:      [][]any{{"Gold", "^YH311", "n/a"}},
		}

		rows, err := NormalizeIndustries("basic-materials", table, testAsOf, testIngested)
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Zero(t, rows[0].MarketWeight)
	})

	t.Run("missing required columns rejects whole table", func(t *testing.T) {
		table := &provider.Table{
			Columns:   []string{"something", "else"},
			IndexName: "key",
			Index:     []any{"gold"},
			Data:      [][]any{{"a", "b"}},
		}

		_, err := NormalizeIndustries("basic-materials", table, testAsOf, testIngested)
		assert.Error(t, err)
	})

	t.Run("empty table yields nothing", func(t *testing.T) {
		rows, err := NormalizeIndustries("basic-materials", &provider.Table{}, testAsOf, testIngested)
		require.NoError(t, err)
		assert.Empty(t, rows)
	})
}

func TestNormalizeTopCompanies(t *testing.T) {
	t.Run("ticker column with longname", func(t *testing.T) {
		table := &provider.Table{
			Columns: []string{"ticker", "longname"},
			Data: [][]any{
				{"NEM", "Newmont Corporation"},
				{"GOLD", "Barrick Gold"},
			},
		}

		rows, err := NormalizeTopCompanies("basic-materials", "gold", table, testAsOf, testIngested)
		require.NoError(t, err)
		require.Len(t, rows, 2)

		assert.Equal(t, "NEM", rows[0].Ticker)
		assert.Equal(t, "Newmont Corporation", rows[0].TickerName)
		assert.Equal(t, "gold", rows[0].IndustryKey)
		assert.Equal(t, ProvenanceTopCompanies, rows[0].Source)
	})

	t.Run("tickers in the index", func(t *testing.T) {
		table := &provider.Table{
			Columns:   []string{"name", "rating"},
			IndexName: "Symbol",
			Index:     []any{"NEM", "GOLD"},
			Data: [][]any{
				{"Newmont Corporation", "buy"},
				{"Barrick Gold", "hold"},
			},
		}

		rows, err := NormalizeTopCompanies("basic-materials", "gold", table, testAsOf, testIngested)
		require.NoError(t, err)
		require.Len(t, rows, 2)
		assert.Equal(t, "NEM", rows[0].Ticker)
		assert.Equal(t, "Newmont Corporation", rows[0].TickerName)
	})

	t.Run("missing name column is tolerated", func(t *testing.T) {
		table := &provider.Table{
			Columns: []string{"symbol"},
			Data:    [][]any{{"NEM"}},
		}

		rows, err := NormalizeTopCompanies("basic-materials", "gold", table, testAsOf, testIngested)
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Empty(t, rows[0].TickerName)
	})

	t.Run("no ticker column anywhere rejects the table", func(t *testing.T) {
		table := &provider.Table{
			Columns:   []string{"name"},
			IndexName: "rank",
			Index:     []any{1},
			Data:      [][]any{{"Newmont"}},
		}

		_, err := NormalizeTopCompanies("basic-materials", "gold", table, testAsOf, testIngested)
		assert.Error(t, err)
	})
}

func TestNormalizePrices(t *testing.T) {
	t.Run("full ohlcv with date index", func(t *testing.T) {
		table := &provider.Table{
			Columns:   []string{"Open", "High", "Low", "Close", "Adj Close", "Volume"},
			IndexName: "Date",
			Index:     []any{"2024-01-02", "2024-01-03"},
			Data: [][]any{
				{187.15, 188.44, 183.89, 185.64, 184.9, 82488700.0},
				{184.22, 185.88, 183.43, 184.25, 183.5, 58414500.0},
			},
		}

		rows, err := NormalizePrices("AAPL", "1d", table, testIngested)
		require.NoError(t, err)
		require.Len(t, rows, 2)

		assert.Equal(t, date(2024, 1, 2), rows[0].TS)
		assert.Equal(t, "AAPL", rows[0].Ticker)
		assert.Equal(t, "1d", rows[0].Interval)
		assert.InDelta(t, 185.64, rows[0].Close, 1e-9)
		assert.InDelta(t, 184.9, rows[0].AdjClose, 1e-9)
		assert.Equal(t, int64(82488700), rows[0].Volume)
		assert.Equal(t, Source, rows[0].Source)
	})

	t.Run("epoch timestamps", func(t *testing.T) {
		table := &provider.Table{
			Columns: []string{"ts", "close"},
			Data:    [][]any{{1704153600.0, 185.64}},
		}

		rows, err := NormalizePrices("AAPL", "1d", table, testIngested)
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC), rows[0].TS)
	})

	t.Run("sparse fields fall back to close and zero volume", func(t *testing.T) {
		table := &provider.Table{
			Columns: []string{"date", "close"},
			Data:    [][]any{{"2024-01-02", 185.64}},
		}

		rows, err := NormalizePrices("AAPL", "1d", table, testIngested)
		require.NoError(t, err)
		require.Len(t, rows, 1)

		assert.Equal(t, rows[0].Close, rows[0].Open)
		assert.Equal(t, rows[0].Close, rows[0].High)
		assert.Equal(t, rows[0].Close, rows[0].Low)
		assert.Equal(t, rows[0].Close, rows[0].AdjClose)
		assert.Zero(t, rows[0].Volume)
	})

	t.Run("adj_close alias spellings", func(t *testing.T) {
		for _, col := range []string{"adj close", "adj_close", "adjclose", "Adjusted Close"} {
			table := &provider.Table{
				Columns: []string{"date", "close", col},
				Data:    [][]any{{"2024-01-02", 185.64, 184.9}},
			}

			rows, err := NormalizePrices("AAPL", "1d", table, testIngested)
			require.NoError(t, err, col)
			require.Len(t, rows, 1, col)
			assert.InDelta(t, 184.9, rows[0].AdjClose, 1e-9, col)
		}
	})

	t.Run("rows without timestamp or close dropped", func(t *testing.T) {
		table := &provider.Table{
			Columns: []string{"date", "close"},
			Data: [][]any{
				{"2024-01-02", 185.64},
				{"not a date", 184.25},
				{"2024-01-04", "NaN"},
			},
		}

		rows, err := NormalizePrices("AAPL", "1d", table, testIngested)
		require.NoError(t, err)
		require.Len(t, rows, 1)
		assert.Equal(t, date(2024, 1, 2), rows[0].TS)
	})

	t.Run("no close column rejects the table", func(t *testing.T) {
		table := &provider.Table{
			Columns: []string{"date", "open"},
			Data:    [][]any{{"2024-01-02", 187.15}},
		}

		_, err := NormalizePrices("AAPL", "1d", table, testIngested)
		assert.Error(t, err)
	})
}

func TestMarketCapFromInfo(t *testing.T) {
	tests := []struct {
		name         string
		info         map[string]any
		wantCap      float64
		wantCurrency string
		wantOK       bool
	}{
		{"camelCase key", map[string]any{"marketCap": 2.8e12, "currency": "USD"}, 2.8e12, "USD", true},
		{"snake_case key", map[string]any{"market_cap": 1.5e9}, 1.5e9, "", true},
		{"string value", map[string]any{"marketcap": "123456789", "currency": "EUR"}, 123456789, "EUR", true},
		{"missing cap", map[string]any{"currency": "USD"}, 0, "", false},
		{"nan cap", map[string]any{"marketCap": "NaN"}, 0, "", false},
		{"nil info", nil, 0, "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			gotCap, gotCurrency, ok := MarketCapFromInfo(tt.info)
			assert.Equal(t, tt.wantOK, ok)
			if tt.wantOK {
				assert.InDelta(t, tt.wantCap, gotCap, 1)
				assert.Equal(t, tt.wantCurrency, gotCurrency)
			}
		})
	}
}
