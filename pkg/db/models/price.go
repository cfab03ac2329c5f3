package models

import (
	"time"
)

const PricesTableName = "stock_prices"

// PriceColumns defines the schema for the stock_prices table.
var PriceColumns = []ColumnDef{
	{Name: "ts", Type: "DateTime('UTC')", Codec: "Delta, ZSTD(3)"},
	{Name: "ticker", Type: "String"},
	{Name: "interval", Type: "LowCardinality(String)"},
	{Name: "open", Type: "Float64"},
	{Name: "high", Type: "Float64"},
	{Name: "low", Type: "Float64"},
	{Name: "close", Type: "Float64"},
	{Name: "adj_close", Type: "Float64"},
	{Name: "volume", Type: "Int64"},
	{Name: "source", Type: "LowCardinality(String)"},
	{Name: "ingested_at", Type: "DateTime('UTC')"},
}

// Price is one OHLCV bar for a (ticker, interval) at a second-granularity UTC instant.
// Uses ReplacingMergeTree(ingested_at) keyed on (ticker, interval, ts): re-ingesting a
// bar (e.g. through the overlap window under force) keeps the latest written version.
type Price struct {
	TS         time.Time `ch:"ts" json:"ts"`
	Ticker     string    `ch:"ticker" json:"ticker"`
	Interval   string    `ch:"interval" json:"interval"`
	Open       float64   `ch:"open" json:"open"`
	High       float64   `ch:"high" json:"high"`
	Low        float64   `ch:"low" json:"low"`
	Close      float64   `ch:"close" json:"close"`
	AdjClose   float64   `ch:"adj_close" json:"adj_close"`
	Volume     int64     `ch:"volume" json:"volume"`
	Source     string    `ch:"source" json:"source"`
	IngestedAt time.Time `ch:"ingested_at" json:"ingested_at"`
}
