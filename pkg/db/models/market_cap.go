package models

import (
	"time"
)

const MarketCapTableName = "market_cap"

// MarketCapColumns defines the schema for the market_cap table.
var MarketCapColumns = []ColumnDef{
	{Name: "asof_date", Type: "DateTime('UTC')"},
	{Name: "ticker", Type: "String"},
	{Name: "market_cap", Type: "Float64"},
	{Name: "currency", Type: "LowCardinality(String)"},
	{Name: "source", Type: "LowCardinality(String)"},
	{Name: "ingested_at", Type: "DateTime('UTC')"},
}

// MarketCap is one market-capitalization snapshot per (ticker, asof_date).
type MarketCap struct {
	AsOfDate   time.Time `ch:"asof_date" json:"asof_date"`
	Ticker     string    `ch:"ticker" json:"ticker"`
	MarketCap  float64   `ch:"market_cap" json:"market_cap"`
	Currency   string    `ch:"currency" json:"currency"`
	Source     string    `ch:"source" json:"source"`
	IngestedAt time.Time `ch:"ingested_at" json:"ingested_at"`
}
