package models

import (
	"time"
)

const DimIndustryTableName = "dim_industry"

// DimIndustryColumns defines the schema for the dim_industry table.
var DimIndustryColumns = []ColumnDef{
	{Name: "sector_key", Type: "LowCardinality(String)"},
	{Name: "industry_key", Type: "String"},
	{Name: "industry_name", Type: "String"},
	{Name: "industry_symbol", Type: "String"},
	{Name: "market_weight", Type: "Float64"},
	{Name: "asof_date", Type: "DateTime('UTC')"},
	{Name: "ingested_at", Type: "DateTime('UTC')"},
}

// Industry is one sector→industry catalog entry as of a snapshot date.
// Uses ReplacingMergeTree(ingested_at) keyed on (sector_key, industry_key, asof_date)
// so re-ingesting a snapshot keeps the most recently written version.
type Industry struct {
	SectorKey      string    `ch:"sector_key" json:"sector_key"`
	IndustryKey    string    `ch:"industry_key" json:"industry_key"`
	IndustryName   string    `ch:"industry_name" json:"industry_name"`
	IndustrySymbol string    `ch:"industry_symbol" json:"industry_symbol"`
	MarketWeight   float64   `ch:"market_weight" json:"market_weight"`
	AsOfDate       time.Time `ch:"asof_date" json:"asof_date"`
	IngestedAt     time.Time `ch:"ingested_at" json:"ingested_at"`
}
