package models

import (
	"time"
)

const MembershipTableName = "industry_membership"

// MembershipColumns defines the schema for the industry_membership table.
var MembershipColumns = []ColumnDef{
	{Name: "asof_date", Type: "DateTime('UTC')"},
	{Name: "sector_key", Type: "LowCardinality(String)"},
	{Name: "industry_key", Type: "String"},
	{Name: "ticker", Type: "String"},
	{Name: "ticker_name", Type: "String"},
	{Name: "source", Type: "LowCardinality(String)"},
	{Name: "ingested_at", Type: "DateTime('UTC')"},
}

// Membership is one (industry, ticker) top-constituent row as of a snapshot date.
type Membership struct {
	AsOfDate    time.Time `ch:"asof_date" json:"asof_date"`
	SectorKey   string    `ch:"sector_key" json:"sector_key"`
	IndustryKey string    `ch:"industry_key" json:"industry_key"`
	Ticker      string    `ch:"ticker" json:"ticker"`
	TickerName  string    `ch:"ticker_name" json:"ticker_name"`
	Source      string    `ch:"source" json:"source"`
	IngestedAt  time.Time `ch:"ingested_at" json:"ingested_at"`
}
