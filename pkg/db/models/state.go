package models

import (
	"time"
)

const IngestStateTableName = "ingest_state"

// IngestStateColumns defines the schema for the ingest_state table.
// The table is an append-only log: set operations insert a new row, never
// mutate, and readers reduce to the row with the maximum updated_at per
// (source, target, key).
var IngestStateColumns = []ColumnDef{
	{Name: "source", Type: "LowCardinality(String)"},
	{Name: "target", Type: "LowCardinality(String)"},
	{Name: "key", Type: "String"},
	{Name: "last_ts", Type: "Nullable(DateTime('UTC'))"},
	{Name: "last_asof_date", Type: "Nullable(DateTime('UTC'))"},
	{Name: "updated_at", Type: "DateTime64(6, 'UTC')"},
}

// IngestState is one watermark event for an ingestion key.
// last_ts carries the timestamp watermark of time-series targets, last_asof_date
// the as-of-date watermark of snapshot/dimension targets; either may be nil.
type IngestState struct {
	Source       string     `ch:"source" json:"source"`
	Target       string     `ch:"target" json:"target"`
	Key          string     `ch:"key" json:"key"`
	LastTS       *time.Time `ch:"last_ts" json:"last_ts"`
	LastAsOfDate *time.Time `ch:"last_asof_date" json:"last_asof_date"`
	UpdatedAt    time.Time  `ch:"updated_at" json:"updated_at"`
}
