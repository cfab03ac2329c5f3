package models

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestColumnDefSQL(t *testing.T) {
	tests := []struct {
		name string
		col  ColumnDef
		want string
	}{
		{"plain", ColumnDef{Name: "ticker", Type: "String"}, "ticker String"},
		{"with codec", ColumnDef{Name: "ts", Type: "DateTime('UTC')", Codec: "Delta, ZSTD(3)"}, "ts DateTime('UTC') CODEC(Delta, ZSTD(3))"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.col.SQL())
		})
	}
}

func TestColumnDefValidate(t *testing.T) {
	assert.NoError(t, ColumnDef{Name: "ticker", Type: "String"}.Validate())
	assert.Error(t, ColumnDef{Type: "String"}.Validate())
	assert.Error(t, ColumnDef{Name: "ticker"}.Validate())
}

func TestColumnsToSchemaSQL(t *testing.T) {
	cols := []ColumnDef{
		{Name: "ticker", Type: "String"},
		{Name: "close", Type: "Float64"},
	}

	sql := ColumnsToSchemaSQL(cols)
	assert.Contains(t, sql, "ticker String")
	assert.Contains(t, sql, "close Float64")
	assert.Equal(t, 2, len(strings.Split(sql, "\n")))
}

func TestTableColumnsValid(t *testing.T) {
	for name, cols := range map[string][]ColumnDef{
		IngestStateTableName: IngestStateColumns,
		DimIndustryTableName: DimIndustryColumns,
		MembershipTableName:  MembershipColumns,
		PricesTableName:      PriceColumns,
		MarketCapTableName:   MarketCapColumns,
	} {
		require.NoError(t, ValidateColumns(cols), name)
		assert.Equal(t, len(cols), len(ColumnsToNameList(cols)), name)
	}
}
