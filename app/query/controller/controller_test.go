package controller

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/mewroo/marketx/app/query/types"
)

func setupTestController(t *testing.T) *Controller {
	t.Helper()
	logger := zap.NewNop()
	return NewController(&types.App{Logger: logger})
}

func TestHandleSymbolsRejectsBadLimit(t *testing.T) {
	c := setupTestController(t)

	for _, limit := range []string{"0", "-5", "abc"} {
		req := httptest.NewRequest(http.MethodGet, "/api/finance/symbols?limit="+limit, nil)
		rec := httptest.NewRecorder()

		c.HandleSymbols(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code, limit)
	}
}

func TestHandleMetaRequiresSymbol(t *testing.T) {
	c := setupTestController(t)

	req := httptest.NewRequest(http.MethodGet, "/api/finance/meta", nil)
	rec := httptest.NewRecorder()

	c.HandleMeta(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandleHistoryValidation(t *testing.T) {
	c := setupTestController(t)

	tests := []struct {
		name  string
		query string
	}{
		{"missing symbol", ""},
		{"bad granularity", "symbol=AAPL&granularity=hour"},
		{"bad start", "symbol=AAPL&start=yesterday"},
		{"bad end", "symbol=AAPL&end=2024-13-99"},
		{"inverted range", "symbol=AAPL&start=2024-06-01&end=2024-01-01"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/finance/history?"+tt.query, nil)
			rec := httptest.NewRecorder()

			c.HandleHistory(rec, req)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestParseTimeParam(t *testing.T) {
	got, err := parseTimeParam("2024-03-15")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), got)

	got, err = parseTimeParam("2024-03-15T09:30:00Z")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 15, 9, 30, 0, 0, time.UTC), got)

	_, err = parseTimeParam("last tuesday")
	assert.Error(t, err)
}

func TestWithCORSPreflight(t *testing.T) {
	handler := WithCORS(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Error("preflight must not reach the handler")
	}))

	req := httptest.NewRequest(http.MethodOptions, "/api/finance/symbols", nil)
	req.Header.Set("Origin", "http://localhost:5173")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "http://localhost:5173", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Equal(t, "true", rec.Header().Get("Access-Control-Allow-Credentials"))
}
