package controller

import (
	"math"
	"net/http"
	"strconv"

	"go.uber.org/zap"
)

const (
	defaultSymbolLimit = 50
	maxSymbolLimit     = 500
)

// HandleSymbols returns distinct tickers that have price history.
// Query parameters:
//   - limit: max number of results (default 50, capped at 500)
func (c *Controller) HandleSymbols(w http.ResponseWriter, r *http.Request) {
	limit := defaultSymbolLimit
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = int(math.Min(float64(n), maxSymbolLimit))
	}

	symbols, err := c.App.DB.Symbols(r.Context(), limit)
	if err != nil {
		c.App.Logger.Error("symbols query failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "query failed")
		return
	}
	if symbols == nil {
		symbols = []string{}
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"symbols": symbols,
		"limit":   limit,
	})
}
