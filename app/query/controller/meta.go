package controller

import (
	"net/http"
	"strings"

	"go.uber.org/zap"
)

// HandleMeta returns the covered price range for one ticker.
// Query parameters:
//   - symbol: the ticker to describe (required)
func (c *Controller) HandleMeta(w http.ResponseWriter, r *http.Request) {
	symbol := strings.TrimSpace(r.URL.Query().Get("symbol"))
	if symbol == "" {
		writeError(w, http.StatusBadRequest, "missing symbol")
		return
	}

	meta, err := c.App.DB.Meta(r.Context(), symbol)
	if err != nil {
		c.App.Logger.Error("meta query failed", zap.String("symbol", symbol), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "query failed")
		return
	}
	if meta.MinDate == nil {
		writeError(w, http.StatusNotFound, "symbol has no price history")
		return
	}

	writeJSON(w, http.StatusOK, meta)
}
