package controller

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mewroo/marketx/pkg/db"
)

const defaultHistoryWindowDays = 365

type historyResponse struct {
	Symbol      string            `json:"symbol"`
	Granularity string            `json:"granularity"`
	Start       time.Time         `json:"start"`
	End         time.Time         `json:"end"`
	Points      []db.HistoryPoint `json:"points"`
}

// HandleHistory returns bucketed closing prices for one ticker.
// Query parameters:
//   - symbol: the ticker to chart (required)
//   - start, end: bounds as YYYY-MM-DD or RFC3339; default to the past year
//   - granularity: day (default), week, or month
func (c *Controller) HandleHistory(w http.ResponseWriter, r *http.Request) {
	qs := r.URL.Query()

	symbol := strings.TrimSpace(qs.Get("symbol"))
	if symbol == "" {
		writeError(w, http.StatusBadRequest, "missing symbol")
		return
	}

	granularity := qs.Get("granularity")
	if granularity == "" {
		granularity = "day"
	}
	switch granularity {
	case "day", "week", "month":
	default:
		writeError(w, http.StatusBadRequest, "invalid granularity, must be 'day', 'week' or 'month'")
		return
	}

	now := time.Now().UTC()
	end := now
	if v := qs.Get("end"); v != "" {
		t, err := parseTimeParam(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid end")
			return
		}
		end = t
	}
	start := end.AddDate(0, 0, -defaultHistoryWindowDays)
	if v := qs.Get("start"); v != "" {
		t, err := parseTimeParam(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid start")
			return
		}
		start = t
	}
	if !start.Before(end) {
		writeError(w, http.StatusBadRequest, "start must be before end")
		return
	}

	ctx := r.Context()
	cacheKey := fmt.Sprintf("history:%s:%d:%d:%s", symbol, start.Unix(), end.Unix(), granularity)

	if c.App.RedisClient != nil {
		var cached historyResponse
		if c.App.RedisClient.GetJSON(ctx, cacheKey, &cached) {
			writeJSON(w, http.StatusOK, cached)
			return
		}
	}

	points, err := c.App.DB.History(ctx, symbol, start, end, granularity)
	if err != nil {
		c.App.Logger.Error("history query failed", zap.String("symbol", symbol), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "query failed")
		return
	}
	if points == nil {
		points = []db.HistoryPoint{}
	}

	resp := historyResponse{
		Symbol:      symbol,
		Granularity: granularity,
		Start:       start,
		End:         end,
		Points:      points,
	}

	if c.App.RedisClient != nil {
		c.App.RedisClient.SetJSON(ctx, cacheKey, resp, 0)
	}

	writeJSON(w, http.StatusOK, resp)
}

// parseTimeParam accepts RFC3339 timestamps or bare dates, both taken as UTC.
func parseTimeParam(v string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t.UTC(), nil
	}
	return time.ParseInLocation("2006-01-02", v, time.UTC)
}
