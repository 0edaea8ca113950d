package api

import (
	"net/http"
	"strconv"

	"windryft.app/pocket-windryft/internal/store"
)

const defaultAnalyticsRange = 7

// AnalyticsHandler returns the rows dated within the last range days, oldest first.
func (h *APIHandler) AnalyticsHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(w, r, "userId", "user ID")
	if !ok {
		return
	}
	days := defaultAnalyticsRange
	if raw := r.URL.Query().Get("range"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeMessage(w, http.StatusBadRequest, "Invalid range")
			return
		}
		days = n
	}

	since := h.now().AddDate(0, 0, -days).Format(store.DateLayout)
	rows, err := h.store.ListDailyAnalytics(r.Context(), userID, since)
	if err != nil {
		writeError(w, err, "Failed to load analytics")
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

type UpsertAnalyticsRequest struct {
	Date         string `json:"date" validate:"required,datetime=2006-01-02"`
	FocusTime    int    `json:"focusTime" validate:"min=0"`
	FlowStates   int    `json:"flowStates" validate:"min=0"`
	Productivity int    `json:"productivity" validate:"min=0,max=100"`
}

func (h *APIHandler) UpsertAnalyticsHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := pathID(w, r, "userId", "user ID")
	if !ok {
		return
	}
	var req UpsertAnalyticsRequest
	if !h.decode(w, r, &req, "Invalid analytics data") {
		return
	}
	row, err := h.store.UpsertDailyAnalytics(r.Context(), &store.DailyAnalytics{
		UserID:       userID,
		Date:         req.Date,
		FocusTime:    req.FocusTime,
		FlowStates:   req.FlowStates,
		Productivity: req.Productivity,
	})
	if err != nil {
		writeError(w, err, "Failed to save analytics")
		return
	}
	writeJSON(w, http.StatusOK, row)
}
