package http

import (
	"encoding/json"
	"fmt"
	"net/http"

	"ledgerview/internal/core"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

// parseDateRange parses optional YYYY-MM-DD range bounds; empty means
// unbounded on that side.
func parseDateRange(start, end string) (core.Date, core.Date, error) {
	var startDate, endDate core.Date
	var err error
	if start != "" {
		if startDate, err = core.ParseDate(start); err != nil {
			return core.Date{}, core.Date{}, fmt.Errorf("invalid start_date %q", start)
		}
	}
	if end != "" {
		if endDate, err = core.ParseDate(end); err != nil {
			return core.Date{}, core.Date{}, fmt.Errorf("invalid end_date %q", end)
		}
	}
	if !startDate.IsZero() && !endDate.IsZero() && endDate.Before(startDate.Time) {
		return core.Date{}, core.Date{}, fmt.Errorf("end_date before start_date")
	}
	return startDate, endDate, nil
}
