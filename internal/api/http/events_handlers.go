package http

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/examgate/examgate/internal/audit"
)

// GET /events?limit=N — recent audit events, newest first.
func ListEventsHandler(log *audit.Log) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		events, err := log.Recent(r.Context(), limit)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		_ = json.NewEncoder(w).Encode(events)
	}
}
