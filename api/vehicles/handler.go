package vehicles

import (
	"encoding/json"
	"net/http"

	"github.com/mverdeau/geodispatch/core/vehiclestatus"
)

// NewStatusHandler returns an HTTP handler exposing vehicle status data via GET /api/vehicles/status.
func NewStatusHandler(store vehiclestatus.Store) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		f := vehiclestatus.Filter{
			Status:        r.URL.Query().Get("status"),
			OnlyAvailable: r.URL.Query().Get("available") == "true",
		}
		entries := store.List(f)
		if entries == nil {
			entries = []vehiclestatus.Status{}
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(entries); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	})
}
