package reports

import (
	"encoding/json"
	"net/http"

	"github.com/mverdeau/geodispatch/core/model"
	"github.com/mverdeau/geodispatch/core/report"
	"github.com/mverdeau/geodispatch/core/storage"
	"github.com/mverdeau/geodispatch/pkg/export"
)

// NewListHandler returns an HTTP handler exposing delivery reports via GET /api/reports.
// Pass warnings=true to restrict the list to overrun deliveries, and
// format=csv to download the list as CSV.
func NewListHandler(store storage.ReportStore) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		list, err := store.List(r.Context())
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if r.URL.Query().Get("warnings") == "true" {
			filtered := make([]model.Report, 0, len(list))
			for _, rep := range list {
				if rep.Warning {
					filtered = append(filtered, rep)
				}
			}
			list = filtered
		}
		if list == nil {
			list = []model.Report{}
		}
		if r.URL.Query().Get("format") == "csv" {
			w.Header().Set("Content-Type", "text/csv")
			w.Header().Set("Content-Disposition", `attachment; filename="reports.csv"`)
			if err := export.WriteCSV(w, list); err != nil {
				http.Error(w, err.Error(), http.StatusInternalServerError)
			}
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if err := export.WriteJSON(w, list); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	})
}

// NewStatsHandler returns an HTTP handler exposing aggregate variance
// statistics via GET /api/reports/stats.
func NewStatsHandler(store storage.ReportStore) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		list, err := store.List(r.Context())
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(report.Summarize(list)); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	})
}
