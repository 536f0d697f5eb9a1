// Package export renders delivery reports for download.
package export

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"strconv"
	"time"

	"github.com/mverdeau/geodispatch/core/model"
)

// WriteJSON writes the reports to w in JSON format.
func WriteJSON(w io.Writer, reports []model.Report) error {
	enc := json.NewEncoder(w)
	return enc.Encode(reports)
}

// WriteCSV writes the reports to w as CSV.
func WriteCSV(w io.Writer, reports []model.Report) error {
	cw := csv.NewWriter(w)
	header := []string{"report_id", "delivery_id", "vehicle_id", "estimated_minutes", "actual_minutes", "variance_minutes", "distance_km", "warning", "created_at"}
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, r := range reports {
		rec := []string{
			r.ID,
			r.DeliveryID,
			r.VehicleID,
			formatMinutes(r.EstimatedDuration),
			formatMinutes(r.ActualDuration),
			formatMinutes(r.Variance),
			strconv.FormatFloat(r.DistanceKm, 'f', 3, 64),
			strconv.FormatBool(r.Warning),
			r.CreatedAt.Format(time.RFC3339),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatMinutes(d time.Duration) string {
	return strconv.FormatFloat(d.Minutes(), 'f', 2, 64)
}
