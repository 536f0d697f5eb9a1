package export

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mverdeau/geodispatch/core/model"
)

func sampleReports() []model.Report {
	return []model.Report{{
		ID:                "r1",
		DeliveryID:        "d1",
		VehicleID:         "v1",
		EstimatedDuration: time.Hour,
		ActualDuration:    78 * time.Minute,
		Variance:          18 * time.Minute,
		DistanceKm:        12.5,
		Warning:           true,
		CreatedAt:         time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
	}}
}

func TestWriteCSV(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, sampleReports()))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	require.Equal(t, "report_id,delivery_id,vehicle_id,estimated_minutes,actual_minutes,variance_minutes,distance_km,warning,created_at", lines[0])
	require.Contains(t, lines[1], "r1,d1,v1,60.00,78.00,18.00,12.500,true,")
}

func TestWriteJSON(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteJSON(&buf, sampleReports()))
	require.Contains(t, buf.String(), `"delivery_id":"d1"`)
}
