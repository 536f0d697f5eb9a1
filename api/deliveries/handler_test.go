package deliveries

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mverdeau/geodispatch/core/dispatch"
	"github.com/mverdeau/geodispatch/core/geo"
	"github.com/mverdeau/geodispatch/core/geocode"
	"github.com/mverdeau/geodispatch/core/lifecycle"
	"github.com/mverdeau/geodispatch/core/model"
	"github.com/mverdeau/geodispatch/core/pool"
	"github.com/mverdeau/geodispatch/core/report"
	"github.com/mverdeau/geodispatch/core/storage"
	"github.com/mverdeau/geodispatch/core/vehiclestatus"
	"github.com/mverdeau/geodispatch/infra/logger"
)

type staticGeocoder map[string]geo.Point

func (g staticGeocoder) Resolve(_ context.Context, addr geocode.Address) (geo.Point, error) {
	p, ok := g[addr.Street]
	if !ok {
		return geo.Point{}, geocode.ErrAddressNotFound
	}
	return p, nil
}

func newHandler(t *testing.T) (*Handler, *pool.MemoryPool) {
	t.Helper()
	p := pool.NewMemoryPool()
	deliveries := storage.NewMemoryDeliveryStore()
	gen, err := report.NewGenerator(storage.NewMemoryReportStore(), nil, report.Config{}, logger.NopLogger{})
	require.NoError(t, err)
	tracker, err := lifecycle.NewTracker(p, deliveries, gen, vehiclestatus.NewMemoryStore(), lifecycle.Config{}, logger.NopLogger{}, nil)
	require.NoError(t, err)
	matcher, err := dispatch.NewMatcher(p, deliveries, dispatch.Config{}, logger.NopLogger{}, nil)
	require.NoError(t, err)
	gc := staticGeocoder{"rua augusta": {Lat: -23.55, Lon: -46.63}}
	return NewHandler(matcher, tracker, deliveries, gc), p
}

func addVehicle(t *testing.T, p *pool.MemoryPool, id string, capacity float64, at geo.Point) {
	t.Helper()
	require.NoError(t, p.Add(model.Vehicle{ID: id, Capacity: capacity, Available: true}))
	require.NoError(t, p.UpdateLocation(id, at, time.Now()))
}

func doJSON(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestCreateDelivery(t *testing.T) {
	h, p := newHandler(t)
	addVehicle(t, p, "v1", 100, geo.Point{Lat: 0, Lon: 0})

	rec := doJSON(t, h, http.MethodPost, "/api/deliveries",
		`{"required_capacity":50,"origin":{"lat":0.01,"lon":0.01},"destination":{"lat":0.1,"lon":0.1}}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	require.Contains(t, rec.Body.String(), `"vehicle_id":"v1"`)
	require.Contains(t, rec.Body.String(), `"status":"assigned"`)

	v, _ := p.Get("v1")
	require.False(t, v.Available)
}

func TestCreateDelivery_WithAddresses(t *testing.T) {
	h, p := newHandler(t)
	addVehicle(t, p, "v1", 100, geo.Point{Lat: -23.55, Lon: -46.63})

	rec := doJSON(t, h, http.MethodPost, "/api/deliveries",
		`{"required_capacity":10,"origin_address":{"street":"rua augusta","number":100,"neighborhood":"centro"},"destination":{"lat":-23.6,"lon":-46.7}}`)
	require.Equal(t, http.StatusCreated, rec.Code)
}

func TestCreateDelivery_AddressNotFound(t *testing.T) {
	h, p := newHandler(t)
	addVehicle(t, p, "v1", 100, geo.Point{Lat: 0, Lon: 0})

	rec := doJSON(t, h, http.MethodPost, "/api/deliveries",
		`{"required_capacity":10,"origin_address":{"street":"nowhere","number":1,"neighborhood":"x"},"destination":{"lat":1,"lon":1}}`)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateDelivery_NoVehicle(t *testing.T) {
	h, _ := newHandler(t)
	rec := doJSON(t, h, http.MethodPost, "/api/deliveries",
		`{"required_capacity":50,"origin":{"lat":0,"lon":0},"destination":{"lat":1,"lon":1}}`)
	require.Equal(t, http.StatusConflict, rec.Code)
}

func TestCreateDelivery_InvalidBody(t *testing.T) {
	h, _ := newHandler(t)
	rec := doJSON(t, h, http.MethodPost, "/api/deliveries", `{"required_capacity":`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateDelivery_InvalidCoordinates(t *testing.T) {
	h, p := newHandler(t)
	addVehicle(t, p, "v1", 100, geo.Point{Lat: 0, Lon: 0})
	rec := doJSON(t, h, http.MethodPost, "/api/deliveries",
		`{"required_capacity":50,"origin":{"lat":91,"lon":0},"destination":{"lat":1,"lon":1}}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetAndListDeliveries(t *testing.T) {
	h, p := newHandler(t)
	addVehicle(t, p, "v1", 100, geo.Point{Lat: 0, Lon: 0})

	rec := doJSON(t, h, http.MethodPost, "/api/deliveries",
		`{"required_capacity":50,"origin":{"lat":0.01,"lon":0.01},"destination":{"lat":0.1,"lon":0.1}}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	var created model.Delivery
	require.NoError(t, jsonUnmarshal(rec.Body.Bytes(), &created))

	rec = doJSON(t, h, http.MethodGet, "/api/deliveries/"+created.ID, "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), created.ID)

	rec = doJSON(t, h, http.MethodGet, "/api/deliveries", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), created.ID)

	rec = doJSON(t, h, http.MethodGet, "/api/deliveries/unknown", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCancelDelivery(t *testing.T) {
	h, p := newHandler(t)
	addVehicle(t, p, "v1", 100, geo.Point{Lat: 0, Lon: 0})

	rec := doJSON(t, h, http.MethodPost, "/api/deliveries",
		`{"required_capacity":50,"origin":{"lat":0.01,"lon":0.01},"destination":{"lat":0.1,"lon":0.1}}`)
	require.Equal(t, http.StatusCreated, rec.Code)
	var created model.Delivery
	require.NoError(t, jsonUnmarshal(rec.Body.Bytes(), &created))

	rec = doJSON(t, h, http.MethodPost, "/api/deliveries/"+created.ID+"/cancel", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), `"status":"failed"`)

	v, _ := p.Get("v1")
	require.True(t, v.Available)

	// Cancelling a terminal delivery is a conflict.
	rec = doJSON(t, h, http.MethodPost, "/api/deliveries/"+created.ID+"/cancel", "")
	require.Equal(t, http.StatusConflict, rec.Code)

	rec = doJSON(t, h, http.MethodPost, "/api/deliveries/unknown/cancel", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMethodNotAllowed(t *testing.T) {
	h, _ := newHandler(t)
	rec := doJSON(t, h, http.MethodDelete, "/api/deliveries", "")
	require.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func jsonUnmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }
