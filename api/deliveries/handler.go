package deliveries

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/mverdeau/geodispatch/core/dispatch"
	"github.com/mverdeau/geodispatch/core/geo"
	"github.com/mverdeau/geodispatch/core/geocode"
	"github.com/mverdeau/geodispatch/core/lifecycle"
	"github.com/mverdeau/geodispatch/core/model"
	"github.com/mverdeau/geodispatch/core/storage"
)

// CreateRequest is the POST /api/deliveries payload. Origin and destination
// are given either as coordinates or as a street address to geocode.
type CreateRequest struct {
	RequiredCapacity   float64          `json:"required_capacity"`
	Origin             *geo.Point       `json:"origin,omitempty"`
	OriginAddress      *geocode.Address `json:"origin_address,omitempty"`
	Destination        *geo.Point       `json:"destination,omitempty"`
	DestinationAddress *geocode.Address `json:"destination_address,omitempty"`
	EstimatedMinutes   float64          `json:"estimated_minutes,omitempty"`
}

// Handler serves the delivery endpoints under /api/deliveries.
type Handler struct {
	matcher    *dispatch.Matcher
	tracker    *lifecycle.Tracker
	deliveries storage.DeliveryStore
	geocoder   geocode.Geocoder
}

// NewHandler wires the delivery endpoints. The geocoder may be nil, in which
// case address-based requests are rejected.
func NewHandler(m *dispatch.Matcher, tr *lifecycle.Tracker, store storage.DeliveryStore, gc geocode.Geocoder) *Handler {
	return &Handler{matcher: m, tracker: tr, deliveries: store, geocoder: gc}
}

// ServeHTTP routes requests by method and path below /api/deliveries.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/api/deliveries")
	rest = strings.Trim(rest, "/")

	switch {
	case rest == "" && r.Method == http.MethodPost:
		h.create(w, r)
	case rest == "" && r.Method == http.MethodGet:
		h.list(w, r)
	case strings.HasSuffix(rest, "/cancel") && r.Method == http.MethodPost:
		h.cancel(w, r, strings.TrimSuffix(rest, "/cancel"))
	case rest != "" && !strings.Contains(rest, "/") && r.Method == http.MethodGet:
		h.get(w, r, rest)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var body CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid body: "+err.Error(), http.StatusBadRequest)
		return
	}

	origin, err := h.resolvePoint(r.Context(), body.Origin, body.OriginAddress)
	if err != nil {
		writeResolveError(w, "origin", err)
		return
	}
	dest, err := h.resolvePoint(r.Context(), body.Destination, body.DestinationAddress)
	if err != nil {
		writeResolveError(w, "destination", err)
		return
	}

	req := model.DeliveryRequest{
		RequiredCapacity:  body.RequiredCapacity,
		Origin:            origin,
		Destination:       dest,
		EstimatedDuration: time.Duration(body.EstimatedMinutes * float64(time.Minute)),
	}
	d, err := h.matcher.Match(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, dispatch.ErrNoVehicleAvailable):
			http.Error(w, err.Error(), http.StatusConflict)
		case errors.Is(err, geo.ErrInvalidCoordinate):
			http.Error(w, err.Error(), http.StatusBadRequest)
		default:
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
		return
	}
	if err := h.tracker.Track(d); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	writeJSON(w, d)
}

func (h *Handler) resolvePoint(ctx context.Context, p *geo.Point, addr *geocode.Address) (geo.Point, error) {
	if p != nil {
		return *p, p.Validate()
	}
	if addr == nil {
		return geo.Point{}, errors.New("either coordinates or an address is required")
	}
	if h.geocoder == nil {
		return geo.Point{}, errors.New("address lookup is not configured")
	}
	return h.geocoder.Resolve(ctx, *addr)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	list, err := h.deliveries.List(r.Context())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	if list == nil {
		list = []model.Delivery{}
	}
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, list)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request, id string) {
	d, err := h.deliveries.Load(r.Context(), id)
	if errors.Is(err, storage.ErrNotFound) {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	writeJSON(w, d)
}

func (h *Handler) cancel(w http.ResponseWriter, r *http.Request, id string) {
	err := h.tracker.Cancel(r.Context(), id)
	switch {
	case err == nil:
		h.get(w, r, id)
	case errors.Is(err, storage.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, lifecycle.ErrDeliveryTerminal):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func writeResolveError(w http.ResponseWriter, field string, err error) {
	if errors.Is(err, geocode.ErrAddressNotFound) {
		http.Error(w, field+": "+err.Error(), http.StatusNotFound)
		return
	}
	http.Error(w, field+": "+err.Error(), http.StatusBadRequest)
}

func writeJSON(w http.ResponseWriter, v any) {
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
