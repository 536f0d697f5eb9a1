// Package vehiclestatus keeps a queryable snapshot of each vehicle's current
// state for the API layer.
package vehiclestatus

import (
	"sort"
	"sync"
	"time"

	"github.com/mverdeau/geodispatch/core/geo"
)

// Status captures the current known state of a vehicle.
type Status struct {
	VehicleID string `json:"vehicle_id"`
	// DeliveryID is the active delivery bound to the vehicle, empty when idle.
	DeliveryID    string     `json:"delivery_id,omitempty"`
	CurrentStatus string     `json:"current_status"`
	Available     bool       `json:"available"`
	Location      *geo.Point `json:"location,omitempty"`
	UpdatedAt     time.Time  `json:"updated_at"`
}

// Filter narrows List results.
type Filter struct {
	Status        string
	OnlyAvailable bool
}

// Store persists vehicle status snapshots.
type Store interface {
	Set(Status)
	List(Filter) []Status
	// RecordTransition updates the delivery binding and status of a vehicle.
	RecordTransition(vehicleID, deliveryID, status string, at time.Time)
	// RecordLocation updates the last known position of a vehicle.
	RecordLocation(vehicleID string, p geo.Point, at time.Time)
}

// MemoryStore is the default in-memory Store implementation.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string]Status
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: map[string]Status{}}
}

func (s *MemoryStore) Set(st Status) {
	s.mu.Lock()
	s.data[st.VehicleID] = st
	s.mu.Unlock()
}

func (s *MemoryStore) RecordTransition(vehicleID, deliveryID, status string, at time.Time) {
	s.mu.Lock()
	st := s.data[vehicleID]
	if st.VehicleID == "" {
		st.VehicleID = vehicleID
	}
	st.DeliveryID = deliveryID
	st.CurrentStatus = status
	st.Available = deliveryID == ""
	st.UpdatedAt = at
	s.data[vehicleID] = st
	s.mu.Unlock()
}

func (s *MemoryStore) RecordLocation(vehicleID string, p geo.Point, at time.Time) {
	s.mu.Lock()
	st := s.data[vehicleID]
	if st.VehicleID == "" {
		st.VehicleID = vehicleID
		st.Available = true
		st.CurrentStatus = "idle"
	}
	loc := p
	st.Location = &loc
	st.UpdatedAt = at
	s.data[vehicleID] = st
	s.mu.Unlock()
}

func (s *MemoryStore) List(f Filter) []Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	res := make([]Status, 0, len(s.data))
	for _, st := range s.data {
		if f.Status != "" && st.CurrentStatus != f.Status {
			continue
		}
		if f.OnlyAvailable && !st.Available {
			continue
		}
		res = append(res, st)
	}
	sort.Slice(res, func(i, j int) bool { return res[i].VehicleID < res[j].VehicleID })
	return res
}
