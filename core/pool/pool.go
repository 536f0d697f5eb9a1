// Package pool holds the shared view of the vehicle fleet. The pool owns the
// availability flag: reservation and release are the only operations that
// mutate it, and Reserve is the single point where double-assignment of a
// vehicle is prevented.
package pool

import (
	"errors"
	"sync"
	"time"

	"github.com/mverdeau/geodispatch/core/geo"
	"github.com/mverdeau/geodispatch/core/model"
)

var (
	// ErrAlreadyReserved signals that another caller reserved the vehicle first.
	ErrAlreadyReserved = errors.New("pool: vehicle already reserved")
	// ErrUnknownVehicle signals an operation on a vehicle id the pool does not know.
	ErrUnknownVehicle = errors.New("pool: unknown vehicle")
)

// Pool is the contract consumed by the matcher and the lifecycle tracker.
type Pool interface {
	// ListAvailable returns vehicles with availability, capacity >= minCapacity
	// and a known location. Order is unspecified; callers re-sort.
	ListAvailable(minCapacity float64) []model.Vehicle
	// Reserve atomically transitions one vehicle from available to
	// unavailable. It fails with ErrAlreadyReserved when the vehicle is
	// already taken and ErrUnknownVehicle when the id does not exist.
	Reserve(vehicleID string) error
	// Release transitions a vehicle back to available. Releasing an
	// already-available vehicle is a no-op.
	Release(vehicleID string)
	// UpdateLocation overwrites the vehicle's last-known position.
	UpdateLocation(vehicleID string, p geo.Point, at time.Time) error
	// Get returns a snapshot of one vehicle.
	Get(vehicleID string) (model.Vehicle, bool)
}

// MemoryPool is the in-memory Pool implementation. A single mutex guards the
// vehicle map so that reserve-and-check is one atomic step.
type MemoryPool struct {
	mu       sync.Mutex
	vehicles map[string]*model.Vehicle
}

// NewMemoryPool creates an empty pool.
func NewMemoryPool() *MemoryPool {
	return &MemoryPool{vehicles: make(map[string]*model.Vehicle)}
}

// Add registers or replaces a vehicle. New vehicles start available unless
// stated otherwise.
func (p *MemoryPool) Add(v model.Vehicle) error {
	if err := v.Validate(); err != nil {
		return err
	}
	p.mu.Lock()
	cp := v
	if cp.Location != nil {
		loc := *cp.Location
		cp.Location = &loc
	}
	p.vehicles[v.ID] = &cp
	p.mu.Unlock()
	return nil
}

// ListAvailable implements Pool.
func (p *MemoryPool) ListAvailable(minCapacity float64) []model.Vehicle {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []model.Vehicle
	for _, v := range p.vehicles {
		if !v.Available || !v.CanCarry(minCapacity) || v.Location == nil {
			continue
		}
		out = append(out, snapshot(v))
	}
	return out
}

// List returns a snapshot of every vehicle in the pool.
func (p *MemoryPool) List() []model.Vehicle {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]model.Vehicle, 0, len(p.vehicles))
	for _, v := range p.vehicles {
		out = append(out, snapshot(v))
	}
	return out
}

// Reserve implements Pool.
func (p *MemoryPool) Reserve(vehicleID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	v, ok := p.vehicles[vehicleID]
	if !ok {
		return ErrUnknownVehicle
	}
	if !v.Available {
		return ErrAlreadyReserved
	}
	v.Available = false
	return nil
}

// Release implements Pool. Unknown ids and already-available vehicles are
// no-ops.
func (p *MemoryPool) Release(vehicleID string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if v, ok := p.vehicles[vehicleID]; ok {
		v.Available = true
	}
}

// UpdateLocation implements Pool.
func (p *MemoryPool) UpdateLocation(vehicleID string, pt geo.Point, at time.Time) error {
	if err := pt.Validate(); err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	v, ok := p.vehicles[vehicleID]
	if !ok {
		return ErrUnknownVehicle
	}
	loc := pt
	v.Location = &loc
	v.LocatedAt = at
	return nil
}

// Get implements Pool.
func (p *MemoryPool) Get(vehicleID string) (model.Vehicle, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	v, ok := p.vehicles[vehicleID]
	if !ok {
		return model.Vehicle{}, false
	}
	return snapshot(v), true
}

func snapshot(v *model.Vehicle) model.Vehicle {
	cp := *v
	if v.Location != nil {
		loc := *v.Location
		cp.Location = &loc
	}
	return cp
}
