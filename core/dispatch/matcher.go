// Package dispatch matches pending delivery requests to available vehicles.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mverdeau/geodispatch/core/events"
	"github.com/mverdeau/geodispatch/core/geo"
	"github.com/mverdeau/geodispatch/core/logger"
	"github.com/mverdeau/geodispatch/core/model"
	"github.com/mverdeau/geodispatch/core/pool"
	"github.com/mverdeau/geodispatch/core/storage"
	"github.com/mverdeau/geodispatch/internal/eventbus"
)

// ErrNoVehicleAvailable signals that no candidate meets the capacity
// requirement, or that every candidate lost the reservation race.
var ErrNoVehicleAvailable = errors.New("dispatch: no vehicle available")

// Matcher selects and reserves the nearest vehicle with sufficient capacity.
//
// Contested reservations are resolved by retrying against the remaining
// candidates rather than locking the whole pool: concurrent matches for
// disjoint vehicles stay fully parallel and only the contested vehicle
// serializes.
type Matcher struct {
	pool       pool.Pool
	deliveries storage.DeliveryStore
	cfg        Config
	log        logger.Logger
	bus        eventbus.EventBus

	now   func() time.Time
	newID func() string
}

// NewMatcher creates a Matcher. The bus is optional.
func NewMatcher(p pool.Pool, deliveries storage.DeliveryStore, cfg Config, log logger.Logger, bus eventbus.EventBus) (*Matcher, error) {
	if p == nil || deliveries == nil || log == nil {
		return nil, fmt.Errorf("dispatch: nil parameter provided to NewMatcher")
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Matcher{
		pool:       p,
		deliveries: deliveries,
		cfg:        cfg,
		log:        log,
		bus:        bus,
		now:        time.Now,
		newID:      uuid.NewString,
	}, nil
}

// Match reserves the nearest vehicle that can carry the requested load and
// returns the created delivery in assigned state. It fails with
// ErrNoVehicleAvailable when no candidate fits or all candidates were taken
// by concurrent callers.
func (m *Matcher) Match(ctx context.Context, req model.DeliveryRequest) (model.Delivery, error) {
	if err := req.Validate(); err != nil {
		return model.Delivery{}, err
	}

	candidates := m.pool.ListAvailable(req.RequiredCapacity)
	total := len(candidates)
	for len(candidates) > 0 {
		best, dist, err := nearest(candidates, req.Origin)
		if err != nil {
			return model.Delivery{}, err
		}
		switch err := m.pool.Reserve(candidates[best].ID); {
		case err == nil:
			return m.create(ctx, req, candidates[best], dist, total)
		case errors.Is(err, pool.ErrAlreadyReserved):
			// Lost the race for this vehicle; retry among the rest.
			reservationConflicts.Inc()
			m.log.Debugf("vehicle %s reserved concurrently, retrying", candidates[best].ID)
			candidates = append(candidates[:best], candidates[best+1:]...)
		case errors.Is(err, pool.ErrUnknownVehicle):
			candidates = append(candidates[:best], candidates[best+1:]...)
		default:
			return model.Delivery{}, fmt.Errorf("reserve vehicle %s: %w", candidates[best].ID, err)
		}
	}

	matchAttempts.WithLabelValues("no_vehicle").Inc()
	m.publish(events.MatchEvent{Candidates: total, Err: ErrNoVehicleAvailable})
	m.log.Infof("no vehicle available for capacity %.1f (%d candidates)", req.RequiredCapacity, total)
	return model.Delivery{}, ErrNoVehicleAvailable
}

// create builds and persists the delivery for the reserved vehicle. The
// reservation is rolled back when persistence fails.
func (m *Matcher) create(ctx context.Context, req model.DeliveryRequest, v model.Vehicle, dist float64, candidates int) (model.Delivery, error) {
	d := model.Delivery{
		ID:                m.newID(),
		VehicleID:         v.ID,
		Status:            model.StatusAssigned,
		RequiredCapacity:  req.RequiredCapacity,
		Origin:            req.Origin,
		Destination:       req.Destination,
		EstimatedDuration: req.EstimatedDuration,
		CreatedAt:         m.now(),
	}
	if d.EstimatedDuration == 0 {
		est, err := m.estimate(req.Origin, req.Destination)
		if err != nil {
			m.pool.Release(v.ID)
			return model.Delivery{}, err
		}
		d.EstimatedDuration = est
	}
	if err := m.deliveries.Save(ctx, d); err != nil {
		m.pool.Release(v.ID)
		return model.Delivery{}, fmt.Errorf("save delivery: %w", err)
	}

	matchAttempts.WithLabelValues("matched").Inc()
	matchDistance.Observe(dist)
	m.publish(events.MatchEvent{DeliveryID: d.ID, VehicleID: v.ID, DistanceM: dist, Candidates: candidates})
	m.log.Infof("delivery %s assigned to vehicle %s (%.0fm from pickup)", d.ID, v.ID, dist)
	return d, nil
}

// estimate derives a duration from the straight-line distance at the
// configured mean speed.
func (m *Matcher) estimate(origin, destination geo.Point) (time.Duration, error) {
	km, err := geo.DistanceKm(origin, destination)
	if err != nil {
		return 0, err
	}
	hours := km / m.cfg.MeanSpeedKMH
	return time.Duration(hours * float64(time.Hour)), nil
}

func (m *Matcher) publish(e eventbus.Event) {
	if m.bus != nil {
		m.bus.Publish(e)
	}
}

// nearest returns the index of the candidate closest to the origin and its
// distance. Equidistant candidates tie-break on the lowest vehicle id so the
// choice is reproducible.
func nearest(candidates []model.Vehicle, origin geo.Point) (int, float64, error) {
	best := -1
	bestDist := 0.0
	for i, v := range candidates {
		d, err := geo.Distance(*v.Location, origin)
		if err != nil {
			return 0, 0, err
		}
		if best == -1 || d < bestDist || (d == bestDist && v.ID < candidates[best].ID) {
			best = i
			bestDist = d
		}
	}
	return best, bestDist, nil
}
