// Package lifecycle owns the delivery state machine. Statuses advance
// monotonically from assigned through en_route_to_pickup and in_transit to
// delivered, driven by vehicle location updates evaluated against the pickup
// and drop-off geofences. A failed terminal state is reachable from any
// non-terminal state through explicit cancellation.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/mverdeau/geodispatch/core/events"
	"github.com/mverdeau/geodispatch/core/geo"
	"github.com/mverdeau/geodispatch/core/logger"
	"github.com/mverdeau/geodispatch/core/model"
	"github.com/mverdeau/geodispatch/core/pool"
	"github.com/mverdeau/geodispatch/core/report"
	"github.com/mverdeau/geodispatch/core/storage"
	"github.com/mverdeau/geodispatch/core/vehiclestatus"
	"github.com/mverdeau/geodispatch/internal/eventbus"
)

// ErrDeliveryTerminal signals a status-changing operation on a delivery that
// already reached a terminal status.
var ErrDeliveryTerminal = errors.New("lifecycle: delivery already terminal")

// ErrAlreadyTracked signals an attempt to track a second active delivery for
// the same vehicle.
var ErrAlreadyTracked = errors.New("lifecycle: vehicle already has an active delivery")

// Tracker advances deliveries through their lifecycle. Updates for the same
// vehicle are applied strictly in the order received; updates for different
// vehicles proceed in parallel.
type Tracker struct {
	pool       pool.Pool
	deliveries storage.DeliveryStore
	reports    *report.Generator
	status     vehiclestatus.Store
	cfg        Config
	log        logger.Logger
	bus        eventbus.EventBus

	mu     sync.Mutex
	active map[string]string      // vehicle id -> active delivery id
	locks  map[string]*sync.Mutex // per-vehicle update serialization

	now func() time.Time
}

// NewTracker creates a Tracker. The bus and status store are optional.
func NewTracker(p pool.Pool, deliveries storage.DeliveryStore, gen *report.Generator, status vehiclestatus.Store, cfg Config, log logger.Logger, bus eventbus.EventBus) (*Tracker, error) {
	if p == nil || deliveries == nil || gen == nil || log == nil {
		return nil, fmt.Errorf("lifecycle: nil parameter provided to NewTracker")
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Tracker{
		pool:       p,
		deliveries: deliveries,
		reports:    gen,
		status:     status,
		cfg:        cfg,
		log:        log,
		bus:        bus,
		active:     make(map[string]string),
		locks:      make(map[string]*sync.Mutex),
		now:        time.Now,
	}, nil
}

// Track registers a freshly matched delivery so location updates for its
// vehicle start driving the state machine.
func (t *Tracker) Track(d model.Delivery) error {
	if d.Status.Terminal() {
		return ErrDeliveryTerminal
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if cur, ok := t.active[d.VehicleID]; ok {
		return fmt.Errorf("%w: vehicle %s bound to delivery %s", ErrAlreadyTracked, d.VehicleID, cur)
	}
	t.active[d.VehicleID] = d.ID
	activeDeliveries.Inc()
	if t.status != nil {
		t.status.RecordTransition(d.VehicleID, d.ID, d.Status.String(), t.now())
	}
	return nil
}

// Resume reloads non-terminal deliveries from the store after a restart.
func (t *Tracker) Resume(ctx context.Context) error {
	all, err := t.deliveries.List(ctx)
	if err != nil {
		return fmt.Errorf("list deliveries: %w", err)
	}
	for _, d := range all {
		if !d.Active() {
			continue
		}
		if err := t.Track(d); err != nil {
			t.log.Warnf("resume delivery %s: %v", d.ID, err)
		}
	}
	return nil
}

// ActiveDelivery returns the id of the delivery currently bound to a vehicle.
func (t *Tracker) ActiveDelivery(vehicleID string) (string, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	id, ok := t.active[vehicleID]
	return id, ok
}

// vehicleLock returns the serialization mutex for one vehicle id.
func (t *Tracker) vehicleLock(vehicleID string) *sync.Mutex {
	t.mu.Lock()
	defer t.mu.Unlock()
	l, ok := t.locks[vehicleID]
	if !ok {
		l = &sync.Mutex{}
		t.locks[vehicleID] = l
	}
	return l
}

// OnLocationUpdate applies a reported position to the pool and re-evaluates
// the vehicle's active delivery against the geofences. Updates for unknown
// vehicles are dropped with pool.ErrUnknownVehicle; updates for vehicles with
// no active delivery only move the vehicle. Duplicate or stale updates that
// satisfy no new transition are no-ops.
func (t *Tracker) OnLocationUpdate(ctx context.Context, vehicleID string, p geo.Point, at time.Time) error {
	l := t.vehicleLock(vehicleID)
	l.Lock()
	defer l.Unlock()

	if err := t.pool.UpdateLocation(vehicleID, p, at); err != nil {
		if errors.Is(err, pool.ErrUnknownVehicle) {
			droppedUpdates.Inc()
		}
		return err
	}
	if t.status != nil {
		t.status.RecordLocation(vehicleID, p, at)
	}
	t.publish(events.LocationEvent{VehicleID: vehicleID, Lat: p.Lat, Lon: p.Lon, At: at})

	t.mu.Lock()
	deliveryID, ok := t.active[vehicleID]
	t.mu.Unlock()
	if !ok {
		return nil
	}

	d, err := t.deliveries.Load(ctx, deliveryID)
	if err != nil {
		return fmt.Errorf("load delivery %s: %w", deliveryID, err)
	}
	return t.advance(ctx, d, p, at)
}

// advance fires every transition the current position newly satisfies. A
// single update may cascade, e.g. a first report already inside the pickup
// geofence moves assigned straight to in_transit.
func (t *Tracker) advance(ctx context.Context, d model.Delivery, p geo.Point, at time.Time) error {
	for {
		next, err := t.next(d, p)
		if err != nil {
			return err
		}
		if next == d.Status {
			return nil
		}
		from := d.Status
		d.Status = next
		if next == model.StatusDelivered {
			completed := at
			d.CompletedAt = &completed
		}
		if err := t.deliveries.Save(ctx, d); err != nil {
			// Roll back the in-memory step so a retried update re-fires.
			d.Status = from
			d.CompletedAt = nil
			return fmt.Errorf("save delivery %s: %w", d.ID, err)
		}
		t.recordTransition(d, from, at)
		if next == model.StatusDelivered {
			t.complete(ctx, d, at)
			return nil
		}
	}
}

// next returns the status the delivery should hold given the vehicle
// position. Transitions are monotonic: a position outside an already-passed
// geofence never moves the status backward.
func (t *Tracker) next(d model.Delivery, p geo.Point) (model.DeliveryStatus, error) {
	switch d.Status {
	case model.StatusAssigned:
		// First location report after assignment: the vehicle is moving.
		return model.StatusEnRouteToPickup, nil
	case model.StatusEnRouteToPickup:
		dist, err := geo.Distance(p, d.Origin)
		if err != nil {
			return d.Status, err
		}
		if dist <= t.cfg.PickupRadiusM {
			return model.StatusInTransit, nil
		}
	case model.StatusInTransit:
		dist, err := geo.Distance(p, d.Destination)
		if err != nil {
			return d.Status, err
		}
		if dist <= t.cfg.DropoffRadiusM {
			return model.StatusDelivered, nil
		}
	}
	return d.Status, nil
}

// complete releases the vehicle and emits the delivery report.
func (t *Tracker) complete(ctx context.Context, d model.Delivery, at time.Time) {
	t.mu.Lock()
	delete(t.active, d.VehicleID)
	t.mu.Unlock()
	activeDeliveries.Dec()
	t.pool.Release(d.VehicleID)
	if t.status != nil {
		t.status.RecordTransition(d.VehicleID, "", "idle", at)
	}

	actual := at.Sub(d.CreatedAt)
	distKm, err := geo.DistanceKm(d.Origin, d.Destination)
	if err != nil {
		t.log.Errorf("delivery %s distance: %v", d.ID, err)
	}
	r, err := t.reports.Generate(ctx, d, actual, distKm)
	if err != nil {
		t.log.Errorf("delivery %s report: %v", d.ID, err)
		return
	}
	t.publish(events.ReportEvent{Report: r})
}

// Cancel moves a non-terminal delivery to failed and frees its vehicle.
func (t *Tracker) Cancel(ctx context.Context, deliveryID string) error {
	d, err := t.deliveries.Load(ctx, deliveryID)
	if err != nil {
		return err
	}

	l := t.vehicleLock(d.VehicleID)
	l.Lock()
	defer l.Unlock()

	// Reload under the vehicle lock: a concurrent location update may have
	// completed the delivery in the meantime.
	d, err = t.deliveries.Load(ctx, deliveryID)
	if err != nil {
		return err
	}
	if d.Status.Terminal() {
		return ErrDeliveryTerminal
	}

	from := d.Status
	at := t.now()
	d.Status = model.StatusFailed
	d.CompletedAt = &at
	if err := t.deliveries.Save(ctx, d); err != nil {
		return fmt.Errorf("save delivery %s: %w", d.ID, err)
	}

	t.mu.Lock()
	delete(t.active, d.VehicleID)
	t.mu.Unlock()
	activeDeliveries.Dec()
	t.pool.Release(d.VehicleID)
	if t.status != nil {
		t.status.RecordTransition(d.VehicleID, "", "idle", at)
	}
	t.recordTransition(d, from, at)
	return nil
}

func (t *Tracker) recordTransition(d model.Delivery, from model.DeliveryStatus, at time.Time) {
	transitions.WithLabelValues(d.Status.String()).Inc()
	if t.status != nil && !d.Status.Terminal() {
		t.status.RecordTransition(d.VehicleID, d.ID, d.Status.String(), at)
	}
	t.publish(events.TransitionEvent{DeliveryID: d.ID, VehicleID: d.VehicleID, From: from, To: d.Status, At: at})
	t.log.Infof("delivery %s: %s -> %s", d.ID, from, d.Status)
}

func (t *Tracker) publish(e eventbus.Event) {
	if t.bus != nil {
		t.bus.Publish(e)
	}
}
