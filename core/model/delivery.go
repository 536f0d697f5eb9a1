package model

import (
	"fmt"
	"time"

	"github.com/mverdeau/geodispatch/core/geo"
)

// DeliveryStatus is the lifecycle state of a delivery.
type DeliveryStatus int

const (
	// StatusAssigned is the initial state after a vehicle has been reserved.
	StatusAssigned DeliveryStatus = iota
	// StatusEnRouteToPickup is set on the first location update after assignment.
	StatusEnRouteToPickup
	// StatusInTransit is set once the vehicle enters the pickup geofence.
	StatusInTransit
	// StatusDelivered is terminal; set once the vehicle enters the drop-off geofence.
	StatusDelivered
	// StatusFailed is terminal; set by explicit cancellation.
	StatusFailed
)

var statusNames = map[DeliveryStatus]string{
	StatusAssigned:        "assigned",
	StatusEnRouteToPickup: "en_route_to_pickup",
	StatusInTransit:       "in_transit",
	StatusDelivered:       "delivered",
	StatusFailed:          "failed",
}

func (s DeliveryStatus) String() string {
	if n, ok := statusNames[s]; ok {
		return n
	}
	return fmt.Sprintf("unknown(%d)", int(s))
}

// Terminal reports whether no further transition is permitted from s.
func (s DeliveryStatus) Terminal() bool {
	return s == StatusDelivered || s == StatusFailed
}

// ParseStatus converts a status name back to its enum value.
func ParseStatus(name string) (DeliveryStatus, error) {
	for s, n := range statusNames {
		if n == name {
			return s, nil
		}
	}
	return 0, fmt.Errorf("unknown delivery status %q", name)
}

// MarshalText implements encoding.TextMarshaler so statuses serialize by name.
func (s DeliveryStatus) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *DeliveryStatus) UnmarshalText(b []byte) error {
	v, err := ParseStatus(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

// DeliveryRequest is the transient input to the matcher. It is not persisted
// beyond producing a Delivery.
type DeliveryRequest struct {
	RequiredCapacity  float64
	Origin            geo.Point
	Destination       geo.Point
	EstimatedDuration time.Duration // optional; estimated from distance when zero
}

// Validate checks the request fields.
func (r DeliveryRequest) Validate() error {
	if r.RequiredCapacity <= 0 {
		return fmt.Errorf("required capacity must be positive")
	}
	if err := r.Origin.Validate(); err != nil {
		return fmt.Errorf("origin: %w", err)
	}
	if err := r.Destination.Validate(); err != nil {
		return fmt.Errorf("destination: %w", err)
	}
	if r.EstimatedDuration < 0 {
		return fmt.Errorf("estimated duration must not be negative")
	}
	return nil
}

// Delivery is a dispatched shipment bound to one vehicle. It is created by
// the matcher and mutated only by the lifecycle tracker; it is never deleted,
// only advanced to a terminal status.
type Delivery struct {
	ID                string         `json:"id"`
	VehicleID         string         `json:"vehicle_id"`
	Status            DeliveryStatus `json:"status"`
	RequiredCapacity  float64        `json:"required_capacity"`
	Origin            geo.Point      `json:"origin"`
	Destination       geo.Point      `json:"destination"`
	EstimatedDuration time.Duration  `json:"estimated_duration"`
	CreatedAt         time.Time      `json:"created_at"`
	// CompletedAt is nil until the delivery reaches a terminal status.
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// Active reports whether the delivery still occupies its vehicle.
func (d Delivery) Active() bool {
	return !d.Status.Terminal()
}
