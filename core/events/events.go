// Package events defines the event types published on the internal bus.
package events

import (
	"time"

	"github.com/mverdeau/geodispatch/core/model"
)

// MatchEvent is published after a matching attempt.
type MatchEvent struct {
	DeliveryID string
	VehicleID  string
	DistanceM  float64
	Candidates int
	Err        error
}

// TransitionEvent is published for every delivery status change.
type TransitionEvent struct {
	DeliveryID string
	VehicleID  string
	From       model.DeliveryStatus
	To         model.DeliveryStatus
	At         time.Time
}

// ReportEvent is published once a delivery report has been generated.
type ReportEvent struct {
	Report model.Report
}

// LocationEvent is published for every applied vehicle location update.
type LocationEvent struct {
	VehicleID string
	Lat       float64
	Lon       float64
	At        time.Time
}
