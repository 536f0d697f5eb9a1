package mqtt

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/mverdeau/geodispatch/core/geo"
)

// LocationUpdate is the wire format published by vehicles on
// <prefix>/<vehicle_id>. Timestamps are Unix milliseconds.
type LocationUpdate struct {
	VehicleID string  `json:"vehicle_id"`
	Lat       float64 `json:"lat"`
	Lon       float64 `json:"lon"`
	Ts        int64   `json:"ts"`
}

// EncodeLocation marshals a location update for publishing.
func EncodeLocation(vehicleID string, p geo.Point, at time.Time) ([]byte, error) {
	return json.Marshal(LocationUpdate{VehicleID: vehicleID, Lat: p.Lat, Lon: p.Lon, Ts: at.UnixMilli()})
}

// DecodeLocation parses a location payload and validates its coordinates.
func DecodeLocation(payload []byte) (LocationUpdate, geo.Point, time.Time, error) {
	var u LocationUpdate
	if err := json.Unmarshal(payload, &u); err != nil {
		return u, geo.Point{}, time.Time{}, fmt.Errorf("decode location: %w", err)
	}
	if u.VehicleID == "" {
		return u, geo.Point{}, time.Time{}, fmt.Errorf("decode location: missing vehicle_id")
	}
	p := geo.Point{Lat: u.Lat, Lon: u.Lon}
	if err := p.Validate(); err != nil {
		return u, geo.Point{}, time.Time{}, err
	}
	at := time.UnixMilli(u.Ts)
	if u.Ts == 0 {
		at = time.Now()
	}
	return u, p, at, nil
}

// LocationTopic returns the per-vehicle topic under the given prefix.
func LocationTopic(prefix, vehicleID string) string {
	return prefix + "/" + vehicleID
}

// vehicleIDFromTopic extracts the last topic segment.
func vehicleIDFromTopic(topic string) string {
	idx := strings.LastIndexByte(topic, '/')
	if idx < 0 {
		return topic
	}
	return topic[idx+1:]
}
