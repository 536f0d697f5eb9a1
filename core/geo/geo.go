package geo

import (
	"errors"
	"fmt"
	"math"
)

// earthRadiusM is the mean earth radius used for great-circle distances.
const earthRadiusM = 6371000.0

// ErrInvalidCoordinate is returned when a latitude or longitude is outside
// its valid range.
var ErrInvalidCoordinate = errors.New("geo: invalid coordinate")

// Point is a WGS84 latitude/longitude pair in decimal degrees.
type Point struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Validate checks that the point lies within [-90,90] latitude and
// [-180,180] longitude.
func (p Point) Validate() error {
	if p.Lat < -90 || p.Lat > 90 || math.IsNaN(p.Lat) {
		return fmt.Errorf("%w: latitude %v", ErrInvalidCoordinate, p.Lat)
	}
	if p.Lon < -180 || p.Lon > 180 || math.IsNaN(p.Lon) {
		return fmt.Errorf("%w: longitude %v", ErrInvalidCoordinate, p.Lon)
	}
	return nil
}

// Distance returns the great-circle distance between a and b in meters using
// the haversine formula. Both points must be valid.
func Distance(a, b Point) (float64, error) {
	if err := a.Validate(); err != nil {
		return 0, err
	}
	if err := b.Validate(); err != nil {
		return 0, err
	}
	phi1 := a.Lat * math.Pi / 180
	phi2 := b.Lat * math.Pi / 180
	dPhi := (b.Lat - a.Lat) * math.Pi / 180
	dLambda := (b.Lon - a.Lon) * math.Pi / 180
	h := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return earthRadiusM * c, nil
}

// DistanceKm returns the great-circle distance between a and b in kilometers.
func DistanceKm(a, b Point) (float64, error) {
	m, err := Distance(a, b)
	if err != nil {
		return 0, err
	}
	return m / 1000, nil
}
