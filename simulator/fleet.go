package simulator

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/mverdeau/geodispatch/core/geo"
	"github.com/mverdeau/geodispatch/infra/logger"
)

const kmPerDegreeLat = 110.574

// Publisher sends a simulated position report.
type Publisher interface {
	PublishLocation(vehicleID string, p geo.Point, at time.Time) error
}

// SimulatedVehicle drives a random walk inside the configured area.
type SimulatedVehicle struct {
	ID     string
	Pos    geo.Point
	target geo.Point
}

// Fleet runs a set of simulated vehicles publishing their positions.
type Fleet struct {
	cfg      Config
	pub      Publisher
	rng      *rand.Rand
	vehicles []*SimulatedVehicle
	log      logger.Logger
}

// NewFleet creates Vehicles simulated vehicles with IDs veh0001..vehNNNN
// scattered around the configured center.
func NewFleet(cfg Config, pub Publisher) *Fleet {
	cfg.SetDefaults()
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	f := &Fleet{
		cfg: cfg,
		pub: pub,
		rng: rand.New(rand.NewSource(seed)),
		log: logger.New("simulator"),
	}
	for i := 0; i < cfg.Vehicles; i++ {
		v := &SimulatedVehicle{ID: fmt.Sprintf("veh%04d", i+1)}
		v.Pos = f.randomPoint()
		v.target = f.randomPoint()
		f.vehicles = append(f.vehicles, v)
	}
	return f
}

// Vehicles returns the simulated fleet.
func (f *Fleet) Vehicles() []*SimulatedVehicle { return f.vehicles }

// Run publishes position reports until the context is cancelled.
func (f *Fleet) Run(ctx context.Context) error {
	interval := time.Duration(f.cfg.IntervalMS) * time.Millisecond
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case now := <-ticker.C:
			f.Step(interval)
			for _, v := range f.vehicles {
				if err := f.pub.PublishLocation(v.ID, v.Pos, now); err != nil {
					f.log.Errorf("publish %s: %v", v.ID, err)
				}
			}
		}
	}
}

// Step advances every vehicle toward its target by the distance covered in
// elapsed, picking a fresh target on arrival.
func (f *Fleet) Step(elapsed time.Duration) {
	stepKm := f.cfg.SpeedKMH * elapsed.Hours()
	for _, v := range f.vehicles {
		remaining, err := geo.DistanceKm(v.Pos, v.target)
		if err != nil || remaining <= stepKm {
			v.Pos = v.target
			v.target = f.randomPoint()
			continue
		}
		frac := stepKm / remaining
		v.Pos.Lat += (v.target.Lat - v.Pos.Lat) * frac
		v.Pos.Lon += (v.target.Lon - v.Pos.Lon) * frac
	}
}

// randomPoint picks a uniform point inside the roaming circle.
func (f *Fleet) randomPoint() geo.Point {
	r := f.cfg.RadiusKm * math.Sqrt(f.rng.Float64())
	theta := f.rng.Float64() * 2 * math.Pi
	dLat := r * math.Cos(theta) / kmPerDegreeLat
	kmPerDegreeLon := kmPerDegreeLat * math.Cos(f.cfg.Center.Lat*math.Pi/180)
	if kmPerDegreeLon < 1 {
		kmPerDegreeLon = 1
	}
	dLon := r * math.Sin(theta) / kmPerDegreeLon
	return geo.Point{Lat: f.cfg.Center.Lat + dLat, Lon: f.cfg.Center.Lon + dLon}
}
