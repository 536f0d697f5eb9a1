package dispatch

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mverdeau/geodispatch/core/geo"
	"github.com/mverdeau/geodispatch/core/model"
	"github.com/mverdeau/geodispatch/core/pool"
	"github.com/mverdeau/geodispatch/core/storage"
	"github.com/mverdeau/geodispatch/infra/logger"
)

func newTestMatcher(t *testing.T, p pool.Pool) (*Matcher, *storage.MemoryDeliveryStore) {
	t.Helper()
	store := storage.NewMemoryDeliveryStore()
	m, err := NewMatcher(p, store, Config{}, logger.NopLogger{}, nil)
	require.NoError(t, err)
	return m, store
}

func addVehicle(t *testing.T, p *pool.MemoryPool, id string, capacity, lat, lon float64) {
	t.Helper()
	require.NoError(t, p.Add(model.Vehicle{
		ID:        id,
		Capacity:  capacity,
		Available: true,
		Location:  &geo.Point{Lat: lat, Lon: lon},
	}))
}

func TestMatcher_PicksVehicleWithCapacity(t *testing.T) {
	p := pool.NewMemoryPool()
	// V2 is closer but lacks capacity.
	addVehicle(t, p, "v1", 100, 0, 0)
	addVehicle(t, p, "v2", 50, 0.001, 0.001)

	m, store := newTestMatcher(t, p)
	d, err := m.Match(context.Background(), model.DeliveryRequest{
		RequiredCapacity: 60,
		Origin:           geo.Point{Lat: 0.001, Lon: 0.001},
		Destination:      geo.Point{Lat: 0.1, Lon: 0.1},
	})
	require.NoError(t, err)
	require.Equal(t, "v1", d.VehicleID)
	require.Equal(t, model.StatusAssigned, d.Status)
	require.Positive(t, d.EstimatedDuration)

	v1, _ := p.Get("v1")
	require.False(t, v1.Available)
	v2, _ := p.Get("v2")
	require.True(t, v2.Available)

	saved, err := store.Load(context.Background(), d.ID)
	require.NoError(t, err)
	require.Equal(t, d.VehicleID, saved.VehicleID)
}

func TestMatcher_PicksNearest(t *testing.T) {
	p := pool.NewMemoryPool()
	addVehicle(t, p, "far", 100, 1, 1)
	addVehicle(t, p, "near", 100, 0.01, 0.01)

	m, _ := newTestMatcher(t, p)
	d, err := m.Match(context.Background(), model.DeliveryRequest{
		RequiredCapacity: 10,
		Origin:           geo.Point{Lat: 0, Lon: 0},
		Destination:      geo.Point{Lat: 2, Lon: 2},
	})
	require.NoError(t, err)
	require.Equal(t, "near", d.VehicleID)
}

func TestMatcher_TieBreakLowestID(t *testing.T) {
	for i := 0; i < 5; i++ {
		p := pool.NewMemoryPool()
		// Same position, same capacity: the lower id must win every time.
		addVehicle(t, p, "v9", 100, 0.5, 0.5)
		addVehicle(t, p, "v2", 100, 0.5, 0.5)
		addVehicle(t, p, "v5", 100, 0.5, 0.5)

		m, _ := newTestMatcher(t, p)
		d, err := m.Match(context.Background(), model.DeliveryRequest{
			RequiredCapacity: 10,
			Origin:           geo.Point{Lat: 0, Lon: 0},
			Destination:      geo.Point{Lat: 1, Lon: 1},
		})
		require.NoError(t, err)
		require.Equal(t, "v2", d.VehicleID)
	}
}

func TestMatcher_NoCapacity(t *testing.T) {
	p := pool.NewMemoryPool()
	addVehicle(t, p, "v1", 10, 0, 0)
	addVehicle(t, p, "v2", 20, 1, 1)

	m, _ := newTestMatcher(t, p)
	_, err := m.Match(context.Background(), model.DeliveryRequest{
		RequiredCapacity: 500,
		Origin:           geo.Point{Lat: 0, Lon: 0},
		Destination:      geo.Point{Lat: 1, Lon: 1},
	})
	require.ErrorIs(t, err, ErrNoVehicleAvailable)

	// A failed match must not mutate any vehicle's availability.
	for _, id := range []string{"v1", "v2"} {
		v, ok := p.Get(id)
		require.True(t, ok)
		require.True(t, v.Available)
	}
}

func TestMatcher_EmptyPool(t *testing.T) {
	m, _ := newTestMatcher(t, pool.NewMemoryPool())
	_, err := m.Match(context.Background(), model.DeliveryRequest{
		RequiredCapacity: 1,
		Origin:           geo.Point{Lat: 0, Lon: 0},
		Destination:      geo.Point{Lat: 1, Lon: 1},
	})
	require.ErrorIs(t, err, ErrNoVehicleAvailable)
}

func TestMatcher_ConcurrentSingleVehicle(t *testing.T) {
	p := pool.NewMemoryPool()
	addVehicle(t, p, "v1", 100, 0, 0)
	m, _ := newTestMatcher(t, p)

	const n = 16
	var wg sync.WaitGroup
	results := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := m.Match(context.Background(), model.DeliveryRequest{
				RequiredCapacity: 10,
				Origin:           geo.Point{Lat: 0, Lon: 0},
				Destination:      geo.Point{Lat: 1, Lon: 1},
			})
			results <- err
		}()
	}
	wg.Wait()
	close(results)

	wins, losses := 0, 0
	for err := range results {
		if err == nil {
			wins++
		} else {
			require.ErrorIs(t, err, ErrNoVehicleAvailable)
			losses++
		}
	}
	require.Equal(t, 1, wins, "exactly one concurrent match must win the vehicle")
	require.Equal(t, n-1, losses)
}

// racingPool reports the nearest vehicle as free but rejects its reservation,
// simulating a concurrent caller winning the race between list and reserve.
type racingPool struct {
	*pool.MemoryPool
	stolen string
	once   sync.Once
}

func (r *racingPool) Reserve(id string) error {
	if id == r.stolen {
		var raced bool
		r.once.Do(func() { raced = true })
		if raced {
			// Mirror what the concurrent winner did.
			if err := r.MemoryPool.Reserve(id); err != nil {
				return err
			}
			return pool.ErrAlreadyReserved
		}
	}
	return r.MemoryPool.Reserve(id)
}

func TestMatcher_RetriesOnLostReservation(t *testing.T) {
	mp := pool.NewMemoryPool()
	addVehicle(t, mp, "near", 100, 0.01, 0.01)
	addVehicle(t, mp, "far", 100, 0.5, 0.5)
	rp := &racingPool{MemoryPool: mp, stolen: "near"}

	store := storage.NewMemoryDeliveryStore()
	m, err := NewMatcher(rp, store, Config{}, logger.NopLogger{}, nil)
	require.NoError(t, err)

	d, err := m.Match(context.Background(), model.DeliveryRequest{
		RequiredCapacity: 10,
		Origin:           geo.Point{Lat: 0, Lon: 0},
		Destination:      geo.Point{Lat: 1, Lon: 1},
	})
	require.NoError(t, err)
	require.Equal(t, "far", d.VehicleID, "matcher must fall back to the next candidate")
}

func TestMatcher_EstimateFromDistance(t *testing.T) {
	p := pool.NewMemoryPool()
	addVehicle(t, p, "v1", 100, 48.85, 2.35)

	store := storage.NewMemoryDeliveryStore()
	m, err := NewMatcher(p, store, Config{MeanSpeedKMH: 40}, logger.NopLogger{}, nil)
	require.NoError(t, err)

	origin := geo.Point{Lat: 48.8566, Lon: 2.3522}
	dest := geo.Point{Lat: 48.9566, Lon: 2.3522} // ~11.1 km due north
	d, err := m.Match(context.Background(), model.DeliveryRequest{
		RequiredCapacity: 10,
		Origin:           origin,
		Destination:      dest,
	})
	require.NoError(t, err)
	// 11.1 km at 40 km/h is just under 17 minutes.
	require.InDelta(t, 16.7, d.EstimatedDuration.Minutes(), 1.0)
}

func TestMatcher_ExplicitEstimateKept(t *testing.T) {
	p := pool.NewMemoryPool()
	addVehicle(t, p, "v1", 100, 0, 0)
	m, _ := newTestMatcher(t, p)

	d, err := m.Match(context.Background(), model.DeliveryRequest{
		RequiredCapacity:  10,
		Origin:            geo.Point{Lat: 0, Lon: 0},
		Destination:       geo.Point{Lat: 1, Lon: 1},
		EstimatedDuration: 90 * time.Minute,
	})
	require.NoError(t, err)
	require.Equal(t, 90*time.Minute, d.EstimatedDuration)
}
