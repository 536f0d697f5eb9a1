package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mverdeau/geodispatch/core/geo"
	"github.com/mverdeau/geodispatch/core/model"
	"github.com/mverdeau/geodispatch/core/storage"
)

func openStore(t *testing.T) *SQLiteStore {
	t.Helper()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "geodispatch.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSQLiteStore_SaveLoadDelivery(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	d := model.Delivery{
		ID:                "d1",
		VehicleID:         "v1",
		Status:            model.StatusAssigned,
		RequiredCapacity:  50,
		Origin:            geo.Point{Lat: 1, Lon: 2},
		Destination:       geo.Point{Lat: 3, Lon: 4},
		EstimatedDuration: time.Hour,
		CreatedAt:         time.Now().Truncate(time.Millisecond),
	}
	require.NoError(t, s.Save(ctx, d))

	loaded, err := s.Load(ctx, "d1")
	require.NoError(t, err)
	require.Equal(t, d.VehicleID, loaded.VehicleID)
	require.Equal(t, d.Origin, loaded.Origin)
	require.Equal(t, d.EstimatedDuration, loaded.EstimatedDuration)

	// Saving again replaces the row.
	d.Status = model.StatusInTransit
	require.NoError(t, s.Save(ctx, d))
	loaded, err = s.Load(ctx, "d1")
	require.NoError(t, err)
	require.Equal(t, model.StatusInTransit, loaded.Status)
}

func TestSQLiteStore_LoadMissing(t *testing.T) {
	s := openStore(t)
	_, err := s.Load(context.Background(), "nope")
	require.ErrorIs(t, err, storage.ErrNotFound)
}

func TestSQLiteStore_ListOrder(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	base := time.Now().Truncate(time.Millisecond)
	for i, id := range []string{"old", "mid", "new"} {
		require.NoError(t, s.Save(ctx, model.Delivery{
			ID:        id,
			Status:    model.StatusAssigned,
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}))
	}
	list, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	require.Equal(t, "new", list[0].ID)
	require.Equal(t, "old", list[2].ID)
}

func TestSQLiteStore_Reports(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()
	reports := s.Reports()
	r := model.Report{
		ID:                "r1",
		DeliveryID:        "d1",
		VehicleID:         "v1",
		ActualDuration:    78 * time.Minute,
		EstimatedDuration: time.Hour,
		Variance:          18 * time.Minute,
		DistanceKm:        9.3,
		Warning:           true,
		CreatedAt:         time.Now().Truncate(time.Millisecond),
	}
	require.NoError(t, reports.Save(ctx, r))

	list, err := reports.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, r.Variance, list[0].Variance)
	require.True(t, list[0].Warning)
}

func TestSQLiteStore_SurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "geodispatch.db")
	ctx := context.Background()

	s, err := NewSQLiteStore(path)
	require.NoError(t, err)
	require.NoError(t, s.Save(ctx, model.Delivery{ID: "d1", Status: model.StatusDelivered, CreatedAt: time.Now()}))
	require.NoError(t, s.Close())

	s, err = NewSQLiteStore(path)
	require.NoError(t, err)
	defer func() { _ = s.Close() }()
	loaded, err := s.Load(ctx, "d1")
	require.NoError(t, err)
	require.Equal(t, model.StatusDelivered, loaded.Status)
}
