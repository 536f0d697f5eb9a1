package vehiclestatus

import (
	"testing"
	"time"

	"github.com/mverdeau/geodispatch/core/geo"
)

func TestMemoryStore_Filter(t *testing.T) {
	s := NewMemoryStore()
	s.Set(Status{VehicleID: "v1", CurrentStatus: "in_transit"})
	s.Set(Status{VehicleID: "v2", CurrentStatus: "idle", Available: true})
	out := s.List(Filter{Status: "in_transit"})
	if len(out) != 1 || out[0].VehicleID != "v1" {
		t.Fatalf("filter failed: %#v", out)
	}
	out = s.List(Filter{OnlyAvailable: true})
	if len(out) != 1 || out[0].VehicleID != "v2" {
		t.Fatalf("available filter failed: %#v", out)
	}
}

func TestMemoryStore_RecordTransition(t *testing.T) {
	s := NewMemoryStore()
	s.RecordTransition("v1", "d1", "assigned", time.Now())
	out := s.List(Filter{})
	if len(out) != 1 || out[0].DeliveryID != "d1" || out[0].Available {
		t.Fatalf("transition not recorded: %#v", out)
	}
	s.RecordTransition("v1", "", "idle", time.Now())
	out = s.List(Filter{})
	if !out[0].Available || out[0].DeliveryID != "" {
		t.Fatalf("release not recorded: %#v", out)
	}
}

func TestMemoryStore_RecordLocation(t *testing.T) {
	s := NewMemoryStore()
	s.RecordLocation("v9", geo.Point{Lat: 1, Lon: 2}, time.Now())
	out := s.List(Filter{})
	if len(out) != 1 || out[0].Location == nil || out[0].Location.Lat != 1 {
		t.Fatalf("location not recorded: %#v", out)
	}
	if out[0].CurrentStatus != "idle" {
		t.Fatalf("auto-created vehicle should be idle, got %q", out[0].CurrentStatus)
	}
}

func TestMemoryStore_ListSorted(t *testing.T) {
	s := NewMemoryStore()
	s.Set(Status{VehicleID: "v2"})
	s.Set(Status{VehicleID: "v1"})
	out := s.List(Filter{})
	if out[0].VehicleID != "v1" || out[1].VehicleID != "v2" {
		t.Fatalf("not sorted: %#v", out)
	}
}
