package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := `api:
  addr: ":8181"
  geocode_enabled: true
mqtt:
  broker: "tcp://localhost:1883"
  client_id: "cli"
  username: "user"
  password: "pass"
  topic_prefix: "fleet/location"
  use_tls: false
dispatch:
  mean_speed_kmh: 35
lifecycle:
  pickup_radius_m: 120
  dropoff_radius_m: 60
report:
  warning_variance_fraction: 0.25
metrics:
  prometheus_enabled: true
  prometheus_addr: ":9191"
storage:
  backend: "sqlite"
  path: "test.db"
geocode:
  base_url: "http://localhost:8088"
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, ":8181", cfg.API.Addr)
	require.True(t, cfg.API.GeocodeEnabled)
	require.Equal(t, "tcp://localhost:1883", cfg.MQTT.Broker)
	require.Equal(t, "cli", cfg.MQTT.ClientID)
	require.Equal(t, 35.0, cfg.Dispatch.MeanSpeedKMH)
	require.Equal(t, 120.0, cfg.Lifecycle.PickupRadiusM)
	require.Equal(t, 60.0, cfg.Lifecycle.DropoffRadiusM)
	require.Equal(t, 0.25, cfg.Report.WarningVarianceFraction)
	require.True(t, cfg.Metrics.PrometheusEnabled)
	require.Equal(t, ":9191", cfg.Metrics.PrometheusAddr)
	require.Equal(t, "sqlite", cfg.Storage.Backend)
	require.Equal(t, "test.db", cfg.Storage.Path)
	require.Equal(t, "http://localhost:8088", cfg.Geocode.BaseURL)
}

func TestLoad_Defaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("api: {}\n"), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, ":8080", cfg.API.Addr)
	require.Equal(t, 40.0, cfg.Dispatch.MeanSpeedKMH)
	require.Equal(t, 100.0, cfg.Lifecycle.PickupRadiusM)
	require.Equal(t, 50.0, cfg.Lifecycle.DropoffRadiusM)
	require.Equal(t, 0.2, cfg.Report.WarningVarianceFraction)
	require.Equal(t, "memory", cfg.Storage.Backend)
	require.Equal(t, "fleet/location", cfg.MQTT.TopicPrefix)
}

func TestLoad_EnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("api:\n  addr: \":8080\"\n"), 0o644))

	t.Setenv("GD_API__ADDR", ":9999")
	t.Setenv("GD_STORAGE__BACKEND", "sqlite")
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, ":9999", cfg.API.Addr)
	require.Equal(t, "sqlite", cfg.Storage.Backend)
	require.Equal(t, "geodispatch.db", cfg.Storage.Path)
}

func TestLoad_Fleet(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	data := `fleet:
  vehicles:
    - id: "veh0001"
      plate: "AB-123-CD"
      capacity: 350
    - id: "veh0002"
      capacity: 900
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	vehicles := cfg.Fleet.Models()
	require.Len(t, vehicles, 2)
	require.Equal(t, "veh0001", vehicles[0].ID)
	require.Equal(t, 350.0, vehicles[0].Capacity)
	require.True(t, vehicles[0].Available)
}

func TestFleetConfig_Validate(t *testing.T) {
	require.Error(t, FleetConfig{Vehicles: []VehicleConfig{{ID: "", Capacity: 1}}}.Validate())
	require.Error(t, FleetConfig{Vehicles: []VehicleConfig{{ID: "a", Capacity: 0}}}.Validate())
	require.Error(t, FleetConfig{Vehicles: []VehicleConfig{{ID: "a", Capacity: 1}, {ID: "a", Capacity: 2}}}.Validate())
	require.NoError(t, FleetConfig{Vehicles: []VehicleConfig{{ID: "a", Capacity: 1}}}.Validate())
}

func TestLoad_UnsupportedFormat(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(""), 0o644))
	_, err := Load(path)
	require.Error(t, err)
}

func TestLoad_InvalidStorageBackend(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("storage:\n  backend: \"postgres\"\n"), 0o644))
	_, err := Load(path)
	require.Error(t, err)
}
