package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/mverdeau/geodispatch/config"
	"github.com/mverdeau/geodispatch/core/geo"
	"github.com/mverdeau/geodispatch/infra/mqtt"
	"github.com/mverdeau/geodispatch/simulator"
)

var (
	simVehicles int
	simInterval int
	simSpeed    float64
	simLat      float64
	simLon      float64
	simRadius   float64
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Publish simulated vehicle positions to the broker",
	RunE:  runSimulate,
}

func init() {
	simulateCmd.Flags().IntVar(&simVehicles, "vehicles", 5, "number of simulated vehicles")
	simulateCmd.Flags().IntVar(&simInterval, "interval-ms", 1000, "delay between position reports")
	simulateCmd.Flags().Float64Var(&simSpeed, "speed-kmh", 40, "vehicle travel speed")
	simulateCmd.Flags().Float64Var(&simLat, "lat", 48.8566, "roaming area center latitude")
	simulateCmd.Flags().Float64Var(&simLon, "lon", 2.3522, "roaming area center longitude")
	simulateCmd.Flags().Float64Var(&simRadius, "radius-km", 10, "roaming area radius")
	rootCmd.AddCommand(simulateCmd)
}

func runSimulate(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	mqttCfg := cfg.MQTT
	mqttCfg.ClientID = fmt.Sprintf("%s-sim-%d", mqttCfg.ClientID, time.Now().UnixNano())
	pub, err := mqtt.NewPublisher(mqttCfg)
	if err != nil {
		return fmt.Errorf("mqtt publisher: %w", err)
	}
	defer pub.Disconnect()

	fleet := simulator.NewFleet(simulator.Config{
		Vehicles:   simVehicles,
		IntervalMS: simInterval,
		SpeedKMH:   simSpeed,
		Center:     geo.Point{Lat: simLat, Lon: simLon},
		RadiusKm:   simRadius,
	}, pub)
	if err := fleet.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
