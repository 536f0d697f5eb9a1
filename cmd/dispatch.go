package cmd

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/mverdeau/geodispatch/api/deliveries"
	"github.com/mverdeau/geodispatch/config"
	"github.com/mverdeau/geodispatch/core/geo"
)

var (
	dispatchAPI      string
	dispatchCapacity float64
	dispatchOrigin   string
	dispatchDest     string
)

var dispatchCmd = &cobra.Command{
	Use:   "dispatch",
	Short: "Submit a test delivery to a running service",
	RunE:  runDispatch,
}

func init() {
	dispatchCmd.Flags().StringVar(&dispatchAPI, "api", "", "base URL of the service API (defaults to the configured listen address)")
	dispatchCmd.Flags().Float64Var(&dispatchCapacity, "capacity", 10, "required vehicle capacity")
	dispatchCmd.Flags().StringVar(&dispatchOrigin, "origin", "48.8566,2.3522", "pickup point as lat,lon")
	dispatchCmd.Flags().StringVar(&dispatchDest, "destination", "48.8606,2.3376", "drop-off point as lat,lon")
	rootCmd.AddCommand(dispatchCmd)
}

func runDispatch(cmd *cobra.Command, args []string) error {
	origin, err := parsePoint(dispatchOrigin)
	if err != nil {
		return fmt.Errorf("origin: %w", err)
	}
	dest, err := parsePoint(dispatchDest)
	if err != nil {
		return fmt.Errorf("destination: %w", err)
	}

	base := dispatchAPI
	if base == "" {
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		addr := cfg.API.Addr
		if strings.HasPrefix(addr, ":") {
			addr = "localhost" + addr
		}
		base = "http://" + addr
	}

	body, err := json.Marshal(deliveries.CreateRequest{
		RequiredCapacity: dispatchCapacity,
		Origin:           &origin,
		Destination:      &dest,
	})
	if err != nil {
		return err
	}

	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Post(base+"/api/deliveries", "application/json", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("submit delivery: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	out, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("submit delivery: %s: %s", resp.Status, strings.TrimSpace(string(out)))
	}
	fmt.Println(strings.TrimSpace(string(out)))
	return nil
}

func parsePoint(s string) (geo.Point, error) {
	var p geo.Point
	if _, err := fmt.Sscanf(s, "%f,%f", &p.Lat, &p.Lon); err != nil {
		return p, fmt.Errorf("expected lat,lon: %w", err)
	}
	return p, p.Validate()
}
