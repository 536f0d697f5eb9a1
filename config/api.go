package config

import "fmt"

// APIConfig defines the HTTP API listener settings.
type APIConfig struct {
	// Addr is the listen address of the HTTP API.
	Addr string `json:"addr"`
	// GeocodeEnabled turns on address resolution for delivery requests.
	GeocodeEnabled bool `json:"geocode_enabled"`
}

// SetDefaults applies sane defaults.
func (c *APIConfig) SetDefaults() {
	if c.Addr == "" {
		c.Addr = ":8080"
	}
}

// Validate checks mandatory fields.
func (c APIConfig) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("api addr is required")
	}
	return nil
}
