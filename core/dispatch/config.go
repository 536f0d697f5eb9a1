package dispatch

import "fmt"

// Config defines matcher settings.
type Config struct {
	// MeanSpeedKMH is the assumed travel speed used to derive an estimated
	// duration when the delivery request does not carry one.
	MeanSpeedKMH float64 `json:"mean_speed_kmh"`
}

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	if c.MeanSpeedKMH == 0 {
		c.MeanSpeedKMH = 40
	}
}

// Validate checks mandatory fields.
func (c Config) Validate() error {
	if c.MeanSpeedKMH <= 0 {
		return fmt.Errorf("mean_speed_kmh must be positive")
	}
	return nil
}
