package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/mverdeau/geodispatch/core/dispatch"
	"github.com/mverdeau/geodispatch/core/lifecycle"
	"github.com/mverdeau/geodispatch/core/metrics"
	"github.com/mverdeau/geodispatch/core/report"
	"github.com/mverdeau/geodispatch/infra/geocode"
	"github.com/mverdeau/geodispatch/infra/mqtt"
)

type Config struct {
	API          APIConfig           `json:"api"`
	MQTT         mqtt.Config         `json:"mqtt"`
	Dispatch     dispatch.Config     `json:"dispatch"`
	Lifecycle    lifecycle.Config    `json:"lifecycle"`
	Report       report.Config       `json:"report"`
	Metrics      metrics.Config      `json:"metrics"`
	Storage      StorageConfig       `json:"storage"`
	Fleet        FleetConfig         `json:"fleet"`
	Geocode      geocode.Config      `json:"geocode"`
	GeocodeCache geocode.CacheConfig `json:"geocode_cache"`
}

func Load(path string) (*Config, error) {
	k := koanf.New(".")
	ext := strings.ToLower(filepath.Ext(path))
	var parser koanf.Parser
	switch ext {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		return nil, fmt.Errorf("unsupported config format: %s", ext)
	}
	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, err
	}
	// Optional environment overrides
	if err := k.Load(env.Provider("GD_", "__", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), "gd_")
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns a config with every section at its default value.
func Default() *Config {
	cfg := &Config{}
	cfg.SetDefaults()
	return cfg
}

// SetDefaults applies defaults on every section.
func (c *Config) SetDefaults() {
	c.API.SetDefaults()
	c.MQTT.SetDefaults()
	c.Dispatch.SetDefaults()
	c.Lifecycle.SetDefaults()
	c.Report.SetDefaults()
	c.Metrics.SetDefaults()
	c.Storage.SetDefaults()
	c.Geocode.SetDefaults()
	c.GeocodeCache.SetDefaults()
}

// Validate checks every section that has mandatory fields.
func (c *Config) Validate() error {
	if err := c.API.Validate(); err != nil {
		return err
	}
	if err := c.Dispatch.Validate(); err != nil {
		return err
	}
	if err := c.Lifecycle.Validate(); err != nil {
		return err
	}
	if err := c.Report.Validate(); err != nil {
		return err
	}
	if err := c.Storage.Validate(); err != nil {
		return err
	}
	return c.Fleet.Validate()
}
