package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/mverdeau/geodispatch/core/geo"
	"github.com/mverdeau/geodispatch/core/geocode"
	"github.com/mverdeau/geodispatch/infra/logger"
)

// Config holds the Nominatim endpoint settings.
type Config struct {
	BaseURL   string `json:"base_url"`
	UserAgent string `json:"user_agent"`
	TimeoutMS int    `json:"timeout_ms"`
}

// SetDefaults fills in the public Nominatim instance and a conservative timeout.
func (c *Config) SetDefaults() {
	if c.BaseURL == "" {
		c.BaseURL = "https://nominatim.openstreetmap.org"
	}
	if c.UserAgent == "" {
		c.UserAgent = "geodispatch"
	}
	if c.TimeoutMS == 0 {
		c.TimeoutMS = 5000
	}
}

// Nominatim resolves street addresses against a Nominatim search endpoint.
type Nominatim struct {
	cfg    Config
	client *http.Client
	log    logger.Logger
}

// NewNominatim creates a geocoder for the configured endpoint.
func NewNominatim(cfg Config) *Nominatim {
	cfg.SetDefaults()
	return &Nominatim{
		cfg:    cfg,
		client: &http.Client{Timeout: time.Duration(cfg.TimeoutMS) * time.Millisecond},
		log:    logger.New("nominatim"),
	}
}

type searchResult struct {
	Lat string `json:"lat"`
	Lon string `json:"lon"`
}

// Resolve looks up the address and returns the first match.
func (n *Nominatim) Resolve(ctx context.Context, addr geocode.Address) (geo.Point, error) {
	if err := addr.Validate(); err != nil {
		return geo.Point{}, err
	}

	q := url.Values{}
	q.Set("q", addr.String())
	q.Set("format", "json")
	q.Set("limit", "1")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, n.cfg.BaseURL+"/search?"+q.Encode(), nil)
	if err != nil {
		return geo.Point{}, err
	}
	req.Header.Set("User-Agent", n.cfg.UserAgent)

	resp, err := n.client.Do(req)
	if err != nil {
		return geo.Point{}, fmt.Errorf("geocode request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return geo.Point{}, fmt.Errorf("geocode request: unexpected status %d", resp.StatusCode)
	}

	var results []searchResult
	if err := json.NewDecoder(resp.Body).Decode(&results); err != nil {
		return geo.Point{}, fmt.Errorf("geocode response: %w", err)
	}
	if len(results) == 0 {
		return geo.Point{}, fmt.Errorf("%q: %w", addr.String(), geocode.ErrAddressNotFound)
	}

	lat, err := strconv.ParseFloat(results[0].Lat, 64)
	if err != nil {
		return geo.Point{}, fmt.Errorf("geocode response: bad lat %q", results[0].Lat)
	}
	lon, err := strconv.ParseFloat(results[0].Lon, 64)
	if err != nil {
		return geo.Point{}, fmt.Errorf("geocode response: bad lon %q", results[0].Lon)
	}
	p := geo.Point{Lat: lat, Lon: lon}
	if err := p.Validate(); err != nil {
		return geo.Point{}, err
	}
	n.log.Debugf("resolved %q to (%f, %f)", addr.String(), p.Lat, p.Lon)
	return p, nil
}
