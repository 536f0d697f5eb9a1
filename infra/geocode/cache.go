package geocode

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mverdeau/geodispatch/core/geo"
	"github.com/mverdeau/geodispatch/core/geocode"
	"github.com/mverdeau/geodispatch/infra/logger"
)

// CacheConfig holds the Redis settings for the geocode cache.
type CacheConfig struct {
	Enabled  bool   `json:"enabled"`
	Addr     string `json:"addr"`
	Password string `json:"password"`
	DB       int    `json:"db"`
	TTLHours int    `json:"ttl_hours"`
}

// SetDefaults fills in the local Redis instance and a 24h TTL.
func (c *CacheConfig) SetDefaults() {
	if c.Addr == "" {
		c.Addr = "localhost:6379"
	}
	if c.TTLHours == 0 {
		c.TTLHours = 24
	}
}

// CachedGeocoder wraps a geocoder with a Redis lookaside cache. Street
// addresses do not move, so cached entries only expire to bound memory.
type CachedGeocoder struct {
	inner geocode.Geocoder
	rdb   *redis.Client
	ttl   time.Duration
	log   logger.Logger
}

// NewCachedGeocoder wraps inner with a Redis cache at cfg.Addr.
func NewCachedGeocoder(inner geocode.Geocoder, cfg CacheConfig) *CachedGeocoder {
	cfg.SetDefaults()
	rdb := redis.NewClient(&redis.Options{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB})
	return &CachedGeocoder{
		inner: inner,
		rdb:   rdb,
		ttl:   time.Duration(cfg.TTLHours) * time.Hour,
		log:   logger.New("geocode_cache"),
	}
}

func cacheKey(addr geocode.Address) string {
	return "geocode:" + addr.String()
}

// Resolve returns the cached point when present, otherwise resolves through
// the inner geocoder and stores the result. Cache failures fall through to
// the inner geocoder.
func (c *CachedGeocoder) Resolve(ctx context.Context, addr geocode.Address) (geo.Point, error) {
	key := cacheKey(addr)
	raw, err := c.rdb.Get(ctx, key).Bytes()
	if err == nil {
		var p geo.Point
		if err := json.Unmarshal(raw, &p); err == nil {
			return p, nil
		}
		c.log.Warnf("dropping corrupt cache entry %s", key)
		c.rdb.Del(ctx, key)
	} else if !errors.Is(err, redis.Nil) {
		c.log.Errorf("cache get %s: %v", key, err)
	}

	p, err := c.inner.Resolve(ctx, addr)
	if err != nil {
		return geo.Point{}, err
	}
	if raw, err := json.Marshal(p); err == nil {
		if err := c.rdb.Set(ctx, key, raw, c.ttl).Err(); err != nil {
			c.log.Errorf("cache set %s: %v", key, err)
		}
	}
	return p, nil
}

// Close releases the Redis connection.
func (c *CachedGeocoder) Close() error { return c.rdb.Close() }
