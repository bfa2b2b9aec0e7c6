package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// TagAppointmentSettings keys the cached schedule-settings snapshot. Every
// settings or blocking-rule write busts this tag before returning success,
// so admin callers never observe stale working hours.
const TagAppointmentSettings = "appointment-settings"

// SettingsCache memoizes the slowly-changing schedule configuration.
// Per-date availability is never cached here; occupancy changes too often.
type SettingsCache struct {
	rdb *redis.Client
	ttl time.Duration
	log zerolog.Logger
}

func NewSettingsCache(rdb *redis.Client, ttl time.Duration, log zerolog.Logger) *SettingsCache {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &SettingsCache{rdb: rdb, ttl: ttl, log: log}
}

func cacheKey(tag string) string {
	return "cache:" + tag
}

// Get returns the cached snapshot, or ok=false on a miss. Redis being down
// is treated as a miss so reads fall through to Postgres.
func (c *SettingsCache) Get(ctx context.Context) (map[string]string, bool) {
	raw, err := c.rdb.Get(ctx, cacheKey(TagAppointmentSettings)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.Warn().Err(err).Msg("settings cache read failed, falling through")
		}
		return nil, false
	}

	var values map[string]string
	if err := json.Unmarshal(raw, &values); err != nil {
		c.log.Warn().Err(err).Msg("settings cache payload corrupt, invalidating")
		_ = c.Invalidate(ctx)
		return nil, false
	}

	return values, true
}

// Put stores the snapshot under the tag with the configured TTL.
// Failures are logged only; caching is an optimization, not a requirement.
func (c *SettingsCache) Put(ctx context.Context, values map[string]string) {
	raw, err := json.Marshal(values)
	if err != nil {
		c.log.Warn().Err(err).Msg("settings cache marshal failed")
		return
	}
	if err := c.rdb.Set(ctx, cacheKey(TagAppointmentSettings), raw, c.ttl).Err(); err != nil {
		c.log.Warn().Err(err).Msg("settings cache write failed")
	}
}

// Invalidate removes the tag entry. Unlike Put, a failure here propagates:
// a successful admin write must not leave a stale snapshot behind.
func (c *SettingsCache) Invalidate(ctx context.Context) error {
	if err := c.rdb.Del(ctx, cacheKey(TagAppointmentSettings)).Err(); err != nil {
		return fmt.Errorf("invalidate %s: %w", TagAppointmentSettings, err)
	}
	return nil
}
