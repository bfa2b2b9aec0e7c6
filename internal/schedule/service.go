package schedule

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/clinicaplena/agenda-api/internal/cache"
)

// Service resolves the effective clinic schedule. Reads go through the
// settings cache; admin writes bust the cache tag before returning so the
// next read reflects the new configuration immediately.
type Service struct {
	repo  Repository
	cache *cache.SettingsCache
	log   zerolog.Logger
}

func NewService(repo Repository, settingsCache *cache.SettingsCache, log zerolog.Logger) *Service {
	return &Service{repo: repo, cache: settingsCache, log: log}
}

// Settings returns the current effective schedule configuration.
func (s *Service) Settings(ctx context.Context) (Settings, error) {
	if s.cache != nil {
		if values, ok := s.cache.Get(ctx); ok {
			return ParseValues(values), nil
		}
	}

	values, err := s.repo.GetSection(ctx, SectionScheduling)
	if err != nil {
		return Settings{}, fmt.Errorf("load schedule settings: %w", err)
	}

	if s.cache != nil {
		s.cache.Put(ctx, values)
	}

	return ParseValues(values), nil
}

// TimeSlots returns the ordered slot template for a working day.
func (s *Service) TimeSlots(ctx context.Context) ([]string, error) {
	settings, err := s.Settings(ctx)
	if err != nil {
		return nil, err
	}
	return settings.TimeSlots(), nil
}

// IsDayAllowed reports whether date falls on a configured working day.
func (s *Service) IsDayAllowed(ctx context.Context, date time.Time) (bool, error) {
	settings, err := s.Settings(ctx)
	if err != nil {
		return false, err
	}
	return settings.DayAllowed(date), nil
}

// Section reads a raw settings section, bypassing the cache. Admin reads
// must see their own writes.
func (s *Service) Section(ctx context.Context, section string) (map[string]string, error) {
	return s.repo.GetSection(ctx, section)
}

// UpdateSection persists a settings section and synchronously invalidates
// the cached snapshot. The invalidation failure fails the write: admins
// must never get a success response while stale config is still served.
func (s *Service) UpdateSection(ctx context.Context, section string, values map[string]string) error {
	if err := s.repo.UpsertSection(ctx, section, values); err != nil {
		return err
	}

	if s.cache != nil {
		if err := s.cache.Invalidate(ctx); err != nil {
			return fmt.Errorf("settings written but cache invalidation failed: %w", err)
		}
	}

	s.log.Info().Str("section", section).Int("keys", len(values)).Msg("settings updated")
	return nil
}
