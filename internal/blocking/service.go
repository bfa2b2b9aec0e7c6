package blocking

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/clinicaplena/agenda-api/internal/cache"
	"github.com/clinicaplena/agenda-api/internal/schedule"
	"github.com/clinicaplena/agenda-api/internal/validation"
)

// CreateInput is an admin request for a new blocking rule.
type CreateInput struct {
	BlockType    BlockType
	DayOfWeek    *int
	SpecificDate *time.Time
	TimeSlot     string
	Reason       string
	CreatedBy    string
}

// Service owns blocking-rule evaluation and admin CRUD. Every mutation
// busts the appointment-settings cache tag so availability reads pick up
// the change immediately.
type Service struct {
	repo  Repository
	cache *cache.SettingsCache
	log   zerolog.Logger
}

func NewService(repo Repository, settingsCache *cache.SettingsCache, log zerolog.Logger) *Service {
	return &Service{repo: repo, cache: settingsCache, log: log}
}

// IsBlocked reports whether an active rule excludes the date and slot.
func (s *Service) IsBlocked(ctx context.Context, date time.Time, slot string) (bool, error) {
	rules, err := s.repo.ListActive(ctx)
	if err != nil {
		return false, fmt.Errorf("list active blocks: %w", err)
	}

	for _, rule := range rules {
		if rule.Matches(date, slot) {
			return true, nil
		}
	}
	return false, nil
}

// ListActive returns all active rules for availability computation.
func (s *Service) ListActive(ctx context.Context) ([]BlockedSlot, error) {
	return s.repo.ListActive(ctx)
}

func (s *Service) List(ctx context.Context, filter ListFilter) ([]BlockedSlot, error) {
	return s.repo.List(ctx, filter)
}

func (s *Service) Get(ctx context.Context, id int64) (*BlockedSlot, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) Create(ctx context.Context, input CreateInput) (*BlockedSlot, error) {
	if err := validateCreate(input); err != nil {
		return nil, err
	}

	rule := &BlockedSlot{
		BlockType: input.BlockType,
		TimeSlot:  input.TimeSlot,
		Reason:    input.Reason,
		IsActive:  true,
		CreatedBy: input.CreatedBy,
	}
	switch input.BlockType {
	case BlockRecurring:
		rule.DayOfWeek = input.DayOfWeek
	case BlockOneTime:
		date := input.SpecificDate.Truncate(24 * time.Hour)
		rule.SpecificDate = &date
	}

	created, err := s.repo.Create(ctx, rule)
	if err != nil {
		return nil, err
	}

	if err := s.invalidate(ctx); err != nil {
		return nil, err
	}

	s.log.Info().Int64("id", created.ID).Str("type", string(created.BlockType)).
		Str("slot", created.TimeSlot).Msg("blocking rule created")
	return created, nil
}

func (s *Service) Update(ctx context.Context, id int64, patch UpdatePatch) (*BlockedSlot, error) {
	updated, err := s.repo.Update(ctx, id, patch)
	if err != nil {
		return nil, err
	}

	if err := s.invalidate(ctx); err != nil {
		return nil, err
	}

	return updated, nil
}

func (s *Service) Delete(ctx context.Context, id int64) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	return s.invalidate(ctx)
}

func (s *Service) invalidate(ctx context.Context) error {
	if s.cache == nil {
		return nil
	}
	if err := s.cache.Invalidate(ctx); err != nil {
		return fmt.Errorf("blocking rule written but cache invalidation failed: %w", err)
	}
	return nil
}

func validateCreate(input CreateInput) error {
	switch input.BlockType {
	case BlockRecurring:
		if input.DayOfWeek == nil {
			return validation.Errorf("dayOfWeek", "required for recurring blocks")
		}
		if *input.DayOfWeek < 1 || *input.DayOfWeek > 7 {
			return validation.Errorf("dayOfWeek", "must be between 1 (Monday) and 7 (Sunday)")
		}
		if input.SpecificDate != nil {
			return validation.Errorf("specificDate", "not allowed for recurring blocks")
		}
	case BlockOneTime:
		if input.SpecificDate == nil {
			return validation.Errorf("specificDate", "required for one-time blocks")
		}
		if input.DayOfWeek != nil {
			return validation.Errorf("dayOfWeek", "not allowed for one-time blocks")
		}
	default:
		return validation.Errorf("blockType", "must be RECURRING or ONE_TIME")
	}

	if !schedule.ValidClock(input.TimeSlot) {
		return validation.Errorf("timeSlot", "must be HH:mm")
	}

	return nil
}
