package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/clinicaplena/agenda-api/internal/calendar"
	"github.com/clinicaplena/agenda-api/internal/observability/metrics"
	"github.com/clinicaplena/agenda-api/internal/schedule"
	"github.com/clinicaplena/agenda-api/internal/validation"
)

// legacyLookbackDays bounds how far back the calendar is scanned when a
// confirmation code has no ledger row.
const legacyLookbackDays = 30

// BookingRequest is the raw client input for a new booking.
type BookingRequest struct {
	Name                string
	Email               string
	Phone               string
	Date                string // "2006-01-02"
	TimeSlot            string // "HH:mm"
	Modality            string
	Message             string
	IsFirstConsultation bool
}

// BookingResult is the orchestrator's answer. MirrorDegraded is set when
// the reservation was created but the external calendar mirror failed.
type BookingResult struct {
	Reservation    *Reservation
	MirrorDegraded bool
}

// AvailabilityChecker re-validates a single slot right before commit.
type AvailabilityChecker interface {
	IsSlotFree(ctx context.Context, date time.Time, slot string) (bool, error)
}

// SettingsSource provides the session duration for mirror events.
type SettingsSource interface {
	Settings(ctx context.Context) (schedule.Settings, error)
}

// Notifier delivers booking emails. Calls are fire-and-forget: failures
// are logged and never fail the booking response.
type Notifier interface {
	BookingConfirmed(ctx context.Context, r *Reservation) error
	BookingCancelled(ctx context.Context, r *Reservation) error
}

// Service coordinates validation, the availability re-check, the ledger
// write, the calendar mirror, and notification. The ledger's uniqueness
// constraint is the final arbiter for conflicts; the mirror is best-effort
// and allowed to stay permanently behind the ledger.
type Service struct {
	repo        Repository
	avail       AvailabilityChecker
	cal         calendar.Gateway
	settings    SettingsSource
	notify      Notifier
	metrics     *metrics.BookingMetrics
	log         zerolog.Logger
	advanceDays int
	now         func() time.Time
}

func NewService(repo Repository, avail AvailabilityChecker, cal calendar.Gateway, settings SettingsSource, notify Notifier, m *metrics.BookingMetrics, log zerolog.Logger, advanceDays int) *Service {
	if advanceDays <= 0 {
		advanceDays = 60
	}
	return &Service{
		repo:        repo,
		avail:       avail,
		cal:         cal,
		settings:    settings,
		notify:      notify,
		metrics:     m,
		log:         log,
		advanceDays: advanceDays,
		now:         time.Now,
	}
}

// Book runs the full booking flow and returns the confirmation code.
func (s *Service) Book(ctx context.Context, req BookingRequest) (*BookingResult, error) {
	date, err := s.validate(req)
	if err != nil {
		s.metrics.ObserveBooking("validation_error")
		return nil, err
	}

	free, err := s.avail.IsSlotFree(ctx, date, req.TimeSlot)
	if err != nil {
		s.metrics.ObserveBooking("error")
		return nil, fmt.Errorf("availability re-check: %w", err)
	}
	if !free {
		s.metrics.ObserveBooking("conflict")
		return nil, ErrSlotTaken
	}

	created, err := s.createWithFreshCode(ctx, req, date)
	if err != nil {
		if errors.Is(err, ErrSlotTaken) {
			// Lost the race between the re-check and the insert.
			s.metrics.ObserveBooking("conflict")
		} else {
			s.metrics.ObserveBooking("error")
		}
		return nil, err
	}

	result := &BookingResult{Reservation: created}
	s.mirror(ctx, created, result)

	if s.notify != nil {
		if err := s.notify.BookingConfirmed(ctx, created); err != nil {
			s.log.Warn().Err(err).Str("code", created.ConfirmationCode).Msg("booking notification failed")
		}
	}

	s.metrics.ObserveBooking("created")
	s.log.Info().Str("code", created.ConfirmationCode).
		Str("date", created.Date.Format("2006-01-02")).
		Str("slot", created.TimeSlot).
		Bool("mirror_degraded", result.MirrorDegraded).
		Msg("booking created")

	return result, nil
}

// createWithFreshCode retries reservation insertion on confirmation-code
// collisions. Slot conflicts are not retried; they mean someone else won.
func (s *Service) createWithFreshCode(ctx context.Context, req BookingRequest, date time.Time) (*Reservation, error) {
	for attempt := 0; attempt < maxCodeAttempts; attempt++ {
		res := &Reservation{
			ConfirmationCode:    NewConfirmationCode(),
			ContactName:         strings.TrimSpace(req.Name),
			ContactEmail:        strings.TrimSpace(req.Email),
			ContactPhone:        strings.TrimSpace(req.Phone),
			Date:                date,
			TimeSlot:            req.TimeSlot,
			Modality:            Modality(req.Modality),
			IsFirstConsultation: req.IsFirstConsultation,
			Message:             strings.TrimSpace(req.Message),
			Status:              StatusScheduled,
		}

		created, err := s.repo.Create(ctx, res)
		if err == nil {
			return created, nil
		}
		if errors.Is(err, ErrCodeCollision) {
			s.log.Warn().Int("attempt", attempt+1).Msg("confirmation code collision, regenerating")
			continue
		}
		return nil, err
	}
	return nil, fmt.Errorf("confirmation code generation: %w", ErrCodeCollision)
}

// mirror inserts the external calendar event. Failure never rolls back the
// reservation; the booking completes with a null external event id.
func (s *Service) mirror(ctx context.Context, res *Reservation, result *BookingResult) {
	duration := 60
	if s.settings != nil {
		if cfg, err := s.settings.Settings(ctx); err == nil {
			duration = cfg.SessionDuration
		}
	}

	eventID, err := s.cal.InsertEvent(ctx, calendar.EventDetails{
		Name:              res.ContactName,
		Email:             res.ContactEmail,
		Phone:             res.ContactPhone,
		Date:              res.Date,
		TimeSlot:          res.TimeSlot,
		DurationMinutes:   duration,
		Modality:          string(res.Modality),
		ConfirmationCode:  res.ConfirmationCode,
		FirstConsultation: res.IsFirstConsultation,
		Message:           res.Message,
	})
	if err != nil {
		result.MirrorDegraded = true
		s.metrics.ObserveMirrorFailure()
		s.log.Warn().Err(err).Str("code", res.ConfirmationCode).
			Msg("calendar mirror failed, reservation kept without external event")
		return
	}
	if eventID == "" {
		return
	}

	if err := s.repo.SetExternalEventID(ctx, res.ID, eventID); err != nil {
		s.log.Warn().Err(err).Str("code", res.ConfirmationCode).
			Str("event_id", eventID).Msg("could not persist external event id")
		return
	}
	res.ExternalEventID = &eventID
}

// Lookup finds a reservation by confirmation code. When the ledger has no
// row the calendar window is scanned for a legacy event carrying the code.
func (s *Service) Lookup(ctx context.Context, code string) (*Reservation, error) {
	code = normalizeCode(code)
	if code == "" {
		return nil, validation.Errorf("confirmationCode", "required")
	}

	res, err := s.repo.FindByCode(ctx, code)
	if err == nil {
		return res, nil
	}
	if !errors.Is(err, ErrReservationNotFound) {
		return nil, err
	}

	legacy, err := s.findLegacy(ctx, code)
	if err != nil {
		return nil, err
	}
	return legacy, nil
}

// Cancel transitions a reservation to cancelled and removes the mirror
// event. Cancelling twice is an error, distinct from an unknown code.
func (s *Service) Cancel(ctx context.Context, code string) error {
	code = normalizeCode(code)
	if code == "" {
		return validation.Errorf("confirmationCode", "required")
	}

	cancelled, err := s.repo.Cancel(ctx, code)
	if err != nil {
		if errors.Is(err, ErrReservationNotFound) {
			return s.cancelLegacy(ctx, code)
		}
		s.metrics.ObserveCancellation("error")
		return err
	}

	if cancelled.ExternalEventID != nil {
		if err := s.cal.DeleteEvent(ctx, *cancelled.ExternalEventID); err != nil {
			// Mirror may stay behind; the ledger row is what matters.
			s.metrics.ObserveMirrorFailure()
			s.log.Warn().Err(err).Str("code", code).Msg("calendar mirror delete failed")
		}
	}

	if s.notify != nil {
		if err := s.notify.BookingCancelled(ctx, cancelled); err != nil {
			s.log.Warn().Err(err).Str("code", code).Msg("cancellation notification failed")
		}
	}

	s.metrics.ObserveCancellation("cancelled")
	s.log.Info().Str("code", code).Msg("booking cancelled")
	return nil
}

// cancelLegacy handles codes that only exist as calendar events. With no
// ledger row to update, deleting the event is the cancellation, so a
// calendar failure here does fail the operation.
func (s *Service) cancelLegacy(ctx context.Context, code string) error {
	legacy, err := s.findLegacy(ctx, code)
	if err != nil {
		s.metrics.ObserveCancellation("not_found")
		return err
	}

	if err := s.cal.DeleteEvent(ctx, *legacy.ExternalEventID); err != nil {
		s.metrics.ObserveCancellation("error")
		return fmt.Errorf("cancel legacy reservation: %w", err)
	}

	if s.notify != nil {
		if err := s.notify.BookingCancelled(ctx, legacy); err != nil {
			s.log.Warn().Err(err).Str("code", code).Msg("cancellation notification failed")
		}
	}

	s.metrics.ObserveCancellation("cancelled_legacy")
	s.log.Info().Str("code", code).Msg("legacy calendar booking cancelled")
	return nil
}

// findLegacy scans the calendar window for an event whose description
// carries the confirmation code, reconstructing a read-only reservation.
func (s *Service) findLegacy(ctx context.Context, code string) (*Reservation, error) {
	today := s.today()
	from := today.AddDate(0, 0, -legacyLookbackDays)
	to := today.AddDate(0, 0, s.advanceDays)

	events, err := s.cal.ListEvents(ctx, from, to)
	if err != nil {
		s.log.Warn().Err(err).Str("code", code).Msg("legacy lookup degraded, calendar unavailable")
		return nil, ErrReservationNotFound
	}

	for _, ev := range events {
		details := calendar.ParseLegacyDetails(ev.Description)
		if details.ConfirmationCode == "" || normalizeCode(details.ConfirmationCode) != code {
			continue
		}

		dateStr, slot := ev.SlotKey()
		date, err := time.Parse("2006-01-02", dateStr)
		if err != nil {
			continue
		}

		eventID := ev.ID
		modality := Modality(details.Modality)
		if !modality.Valid() {
			modality = ModalityPresencial
		}

		return &Reservation{
			ConfirmationCode:    code,
			ContactName:         details.Name,
			ContactEmail:        details.Email,
			ContactPhone:        details.Phone,
			Date:                date,
			TimeSlot:            slot,
			Modality:            modality,
			IsFirstConsultation: details.FirstConsultation,
			Message:             details.Message,
			Status:              StatusScheduled,
			ExternalEventID:     &eventID,
			Origin:              OriginCalendar,
		}, nil
	}

	return nil, ErrReservationNotFound
}

func (s *Service) validate(req BookingRequest) (time.Time, error) {
	if strings.TrimSpace(req.Name) == "" {
		return time.Time{}, validation.Errorf("name", "required")
	}
	if email := strings.TrimSpace(req.Email); email == "" || !strings.Contains(email, "@") {
		return time.Time{}, validation.Errorf("email", "a valid email address is required")
	}
	if strings.TrimSpace(req.Phone) == "" {
		return time.Time{}, validation.Errorf("phone", "required")
	}
	if !Modality(req.Modality).Valid() {
		return time.Time{}, validation.Errorf("modality", "must be presencial or online")
	}
	if !schedule.ValidClock(req.TimeSlot) {
		return time.Time{}, validation.Errorf("timeSlot", "must be HH:mm")
	}

	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		return time.Time{}, validation.Errorf("date", "must be YYYY-MM-DD")
	}

	today := s.today()
	if date.Before(today) {
		return time.Time{}, validation.Errorf("date", "cannot be in the past")
	}
	if date.After(today.AddDate(0, 0, s.advanceDays)) {
		return time.Time{}, validation.Errorf("date", "bookings open at most %d days ahead", s.advanceDays)
	}

	return date, nil
}

// today is the current civil date in the clinic zone, as a UTC-midnight
// value comparable with parsed request dates.
func (s *Service) today() time.Time {
	now := s.now().In(calendar.Location())
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
