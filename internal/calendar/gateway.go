package calendar

import (
	"context"
	"errors"
	"time"
)

// ErrCalendarUnavailable is returned for network, quota, and auth failures
// against the external calendar. Callers treat the mirror as best-effort:
// this error must never fail an otherwise-valid local booking.
var ErrCalendarUnavailable = errors.New("external calendar unavailable")

// Event is a calendar entry as seen by availability and legacy lookups.
// Events are never persisted locally; the external service owns them.
type Event struct {
	ID          string
	Start       time.Time
	End         time.Time
	Summary     string
	Description string
}

// EventDetails carries everything needed to mirror a reservation into the
// external calendar.
type EventDetails struct {
	Name              string
	Email             string
	Phone             string
	Date              time.Time // civil date
	TimeSlot          string    // "HH:mm", clinic-local
	DurationMinutes   int
	Modality          string
	ConfirmationCode  string
	FirstConsultation bool
	Message           string
}

// Gateway abstracts the external calendar service. Range reads must be a
// single windowed query, never one call per day.
type Gateway interface {
	ListEvents(ctx context.Context, from, to time.Time) ([]Event, error)
	InsertEvent(ctx context.Context, details EventDetails) (string, error)
	// DeleteEvent treats an already-deleted event as success.
	DeleteEvent(ctx context.Context, eventID string) error
}

// Noop is used when no calendar is configured. Bookings proceed without a
// mirror and availability sees no external events.
type Noop struct{}

func (Noop) ListEvents(ctx context.Context, from, to time.Time) ([]Event, error) {
	return nil, nil
}

func (Noop) InsertEvent(ctx context.Context, details EventDetails) (string, error) {
	return "", nil
}

func (Noop) DeleteEvent(ctx context.Context, eventID string) error {
	return nil
}
