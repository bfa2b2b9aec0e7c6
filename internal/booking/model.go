package booking

import (
	"time"
)

type Modality string

const (
	ModalityPresencial Modality = "presencial"
	ModalityOnline     Modality = "online"
)

func (m Modality) Valid() bool {
	return m == ModalityPresencial || m == ModalityOnline
}

type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusConfirmed Status = "confirmed"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// Origin distinguishes ledger-backed reservations from legacy ones that
// exist only as external calendar events.
type Origin string

const (
	OriginLedger   Origin = "ledger"
	OriginCalendar Origin = "calendar"
)

// Reservation is a booked slot. Ledger rows are authoritative for
// occupancy; the external calendar event referenced by ExternalEventID is
// a best-effort mirror whose lifecycle is independent (the reference may
// dangle).
type Reservation struct {
	ID                  int64
	ConfirmationCode    string
	ContactName         string
	ContactEmail        string
	ContactPhone        string
	Date                time.Time // civil date
	TimeSlot            string    // "HH:mm"
	Modality            Modality
	IsFirstConsultation bool
	Message             string
	Status              Status
	ExternalEventID     *string
	Origin              Origin
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// Active reports whether the reservation still occupies its slot.
func (r *Reservation) Active() bool {
	return r.Status == StatusScheduled || r.Status == StatusConfirmed
}

// Legacy reports whether the reservation was reconstructed from a calendar
// event with no ledger row. Legacy reservations are read-only; cancelling
// one deletes the calendar event directly.
func (r *Reservation) Legacy() bool {
	return r.Origin == OriginCalendar
}
