package booking

import (
	"context"
	"errors"
	"time"
)

var (
	ErrReservationNotFound = errors.New("reservation not found")
	ErrAlreadyCancelled    = errors.New("reservation is already cancelled")
	ErrNotCancellable      = errors.New("reservation can no longer be cancelled")

	// ErrSlotTaken is the storage-level uniqueness backstop: two requests
	// may both pass the availability re-check, but only one insert wins.
	ErrSlotTaken = errors.New("slot already has an active reservation")

	// ErrCodeCollision means the generated confirmation code is in use;
	// the caller regenerates and retries.
	ErrCodeCollision = errors.New("confirmation code already in use")
)

// Repository is the local reservation ledger, the single source of truth
// for slot occupancy.
type Repository interface {
	Create(ctx context.Context, r *Reservation) (*Reservation, error)
	FindByCode(ctx context.Context, code string) (*Reservation, error)
	// FindActiveInRange returns scheduled/confirmed reservations for the
	// civil dates from..to inclusive, in one query.
	FindActiveInRange(ctx context.Context, from, to time.Time) ([]Reservation, error)
	Cancel(ctx context.Context, code string) (*Reservation, error)
	SetExternalEventID(ctx context.Context, id int64, eventID string) error
}
