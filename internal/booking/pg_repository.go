package booking

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinicaplena/agenda-api/internal/db"
)

const pgUniqueViolation = "23505"

// Index names from the migrations; used to tell a slot conflict from a
// confirmation-code collision on insert.
const (
	constraintActiveSlot = "reservations_active_slot_uniq"
	constraintCode       = "reservations_confirmation_code_uniq"
)

type PgRepository struct {
	pool   *pgxpool.Pool
	policy db.CallPolicy
}

func NewPgRepository(pool *pgxpool.Pool, policy db.CallPolicy) *PgRepository {
	return &PgRepository{pool: pool, policy: policy}
}

const reservationColumns = `id, confirmation_code, contact_name, contact_email, contact_phone, date, time_slot, modality, is_first_consultation, message, status, external_event_id, created_at, updated_at`

func scanReservation(row pgx.Row) (*Reservation, error) {
	var r Reservation

	err := row.Scan(
		&r.ID,
		&r.ConfirmationCode,
		&r.ContactName,
		&r.ContactEmail,
		&r.ContactPhone,
		&r.Date,
		&r.TimeSlot,
		&r.Modality,
		&r.IsFirstConsultation,
		&r.Message,
		&r.Status,
		&r.ExternalEventID,
		&r.CreatedAt,
		&r.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrReservationNotFound
		}
		return nil, err
	}

	r.Origin = OriginLedger
	return &r, nil
}

func (r *PgRepository) Create(ctx context.Context, res *Reservation) (*Reservation, error) {
	var created *Reservation

	err := r.policy.Run(ctx, func(ctx context.Context) error {
		row := r.pool.QueryRow(ctx, `
			INSERT INTO reservations (confirmation_code, contact_name, contact_email, contact_phone, date, time_slot, modality, is_first_consultation, message, status, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, 'scheduled', now(), now())
			RETURNING `+reservationColumns+`
		`, res.ConfirmationCode, res.ContactName, res.ContactEmail, res.ContactPhone,
			res.Date, res.TimeSlot, res.Modality, res.IsFirstConsultation, res.Message)

		var err error
		created, err = scanReservation(row)
		return err
	})
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			switch pgErr.ConstraintName {
			case constraintCode:
				return nil, ErrCodeCollision
			default:
				// The partial index over active statuses; someone else
				// holds the slot.
				return nil, ErrSlotTaken
			}
		}
		return nil, fmt.Errorf("create reservation: %w", err)
	}

	return created, nil
}

func (r *PgRepository) FindByCode(ctx context.Context, code string) (*Reservation, error) {
	var found *Reservation

	err := r.policy.Run(ctx, func(ctx context.Context) error {
		row := r.pool.QueryRow(ctx, `
			SELECT `+reservationColumns+`
			FROM reservations
			WHERE confirmation_code = $1
		`, code)

		var err error
		found, err = scanReservation(row)
		return err
	})
	if err != nil {
		if errors.Is(err, ErrReservationNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("find reservation by code: %w", err)
	}

	return found, nil
}

func (r *PgRepository) FindActiveInRange(ctx context.Context, from, to time.Time) ([]Reservation, error) {
	var result []Reservation

	err := r.policy.Run(ctx, func(ctx context.Context) error {
		rows, err := r.pool.Query(ctx, `
			SELECT `+reservationColumns+`
			FROM reservations
			WHERE date >= $1 AND date <= $2
			  AND status IN ('scheduled', 'confirmed')
			ORDER BY date, time_slot
		`, from, to)
		if err != nil {
			return err
		}
		defer rows.Close()

		result = result[:0]
		for rows.Next() {
			res, err := scanReservation(rows)
			if err != nil {
				return err
			}
			result = append(result, *res)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("find reservations in range: %w", err)
	}

	return result, nil
}

// Cancel transitions an active reservation to cancelled. The row is kept
// for audit history, never deleted.
func (r *PgRepository) Cancel(ctx context.Context, code string) (*Reservation, error) {
	var cancelled *Reservation

	err := r.policy.Run(ctx, func(ctx context.Context) error {
		row := r.pool.QueryRow(ctx, `
			UPDATE reservations
			SET status = 'cancelled',
			    updated_at = now()
			WHERE confirmation_code = $1
			  AND status IN ('scheduled', 'confirmed')
			RETURNING `+reservationColumns+`
		`, code)

		var err error
		cancelled, err = scanReservation(row)
		if !errors.Is(err, ErrReservationNotFound) {
			return err
		}

		// No cancellable row; distinguish why.
		var status Status
		selErr := r.pool.QueryRow(ctx, `
			SELECT status FROM reservations WHERE confirmation_code = $1
		`, code).Scan(&status)
		if selErr != nil {
			if errors.Is(selErr, pgx.ErrNoRows) {
				return ErrReservationNotFound
			}
			return selErr
		}
		if status == StatusCancelled {
			return ErrAlreadyCancelled
		}
		return ErrNotCancellable
	})
	if err != nil {
		if errors.Is(err, ErrReservationNotFound) || errors.Is(err, ErrAlreadyCancelled) || errors.Is(err, ErrNotCancellable) {
			return nil, err
		}
		return nil, fmt.Errorf("cancel reservation: %w", err)
	}

	return cancelled, nil
}

func (r *PgRepository) SetExternalEventID(ctx context.Context, id int64, eventID string) error {
	err := r.policy.Run(ctx, func(ctx context.Context) error {
		tag, err := r.pool.Exec(ctx, `
			UPDATE reservations
			SET external_event_id = $2,
			    updated_at = now()
			WHERE id = $1
		`, id, eventID)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return ErrReservationNotFound
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrReservationNotFound) {
			return err
		}
		return fmt.Errorf("set external event id: %w", err)
	}

	return nil
}
