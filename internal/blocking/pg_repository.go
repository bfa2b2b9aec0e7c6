package blocking

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinicaplena/agenda-api/internal/db"
)

const pgUniqueViolation = "23505"

type PgRepository struct {
	pool   *pgxpool.Pool
	policy db.CallPolicy
}

func NewPgRepository(pool *pgxpool.Pool, policy db.CallPolicy) *PgRepository {
	return &PgRepository{pool: pool, policy: policy}
}

const blockedSlotColumns = `id, block_type, day_of_week, specific_date, time_slot, reason, is_active, created_by, created_at, updated_at`

func scanBlockedSlot(row pgx.Row) (*BlockedSlot, error) {
	var b BlockedSlot

	err := row.Scan(
		&b.ID,
		&b.BlockType,
		&b.DayOfWeek,
		&b.SpecificDate,
		&b.TimeSlot,
		&b.Reason,
		&b.IsActive,
		&b.CreatedBy,
		&b.CreatedAt,
		&b.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrBlockNotFound
		}
		return nil, err
	}

	return &b, nil
}

func (r *PgRepository) Create(ctx context.Context, b *BlockedSlot) (*BlockedSlot, error) {
	var created *BlockedSlot

	err := r.policy.Run(ctx, func(ctx context.Context) error {
		row := r.pool.QueryRow(ctx, `
			INSERT INTO blocked_slots (block_type, day_of_week, specific_date, time_slot, reason, is_active, created_by, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, now(), now())
			RETURNING `+blockedSlotColumns+`
		`, b.BlockType, b.DayOfWeek, b.SpecificDate, b.TimeSlot, b.Reason, b.IsActive, b.CreatedBy)

		var err error
		created, err = scanBlockedSlot(row)
		return err
	})
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return nil, ErrDuplicateBlock
		}
		return nil, fmt.Errorf("create blocked slot: %w", err)
	}

	return created, nil
}

func (r *PgRepository) GetByID(ctx context.Context, id int64) (*BlockedSlot, error) {
	var found *BlockedSlot

	err := r.policy.Run(ctx, func(ctx context.Context) error {
		row := r.pool.QueryRow(ctx, `
			SELECT `+blockedSlotColumns+`
			FROM blocked_slots
			WHERE id = $1
		`, id)

		var err error
		found, err = scanBlockedSlot(row)
		return err
	})
	if err != nil {
		if errors.Is(err, ErrBlockNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("get blocked slot: %w", err)
	}

	return found, nil
}

func (r *PgRepository) List(ctx context.Context, filter ListFilter) ([]BlockedSlot, error) {
	query := `SELECT ` + blockedSlotColumns + ` FROM blocked_slots WHERE 1=1`
	args := []any{}

	if filter.BlockType != nil {
		args = append(args, *filter.BlockType)
		query += fmt.Sprintf(" AND block_type = $%d", len(args))
	}
	if filter.IsActive != nil {
		args = append(args, *filter.IsActive)
		query += fmt.Sprintf(" AND is_active = $%d", len(args))
	}
	query += " ORDER BY id"

	var result []BlockedSlot

	err := r.policy.Run(ctx, func(ctx context.Context) error {
		rows, err := r.pool.Query(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()

		result = result[:0]
		for rows.Next() {
			b, err := scanBlockedSlot(rows)
			if err != nil {
				return err
			}
			result = append(result, *b)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("list blocked slots: %w", err)
	}

	return result, nil
}

func (r *PgRepository) ListActive(ctx context.Context) ([]BlockedSlot, error) {
	active := true
	return r.List(ctx, ListFilter{IsActive: &active})
}

func (r *PgRepository) Update(ctx context.Context, id int64, patch UpdatePatch) (*BlockedSlot, error) {
	var updated *BlockedSlot

	err := r.policy.Run(ctx, func(ctx context.Context) error {
		row := r.pool.QueryRow(ctx, `
			UPDATE blocked_slots
			SET is_active = COALESCE($2, is_active),
			    reason = COALESCE($3, reason),
			    updated_at = now()
			WHERE id = $1
			RETURNING `+blockedSlotColumns+`
		`, id, patch.IsActive, patch.Reason)

		var err error
		updated, err = scanBlockedSlot(row)
		return err
	})
	if err != nil {
		if errors.Is(err, ErrBlockNotFound) {
			return nil, err
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			// Re-activating a rule whose active twin was created meanwhile.
			return nil, ErrDuplicateBlock
		}
		return nil, fmt.Errorf("update blocked slot: %w", err)
	}

	return updated, nil
}

func (r *PgRepository) Delete(ctx context.Context, id int64) error {
	err := r.policy.Run(ctx, func(ctx context.Context) error {
		tag, err := r.pool.Exec(ctx, `DELETE FROM blocked_slots WHERE id = $1`, id)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return ErrBlockNotFound
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrBlockNotFound) {
			return err
		}
		return fmt.Errorf("delete blocked slot: %w", err)
	}

	return nil
}
