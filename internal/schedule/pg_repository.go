package schedule

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinicaplena/agenda-api/internal/db"
)

type PgRepository struct {
	pool   *pgxpool.Pool
	policy db.CallPolicy
}

func NewPgRepository(pool *pgxpool.Pool, policy db.CallPolicy) *PgRepository {
	return &PgRepository{pool: pool, policy: policy}
}

func (r *PgRepository) GetSection(ctx context.Context, section string) (map[string]string, error) {
	values := make(map[string]string)

	err := r.policy.Run(ctx, func(ctx context.Context) error {
		rows, err := r.pool.Query(ctx, `
			SELECT key, value
			FROM schedule_settings
			WHERE section = $1
		`, section)
		if err != nil {
			return err
		}
		defer rows.Close()

		for rows.Next() {
			var key, value string
			if err := rows.Scan(&key, &value); err != nil {
				return err
			}
			values[key] = value
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("get settings section %s: %w", section, err)
	}

	return values, nil
}

func (r *PgRepository) UpsertSection(ctx context.Context, section string, values map[string]string) error {
	err := r.policy.Run(ctx, func(ctx context.Context) error {
		tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback(ctx) }()

		for key, value := range values {
			_, err := tx.Exec(ctx, `
				INSERT INTO schedule_settings (section, key, value, updated_at)
				VALUES ($1, $2, $3, now())
				ON CONFLICT (section, key)
				DO UPDATE SET value = EXCLUDED.value, updated_at = now()
			`, section, key, value)
			if err != nil {
				return err
			}
		}

		return tx.Commit(ctx)
	})
	if err != nil {
		return fmt.Errorf("upsert settings section %s: %w", section, err)
	}

	return nil
}
