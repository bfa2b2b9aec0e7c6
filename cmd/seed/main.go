package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/clinicaplena/agenda-api/internal/booking"
	"github.com/clinicaplena/agenda-api/internal/db"
	"github.com/clinicaplena/agenda-api/internal/schedule"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lshortfile)
	log.Println("seed starting")

	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		log.Fatal("POSTGRES_DSN is required")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.ConnectPostgres(ctx, dsn)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	gofakeit.Seed(time.Now().UnixNano())

	if err := seedReservations(context.Background(), pool, 200); err != nil {
		log.Fatalf("seed reservations: %v", err)
	}
	if err := seedBlockedSlots(context.Background(), pool); err != nil {
		log.Fatalf("seed blocked slots: %v", err)
	}

	log.Println("seed complete")
}

// seedReservations fills roughly count future slots with fake bookings,
// skipping slots already taken so the unique index never trips.
func seedReservations(ctx context.Context, pool *pgxpool.Pool, count int) error {
	log.Printf("seeding up to %d reservations", count)

	settings := schedule.DefaultSettings()
	slots := settings.TimeSlots()

	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	seeded := 0
	taken := make(map[string]bool)

	for attempts := 0; seeded < count && attempts < count*3; attempts++ {
		date := time.Now().AddDate(0, 0, gofakeit.Number(1, 45))
		if !settings.DayAllowed(date) {
			continue
		}
		slot := slots[gofakeit.Number(0, len(slots)-1)]

		key := date.Format("2006-01-02") + " " + slot
		if taken[key] {
			continue
		}
		taken[key] = true

		modality := booking.ModalityPresencial
		if gofakeit.Bool() {
			modality = booking.ModalityOnline
		}

		_, err := tx.Exec(ctx, `
			INSERT INTO reservations
				(confirmation_code, contact_name, contact_email, contact_phone,
				 date, time_slot, modality, is_first_consultation, message, status,
				 created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, 'scheduled', now(), now())
		`,
			booking.NewConfirmationCode(),
			gofakeit.Name(),
			gofakeit.Email(),
			gofakeit.Phone(),
			date.Format("2006-01-02"),
			slot,
			string(modality),
			gofakeit.Bool(),
			gofakeit.Sentence(8),
		)
		if err != nil {
			return err
		}
		seeded++
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	log.Printf("reservations seeded: %d", seeded)
	return nil
}

func seedBlockedSlots(ctx context.Context, pool *pgxpool.Pool) error {
	log.Println("seeding blocked slots")

	tx, err := pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	// Weekday lunch break.
	for day := 1; day <= 4; day++ {
		_, err := tx.Exec(ctx, `
			INSERT INTO blocked_slots
				(block_type, day_of_week, time_slot, reason, is_active, created_by, created_at, updated_at)
			VALUES ('RECURRING', $1, '12:00', 'almoço', TRUE, 'seed', now(), now())
		`, day)
		if err != nil {
			return err
		}
	}

	// A handful of one-off absences.
	for i := 0; i < 5; i++ {
		date := time.Now().AddDate(0, 0, gofakeit.Number(7, 40))
		slot := fmt.Sprintf("%02d:00", gofakeit.Number(9, 17))

		_, err := tx.Exec(ctx, `
			INSERT INTO blocked_slots
				(block_type, specific_date, time_slot, reason, is_active, created_by, created_at, updated_at)
			VALUES ('ONE_TIME', $1, $2, $3, TRUE, 'seed', now(), now())
			ON CONFLICT DO NOTHING
		`, date.Format("2006-01-02"), slot, gofakeit.Sentence(4))
		if err != nil {
			return err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return err
	}

	log.Println("blocked slots seeded")
	return nil
}
