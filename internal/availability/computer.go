package availability

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/clinicaplena/agenda-api/internal/blocking"
	"github.com/clinicaplena/agenda-api/internal/booking"
	"github.com/clinicaplena/agenda-api/internal/calendar"
	"github.com/clinicaplena/agenda-api/internal/observability/metrics"
	"github.com/clinicaplena/agenda-api/internal/schedule"
	"github.com/clinicaplena/agenda-api/internal/validation"
)

// maxRangeDays caps a single availability query; the calendar UI asks for
// at most a month at a time.
const maxRangeDays = 92

// DayAvailability is one day's free slots in template order. A day outside
// working hours gets an empty (never missing) slot list, so callers can
// tell "no slots" from "date not requested".
type DayAvailability struct {
	Date  string   `json:"date"`
	Slots []string `json:"slots"`
}

type SettingsSource interface {
	Settings(ctx context.Context) (schedule.Settings, error)
}

type RuleSource interface {
	ListActive(ctx context.Context) ([]blocking.BlockedSlot, error)
}

type ReservationSource interface {
	FindActiveInRange(ctx context.Context, from, to time.Time) ([]booking.Reservation, error)
}

// Computer produces the free slots per day for a date range by subtracting
// occupied slots (ledger reservations plus external calendar events) and
// administrator blocks from the configured slot template.
type Computer struct {
	settings SettingsSource
	rules    RuleSource
	ledger   ReservationSource
	cal      calendar.Gateway
	metrics  *metrics.BookingMetrics
	log      zerolog.Logger
}

func NewComputer(settings SettingsSource, rules RuleSource, ledger ReservationSource, cal calendar.Gateway, m *metrics.BookingMetrics, log zerolog.Logger) *Computer {
	return &Computer{
		settings: settings,
		rules:    rules,
		ledger:   ledger,
		cal:      cal,
		metrics:  m,
		log:      log,
	}
}

// Compute returns availability for the civil dates from..to inclusive,
// chronologically ordered. The calendar, the ledger, and the blocking
// rules are each fetched in exactly one batched call for the whole range.
func (c *Computer) Compute(ctx context.Context, from, to time.Time) ([]DayAvailability, error) {
	if to.Before(from) {
		return nil, validation.Errorf("endDate", "must not precede startDate")
	}
	days := int(to.Sub(from).Hours()/24) + 1
	if days > maxRangeDays {
		return nil, validation.Errorf("endDate", "range must not exceed %d days", maxRangeDays)
	}

	started := time.Now()

	var (
		settings     schedule.Settings
		rules        []blocking.BlockedSlot
		reservations []booking.Reservation
		events       []calendar.Event
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		settings, err = c.settings.Settings(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		rules, err = c.rules.ListActive(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		reservations, err = c.ledger.FindActiveInRange(gctx, from, to)
		return err
	})
	g.Go(func() error {
		var err error
		events, err = c.cal.ListEvents(gctx, from, to)
		if errors.Is(err, calendar.ErrCalendarUnavailable) {
			// Degrade rather than fail the whole range: the ledger is
			// authoritative and the insert constraint still backstops
			// any booking made off this slightly optimistic view.
			c.log.Warn().Err(err).Msg("availability computed without external calendar")
			events, err = nil, nil
		}
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("gather availability inputs: %w", err)
	}

	template := settings.TimeSlots()
	occupied := occupiedByDate(reservations, events)

	results := make([]DayAvailability, days)
	var dg errgroup.Group
	for i := 0; i < days; i++ {
		date := from.AddDate(0, 0, i)
		dg.Go(func() error {
			results[i] = dayAvailability(date, settings, template, rules, occupied)
			return nil
		})
	}
	_ = dg.Wait()

	c.metrics.ObserveAvailability(time.Since(started).Seconds())
	return results, nil
}

// IsSlotFree re-checks one slot, used by the booking flow right before the
// ledger write.
func (c *Computer) IsSlotFree(ctx context.Context, date time.Time, slot string) (bool, error) {
	days, err := c.Compute(ctx, date, date)
	if err != nil {
		return false, err
	}
	for _, s := range days[0].Slots {
		if s == slot {
			return true, nil
		}
	}
	return false, nil
}

// dayAvailability subtracts occupied and blocked slots from the template,
// preserving template order. Set semantics: a slot both reserved and
// blocked disappears exactly once.
func dayAvailability(date time.Time, settings schedule.Settings, template []string, rules []blocking.BlockedSlot, occupied map[string]map[string]struct{}) DayAvailability {
	dateStr := date.Format("2006-01-02")
	day := DayAvailability{Date: dateStr, Slots: []string{}}

	if !settings.DayAllowed(date) {
		return day
	}

	taken := occupied[dateStr]
	blocked := blocking.BlockedSetFor(rules, date)

	for _, slot := range template {
		if _, ok := taken[slot]; ok {
			continue
		}
		if _, ok := blocked[slot]; ok {
			continue
		}
		day.Slots = append(day.Slots, slot)
	}
	return day
}

func occupiedByDate(reservations []booking.Reservation, events []calendar.Event) map[string]map[string]struct{} {
	occupied := make(map[string]map[string]struct{})

	mark := func(date, slot string) {
		if occupied[date] == nil {
			occupied[date] = make(map[string]struct{})
		}
		occupied[date][slot] = struct{}{}
	}

	for _, r := range reservations {
		mark(r.Date.Format("2006-01-02"), r.TimeSlot)
	}
	for _, ev := range events {
		mark(ev.SlotKey())
	}

	return occupied
}
