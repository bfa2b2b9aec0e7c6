package availability

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clinicaplena/agenda-api/internal/blocking"
	"github.com/clinicaplena/agenda-api/internal/booking"
	"github.com/clinicaplena/agenda-api/internal/calendar"
	"github.com/clinicaplena/agenda-api/internal/schedule"
	"github.com/clinicaplena/agenda-api/internal/validation"
)

type stubSettings struct {
	settings schedule.Settings
	calls    int
}

func (s *stubSettings) Settings(ctx context.Context) (schedule.Settings, error) {
	s.calls++
	return s.settings, nil
}

type stubRules struct {
	rules []blocking.BlockedSlot
	calls int
}

func (s *stubRules) ListActive(ctx context.Context) ([]blocking.BlockedSlot, error) {
	s.calls++
	return s.rules, nil
}

type stubLedger struct {
	reservations []booking.Reservation
	calls        int
}

func (s *stubLedger) FindActiveInRange(ctx context.Context, from, to time.Time) ([]booking.Reservation, error) {
	s.calls++
	return s.reservations, nil
}

type stubGateway struct {
	calendar.Noop
	events    []calendar.Event
	listCalls int
	listErr   error
}

func (s *stubGateway) ListEvents(ctx context.Context, from, to time.Time) ([]calendar.Event, error) {
	s.listCalls++
	if s.listErr != nil {
		return nil, s.listErr
	}
	return s.events, nil
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// spEvent builds a calendar event starting at the given São Paulo local time.
func spEvent(id string, y int, m time.Month, d, hour int) calendar.Event {
	start := time.Date(y, m, d, hour, 0, 0, 0, calendar.Location())
	return calendar.Event{ID: id, Start: start, End: start.Add(time.Hour)}
}

func newComputer(settings *stubSettings, rules *stubRules, ledger *stubLedger, gw *stubGateway) *Computer {
	return NewComputer(settings, rules, ledger, gw, nil, zerolog.Nop())
}

func TestComputeWeekRangeBatchedCalls(t *testing.T) {
	settings := &stubSettings{settings: schedule.DefaultSettings()}
	rules := &stubRules{}
	ledger := &stubLedger{reservations: []booking.Reservation{{
		Date:     date(2025, 6, 3), // Tuesday
		TimeSlot: "10:00",
		Status:   booking.StatusScheduled,
	}}}
	gw := &stubGateway{events: []calendar.Event{
		spEvent("ev1", 2025, time.June, 4, 14), // Wednesday 14:00 local
	}}

	c := newComputer(settings, rules, ledger, gw)

	// Mon Jun 2 through Sun Jun 8: four working days, Fri-Sun off.
	days, err := c.Compute(context.Background(), date(2025, 6, 2), date(2025, 6, 8))
	require.NoError(t, err)
	require.Len(t, days, 7)

	assert.Equal(t, 1, gw.listCalls, "one windowed calendar query for the whole range")
	assert.Equal(t, 1, ledger.calls, "one ledger query for the whole range")
	assert.Equal(t, 1, rules.calls)
	assert.Equal(t, 1, settings.calls)

	byDate := map[string][]string{}
	for i, day := range days {
		expected := date(2025, 6, 2+i).Format("2006-01-02")
		assert.Equal(t, expected, day.Date, "chronological order")
		byDate[day.Date] = day.Slots
	}

	assert.Len(t, byDate["2025-06-02"], 13, "untouched working day keeps the full template")
	assert.Len(t, byDate["2025-06-03"], 12, "local reservation removes one slot")
	assert.NotContains(t, byDate["2025-06-03"], "10:00")
	assert.Len(t, byDate["2025-06-04"], 12, "external event removes one slot")
	assert.NotContains(t, byDate["2025-06-04"], "14:00")

	for _, off := range []string{"2025-06-06", "2025-06-07", "2025-06-08"} {
		require.Contains(t, byDate, off)
		assert.Empty(t, byDate[off], "non-working day yields an empty, not missing, entry")
	}
}

func TestComputeSlotOrderMatchesTemplate(t *testing.T) {
	settings := &stubSettings{settings: schedule.DefaultSettings()}
	c := newComputer(settings, &stubRules{}, &stubLedger{}, &stubGateway{})

	days, err := c.Compute(context.Background(), date(2025, 6, 2), date(2025, 6, 2))
	require.NoError(t, err)

	assert.Equal(t, settings.settings.TimeSlots(), days[0].Slots)
}

func TestComputeBlockedAndReservedSubtractedOnce(t *testing.T) {
	dow := 1 // Monday
	rules := &stubRules{rules: []blocking.BlockedSlot{{
		BlockType: blocking.BlockRecurring,
		DayOfWeek: &dow,
		TimeSlot:  "09:00",
		IsActive:  true,
	}}}
	ledger := &stubLedger{reservations: []booking.Reservation{{
		Date:     date(2025, 6, 2),
		TimeSlot: "09:00",
		Status:   booking.StatusScheduled,
	}}}

	c := newComputer(&stubSettings{settings: schedule.DefaultSettings()}, rules, ledger, &stubGateway{})

	days, err := c.Compute(context.Background(), date(2025, 6, 2), date(2025, 6, 2))
	require.NoError(t, err)

	assert.Len(t, days[0].Slots, 12, "doubly-excluded slot disappears exactly once")
	assert.NotContains(t, days[0].Slots, "09:00")
}

func TestComputeInactiveBlockDoesNotExclude(t *testing.T) {
	specific := date(2025, 6, 2)
	rules := &stubRules{rules: []blocking.BlockedSlot{{
		BlockType:    blocking.BlockOneTime,
		SpecificDate: &specific,
		TimeSlot:     "11:00",
		IsActive:     false,
	}}}

	c := newComputer(&stubSettings{settings: schedule.DefaultSettings()}, rules, &stubLedger{}, &stubGateway{})

	days, err := c.Compute(context.Background(), specific, specific)
	require.NoError(t, err)
	assert.Contains(t, days[0].Slots, "11:00")
}

func TestComputeDegradesWhenCalendarUnavailable(t *testing.T) {
	gw := &stubGateway{listErr: calendar.ErrCalendarUnavailable}
	c := newComputer(&stubSettings{settings: schedule.DefaultSettings()}, &stubRules{}, &stubLedger{}, gw)

	days, err := c.Compute(context.Background(), date(2025, 6, 2), date(2025, 6, 2))
	require.NoError(t, err, "calendar outage must not fail the computation")
	assert.Len(t, days[0].Slots, 13)
}

func TestComputeRejectsInvertedRange(t *testing.T) {
	c := newComputer(&stubSettings{settings: schedule.DefaultSettings()}, &stubRules{}, &stubLedger{}, &stubGateway{})

	_, err := c.Compute(context.Background(), date(2025, 6, 8), date(2025, 6, 2))
	var verr *validation.Error
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "endDate", verr.Field)
}

func TestComputeRejectsOversizedRange(t *testing.T) {
	c := newComputer(&stubSettings{settings: schedule.DefaultSettings()}, &stubRules{}, &stubLedger{}, &stubGateway{})

	_, err := c.Compute(context.Background(), date(2025, 1, 1), date(2025, 12, 31))
	var verr *validation.Error
	require.ErrorAs(t, err, &verr)
}

func TestIsSlotFree(t *testing.T) {
	ledger := &stubLedger{reservations: []booking.Reservation{{
		Date:     date(2025, 6, 2),
		TimeSlot: "10:00",
		Status:   booking.StatusScheduled,
	}}}
	c := newComputer(&stubSettings{settings: schedule.DefaultSettings()}, &stubRules{}, ledger, &stubGateway{})
	ctx := context.Background()

	free, err := c.IsSlotFree(ctx, date(2025, 6, 2), "10:00")
	require.NoError(t, err)
	assert.False(t, free)

	free, err = c.IsSlotFree(ctx, date(2025, 6, 2), "11:00")
	require.NoError(t, err)
	assert.True(t, free)

	// Friday is outside the default working days.
	free, err = c.IsSlotFree(ctx, date(2025, 6, 6), "11:00")
	require.NoError(t, err)
	assert.False(t, free)
}
