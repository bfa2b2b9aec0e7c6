package calendar

import (
	"fmt"
	"sync"
	"time"
)

// TimeZoneName is the fixed zone all naive date/time strings from the UI
// are interpreted in. The clinic operates in São Paulo; interpreting slot
// times as UTC or host-local time produced off-by-timezone events before
// this was pinned down.
const TimeZoneName = "America/Sao_Paulo"

var location = sync.OnceValue(func() *time.Location {
	loc, err := time.LoadLocation(TimeZoneName)
	if err != nil {
		// Host without tzdata; BRT has not observed DST since 2019.
		return time.FixedZone("-03", -3*60*60)
	}
	return loc
})

// Location returns the clinic time zone.
func Location() *time.Location {
	return location()
}

// SlotStart combines a civil date and an "HH:mm" slot into an absolute
// instant in the clinic zone.
func SlotStart(date time.Time, slot string) (time.Time, error) {
	clock, err := time.Parse("15:04", slot)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid slot %q: %w", slot, err)
	}
	y, m, d := date.Date()
	return time.Date(y, m, d, clock.Hour(), clock.Minute(), 0, 0, Location()), nil
}

// DayWindow returns the absolute [start, end) instants covering the civil
// dates from..to inclusive, in the clinic zone.
func DayWindow(from, to time.Time) (time.Time, time.Time) {
	loc := Location()
	fy, fm, fd := from.Date()
	ty, tm, td := to.Date()
	start := time.Date(fy, fm, fd, 0, 0, 0, 0, loc)
	end := time.Date(ty, tm, td, 0, 0, 0, 0, loc).AddDate(0, 0, 1)
	return start, end
}

// SlotKey maps an event's start instant back to the (date, slot) pair it
// occupies in clinic-local terms.
func (e Event) SlotKey() (date string, slot string) {
	local := e.Start.In(Location())
	return local.Format("2006-01-02"), local.Format("15:04")
}
