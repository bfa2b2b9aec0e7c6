package schedule

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// SectionScheduling is the settings section holding working hours and days.
const SectionScheduling = "agendamento"

const (
	keyStartTime       = "start_time"
	keyEndTime         = "end_time"
	keySessionDuration = "session_duration"
	keyWorkingDays     = "working_days"

	defaultStartTime       = "08:00"
	defaultEndTime         = "21:00"
	defaultSessionDuration = 60
)

// Settings is the effective schedule configuration. Missing or malformed
// persisted values fall back to defaults key by key, so the clinic always
// has some schedule.
type Settings struct {
	StartTime       string // "HH:mm"
	EndTime         string // "HH:mm", exclusive slot boundary
	SessionDuration int    // minutes
	WorkingDays     map[time.Weekday]bool
}

func DefaultSettings() Settings {
	return Settings{
		StartTime:       defaultStartTime,
		EndTime:         defaultEndTime,
		SessionDuration: defaultSessionDuration,
		WorkingDays: map[time.Weekday]bool{
			time.Monday:    true,
			time.Tuesday:   true,
			time.Wednesday: true,
			time.Thursday:  true,
		},
	}
}

var weekdayNames = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// ParseValues builds Settings from a persisted key/value section.
func ParseValues(values map[string]string) Settings {
	s := DefaultSettings()

	if v, ok := values[keyStartTime]; ok {
		if _, err := parseClock(v); err == nil {
			s.StartTime = v
		}
	}
	if v, ok := values[keyEndTime]; ok {
		if _, err := parseClock(v); err == nil {
			s.EndTime = v
		}
	}
	if v, ok := values[keySessionDuration]; ok {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			s.SessionDuration = n
		}
	}
	if v, ok := values[keyWorkingDays]; ok {
		var days map[string]bool
		if err := json.Unmarshal([]byte(v), &days); err == nil {
			parsed := make(map[time.Weekday]bool, len(days))
			for name, active := range days {
				if wd, ok := weekdayNames[strings.ToLower(name)]; ok {
					parsed[wd] = active
				}
			}
			if len(parsed) > 0 {
				s.WorkingDays = parsed
			}
		}
	}

	return s
}

// TimeSlots returns the ordered slot-start times between StartTime and
// EndTime, stepping by SessionDuration. A slot whose end would pass
// EndTime is excluded, so the last slot starts strictly before the close.
func (s Settings) TimeSlots() []string {
	start, err := parseClock(s.StartTime)
	if err != nil {
		start, _ = parseClock(defaultStartTime)
	}
	end, err := parseClock(s.EndTime)
	if err != nil {
		end, _ = parseClock(defaultEndTime)
	}
	dur := s.SessionDuration
	if dur <= 0 {
		dur = defaultSessionDuration
	}

	var slots []string
	for t := start; t+dur <= end; t += dur {
		slots = append(slots, fmt.Sprintf("%02d:%02d", t/60, t%60))
	}
	return slots
}

// DayAllowed reports whether the clinic takes bookings on the date's weekday.
func (s Settings) DayAllowed(date time.Time) bool {
	return s.WorkingDays[date.Weekday()]
}

// parseClock converts "HH:mm" to minutes since midnight.
func parseClock(v string) (int, error) {
	t, err := time.Parse("15:04", v)
	if err != nil {
		return 0, fmt.Errorf("invalid time %q: %w", v, err)
	}
	return t.Hour()*60 + t.Minute(), nil
}

// ValidClock reports whether v is a well-formed "HH:mm" string.
func ValidClock(v string) bool {
	_, err := parseClock(v)
	return err == nil
}
