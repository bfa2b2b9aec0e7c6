package schedule

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimeSlotsDefaultTemplate(t *testing.T) {
	slots := DefaultSettings().TimeSlots()

	// 08:00 through 20:00 hourly; a slot starting at 21:00 would end past
	// the 21:00 close and must not appear.
	require.Len(t, slots, 13)
	assert.Equal(t, "08:00", slots[0])
	assert.Equal(t, "20:00", slots[len(slots)-1])
	assert.NotContains(t, slots, "21:00")
}

func TestTimeSlotsExclusiveEnd(t *testing.T) {
	s := Settings{StartTime: "09:00", EndTime: "12:30", SessionDuration: 60}

	// 12:00 would end at 13:00, past the 12:30 boundary.
	assert.Equal(t, []string{"09:00", "10:00", "11:00"}, s.TimeSlots())
}

func TestTimeSlotsCustomDuration(t *testing.T) {
	s := Settings{StartTime: "08:00", EndTime: "10:00", SessionDuration: 30}
	assert.Equal(t, []string{"08:00", "08:30", "09:00", "09:30"}, s.TimeSlots())
}

func TestTimeSlotsMalformedBoundsFallBack(t *testing.T) {
	s := Settings{StartTime: "not-a-time", EndTime: "also-bad", SessionDuration: 60}
	assert.Len(t, s.TimeSlots(), 13)
}

func TestDayAllowedDefaults(t *testing.T) {
	s := DefaultSettings()

	monday := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	friday := time.Date(2025, 6, 6, 0, 0, 0, 0, time.UTC)
	sunday := time.Date(2025, 6, 8, 0, 0, 0, 0, time.UTC)

	assert.True(t, s.DayAllowed(monday))
	assert.False(t, s.DayAllowed(friday))
	assert.False(t, s.DayAllowed(sunday))
}

func TestParseValuesWorkingDaysOverride(t *testing.T) {
	s := ParseValues(map[string]string{
		"working_days": `{"monday": true, "friday": true}`,
	})

	friday := time.Date(2025, 6, 6, 0, 0, 0, 0, time.UTC)
	tuesday := time.Date(2025, 6, 3, 0, 0, 0, 0, time.UTC)

	assert.True(t, s.DayAllowed(friday))
	assert.False(t, s.DayAllowed(tuesday), "override replaces the default map entirely")
}

func TestParseValuesPartialSection(t *testing.T) {
	s := ParseValues(map[string]string{
		"start_time":       "09:00",
		"session_duration": "90",
	})

	assert.Equal(t, "09:00", s.StartTime)
	assert.Equal(t, "21:00", s.EndTime, "missing key keeps the default")
	assert.Equal(t, 90, s.SessionDuration)
}

func TestParseValuesRejectsGarbage(t *testing.T) {
	s := ParseValues(map[string]string{
		"start_time":       "25:99",
		"session_duration": "-10",
		"working_days":     "{broken",
	})

	assert.Equal(t, DefaultSettings(), s)
}
