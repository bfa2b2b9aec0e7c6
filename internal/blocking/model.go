package blocking

import (
	"time"
)

type BlockType string

const (
	BlockRecurring BlockType = "RECURRING"
	BlockOneTime   BlockType = "ONE_TIME"
)

// BlockedSlot is an administrator-defined exclusion of a bookable slot,
// either weekly (DayOfWeek set) or for a single date (SpecificDate set).
// Rules are filters applied at availability-compute time; reservations
// never reference them.
type BlockedSlot struct {
	ID           int64
	BlockType    BlockType
	DayOfWeek    *int       // ISO weekday 1 (Monday) .. 7 (Sunday); RECURRING only
	SpecificDate *time.Time // date at midnight; ONE_TIME only
	TimeSlot     string     // "HH:mm"
	Reason       string
	IsActive     bool
	CreatedBy    string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// ISOWeekday maps a date to 1 (Monday) through 7 (Sunday).
func ISOWeekday(t time.Time) int {
	wd := int(t.Weekday())
	if wd == 0 {
		return 7
	}
	return wd
}

// Matches reports whether an active rule blocks the given date and slot.
func (b BlockedSlot) Matches(date time.Time, slot string) bool {
	if !b.IsActive || b.TimeSlot != slot {
		return false
	}

	switch b.BlockType {
	case BlockRecurring:
		return b.DayOfWeek != nil && *b.DayOfWeek == ISOWeekday(date)
	case BlockOneTime:
		return b.SpecificDate != nil && sameDate(*b.SpecificDate, date)
	default:
		return false
	}
}

// BlockedSetFor collects the slots blocked on a date from a rule list.
func BlockedSetFor(rules []BlockedSlot, date time.Time) map[string]struct{} {
	blocked := make(map[string]struct{})
	for _, rule := range rules {
		if !rule.IsActive {
			continue
		}
		switch rule.BlockType {
		case BlockRecurring:
			if rule.DayOfWeek != nil && *rule.DayOfWeek == ISOWeekday(date) {
				blocked[rule.TimeSlot] = struct{}{}
			}
		case BlockOneTime:
			if rule.SpecificDate != nil && sameDate(*rule.SpecificDate, date) {
				blocked[rule.TimeSlot] = struct{}{}
			}
		}
	}
	return blocked
}

func sameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}
