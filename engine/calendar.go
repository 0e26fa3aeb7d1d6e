package engine

import (
	"strings"
	"time"
)

// =============================================================================
// SLOT - Tagged month-or-one-time union
// =============================================================================

// OneTimeLabel is the wire label legacy data uses for the one-time slot.
// It survives only at the data boundary; inside the engine a Slot is a
// proper tagged value, never a string sentinel.
const OneTimeLabel = "Admission_month"

type SlotKind int

const (
	SlotOneTime SlotKind = iota
	SlotMonth
)

// Slot is one of the 13 positions a fee rule can charge against: the twelve
// calendar months, or the synthetic one-time slot for admission-time charges.
type Slot struct {
	Kind  SlotKind
	Month time.Month // valid only when Kind == SlotMonth
}

func OneTimeSlot() Slot            { return Slot{Kind: SlotOneTime} }
func MonthSlot(m time.Month) Slot  { return Slot{Kind: SlotMonth, Month: m} }
func (s Slot) IsOneTime() bool     { return s.Kind == SlotOneTime }

// Label returns the wire label: the month name, or the legacy sentinel.
func (s Slot) Label() string {
	if s.IsOneTime() {
		return OneTimeLabel
	}
	return s.Month.String()
}

// ParseSlot recognizes a month name (case-insensitive) or the one-time
// sentinel. Returns false for anything else; callers decide whether unknown
// labels are skipped (payment data) or rejected (configuration).
func ParseSlot(label string) (Slot, bool) {
	if strings.EqualFold(strings.TrimSpace(label), OneTimeLabel) {
		return OneTimeSlot(), true
	}
	if m, ok := MonthByName(label); ok {
		return MonthSlot(m), true
	}
	return Slot{}, false
}

// =============================================================================
// MONTH LOOKUP - True calendar order, independent of the academic rotation
// =============================================================================

var monthNames = [12]string{
	"January", "February", "March", "April", "May", "June",
	"July", "August", "September", "October", "November", "December",
}

// MonthByName resolves a month name case-insensitively.
func MonthByName(name string) (time.Month, bool) {
	trimmed := strings.TrimSpace(name)
	for i, n := range monthNames {
		if strings.EqualFold(n, trimmed) {
			return time.Month(i + 1), true
		}
	}
	return 0, false
}

// CalendarIndex returns the 0-based calendar index (January=0 ... December=11)
// used for real date arithmetic against "today".
func CalendarIndex(name string) (int, bool) {
	m, ok := MonthByName(name)
	if !ok {
		return 0, false
	}
	return int(m) - 1, true
}

// =============================================================================
// ACADEMIC CALENDAR - 12 months rotated to the configured start, plus one-time
// =============================================================================

// Calendar is the resolved academic year: Slots holds the one-time slot first,
// then the twelve months beginning at Start and wrapping around.
type Calendar struct {
	Start time.Month
	Slots []Slot
}

// ResolveCalendar builds the calendar for a configured start-month name.
// Unrecognized names fall back to April.
func ResolveCalendar(startMonth string) Calendar {
	start, ok := MonthByName(startMonth)
	if !ok {
		start = time.April
	}

	slots := make([]Slot, 0, 13)
	slots = append(slots, OneTimeSlot())
	for i := 0; i < 12; i++ {
		m := time.Month((int(start)-1+i)%12 + 1)
		slots = append(slots, MonthSlot(m))
	}
	return Calendar{Start: start, Slots: slots}
}

// Months returns the twelve months in academic order (one-time slot excluded).
func (c Calendar) Months() []time.Month {
	months := make([]time.Month, 0, 12)
	for _, s := range c.Slots {
		if !s.IsOneTime() {
			months = append(months, s.Month)
		}
	}
	return months
}

// Position returns the 0-based academic position of a month relative to the
// start month (start month = 0). Used for display ordering only.
func (c Calendar) Position(m time.Month) int {
	return (int(m) - int(c.Start) + 12) % 12
}

// YearFor attributes a month to its calendar year within the session: months
// whose true calendar index precedes the academic start index belong to the
// year after the session start year.
func (c Calendar) YearFor(m time.Month, sessionStartYear int) int {
	if int(m) < int(c.Start) {
		return sessionStartYear + 1
	}
	return sessionStartYear
}

// Label renders the academic year span, e.g. "April - March".
func (c Calendar) Label() string {
	months := c.Months()
	return months[0].String() + " - " + months[len(months)-1].String()
}

// =============================================================================
// SESSION - The active billing window
// =============================================================================

// Session is the currently active academic session as of a reference date.
type Session struct {
	StartYear int
	Start     time.Time
}

// SessionFor determines the session containing today: if today's month is on
// or after the academic start month, the session started this calendar year,
// otherwise the previous one.
func (c Calendar) SessionFor(today time.Time) Session {
	year := today.Year()
	if int(today.Month()) < int(c.Start) {
		year--
	}
	return Session{
		StartYear: year,
		Start:     time.Date(year, c.Start, 1, 0, 0, 0, 0, time.UTC),
	}
}
