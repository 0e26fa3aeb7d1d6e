package engine_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/schoolworks/fee-engine/engine"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestResolveCalendar_AprilStart_RotatesAndWraps(t *testing.T) {
	// GIVEN: An April-start academic year
	// WHEN: Resolving the calendar
	// THEN: 13 slots - one-time first, then April..December, January..March

	cal := engine.ResolveCalendar("April")

	require.Len(t, cal.Slots, 13)
	assert.True(t, cal.Slots[0].IsOneTime(), "one-time slot must come first")
	assert.Equal(t, time.April, cal.Slots[1].Month)
	assert.Equal(t, time.December, cal.Slots[9].Month)
	assert.Equal(t, time.January, cal.Slots[10].Month)
	assert.Equal(t, time.March, cal.Slots[12].Month)
	assert.Equal(t, "April - March", cal.Label())
}

func TestResolveCalendar_UnknownStartMonth_FallsBackToApril(t *testing.T) {
	cal := engine.ResolveCalendar("Floréal")
	assert.Equal(t, time.April, cal.Start)

	cal = engine.ResolveCalendar("")
	assert.Equal(t, time.April, cal.Start)
}

func TestResolveCalendar_CaseInsensitive(t *testing.T) {
	cal := engine.ResolveCalendar("january")
	assert.Equal(t, time.January, cal.Start)
	assert.Equal(t, "January - December", cal.Label())
}

func TestCalendar_Position_RelativeToAcademicStart(t *testing.T) {
	cal := engine.ResolveCalendar("April")
	assert.Equal(t, 0, cal.Position(time.April))
	assert.Equal(t, 8, cal.Position(time.December))
	assert.Equal(t, 9, cal.Position(time.January))
	assert.Equal(t, 11, cal.Position(time.March))
}

func TestCalendar_YearFor_MonthsBeforeStartBelongToNextYear(t *testing.T) {
	// GIVEN: April-start session beginning in 2025
	// THEN: January 2026, April 2025
	cal := engine.ResolveCalendar("April")
	assert.Equal(t, 2026, cal.YearFor(time.January, 2025))
	assert.Equal(t, 2026, cal.YearFor(time.March, 2025))
	assert.Equal(t, 2025, cal.YearFor(time.April, 2025))
	assert.Equal(t, 2025, cal.YearFor(time.December, 2025))
}

func TestCalendar_SessionFor_BeforeAndAfterStartMonth(t *testing.T) {
	cal := engine.ResolveCalendar("April")

	// June 2025 is inside the 2025 session.
	sess := cal.SessionFor(date(2025, time.June, 10))
	assert.Equal(t, 2025, sess.StartYear)
	assert.Equal(t, date(2025, time.April, 1), sess.Start)

	// February 2026 is still the 2025 session.
	sess = cal.SessionFor(date(2026, time.February, 10))
	assert.Equal(t, 2025, sess.StartYear)

	// April 1st flips into the new session.
	sess = cal.SessionFor(date(2026, time.April, 1))
	assert.Equal(t, 2026, sess.StartYear)
}

func TestParseSlot(t *testing.T) {
	slot, ok := engine.ParseSlot("Admission_month")
	require.True(t, ok)
	assert.True(t, slot.IsOneTime())

	slot, ok = engine.ParseSlot("  july ")
	require.True(t, ok)
	assert.Equal(t, time.July, slot.Month)

	_, ok = engine.ParseSlot("Smarch")
	assert.False(t, ok)
}

func TestMonthByName_And_CalendarIndex(t *testing.T) {
	m, ok := engine.MonthByName("December")
	require.True(t, ok)
	assert.Equal(t, time.December, m)

	// The 0-based index map is independent of the academic rotation.
	idx, ok := engine.CalendarIndex("January")
	require.True(t, ok)
	assert.Equal(t, 0, idx)

	idx, ok = engine.CalendarIndex("december")
	require.True(t, ok)
	assert.Equal(t, 11, idx)
}
