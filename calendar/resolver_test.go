package calendar_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/warp/workforce-core/calendar"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}

// standardCalendar: Mon-Fri working, Sunday off, 1st and 3rd Saturdays off.
func standardCalendar() *calendar.Calendar {
	return &calendar.Calendar{
		ID:    "cal-std",
		OrgID: "org-1",
		Name:  "Standard Week",
		Rules: []calendar.WeeklyRule{
			{DayOfWeek: 0, Kind: calendar.RuleOff},
			{DayOfWeek: 6, Kind: calendar.RuleAlternate, WeekNumbers: []int{1, 3}},
		},
		Holidays: []calendar.Holiday{
			{ID: "h-1", Name: "Holi", StartDate: date(2025, time.March, 14), EndDate: date(2025, time.March, 14)},
			{ID: "h-2", Name: "Spring Break", StartDate: date(2025, time.March, 24), EndDate: date(2025, time.March, 26)},
		},
	}
}

// =============================================================================
// WEEKLY RULE TESTS
// =============================================================================

func TestResolve_NoRule_DefaultsWorking(t *testing.T) {
	// GIVEN: A calendar with no rule for Wednesday
	// WHEN: Resolving a Wednesday
	// THEN: The day is WORKING

	cal := standardCalendar()
	res := calendar.Resolve(cal, date(2025, time.March, 12)) // Wednesday

	assert.Equal(t, calendar.DayWorking, res.DayType)
	assert.True(t, res.IsWorkingDay)
}

func TestResolve_OffRule_AlwaysOff(t *testing.T) {
	// GIVEN: Sundays are OFF
	// WHEN: Resolving any Sunday of the month
	// THEN: Every one is WEEKLY_OFF

	cal := standardCalendar()
	for _, day := range []int{2, 9, 16, 23, 30} { // all March 2025 Sundays
		res := calendar.Resolve(cal, date(2025, time.March, day))
		assert.Equal(t, calendar.DayWeeklyOff, res.DayType, "March %d", day)
		assert.False(t, res.IsWorkingDay, "March %d", day)
	}
}

func TestResolve_AlternateRule_OnlyListedWeeks(t *testing.T) {
	// GIVEN: Saturdays ALTERNATE with weeks {1, 3}
	// WHEN: Resolving each Saturday of March 2025
	// THEN: Mar 1 (week 1) and Mar 15 (week 3) are off; the rest work

	cal := standardCalendar()

	off := map[int]bool{1: true, 15: true}
	for _, day := range []int{1, 8, 15, 22, 29} {
		res := calendar.Resolve(cal, date(2025, time.March, day))
		if off[day] {
			assert.Equal(t, calendar.DayWeeklyOff, res.DayType, "March %d", day)
		} else {
			assert.Equal(t, calendar.DayWorking, res.DayType, "March %d", day)
		}
	}
}

func TestResolve_AlternateRule_EmptyWeeks_NoOverride(t *testing.T) {
	// GIVEN: An ALTERNATE rule with an empty week set
	// WHEN: Resolving a matching day
	// THEN: The day stays WORKING (empty set is no override, not "all weeks")

	cal := &calendar.Calendar{
		ID:   "cal-empty",
		Name: "Empty Alternate",
		Rules: []calendar.WeeklyRule{
			{DayOfWeek: 6, Kind: calendar.RuleAlternate},
		},
	}
	res := calendar.Resolve(cal, date(2025, time.March, 1)) // Saturday, week 1

	assert.Equal(t, calendar.DayWorking, res.DayType)
	assert.True(t, res.IsWorkingDay)
}

// =============================================================================
// HOLIDAY PRECEDENCE TESTS
// =============================================================================

func TestResolve_Holiday_BeatsWorkingRule(t *testing.T) {
	// GIVEN: March 14 is a working Friday but also Holi
	// WHEN: Resolving March 14
	// THEN: HOLIDAY wins

	cal := standardCalendar()
	res := calendar.Resolve(cal, date(2025, time.March, 14))

	assert.Equal(t, calendar.DayHoliday, res.DayType)
	assert.False(t, res.IsWorkingDay)
}

func TestResolve_Holiday_BeatsWeeklyOff(t *testing.T) {
	// GIVEN: A holiday range covering a Sunday that is also WEEKLY_OFF
	// WHEN: Resolving that Sunday
	// THEN: HOLIDAY wins over the weekly rule

	cal := standardCalendar()
	cal.Holidays = append(cal.Holidays, calendar.Holiday{
		ID: "h-3", Name: "Festival",
		StartDate: date(2025, time.March, 9), EndDate: date(2025, time.March, 9), // Sunday
	})

	res := calendar.Resolve(cal, date(2025, time.March, 9))
	assert.Equal(t, calendar.DayHoliday, res.DayType)
}

func TestResolve_HolidayRange_InclusiveBounds(t *testing.T) {
	// GIVEN: Spring Break runs March 24-26 inclusive
	// WHEN: Resolving each surrounding day
	// THEN: Both endpoints are holidays; the days outside are not

	cal := standardCalendar()

	assert.Equal(t, calendar.DayWorking, calendar.Resolve(cal, date(2025, time.March, 21)).DayType)
	assert.Equal(t, calendar.DayHoliday, calendar.Resolve(cal, date(2025, time.March, 24)).DayType)
	assert.Equal(t, calendar.DayHoliday, calendar.Resolve(cal, date(2025, time.March, 25)).DayType)
	assert.Equal(t, calendar.DayHoliday, calendar.Resolve(cal, date(2025, time.March, 26)).DayType)
	assert.Equal(t, calendar.DayWorking, calendar.Resolve(cal, date(2025, time.March, 27)).DayType)
}

// =============================================================================
// DETERMINISM
// =============================================================================

func TestResolve_Deterministic(t *testing.T) {
	// GIVEN: One snapshot
	// WHEN: Resolving the same date repeatedly
	// THEN: The result never changes

	cal := standardCalendar()
	first := calendar.Resolve(cal, date(2025, time.March, 15))
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, calendar.Resolve(cal, date(2025, time.March, 15)))
	}
}

func TestResolve_TimeOfDayIgnored(t *testing.T) {
	// GIVEN: The same civil day at different wall-clock times
	// WHEN: Resolving both
	// THEN: The classification is identical

	cal := standardCalendar()
	morning := time.Date(2025, time.March, 14, 8, 15, 0, 0, time.UTC)
	night := time.Date(2025, time.March, 14, 23, 59, 59, 0, time.UTC)

	assert.Equal(t, calendar.Resolve(cal, morning), calendar.Resolve(cal, night))
}
