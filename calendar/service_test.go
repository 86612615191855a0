package calendar_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/workforce-core/calendar"
	"github.com/warp/workforce-core/core"
	"github.com/warp/workforce-core/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestService(t *testing.T) *calendar.Service {
	db, err := sqlite.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	return calendar.NewService(db.Calendars)
}

func mustCreate(t *testing.T, svc *calendar.Service, cal calendar.Calendar) *calendar.Calendar {
	created, err := svc.Create(context.Background(), cal)
	require.NoError(t, err)
	return created
}

// =============================================================================
// CALENDAR ADMINISTRATION
// =============================================================================

func TestService_Create_PersistsRulesAndHolidays(t *testing.T) {
	// GIVEN: A calendar with rules and holidays
	// WHEN: Creating and re-reading it
	// THEN: The full snapshot round-trips

	svc := newTestService(t)
	created := mustCreate(t, svc, *standardCalendar())

	got, err := svc.Get(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Standard Week", got.Name)
	assert.Len(t, got.Rules, 2)
	assert.Len(t, got.Holidays, 2)
	assert.NotEmpty(t, got.Holidays[0].ID, "holiday IDs are assigned at create")
}

func TestService_Create_RejectsDuplicateDayOfWeek(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.Create(context.Background(), calendar.Calendar{
		Name: "Broken",
		Rules: []calendar.WeeklyRule{
			{DayOfWeek: 0, Kind: calendar.RuleOff},
			{DayOfWeek: 0, Kind: calendar.RuleWorking},
		},
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrValidation)
}

func TestService_Create_RejectsWeekNumberOutOfRange(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.Create(context.Background(), calendar.Calendar{
		Name: "Broken",
		Rules: []calendar.WeeklyRule{
			{DayOfWeek: 6, Kind: calendar.RuleAlternate, WeekNumbers: []int{0, 6}},
		},
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrValidation)
}

func TestService_Replace_OverwritesWholesale(t *testing.T) {
	// GIVEN: A stored calendar with two rules
	// WHEN: Replacing it with a single-rule definition
	// THEN: The old rule set is gone, not merged

	svc := newTestService(t)
	created := mustCreate(t, svc, *standardCalendar())

	created.Rules = []calendar.WeeklyRule{{DayOfWeek: 5, Kind: calendar.RuleOff}}
	created.Holidays = nil
	_, err := svc.Replace(context.Background(), *created)
	require.NoError(t, err)

	got, err := svc.Get(context.Background(), created.ID)
	require.NoError(t, err)
	require.Len(t, got.Rules, 1)
	assert.Equal(t, 5, got.Rules[0].DayOfWeek)
	assert.Empty(t, got.Holidays)
}

func TestService_Replace_UnknownCalendar_NotFound(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.Replace(context.Background(), calendar.Calendar{ID: "nope", Name: "X"})

	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestService_Delete_BlockedWhileAssigned(t *testing.T) {
	// GIVEN: A calendar with one assigned employee
	// WHEN: Deleting the calendar
	// THEN: Conflict; after unassigning, the delete succeeds

	svc := newTestService(t)
	ctx := context.Background()
	created := mustCreate(t, svc, *standardCalendar())

	require.NoError(t, svc.Assign(ctx, "emp-1", created.ID))

	err := svc.Delete(ctx, created.ID)
	assert.ErrorIs(t, err, core.ErrConflict)

	require.NoError(t, svc.Unassign(ctx, "emp-1"))
	assert.NoError(t, svc.Delete(ctx, created.ID))
}

// =============================================================================
// DAY RESOLUTION THROUGH ASSIGNMENTS
// =============================================================================

func TestService_ResolveDay_NoAssignment_NotFound(t *testing.T) {
	// GIVEN: An employee with no calendar assignment
	// WHEN: Resolving any day
	// THEN: Not found - never a silent WORKING default

	svc := newTestService(t)

	_, err := svc.ResolveDay(context.Background(), "emp-unassigned", date(2025, time.March, 10))

	require.Error(t, err)
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestService_ResolveDay_UsesAssignedCalendar(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	created := mustCreate(t, svc, *standardCalendar())
	require.NoError(t, svc.Assign(ctx, "emp-1", created.ID))

	res, err := svc.ResolveDay(ctx, "emp-1", date(2025, time.March, 2)) // Sunday
	require.NoError(t, err)
	assert.Equal(t, calendar.DayWeeklyOff, res.DayType)

	res, err = svc.ResolveDay(ctx, "emp-1", date(2025, time.March, 14)) // Holi
	require.NoError(t, err)
	assert.Equal(t, calendar.DayHoliday, res.DayType)
}

func TestService_Assign_ReplacesPriorAssignment(t *testing.T) {
	// GIVEN: An employee assigned to a Sunday-off calendar
	// WHEN: Reassigning to an all-working calendar
	// THEN: Resolution follows the new calendar

	svc := newTestService(t)
	ctx := context.Background()

	first := mustCreate(t, svc, *standardCalendar())
	second := mustCreate(t, svc, calendar.Calendar{OrgID: "org-1", Name: "Always On"})

	require.NoError(t, svc.Assign(ctx, "emp-1", first.ID))
	require.NoError(t, svc.Assign(ctx, "emp-1", second.ID))

	res, err := svc.ResolveDay(ctx, "emp-1", date(2025, time.March, 2)) // Sunday
	require.NoError(t, err)
	assert.Equal(t, calendar.DayWorking, res.DayType)
}

func TestService_Assign_UnknownCalendar_NotFound(t *testing.T) {
	svc := newTestService(t)

	err := svc.Assign(context.Background(), "emp-1", "cal-missing")

	assert.ErrorIs(t, err, core.ErrNotFound)
}
