package attendance_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/workforce-core/attendance"
	"github.com/warp/workforce-core/core"
	"github.com/warp/workforce-core/dispatch"
	"github.com/warp/workforce-core/lease"
	"github.com/warp/workforce-core/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

type attendanceFixture struct {
	svc    *attendance.Service
	db     *sqlite.DB
	leases lease.Store
	d      *dispatch.Dispatcher
}

// newAttendanceFixture wires the service over an in-memory database with
// emp-1 reporting to mgr-1. Passing a nil lease store disables debounce.
func newAttendanceFixture(t *testing.T, leases lease.Store) *attendanceFixture {
	db, err := sqlite.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	ctx := context.Background()
	require.NoError(t, db.Employees.Save(ctx, sqlite.Employee{ID: "mgr-1", Name: "Morgan"}))
	require.NoError(t, db.Employees.Save(ctx, sqlite.Employee{ID: "emp-1", Name: "Alex", ManagerID: "mgr-1"}))
	require.NoError(t, db.Employees.Save(ctx, sqlite.Employee{ID: "emp-2", Name: "Sam"}))

	log := logrus.New()
	log.SetLevel(logrus.ErrorLevel)
	d := dispatch.New(log, &dispatch.MemoryAudit{}, &dispatch.MemoryNotifier{})

	return &attendanceFixture{
		svc:    attendance.NewService(db.Attendance, db.Employees, leases, d, log),
		db:     db,
		leases: leases,
		d:      d,
	}
}

// brokenLeaseStore always errors, standing in for an unreachable Redis.
type brokenLeaseStore struct{}

func (brokenLeaseStore) Acquire(context.Context, string, time.Duration) (bool, error) {
	return false, errors.New("lease store unreachable")
}

func (brokenLeaseStore) Release(context.Context, string) error {
	return errors.New("lease store unreachable")
}

func at(hour, min int) *time.Time {
	t := time.Date(2025, time.March, 10, hour, min, 0, 0, time.UTC)
	return &t
}

var (
	manager  = core.Actor{ID: "mgr-1"}
	sysAdmin = core.Actor{ID: "admin-1", Admin: true}
)

// =============================================================================
// CHECK-IN
// =============================================================================

func TestClockIn_CreatesPresentRecordWithLog(t *testing.T) {
	// GIVEN: No record for today
	// WHEN: emp-1 clocks in at 09:00
	// THEN: A PRESENT record with the check-in set, plus an IN log entry

	f := newAttendanceFixture(t, nil)

	rec, err := f.svc.ClockIn(context.Background(), attendance.ClockInInput{
		EmployeeID: "emp-1",
		Method:     attendance.MethodWeb,
		At:         at(9, 0),
	})
	require.NoError(t, err)

	assert.Equal(t, attendance.StatusPresent, rec.Status)
	assert.Equal(t, attendance.MethodWeb, rec.Method)
	require.NotNil(t, rec.CheckIn)
	assert.True(t, rec.CheckIn.Equal(*at(9, 0)))
	assert.Nil(t, rec.CheckOut)

	logs, err := f.svc.Logs(context.Background(), rec.ID)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, attendance.LogIn, logs[0].Type)
	assert.Equal(t, "emp-1", logs[0].ActorID)
}

func TestClockIn_SecondSameDay_Conflict(t *testing.T) {
	// GIVEN: emp-1 already clocked in today
	// WHEN: Clocking in again
	// THEN: Conflict; the original record is unchanged

	f := newAttendanceFixture(t, nil)
	ctx := context.Background()

	first, err := f.svc.ClockIn(ctx, attendance.ClockInInput{
		EmployeeID: "emp-1", Method: attendance.MethodWeb, At: at(9, 0),
	})
	require.NoError(t, err)

	_, err = f.svc.ClockIn(ctx, attendance.ClockInInput{
		EmployeeID: "emp-1", Method: attendance.MethodMobile, At: at(9, 1),
	})
	assert.ErrorIs(t, err, core.ErrConflict)

	got, err := f.db.Attendance.GetRecordByID(ctx, first.ID)
	require.NoError(t, err)
	assert.True(t, got.CheckIn.Equal(*at(9, 0)), "original check-in must survive the retry")
}

func TestClockIn_DifferentEmployees_Independent(t *testing.T) {
	f := newAttendanceFixture(t, nil)
	ctx := context.Background()

	_, err := f.svc.ClockIn(ctx, attendance.ClockInInput{
		EmployeeID: "emp-1", Method: attendance.MethodWeb, At: at(9, 0),
	})
	require.NoError(t, err)

	_, err = f.svc.ClockIn(ctx, attendance.ClockInInput{
		EmployeeID: "emp-2", Method: attendance.MethodWeb, At: at(9, 0),
	})
	assert.NoError(t, err, "the per-day uniqueness is per employee")
}

func TestClockIn_DebounceLease_CollapsesRapidRetry(t *testing.T) {
	// GIVEN: A healthy lease store
	// WHEN: A second submission lands while the first still holds the lease
	// THEN: Conflict, before the store is even consulted

	f := newAttendanceFixture(t, lease.NewMemoryStore())
	ctx := context.Background()

	_, err := f.svc.ClockIn(ctx, attendance.ClockInInput{
		EmployeeID: "emp-1", Method: attendance.MethodWeb, At: at(9, 0),
	})
	require.NoError(t, err)

	_, err = f.svc.ClockIn(ctx, attendance.ClockInInput{
		EmployeeID: "emp-1", Method: attendance.MethodWeb, At: at(9, 0),
	})
	assert.ErrorIs(t, err, core.ErrConflict)
}

func TestClockIn_LeaseStoreDown_FailsOpen(t *testing.T) {
	// GIVEN: An unreachable lease store
	// WHEN: Clocking in
	// THEN: The check-in still succeeds; duplicates still conflict via the
	//       store constraints

	f := newAttendanceFixture(t, brokenLeaseStore{})
	ctx := context.Background()

	rec, err := f.svc.ClockIn(ctx, attendance.ClockInInput{
		EmployeeID: "emp-1", Method: attendance.MethodWeb, At: at(9, 0),
	})
	require.NoError(t, err, "lease failure must not block attendance")
	assert.NotNil(t, rec.CheckIn)

	_, err = f.svc.ClockIn(ctx, attendance.ClockInInput{
		EmployeeID: "emp-1", Method: attendance.MethodWeb, At: at(9, 1),
	})
	assert.ErrorIs(t, err, core.ErrConflict)
}

// =============================================================================
// CHECK-OUT
// =============================================================================

func TestClockOut_ComputesWorkMinutes(t *testing.T) {
	// GIVEN: Checked in at 09:00
	// WHEN: Checking out at 17:00
	// THEN: 480 worked minutes and an OUT log entry

	f := newAttendanceFixture(t, nil)
	ctx := context.Background()

	_, err := f.svc.ClockIn(ctx, attendance.ClockInInput{
		EmployeeID: "emp-1", Method: attendance.MethodWeb, At: at(9, 0),
	})
	require.NoError(t, err)

	rec, err := f.svc.ClockOut(ctx, "emp-1", attendance.MethodWeb, at(17, 0))
	require.NoError(t, err)

	assert.Equal(t, 480, rec.WorkMinutes)
	require.NotNil(t, rec.CheckOut)
	assert.True(t, rec.CheckOut.Equal(*at(17, 0)))

	logs, err := f.svc.Logs(ctx, rec.ID)
	require.NoError(t, err)
	require.Len(t, logs, 2)
	assert.Equal(t, attendance.LogOut, logs[1].Type)
}

func TestClockOut_WithoutCheckIn_NotFound(t *testing.T) {
	f := newAttendanceFixture(t, nil)

	_, err := f.svc.ClockOut(context.Background(), "emp-1", attendance.MethodWeb, at(17, 0))

	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestClockOut_Twice_Conflict(t *testing.T) {
	// GIVEN: A completed day (in and out)
	// WHEN: Checking out again
	// THEN: Conflict; the first check-out stands

	f := newAttendanceFixture(t, nil)
	ctx := context.Background()

	_, err := f.svc.ClockIn(ctx, attendance.ClockInInput{
		EmployeeID: "emp-1", Method: attendance.MethodWeb, At: at(9, 0),
	})
	require.NoError(t, err)
	first, err := f.svc.ClockOut(ctx, "emp-1", attendance.MethodWeb, at(17, 0))
	require.NoError(t, err)

	_, err = f.svc.ClockOut(ctx, "emp-1", attendance.MethodWeb, at(18, 0))
	assert.ErrorIs(t, err, core.ErrConflict)

	got, err := f.db.Attendance.GetRecordByID(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, 480, got.WorkMinutes, "later attempt must not stretch the day")
}

func TestClockOut_BeforeCheckIn_Rejected(t *testing.T) {
	f := newAttendanceFixture(t, nil)
	ctx := context.Background()

	_, err := f.svc.ClockIn(ctx, attendance.ClockInInput{
		EmployeeID: "emp-1", Method: attendance.MethodWeb, At: at(9, 0),
	})
	require.NoError(t, err)

	_, err = f.svc.ClockOut(ctx, "emp-1", attendance.MethodWeb, at(8, 0))
	assert.ErrorIs(t, err, core.ErrValidation)
}

// =============================================================================
// MANUAL ENTRY AND EDITS
// =============================================================================

func TestManualEntry_ManagerForDirectReport(t *testing.T) {
	// GIVEN: mgr-1 manages emp-1
	// WHEN: The manager backfills a full day
	// THEN: A MANUAL record with derived minutes and a MANUAL log entry

	f := newAttendanceFixture(t, nil)
	ctx := context.Background()

	rec, err := f.svc.ManualEntry(ctx, attendance.ManualInput{
		EmployeeID: "emp-1",
		Day:        *at(0, 0),
		CheckIn:    at(10, 0),
		CheckOut:   at(16, 30),
		Note:       "forgot to clock in",
	}, manager)
	require.NoError(t, err)

	assert.Equal(t, attendance.MethodManual, rec.Method)
	assert.Equal(t, attendance.StatusPresent, rec.Status)
	assert.Equal(t, 390, rec.WorkMinutes)

	logs, err := f.svc.Logs(ctx, rec.ID)
	require.NoError(t, err)
	require.Len(t, logs, 1)
	assert.Equal(t, attendance.LogManual, logs[0].Type)
	assert.Equal(t, "mgr-1", logs[0].ActorID)
	assert.Equal(t, "forgot to clock in", logs[0].Note)
}

func TestManualEntry_NotTheManager_Unauthorized(t *testing.T) {
	// emp-2 has no manager; mgr-1 is not authorized for them.
	f := newAttendanceFixture(t, nil)

	_, err := f.svc.ManualEntry(context.Background(), attendance.ManualInput{
		EmployeeID: "emp-2",
		Day:        *at(0, 0),
		Status:     attendance.StatusPresent,
	}, manager)

	assert.ErrorIs(t, err, core.ErrUnauthorized)
}

func TestManualEntry_AdminForAnyone(t *testing.T) {
	f := newAttendanceFixture(t, nil)

	_, err := f.svc.ManualEntry(context.Background(), attendance.ManualInput{
		EmployeeID: "emp-2",
		Day:        *at(0, 0),
		Status:     attendance.StatusOnLeave,
	}, sysAdmin)

	assert.NoError(t, err)
}

func TestManualEntry_ExistingRecord_Conflict(t *testing.T) {
	f := newAttendanceFixture(t, nil)
	ctx := context.Background()

	_, err := f.svc.ClockIn(ctx, attendance.ClockInInput{
		EmployeeID: "emp-1", Method: attendance.MethodWeb, At: at(9, 0),
	})
	require.NoError(t, err)

	_, err = f.svc.ManualEntry(ctx, attendance.ManualInput{
		EmployeeID: "emp-1",
		Day:        *at(0, 0),
		Status:     attendance.StatusPresent,
	}, sysAdmin)

	assert.ErrorIs(t, err, core.ErrConflict)
}

func TestManualEntry_CheckOutWithoutCheckIn_Rejected(t *testing.T) {
	f := newAttendanceFixture(t, nil)

	_, err := f.svc.ManualEntry(context.Background(), attendance.ManualInput{
		EmployeeID: "emp-1",
		Day:        *at(0, 0),
		CheckOut:   at(17, 0),
	}, sysAdmin)

	assert.ErrorIs(t, err, core.ErrValidation)
}

func TestUpdate_RecomputesWorkMinutes(t *testing.T) {
	// GIVEN: A completed 09:00-17:00 day
	// WHEN: The manager corrects the check-out to 18:00
	// THEN: Worked minutes follow, and the edit is logged

	f := newAttendanceFixture(t, nil)
	ctx := context.Background()

	_, err := f.svc.ClockIn(ctx, attendance.ClockInInput{
		EmployeeID: "emp-1", Method: attendance.MethodWeb, At: at(9, 0),
	})
	require.NoError(t, err)
	rec, err := f.svc.ClockOut(ctx, "emp-1", attendance.MethodWeb, at(17, 0))
	require.NoError(t, err)

	updated, err := f.svc.Update(ctx, rec.ID, attendance.UpdateInput{
		CheckOut: at(18, 0),
		Note:     "stayed for release",
	}, manager)
	require.NoError(t, err)

	assert.Equal(t, 540, updated.WorkMinutes)

	logs, err := f.svc.Logs(ctx, rec.ID)
	require.NoError(t, err)
	require.Len(t, logs, 3, "IN, OUT, then the manual edit")
	assert.Equal(t, attendance.LogManual, logs[2].Type)
}

func TestUpdate_UnknownRecord_NotFound(t *testing.T) {
	f := newAttendanceFixture(t, nil)

	_, err := f.svc.Update(context.Background(), "rec-missing", attendance.UpdateInput{
		Status: func() *attendance.Status { s := attendance.StatusLate; return &s }(),
	}, sysAdmin)

	assert.ErrorIs(t, err, core.ErrNotFound)
}

// =============================================================================
// QUERIES
// =============================================================================

func TestRecords_RangeQuery(t *testing.T) {
	// GIVEN: Manual records on March 10 and March 12
	// WHEN: Querying March 9-11
	// THEN: Only the March 10 record comes back

	f := newAttendanceFixture(t, nil)
	ctx := context.Background()

	for _, day := range []int{10, 12} {
		d := time.Date(2025, time.March, day, 0, 0, 0, 0, time.UTC)
		_, err := f.svc.ManualEntry(ctx, attendance.ManualInput{
			EmployeeID: "emp-1",
			Day:        d,
			Status:     attendance.StatusPresent,
		}, sysAdmin)
		require.NoError(t, err)
	}

	records, err := f.svc.Records(ctx, "emp-1",
		time.Date(2025, time.March, 9, 0, 0, 0, 0, time.UTC),
		time.Date(2025, time.March, 11, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	require.Len(t, records, 1)
	assert.True(t, records[0].Day.Equal(time.Date(2025, time.March, 10, 0, 0, 0, 0, time.UTC)))
}

func TestRecords_InvertedRange_Rejected(t *testing.T) {
	f := newAttendanceFixture(t, nil)

	_, err := f.svc.Records(context.Background(), "emp-1",
		time.Date(2025, time.March, 11, 0, 0, 0, 0, time.UTC),
		time.Date(2025, time.March, 9, 0, 0, 0, 0, time.UTC))

	assert.ErrorIs(t, err, core.ErrInvalidRange)
}
