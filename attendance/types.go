/*
Package attendance records daily check-in/check-out exactly once per
employee per day.

PURPOSE:
  Owns the per-(employee, day) attendance record and its lifecycle:
  NO_RECORD -> CHECKED_IN -> CHECKED_OUT, terminal for the day. A manual
  administrative path can create or retroactively edit a day's record.

CONCURRENCY:
  Correctness does not depend on application-level sequencing. The store
  enforces a UNIQUE (employee_id, day) constraint and conditional
  only-if-NULL updates for check-in and check-out, so two concurrent
  check-ins cannot both succeed even if they interleave. On top of that, a
  short-TTL advisory lease collapses rapid duplicate submissions; if the
  lease store is down the operation fails open and relies on the store
  guards alone.

AUDIT TRAIL:
  Every check-in, check-out, and manual edit appends an AttendanceLog row
  in the same transaction as the record mutation. Logs are append-only.

SEE ALSO:
  - service.go: the operations
  - lease/lease.go: the advisory debounce lease
  - store/sqlite/attendance.go: the conditional updates
*/
package attendance

import (
	"context"
	"time"
)

// =============================================================================
// STATUSES, METHODS, LOG TYPES
// =============================================================================

type Status string

const (
	StatusPresent   Status = "PRESENT"
	StatusLate      Status = "LATE"
	StatusHalfDay   Status = "HALF_DAY"
	StatusOnLeave   Status = "ON_LEAVE"
	StatusHoliday   Status = "HOLIDAY"
	StatusWeeklyOff Status = "WEEKLY_OFF"
)

// Method is how the event reached the system.
type Method string

const (
	MethodWeb       Method = "WEB"
	MethodMobile    Method = "MOBILE"
	MethodBiometric Method = "BIOMETRIC"
	MethodManual    Method = "MANUAL"
)

type LogType string

const (
	LogIn     LogType = "IN"
	LogOut    LogType = "OUT"
	LogManual LogType = "MANUAL"
)

// =============================================================================
// ENTITIES
// =============================================================================

// Record is the per-(employee, day) attendance row. Day is midnight UTC.
// CheckOut may only ever be set once, and only after CheckIn.
type Record struct {
	ID          string     `json:"id"`
	EmployeeID  string     `json:"employeeId"`
	Day         time.Time  `json:"day"`
	CheckIn     *time.Time `json:"checkIn,omitempty"`
	CheckOut    *time.Time `json:"checkOut,omitempty"`
	WorkMinutes int        `json:"workMinutes"`
	Status      Status     `json:"status"`
	Method      Method     `json:"method"`
	Latitude    *float64   `json:"latitude,omitempty"`
	Longitude   *float64   `json:"longitude,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// Log is one append-only event row referencing its Record.
type Log struct {
	ID       string    `json:"id"`
	RecordID string    `json:"recordId"`
	Type     LogType   `json:"type"`
	At       time.Time `json:"at"`
	ActorID  string    `json:"actorId"`
	Note     string    `json:"note,omitempty"`
}

// =============================================================================
// STORE - Persistence interface implemented by store/sqlite
// =============================================================================

// Tx is the mutation surface inside a store transaction.
type Tx interface {
	GetRecord(ctx context.Context, employeeID string, day time.Time) (*Record, error)
	GetRecordByID(ctx context.Context, id string) (*Record, error)

	// InsertRecord creates the day's row. A concurrent insert for the same
	// (employee, day) loses to the UNIQUE constraint and surfaces as
	// core.ErrConflict.
	InsertRecord(ctx context.Context, r Record) error

	// SetCheckIn sets check_in only where it is currently NULL. Returns
	// core.ErrConflict when already set.
	SetCheckIn(ctx context.Context, recordID string, at time.Time, status Status, method Method) error

	// SetCheckOut sets check_out only where it is currently NULL and
	// check_in is set. Returns core.ErrConflict when already set.
	SetCheckOut(ctx context.Context, recordID string, at time.Time, workMinutes int) error

	// UpdateRecord overwrites the mutable fields (manual edit path).
	UpdateRecord(ctx context.Context, r Record) error

	AppendLog(ctx context.Context, l Log) error
}

// Store is the full persistence interface.
type Store interface {
	GetRecord(ctx context.Context, employeeID string, day time.Time) (*Record, error)
	GetRecordByID(ctx context.Context, id string) (*Record, error)
	ListRecords(ctx context.Context, employeeID string, from, to time.Time) ([]Record, error)
	ListLogs(ctx context.Context, recordID string) ([]Log, error)
	WithTx(ctx context.Context, fn func(tx Tx) error) error
}

// Directory answers the manager-of relationship for the manual entry path.
// Implemented by the employee table in store/sqlite.
type Directory interface {
	// ManagerOf returns the employee's manager ID, or "" when none.
	ManagerOf(ctx context.Context, employeeID string) (string, error)
}
