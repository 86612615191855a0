/*
Package sqlite provides the SQLite-backed implementation of the domain
storage interfaces.

PURPOSE:
  Implements calendar.Store, leave.Store, attendance.Store, and
  attendance.Directory over one database handle. The same patterns carry to
  PostgreSQL with only dialect changes.

INVARIANTS ENFORCED AT THIS LAYER:
  - UNIQUE(employee_id, day) on attendance_records: two concurrent
    check-ins for the same day cannot both insert.
  - Conditional only-if-NULL updates for check_in and check_out: the
    NO_RECORD -> CHECKED_IN -> CHECKED_OUT transitions are atomic
    read-check-writes, not application-level sequencing.
  - UNIQUE(calendar_id, day_of_week) on weekly_rules.
  - UNIQUE(employee_id, leave_type, year) on leave_balances.
  Driver-level UNIQUE violations surface as core.ErrConflict.

TRANSACTIONS:
  Each domain store exposes WithTx; balance re-validation at approval time
  and record+log writes ride the same commit. The package-wide mutex
  serializes writers, which SQLite wants anyway; WAL mode keeps readers
  unblocked.

LIFECYCLE:
  The handle is owned by the caller: Open at process start, Close at
  shutdown. Nothing here opens connections lazily.

USAGE:
  db, err := sqlite.Open("./data/workforce.db")
  if err != nil { ... }
  defer db.Close()

  calSvc := calendar.NewService(db.Calendars)
  leaveSvc := leave.NewService(db.Leave, dispatcher)

SEE ALSO:
  - calendar.go, leave.go, attendance.go, employee.go: the sub-stores
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"sync"

	_ "github.com/mattn/go-sqlite3"

	"github.com/warp/workforce-core/core"
)

// DB bundles the shared handle with the per-domain stores.
type DB struct {
	sql *sql.DB
	mu  sync.RWMutex

	Calendars  *CalendarStore
	Leave      *LeaveStore
	Attendance *AttendanceStore
	Employees  *EmployeeStore
}

// Open opens (or creates) the database at path and migrates the schema.
// Use ":memory:" for an in-memory database.
func Open(path string) (*DB, error) {
	handle, err := sql.Open("sqlite3", path+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// One connection: SQLite serializes writers anyway, and a pooled
	// ":memory:" handle would otherwise open a fresh empty database per
	// connection.
	handle.SetMaxOpenConns(1)

	db := &DB{sql: handle}
	db.Calendars = &CalendarStore{db: db}
	db.Leave = &LeaveStore{db: db}
	db.Attendance = &AttendanceStore{db: db}
	db.Employees = &EmployeeStore{db: db}

	if err := db.migrate(); err != nil {
		handle.Close()
		return nil, fmt.Errorf("migrate database: %w", err)
	}
	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.sql.Close()
}

func (db *DB) migrate() error {
	schema := `
	-- Employee directory (minimal: manager scoping + assignment targets)
	CREATE TABLE IF NOT EXISTS employees (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		email TEXT,
		manager_id TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_employees_manager
		ON employees(manager_id) WHERE manager_id IS NOT NULL;

	-- Calendars with wholesale-replaced rule and holiday sets
	CREATE TABLE IF NOT EXISTS calendars (
		id TEXT PRIMARY KEY,
		org_id TEXT NOT NULL,
		name TEXT NOT NULL,
		day_start TEXT,
		day_end TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_calendars_org ON calendars(org_id);

	CREATE TABLE IF NOT EXISTS weekly_rules (
		calendar_id TEXT NOT NULL REFERENCES calendars(id) ON DELETE CASCADE,
		day_of_week INTEGER NOT NULL,
		kind TEXT NOT NULL,
		week_numbers TEXT NOT NULL DEFAULT ''
	);

	-- One rule per (calendar, day-of-week)
	CREATE UNIQUE INDEX IF NOT EXISTS idx_weekly_rules_unique
		ON weekly_rules(calendar_id, day_of_week);

	CREATE TABLE IF NOT EXISTS holidays (
		id TEXT PRIMARY KEY,
		calendar_id TEXT NOT NULL REFERENCES calendars(id) ON DELETE CASCADE,
		name TEXT NOT NULL,
		start_date TEXT NOT NULL,
		end_date TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_holidays_calendar
		ON holidays(calendar_id, start_date);

	-- At most one calendar per employee
	CREATE TABLE IF NOT EXISTS calendar_assignments (
		employee_id TEXT PRIMARY KEY,
		calendar_id TEXT NOT NULL REFERENCES calendars(id),
		assigned_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_assignments_calendar
		ON calendar_assignments(calendar_id);

	-- Leave ledger
	CREATE TABLE IF NOT EXISTS leave_balances (
		employee_id TEXT NOT NULL,
		leave_type TEXT NOT NULL,
		year INTEGER NOT NULL,
		allocated TEXT NOT NULL,
		used TEXT NOT NULL,
		PRIMARY KEY (employee_id, leave_type, year)
	);

	CREATE TABLE IF NOT EXISTS leave_requests (
		id TEXT PRIMARY KEY,
		employee_id TEXT NOT NULL,
		leave_type TEXT NOT NULL,
		start_date TEXT NOT NULL,
		end_date TEXT NOT NULL,
		total_days INTEGER NOT NULL,
		status TEXT NOT NULL,
		reason TEXT,
		admin_notes TEXT,
		decided_by TEXT,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	-- Hot path: overlap checks scan an employee's non-terminal requests
	CREATE INDEX IF NOT EXISTS idx_leave_requests_employee_status
		ON leave_requests(employee_id, status);
	CREATE INDEX IF NOT EXISTS idx_leave_requests_dates
		ON leave_requests(employee_id, start_date, end_date);

	-- Attendance: exactly one record per (employee, day)
	CREATE TABLE IF NOT EXISTS attendance_records (
		id TEXT PRIMARY KEY,
		employee_id TEXT NOT NULL,
		day TEXT NOT NULL,
		check_in TEXT,
		check_out TEXT,
		work_minutes INTEGER NOT NULL DEFAULT 0,
		status TEXT NOT NULL,
		method TEXT NOT NULL,
		latitude REAL,
		longitude REAL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE UNIQUE INDEX IF NOT EXISTS idx_attendance_employee_day
		ON attendance_records(employee_id, day);

	-- Append-only event trail; no UPDATE or DELETE is ever issued
	CREATE TABLE IF NOT EXISTS attendance_logs (
		id TEXT PRIMARY KEY,
		record_id TEXT NOT NULL REFERENCES attendance_records(id),
		log_type TEXT NOT NULL,
		at TEXT NOT NULL,
		actor_id TEXT NOT NULL,
		note TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_attendance_logs_record
		ON attendance_logs(record_id, at);
	`

	_, err := db.sql.Exec(schema)
	return err
}

// =============================================================================
// SHARED PLUMBING
// =============================================================================

// dbtx is satisfied by both *sql.DB and *sql.Tx so query helpers can run
// inside or outside a transaction.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// withTx runs fn inside a transaction, serialized against other writers.
func (db *DB) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	tx, err := db.sql.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	return tx.Commit()
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func isUniqueConstraintError(err error) bool {
	return err != nil && (strings.Contains(err.Error(), "UNIQUE constraint failed") ||
		strings.Contains(err.Error(), "duplicate key"))
}

// conflictIfUnique maps a driver-level UNIQUE violation onto the domain
// conflict taxonomy; other errors pass through unchanged.
func conflictIfUnique(err error, reason string) error {
	if isUniqueConstraintError(err) {
		return &core.ConflictError{Reason: reason}
	}
	return err
}
