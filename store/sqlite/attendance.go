package sqlite

import (
	"context"
	"database/sql"
	"time"

	"github.com/warp/workforce-core/attendance"
	"github.com/warp/workforce-core/core"
)

// =============================================================================
// ATTENDANCE STORE (attendance.Store interface)
// =============================================================================

// AttendanceStore persists attendance records and their append-only logs.
// The check-in/check-out transitions are guarded here with conditional
// updates, not just in the service, so concurrent calls cannot both win.
type AttendanceStore struct {
	db *DB
}

var _ attendance.Store = (*AttendanceStore)(nil)

// WithTx exposes the mutation surface inside a database transaction.
func (s *AttendanceStore) WithTx(ctx context.Context, fn func(tx attendance.Tx) error) error {
	return s.db.withTx(ctx, func(sqlTx *sql.Tx) error {
		return fn(&attendanceTx{q: sqlTx})
	})
}

func (s *AttendanceStore) GetRecord(ctx context.Context, employeeID string, day time.Time) (*attendance.Record, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	return getAttendanceRecord(ctx, s.db.sql,
		"SELECT "+attendanceColumns+" FROM attendance_records WHERE employee_id = ? AND day = ?",
		employeeID, core.FormatDate(day))
}

func (s *AttendanceStore) GetRecordByID(ctx context.Context, id string) (*attendance.Record, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	return getAttendanceRecord(ctx, s.db.sql,
		"SELECT "+attendanceColumns+" FROM attendance_records WHERE id = ?", id)
}

func (s *AttendanceStore) ListRecords(ctx context.Context, employeeID string, from, to time.Time) ([]attendance.Record, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	rows, err := s.db.sql.QueryContext(ctx, `
		SELECT `+attendanceColumns+`
		FROM attendance_records
		WHERE employee_id = ? AND day >= ? AND day <= ?
		ORDER BY day ASC
	`, employeeID, core.FormatDate(from), core.FormatDate(to))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []attendance.Record
	for rows.Next() {
		rec, err := scanAttendanceRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (s *AttendanceStore) ListLogs(ctx context.Context, recordID string) ([]attendance.Log, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	rows, err := s.db.sql.QueryContext(ctx, `
		SELECT id, record_id, log_type, at, actor_id, note
		FROM attendance_logs
		WHERE record_id = ?
		ORDER BY at ASC
	`, recordID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var logs []attendance.Log
	for rows.Next() {
		var l attendance.Log
		var at string
		var note sql.NullString
		if err := rows.Scan(&l.ID, &l.RecordID, &l.Type, &at, &l.ActorID, &note); err != nil {
			return nil, err
		}
		l.At, _ = time.Parse(time.RFC3339, at)
		l.Note = note.String
		logs = append(logs, l)
	}
	return logs, rows.Err()
}

// =============================================================================
// TRANSACTION VIEW (attendance.Tx interface)
// =============================================================================

type attendanceTx struct {
	q dbtx
}

func (t *attendanceTx) GetRecord(ctx context.Context, employeeID string, day time.Time) (*attendance.Record, error) {
	return getAttendanceRecord(ctx, t.q,
		"SELECT "+attendanceColumns+" FROM attendance_records WHERE employee_id = ? AND day = ?",
		employeeID, core.FormatDate(day))
}

func (t *attendanceTx) GetRecordByID(ctx context.Context, id string) (*attendance.Record, error) {
	return getAttendanceRecord(ctx, t.q,
		"SELECT "+attendanceColumns+" FROM attendance_records WHERE id = ?", id)
}

// InsertRecord creates the day's row. The UNIQUE(employee_id, day) index
// turns a concurrent duplicate insert into core.ErrConflict.
func (t *attendanceTx) InsertRecord(ctx context.Context, r attendance.Record) error {
	_, err := t.q.ExecContext(ctx, `
		INSERT INTO attendance_records
		(id, employee_id, day, check_in, check_out, work_minutes, status, method,
		 latitude, longitude, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		r.ID, r.EmployeeID, core.FormatDate(r.Day),
		nullTime(r.CheckIn), nullTime(r.CheckOut), r.WorkMinutes, r.Status, r.Method,
		r.Latitude, r.Longitude,
		r.CreatedAt.UTC().Format(time.RFC3339), r.UpdatedAt.UTC().Format(time.RFC3339),
	)
	return conflictIfUnique(err, "attendance record already exists for day")
}

// SetCheckIn claims the check-in slot only while it is NULL. Zero rows
// affected means another writer got there first.
func (t *attendanceTx) SetCheckIn(ctx context.Context, recordID string, at time.Time, status attendance.Status, method attendance.Method) error {
	res, err := t.q.ExecContext(ctx, `
		UPDATE attendance_records
		SET check_in = ?, status = ?, method = ?, updated_at = ?
		WHERE id = ? AND check_in IS NULL
	`, at.UTC().Format(time.RFC3339), status, method,
		time.Now().UTC().Format(time.RFC3339), recordID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return &core.ConflictError{Reason: "already clocked in"}
	}
	return nil
}

// SetCheckOut closes the record only while check_out is NULL and check_in
// is set. The guard lives in the WHERE clause, not in prior reads.
func (t *attendanceTx) SetCheckOut(ctx context.Context, recordID string, at time.Time, workMinutes int) error {
	res, err := t.q.ExecContext(ctx, `
		UPDATE attendance_records
		SET check_out = ?, work_minutes = ?, updated_at = ?
		WHERE id = ? AND check_out IS NULL AND check_in IS NOT NULL
	`, at.UTC().Format(time.RFC3339), workMinutes,
		time.Now().UTC().Format(time.RFC3339), recordID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return &core.ConflictError{Reason: "already checked out"}
	}
	return nil
}

func (t *attendanceTx) UpdateRecord(ctx context.Context, r attendance.Record) error {
	res, err := t.q.ExecContext(ctx, `
		UPDATE attendance_records
		SET check_in = ?, check_out = ?, work_minutes = ?, status = ?, updated_at = ?
		WHERE id = ?
	`, nullTime(r.CheckIn), nullTime(r.CheckOut), r.WorkMinutes, r.Status,
		r.UpdatedAt.UTC().Format(time.RFC3339), r.ID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return &core.NotFoundError{Resource: "attendance record", ID: r.ID}
	}
	return nil
}

func (t *attendanceTx) AppendLog(ctx context.Context, l attendance.Log) error {
	_, err := t.q.ExecContext(ctx, `
		INSERT INTO attendance_logs (id, record_id, log_type, at, actor_id, note)
		VALUES (?, ?, ?, ?, ?, ?)
	`, l.ID, l.RecordID, l.Type, l.At.UTC().Format(time.RFC3339), l.ActorID, nullString(l.Note))
	return err
}

// =============================================================================
// QUERY HELPERS
// =============================================================================

const attendanceColumns = `id, employee_id, day, check_in, check_out,
	work_minutes, status, method, latitude, longitude, created_at, updated_at`

func getAttendanceRecord(ctx context.Context, q dbtx, query string, args ...any) (*attendance.Record, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	rec, err := scanAttendanceRecord(rows)
	if err != nil {
		return nil, err
	}
	return &rec, rows.Err()
}

func scanAttendanceRecord(rows *sql.Rows) (attendance.Record, error) {
	var r attendance.Record
	var day, createdAt, updatedAt string
	var checkIn, checkOut sql.NullString
	var lat, lng sql.NullFloat64

	if err := rows.Scan(
		&r.ID, &r.EmployeeID, &day, &checkIn, &checkOut,
		&r.WorkMinutes, &r.Status, &r.Method, &lat, &lng,
		&createdAt, &updatedAt,
	); err != nil {
		return r, err
	}

	r.Day, _ = time.Parse(core.DateLayout, day)
	if checkIn.Valid {
		t, _ := time.Parse(time.RFC3339, checkIn.String)
		r.CheckIn = &t
	}
	if checkOut.Valid {
		t, _ := time.Parse(time.RFC3339, checkOut.String)
		r.CheckOut = &t
	}
	if lat.Valid {
		r.Latitude = &lat.Float64
	}
	if lng.Valid {
		r.Longitude = &lng.Float64
	}
	r.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	r.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return r, nil
}

func nullTime(t *time.Time) sql.NullString {
	if t == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: t.UTC().Format(time.RFC3339), Valid: true}
}
