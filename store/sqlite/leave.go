package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/workforce-core/core"
	"github.com/warp/workforce-core/leave"
)

// =============================================================================
// LEAVE STORE (leave.Store interface)
// =============================================================================

// LeaveStore persists leave requests and balances. All mutations flow
// through WithTx so the service's invariant checks and writes share one
// commit.
type LeaveStore struct {
	db *DB
}

var _ leave.Store = (*LeaveStore)(nil)

// WithTx exposes the mutation surface inside a database transaction.
// Reads through the returned Tx see the transaction's own writes.
func (s *LeaveStore) WithTx(ctx context.Context, fn func(tx leave.Tx) error) error {
	return s.db.withTx(ctx, func(sqlTx *sql.Tx) error {
		return fn(&leaveTx{q: sqlTx})
	})
}

func (s *LeaveStore) GetRequest(ctx context.Context, id string) (*leave.Request, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	return getLeaveRequest(ctx, s.db.sql, id)
}

func (s *LeaveStore) ListRequests(ctx context.Context, employeeID string) ([]leave.Request, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	return queryLeaveRequests(ctx, s.db.sql, `
		SELECT `+leaveRequestColumns+`
		FROM leave_requests
		WHERE employee_id = ?
		ORDER BY created_at DESC
	`, employeeID)
}

func (s *LeaveStore) ListActiveOverlapping(ctx context.Context, employeeID string, start, end time.Time) ([]leave.Request, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	return listActiveOverlapping(ctx, s.db.sql, employeeID, start, end)
}

func (s *LeaveStore) GetBalance(ctx context.Context, employeeID string, typ leave.Type, year int) (*leave.Balance, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	return getLeaveBalance(ctx, s.db.sql, employeeID, typ, year)
}

func (s *LeaveStore) ListBalances(ctx context.Context, employeeID string, year int) ([]leave.Balance, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	rows, err := s.db.sql.QueryContext(ctx, `
		SELECT employee_id, leave_type, year, allocated, used
		FROM leave_balances
		WHERE employee_id = ? AND year = ?
		ORDER BY leave_type
	`, employeeID, year)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var balances []leave.Balance
	for rows.Next() {
		b, err := scanBalance(rows)
		if err != nil {
			return nil, err
		}
		balances = append(balances, b)
	}
	return balances, rows.Err()
}

// =============================================================================
// TRANSACTION VIEW (leave.Tx interface)
// =============================================================================

type leaveTx struct {
	q dbtx
}

func (t *leaveTx) GetRequest(ctx context.Context, id string) (*leave.Request, error) {
	return getLeaveRequest(ctx, t.q, id)
}

func (t *leaveTx) ListRequests(ctx context.Context, employeeID string) ([]leave.Request, error) {
	return queryLeaveRequests(ctx, t.q, `
		SELECT `+leaveRequestColumns+`
		FROM leave_requests
		WHERE employee_id = ?
		ORDER BY created_at DESC
	`, employeeID)
}

func (t *leaveTx) ListActiveOverlapping(ctx context.Context, employeeID string, start, end time.Time) ([]leave.Request, error) {
	return listActiveOverlapping(ctx, t.q, employeeID, start, end)
}

func (t *leaveTx) GetBalance(ctx context.Context, employeeID string, typ leave.Type, year int) (*leave.Balance, error) {
	return getLeaveBalance(ctx, t.q, employeeID, typ, year)
}

func (t *leaveTx) ListBalances(ctx context.Context, employeeID string, year int) ([]leave.Balance, error) {
	rows, err := t.q.QueryContext(ctx, `
		SELECT employee_id, leave_type, year, allocated, used
		FROM leave_balances
		WHERE employee_id = ? AND year = ?
		ORDER BY leave_type
	`, employeeID, year)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var balances []leave.Balance
	for rows.Next() {
		b, err := scanBalance(rows)
		if err != nil {
			return nil, err
		}
		balances = append(balances, b)
	}
	return balances, rows.Err()
}

func (t *leaveTx) InsertRequest(ctx context.Context, r leave.Request) error {
	_, err := t.q.ExecContext(ctx, `
		INSERT INTO leave_requests
		(id, employee_id, leave_type, start_date, end_date, total_days,
		 status, reason, admin_notes, decided_by, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		r.ID, r.EmployeeID, r.Type,
		core.FormatDate(r.StartDate), core.FormatDate(r.EndDate), r.TotalDays,
		r.Status, nullString(r.Reason), nullString(r.AdminNotes), nullString(r.DecidedBy),
		r.CreatedAt.UTC().Format(time.RFC3339), r.UpdatedAt.UTC().Format(time.RFC3339),
	)
	return conflictIfUnique(err, "duplicate leave request")
}

func (t *leaveTx) UpdateRequest(ctx context.Context, r leave.Request) error {
	res, err := t.q.ExecContext(ctx, `
		UPDATE leave_requests
		SET status = ?, admin_notes = ?, decided_by = ?, updated_at = ?
		WHERE id = ?
	`, r.Status, nullString(r.AdminNotes), nullString(r.DecidedBy),
		r.UpdatedAt.UTC().Format(time.RFC3339), r.ID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return &core.NotFoundError{Resource: "leave request", ID: r.ID}
	}
	return nil
}

func (t *leaveTx) DeleteRequest(ctx context.Context, id string) error {
	res, err := t.q.ExecContext(ctx, "DELETE FROM leave_requests WHERE id = ?", id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return &core.NotFoundError{Resource: "leave request", ID: id}
	}
	return nil
}

func (t *leaveTx) UpsertBalance(ctx context.Context, b leave.Balance) error {
	_, err := t.q.ExecContext(ctx, `
		INSERT INTO leave_balances (employee_id, leave_type, year, allocated, used)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(employee_id, leave_type, year) DO UPDATE SET
			allocated = excluded.allocated,
			used = excluded.used
	`, b.EmployeeID, b.Type, b.Year, b.Allocated.String(), b.Used.String())
	return err
}

func (t *leaveTx) SetBalanceUsed(ctx context.Context, employeeID string, typ leave.Type, year int, used decimal.Decimal) error {
	res, err := t.q.ExecContext(ctx, `
		UPDATE leave_balances SET used = ?
		WHERE employee_id = ? AND leave_type = ? AND year = ?
	`, used.String(), employeeID, typ, year)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return &core.NotFoundError{Resource: "leave balance",
			ID: fmt.Sprintf("%s/%s/%d", employeeID, typ, year)}
	}
	return nil
}

// =============================================================================
// QUERY HELPERS
// =============================================================================

const leaveRequestColumns = `id, employee_id, leave_type, start_date, end_date,
	total_days, status, reason, admin_notes, decided_by, created_at, updated_at`

func getLeaveRequest(ctx context.Context, q dbtx, id string) (*leave.Request, error) {
	reqs, err := queryLeaveRequests(ctx, q,
		"SELECT "+leaveRequestColumns+" FROM leave_requests WHERE id = ?", id)
	if err != nil {
		return nil, err
	}
	if len(reqs) == 0 {
		return nil, nil
	}
	return &reqs[0], nil
}

// listActiveOverlapping matches the overlap invariant: only PENDING and
// APPROVED requests block a new range, and ranges are inclusive.
func listActiveOverlapping(ctx context.Context, q dbtx, employeeID string, start, end time.Time) ([]leave.Request, error) {
	return queryLeaveRequests(ctx, q, `
		SELECT `+leaveRequestColumns+`
		FROM leave_requests
		WHERE employee_id = ?
		  AND status IN ('PENDING', 'APPROVED')
		  AND start_date <= ? AND end_date >= ?
		ORDER BY start_date
	`, employeeID, core.FormatDate(end), core.FormatDate(start))
}

func queryLeaveRequests(ctx context.Context, q dbtx, query string, args ...any) ([]leave.Request, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query leave requests: %w", err)
	}
	defer rows.Close()

	var requests []leave.Request
	for rows.Next() {
		var r leave.Request
		var start, end, createdAt, updatedAt string
		var reason, adminNotes, decidedBy sql.NullString
		if err := rows.Scan(
			&r.ID, &r.EmployeeID, &r.Type, &start, &end,
			&r.TotalDays, &r.Status, &reason, &adminNotes, &decidedBy,
			&createdAt, &updatedAt,
		); err != nil {
			return nil, err
		}
		r.StartDate, _ = time.Parse(core.DateLayout, start)
		r.EndDate, _ = time.Parse(core.DateLayout, end)
		r.Reason = reason.String
		r.AdminNotes = adminNotes.String
		r.DecidedBy = decidedBy.String
		r.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
		r.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
		requests = append(requests, r)
	}
	return requests, rows.Err()
}

func getLeaveBalance(ctx context.Context, q dbtx, employeeID string, typ leave.Type, year int) (*leave.Balance, error) {
	row := q.QueryRowContext(ctx, `
		SELECT employee_id, leave_type, year, allocated, used
		FROM leave_balances
		WHERE employee_id = ? AND leave_type = ? AND year = ?
	`, employeeID, typ, year)

	b, err := scanBalance(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &b, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBalance(row rowScanner) (leave.Balance, error) {
	var b leave.Balance
	var allocated, used string
	if err := row.Scan(&b.EmployeeID, &b.Type, &b.Year, &allocated, &used); err != nil {
		return b, err
	}
	var err error
	if b.Allocated, err = decimal.NewFromString(allocated); err != nil {
		return b, fmt.Errorf("parse allocated: %w", err)
	}
	if b.Used, err = decimal.NewFromString(used); err != nil {
		return b, fmt.Errorf("parse used: %w", err)
	}
	return b, nil
}
