package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/warp/workforce-core/calendar"
	"github.com/warp/workforce-core/core"
)

// =============================================================================
// CALENDAR STORE (calendar.Store interface)
// =============================================================================

// CalendarStore persists calendars, weekly rules, holidays, and employee
// assignments.
type CalendarStore struct {
	db *DB
}

var _ calendar.Store = (*CalendarStore)(nil)

// SaveCalendar upserts the calendar row and replaces its rule and holiday
// sets wholesale, all in one transaction. Calendars are never patched.
func (s *CalendarStore) SaveCalendar(ctx context.Context, cal calendar.Calendar) error {
	return s.db.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO calendars (id, org_id, name, day_start, day_end)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				org_id = excluded.org_id,
				name = excluded.name,
				day_start = excluded.day_start,
				day_end = excluded.day_end
		`, cal.ID, cal.OrgID, cal.Name, cal.DayStart, cal.DayEnd)
		if err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, "DELETE FROM weekly_rules WHERE calendar_id = ?", cal.ID); err != nil {
			return err
		}
		for _, r := range cal.Rules {
			weeks, _ := json.Marshal(r.WeekNumbers)
			_, err := tx.ExecContext(ctx, `
				INSERT INTO weekly_rules (calendar_id, day_of_week, kind, week_numbers)
				VALUES (?, ?, ?, ?)
			`, cal.ID, r.DayOfWeek, r.Kind, string(weeks))
			if err != nil {
				return conflictIfUnique(err, "duplicate weekly rule")
			}
		}

		if _, err := tx.ExecContext(ctx, "DELETE FROM holidays WHERE calendar_id = ?", cal.ID); err != nil {
			return err
		}
		for _, h := range cal.Holidays {
			_, err := tx.ExecContext(ctx, `
				INSERT INTO holidays (id, calendar_id, name, start_date, end_date)
				VALUES (?, ?, ?, ?, ?)
			`, h.ID, cal.ID, h.Name, core.FormatDate(h.StartDate), core.FormatDate(h.EndDate))
			if err != nil {
				return err
			}
		}
		return nil
	})
}

// GetCalendar returns the full snapshot (rules and holidays included), or
// nil when the calendar does not exist.
func (s *CalendarStore) GetCalendar(ctx context.Context, id string) (*calendar.Calendar, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	return getCalendar(ctx, s.db.sql, id)
}

func getCalendar(ctx context.Context, q dbtx, id string) (*calendar.Calendar, error) {
	var cal calendar.Calendar
	var dayStart, dayEnd sql.NullString
	err := q.QueryRowContext(ctx,
		"SELECT id, org_id, name, day_start, day_end FROM calendars WHERE id = ?", id,
	).Scan(&cal.ID, &cal.OrgID, &cal.Name, &dayStart, &dayEnd)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	cal.DayStart = dayStart.String
	cal.DayEnd = dayEnd.String

	if cal.Rules, err = queryRules(ctx, q, id); err != nil {
		return nil, err
	}
	if cal.Holidays, err = queryHolidays(ctx, q, id); err != nil {
		return nil, err
	}
	return &cal, nil
}

func queryRules(ctx context.Context, q dbtx, calendarID string) ([]calendar.WeeklyRule, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT day_of_week, kind, week_numbers
		FROM weekly_rules WHERE calendar_id = ? ORDER BY day_of_week
	`, calendarID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rules []calendar.WeeklyRule
	for rows.Next() {
		var r calendar.WeeklyRule
		var weeks string
		if err := rows.Scan(&r.DayOfWeek, &r.Kind, &weeks); err != nil {
			return nil, err
		}
		if weeks != "" {
			json.Unmarshal([]byte(weeks), &r.WeekNumbers)
		}
		rules = append(rules, r)
	}
	return rules, rows.Err()
}

func queryHolidays(ctx context.Context, q dbtx, calendarID string) ([]calendar.Holiday, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, name, start_date, end_date
		FROM holidays WHERE calendar_id = ? ORDER BY start_date
	`, calendarID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var holidays []calendar.Holiday
	for rows.Next() {
		var h calendar.Holiday
		var start, end string
		if err := rows.Scan(&h.ID, &h.Name, &start, &end); err != nil {
			return nil, err
		}
		h.StartDate, _ = time.Parse(core.DateLayout, start)
		h.EndDate, _ = time.Parse(core.DateLayout, end)
		holidays = append(holidays, h)
	}
	return holidays, rows.Err()
}

// ListCalendars returns all calendars for an organization, snapshots
// included.
func (s *CalendarStore) ListCalendars(ctx context.Context, orgID string) ([]calendar.Calendar, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	rows, err := s.db.sql.QueryContext(ctx,
		"SELECT id FROM calendars WHERE org_id = ? ORDER BY name", orgID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	var cals []calendar.Calendar
	for _, id := range ids {
		cal, err := getCalendar(ctx, s.db.sql, id)
		if err != nil {
			return nil, err
		}
		if cal != nil {
			cals = append(cals, *cal)
		}
	}
	return cals, nil
}

// DeleteCalendar removes the calendar; rules and holidays cascade.
func (s *CalendarStore) DeleteCalendar(ctx context.Context, id string) error {
	return s.db.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, "DELETE FROM calendars WHERE id = ?", id)
		return err
	})
}

// SaveAssignment upserts the employee's single assignment row.
func (s *CalendarStore) SaveAssignment(ctx context.Context, a calendar.Assignment) error {
	return s.db.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO calendar_assignments (employee_id, calendar_id, assigned_at)
			VALUES (?, ?, ?)
			ON CONFLICT(employee_id) DO UPDATE SET
				calendar_id = excluded.calendar_id,
				assigned_at = excluded.assigned_at
		`, a.EmployeeID, a.CalendarID, a.AssignedAt.UTC().Format(time.RFC3339))
		return err
	})
}

// GetAssignment returns the employee's assignment, or nil when none.
func (s *CalendarStore) GetAssignment(ctx context.Context, employeeID string) (*calendar.Assignment, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	var a calendar.Assignment
	var assignedAt string
	err := s.db.sql.QueryRowContext(ctx,
		"SELECT employee_id, calendar_id, assigned_at FROM calendar_assignments WHERE employee_id = ?",
		employeeID,
	).Scan(&a.EmployeeID, &a.CalendarID, &assignedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	a.AssignedAt, _ = time.Parse(time.RFC3339, assignedAt)
	return &a, nil
}

// DeleteAssignment removes the employee's assignment.
func (s *CalendarStore) DeleteAssignment(ctx context.Context, employeeID string) error {
	return s.db.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, "DELETE FROM calendar_assignments WHERE employee_id = ?", employeeID)
		return err
	})
}

// CountAssignments returns how many employees use a calendar. Guards
// calendar deletion.
func (s *CalendarStore) CountAssignments(ctx context.Context, calendarID string) (int, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	var n int
	err := s.db.sql.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM calendar_assignments WHERE calendar_id = ?", calendarID,
	).Scan(&n)
	return n, err
}
