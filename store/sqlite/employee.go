package sqlite

import (
	"context"
	"database/sql"
)

// =============================================================================
// EMPLOYEE STORE (attendance.Directory interface)
// =============================================================================

// Employee is the minimal directory row this core needs: an identity for
// assignments and balances, plus the manager edge for manual-entry scoping.
// Full employee CRUD lives in the surrounding platform.
type Employee struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email,omitempty"`
	ManagerID string `json:"managerId,omitempty"`
}

type EmployeeStore struct {
	db *DB
}

// Save upserts an employee row.
func (s *EmployeeStore) Save(ctx context.Context, e Employee) error {
	return s.db.withTx(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO employees (id, name, email, manager_id)
			VALUES (?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				name = excluded.name,
				email = excluded.email,
				manager_id = excluded.manager_id
		`, e.ID, e.Name, nullString(e.Email), nullString(e.ManagerID))
		return err
	})
}

// Get returns an employee, or nil when absent.
func (s *EmployeeStore) Get(ctx context.Context, id string) (*Employee, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	var e Employee
	var email, managerID sql.NullString
	err := s.db.sql.QueryRowContext(ctx,
		"SELECT id, name, email, manager_id FROM employees WHERE id = ?", id,
	).Scan(&e.ID, &e.Name, &email, &managerID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	e.Email = email.String
	e.ManagerID = managerID.String
	return &e, nil
}

// ManagerOf returns the employee's manager ID, or "" when the employee has
// none (or does not exist - the caller's authorization check fails either
// way).
func (s *EmployeeStore) ManagerOf(ctx context.Context, employeeID string) (string, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	var managerID sql.NullString
	err := s.db.sql.QueryRowContext(ctx,
		"SELECT manager_id FROM employees WHERE id = ?", employeeID,
	).Scan(&managerID)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return managerID.String, nil
}
