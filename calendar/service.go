package calendar

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/warp/workforce-core/core"
)

// =============================================================================
// STORE - Persistence interface implemented by store/sqlite
// =============================================================================

// Store persists calendars and employee assignments.
// Save replaces the calendar's rule and holiday sets wholesale; calendars
// are never incrementally patched.
type Store interface {
	SaveCalendar(ctx context.Context, cal Calendar) error
	GetCalendar(ctx context.Context, id string) (*Calendar, error)
	ListCalendars(ctx context.Context, orgID string) ([]Calendar, error)
	DeleteCalendar(ctx context.Context, id string) error

	SaveAssignment(ctx context.Context, a Assignment) error
	GetAssignment(ctx context.Context, employeeID string) (*Assignment, error)
	DeleteAssignment(ctx context.Context, employeeID string) error
	CountAssignments(ctx context.Context, calendarID string) (int, error)
}

// =============================================================================
// SERVICE - Snapshot loading + calendar administration
// =============================================================================

// Service loads calendar snapshots and resolves days for employees.
type Service struct {
	store Store
}

func NewService(store Store) *Service {
	return &Service{store: store}
}

// ResolveDay classifies a date for an employee under their assigned calendar.
// An employee without an assignment is an error, never a silent WORKING:
// defaulting here would corrupt downstream balance and attendance math.
func (s *Service) ResolveDay(ctx context.Context, employeeID string, date time.Time) (Resolution, error) {
	a, err := s.store.GetAssignment(ctx, employeeID)
	if err != nil {
		return Resolution{}, fmt.Errorf("load assignment: %w", err)
	}
	if a == nil {
		return Resolution{}, &core.NotFoundError{Resource: "calendar assignment", ID: employeeID}
	}

	cal, err := s.store.GetCalendar(ctx, a.CalendarID)
	if err != nil {
		return Resolution{}, fmt.Errorf("load calendar: %w", err)
	}
	if cal == nil {
		return Resolution{}, &core.NotFoundError{Resource: "calendar", ID: a.CalendarID}
	}

	return Resolve(cal, date), nil
}

// Create validates and stores a new calendar with its full rule and holiday
// sets.
func (s *Service) Create(ctx context.Context, cal Calendar) (*Calendar, error) {
	if cal.ID == "" {
		cal.ID = uuid.NewString()
	}
	for i := range cal.Holidays {
		if cal.Holidays[i].ID == "" {
			cal.Holidays[i].ID = uuid.NewString()
		}
	}
	if err := validate(&cal); err != nil {
		return nil, err
	}
	if err := s.store.SaveCalendar(ctx, cal); err != nil {
		return nil, err
	}
	return &cal, nil
}

// Replace overwrites an existing calendar wholesale. The rule and holiday
// sets supplied here are the calendar's new complete sets.
func (s *Service) Replace(ctx context.Context, cal Calendar) (*Calendar, error) {
	existing, err := s.store.GetCalendar(ctx, cal.ID)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, &core.NotFoundError{Resource: "calendar", ID: cal.ID}
	}
	for i := range cal.Holidays {
		if cal.Holidays[i].ID == "" {
			cal.Holidays[i].ID = uuid.NewString()
		}
	}
	if err := validate(&cal); err != nil {
		return nil, err
	}
	if err := s.store.SaveCalendar(ctx, cal); err != nil {
		return nil, err
	}
	return &cal, nil
}

// Get returns one calendar.
func (s *Service) Get(ctx context.Context, id string) (*Calendar, error) {
	cal, err := s.store.GetCalendar(ctx, id)
	if err != nil {
		return nil, err
	}
	if cal == nil {
		return nil, &core.NotFoundError{Resource: "calendar", ID: id}
	}
	return cal, nil
}

// List returns all calendars for an organization.
func (s *Service) List(ctx context.Context, orgID string) ([]Calendar, error) {
	return s.store.ListCalendars(ctx, orgID)
}

// Delete removes a calendar. Blocked while any employee is still assigned.
func (s *Service) Delete(ctx context.Context, id string) error {
	cal, err := s.store.GetCalendar(ctx, id)
	if err != nil {
		return err
	}
	if cal == nil {
		return &core.NotFoundError{Resource: "calendar", ID: id}
	}
	n, err := s.store.CountAssignments(ctx, id)
	if err != nil {
		return err
	}
	if n > 0 {
		return &core.ConflictError{Reason: fmt.Sprintf("calendar has %d assigned employees", n)}
	}
	return s.store.DeleteCalendar(ctx, id)
}

// Assign links an employee to a calendar, replacing any prior assignment.
func (s *Service) Assign(ctx context.Context, employeeID, calendarID string) error {
	cal, err := s.store.GetCalendar(ctx, calendarID)
	if err != nil {
		return err
	}
	if cal == nil {
		return &core.NotFoundError{Resource: "calendar", ID: calendarID}
	}
	return s.store.SaveAssignment(ctx, Assignment{
		EmployeeID: employeeID,
		CalendarID: calendarID,
		AssignedAt: time.Now().UTC(),
	})
}

// Unassign removes an employee's calendar assignment.
func (s *Service) Unassign(ctx context.Context, employeeID string) error {
	a, err := s.store.GetAssignment(ctx, employeeID)
	if err != nil {
		return err
	}
	if a == nil {
		return &core.NotFoundError{Resource: "calendar assignment", ID: employeeID}
	}
	return s.store.DeleteAssignment(ctx, employeeID)
}

// =============================================================================
// VALIDATION
// =============================================================================

func validate(cal *Calendar) error {
	if cal.Name == "" {
		return &core.ValidationError{Field: "name", Reason: "required"}
	}
	seen := make(map[int]bool, len(cal.Rules))
	for _, r := range cal.Rules {
		if r.DayOfWeek < 0 || r.DayOfWeek > 6 {
			return &core.ValidationError{Field: "dayOfWeek", Reason: fmt.Sprintf("%d out of range 0-6", r.DayOfWeek)}
		}
		if seen[r.DayOfWeek] {
			return &core.ValidationError{Field: "dayOfWeek", Reason: fmt.Sprintf("duplicate rule for day %d", r.DayOfWeek)}
		}
		seen[r.DayOfWeek] = true
		switch r.Kind {
		case RuleWorking, RuleOff, RuleAlternate:
		default:
			return &core.ValidationError{Field: "kind", Reason: fmt.Sprintf("unknown rule kind %q", r.Kind)}
		}
		for _, n := range r.WeekNumbers {
			if n < 1 || n > 5 {
				return &core.ValidationError{Field: "weekNumbers", Reason: fmt.Sprintf("%d out of range 1-5", n)}
			}
		}
	}
	for _, h := range cal.Holidays {
		if h.Name == "" {
			return &core.ValidationError{Field: "holiday.name", Reason: "required"}
		}
		if core.Day(h.EndDate).Before(core.Day(h.StartDate)) {
			return &core.ValidationError{Field: "holiday", Reason: h.Name + ": end before start"}
		}
	}
	return nil
}
