/*
Package calendar classifies civil dates for employees.

PURPOSE:
  Answers one question: "what kind of day is this date for this employee?"
  WORKING, WEEKLY_OFF, or HOLIDAY, under the calendar assigned to the
  employee. The resolution itself is a pure function of a calendar snapshot
  and a date; loading the snapshot is the Service's job.

KEY CONCEPTS IN THIS FILE (types.go):
  - Calendar:    org-scoped container of weekly rules and holidays
  - WeeklyRule:  per day-of-week classification (working/off/alternate)
  - Holiday:     named inclusive date range, always wins over weekly rules
  - DayType:     the three-valued resolution result

ALTERNATE SEMANTICS:
  An ALTERNATE rule carries an explicit set of week-of-month numbers (1-5)
  on which the day is off. Week-of-month buckets by day of month:
  1st-7th = week 1, 8th-14th = week 2, etc. An empty set means no override:
  the day resolves WORKING. There is no parity fallback.

SEE ALSO:
  - resolver.go: the pure resolution algorithm
  - service.go: snapshot loading and calendar administration
*/
package calendar

import "time"

// =============================================================================
// DAY CLASSIFICATION
// =============================================================================

// DayType is the resolution result for a single (employee, date) pair.
type DayType string

const (
	DayWorking   DayType = "WORKING"
	DayWeeklyOff DayType = "WEEKLY_OFF"
	DayHoliday   DayType = "HOLIDAY"
)

// Resolution pairs the day type with its working-day interpretation.
type Resolution struct {
	DayType      DayType `json:"dayType"`
	IsWorkingDay bool    `json:"isWorkingDay"`
}

// =============================================================================
// RULE KINDS
// =============================================================================

// RuleKind classifies a day of week.
type RuleKind string

const (
	RuleWorking   RuleKind = "WORKING"
	RuleOff       RuleKind = "OFF"
	RuleAlternate RuleKind = "ALTERNATE"
)

// =============================================================================
// ENTITIES
// =============================================================================

// WeeklyRule classifies one day of the week for a calendar.
// DayOfWeek is 0 (Sunday) through 6 (Saturday), unique per calendar.
// WeekNumbers is only meaningful for RuleAlternate: the week-of-month
// buckets (1-5) on which the day is off.
type WeeklyRule struct {
	DayOfWeek   int      `json:"dayOfWeek"`
	Kind        RuleKind `json:"kind"`
	WeekNumbers []int    `json:"weekNumbers,omitempty"`
}

// Holiday is a named inclusive date range on a calendar.
type Holiday struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	StartDate time.Time `json:"startDate"`
	EndDate   time.Time `json:"endDate"`
}

// Calendar is the organization-scoped rule container assigned to employees.
// DayStart/DayEnd are wall-clock bounds ("09:00", "18:00") carried for
// downstream lateness context; they do not affect day resolution.
type Calendar struct {
	ID       string       `json:"id"`
	OrgID    string       `json:"orgId"`
	Name     string       `json:"name"`
	DayStart string       `json:"dayStart"`
	DayEnd   string       `json:"dayEnd"`
	Rules    []WeeklyRule `json:"rules"`
	Holidays []Holiday    `json:"holidays"`
}

// RuleFor returns the weekly rule for a day of week, or nil when the
// calendar has none (which downstream treats as WORKING).
func (c *Calendar) RuleFor(dow time.Weekday) *WeeklyRule {
	for i := range c.Rules {
		if c.Rules[i].DayOfWeek == int(dow) {
			return &c.Rules[i]
		}
	}
	return nil
}

// Assignment links an employee to at most one calendar.
type Assignment struct {
	EmployeeID string    `json:"employeeId"`
	CalendarID string    `json:"calendarId"`
	AssignedAt time.Time `json:"assignedAt"`
}
