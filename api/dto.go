/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  JSON structures for the HTTP contract, decoupled from the domain types.
  Dates travel as YYYY-MM-DD strings; timestamps as RFC 3339.

NAMING CONVENTION:
  - *Request: request body types from clients
  - Domain types serialize directly where their JSON shape already fits
    (calendar.Calendar, leave.Request, attendance.Record).

VALIDATION:
  Handlers parse and validate; DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: uses these types
*/
package api

import (
	"time"

	"github.com/warp/workforce-core/calendar"
)

// =============================================================================
// REQUEST TYPES
// =============================================================================

// CalendarRequest carries a calendar create/replace body. Rules and
// holidays are the complete new sets.
type CalendarRequest struct {
	OrgID    string               `json:"orgId"`
	Name     string               `json:"name"`
	DayStart string               `json:"dayStart"`
	DayEnd   string               `json:"dayEnd"`
	Rules    []calendar.WeeklyRule `json:"rules"`
	Holidays []HolidayRequest     `json:"holidays"`
}

type HolidayRequest struct {
	Name      string `json:"name"`
	StartDate string `json:"startDate"`
	EndDate   string `json:"endDate"`
}

type AssignCalendarRequest struct {
	EmployeeID string `json:"employeeId"`
}

type CreateLeaveRequest struct {
	EmployeeID string `json:"employeeId"`
	Type       string `json:"type"`
	StartDate  string `json:"startDate"`
	EndDate    string `json:"endDate"`
	Reason     string `json:"reason"`
}

type SetLeaveStatusRequest struct {
	Status     string `json:"status"`
	AdminNotes string `json:"adminNotes"`
}

type ProvisionBalanceRequest struct {
	EmployeeID string `json:"employeeId"`
	Type       string `json:"type"`
	Year       int    `json:"year"`
	Allocated  string `json:"allocated"`
}

type ClockInRequest struct {
	EmployeeID string     `json:"employeeId"`
	Method     string     `json:"method"`
	Latitude   *float64   `json:"latitude,omitempty"`
	Longitude  *float64   `json:"longitude,omitempty"`
	Timestamp  *time.Time `json:"timestamp,omitempty"`
}

type ClockOutRequest struct {
	EmployeeID string     `json:"employeeId"`
	Method     string     `json:"method"`
	Timestamp  *time.Time `json:"timestamp,omitempty"`
}

type ManualAttendanceRequest struct {
	EmployeeID string     `json:"employeeId"`
	Date       string     `json:"date"`
	CheckIn    *time.Time `json:"checkIn,omitempty"`
	CheckOut   *time.Time `json:"checkOut,omitempty"`
	Status     string     `json:"status"`
	Note       string     `json:"note"`
}

type UpdateAttendanceRequest struct {
	CheckIn  *time.Time `json:"checkIn,omitempty"`
	CheckOut *time.Time `json:"checkOut,omitempty"`
	Status   *string    `json:"status,omitempty"`
	Note     string     `json:"note"`
}

// =============================================================================
// RESPONSE TYPES
// =============================================================================

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
