/*
handlers.go - HTTP handlers over the workforce core

PURPOSE:
  Thin JSON layer over the calendar, leave, and attendance services.
  Parses requests, delegates, and maps the core error taxonomy onto HTTP
  statuses. No business rules live here.

ENDPOINTS:
  Calendars:
    POST   /api/calendars                     Create calendar
    GET    /api/calendars?org={id}            List calendars
    GET    /api/calendars/{id}                Get calendar
    PUT    /api/calendars/{id}                Replace calendar wholesale
    DELETE /api/calendars/{id}                Delete (blocked while assigned)
    POST   /api/calendars/{id}/assignments    Assign employee
  Employees:
    GET    /api/employees/{id}/day?date=      Resolve day classification
    DELETE /api/employees/{id}/calendar       Unassign calendar
    GET    /api/employees/{id}/leave/requests
    GET    /api/employees/{id}/leave/balances?year=
    GET    /api/employees/{id}/attendance?from=&to=
  Leave:
    POST   /api/leave/requests                Create request
    POST   /api/leave/requests/{id}/status    Approve/reject (admin)
    POST   /api/leave/requests/{id}/cancel    Cancel
    DELETE /api/leave/requests/{id}           Hard delete while pending
    PUT    /api/leave/balances                Provision balance (admin)
  Attendance:
    POST   /api/attendance/clock-in
    POST   /api/attendance/clock-out
    POST   /api/attendance/manual             Manager/admin manual entry
    PATCH  /api/attendance/records/{id}       Manager/admin edit
    GET    /api/attendance/records/{id}/logs

ERROR MAPPING:
  400 validation / invalid range     409 conflict
  403 not authorized                 422 insufficient balance,
  404 not found                          invalid transition
  500 everything else (logged)

ACTOR:
  The excluded auth layer is expected to inject the acting user as
  X-Actor-Id and X-Actor-Role headers; this layer passes them through as
  core.Actor without verifying them.

SEE ALSO:
  - dto.go: request/response shapes
  - server.go: router and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/warp/workforce-core/attendance"
	"github.com/warp/workforce-core/calendar"
	"github.com/warp/workforce-core/core"
	"github.com/warp/workforce-core/leave"
)

// =============================================================================
// HANDLER
// =============================================================================

// Handler holds the service dependencies for all HTTP handlers.
type Handler struct {
	Calendars  *calendar.Service
	Leave      *leave.Service
	Attendance *attendance.Service
	Log        *logrus.Logger
}

func NewHandler(cal *calendar.Service, lv *leave.Service, att *attendance.Service, log *logrus.Logger) *Handler {
	if log == nil {
		log = logrus.New()
	}
	return &Handler{Calendars: cal, Leave: lv, Attendance: att, Log: log}
}

func actorFrom(r *http.Request) core.Actor {
	return core.Actor{
		ID:    r.Header.Get("X-Actor-Id"),
		Admin: r.Header.Get("X-Actor-Role") == "admin",
	}
}

// =============================================================================
// CALENDAR ENDPOINTS
// =============================================================================

// CreateCalendar creates a calendar with its full rule and holiday sets.
// POST /api/calendars
func (h *Handler) CreateCalendar(w http.ResponseWriter, r *http.Request) {
	var req CalendarRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	cal, err := toCalendar(req, "")
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	created, err := h.Calendars.Create(r.Context(), *cal)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// ReplaceCalendar overwrites a calendar wholesale.
// PUT /api/calendars/{id}
func (h *Handler) ReplaceCalendar(w http.ResponseWriter, r *http.Request) {
	var req CalendarRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	cal, err := toCalendar(req, chi.URLParam(r, "id"))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	updated, err := h.Calendars.Replace(r.Context(), *cal)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// GetCalendar returns one calendar.
// GET /api/calendars/{id}
func (h *Handler) GetCalendar(w http.ResponseWriter, r *http.Request) {
	cal, err := h.Calendars.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cal)
}

// ListCalendars returns an organization's calendars.
// GET /api/calendars?org={id}
func (h *Handler) ListCalendars(w http.ResponseWriter, r *http.Request) {
	cals, err := h.Calendars.List(r.Context(), r.URL.Query().Get("org"))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	if cals == nil {
		cals = []calendar.Calendar{}
	}
	writeJSON(w, http.StatusOK, cals)
}

// DeleteCalendar removes a calendar; 409 while employees are assigned.
// DELETE /api/calendars/{id}
func (h *Handler) DeleteCalendar(w http.ResponseWriter, r *http.Request) {
	if err := h.Calendars.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AssignCalendar links an employee to the calendar.
// POST /api/calendars/{id}/assignments
func (h *Handler) AssignCalendar(w http.ResponseWriter, r *http.Request) {
	var req AssignCalendarRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if err := h.Calendars.Assign(r.Context(), req.EmployeeID, chi.URLParam(r, "id")); err != nil {
		h.writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UnassignCalendar removes an employee's assignment.
// DELETE /api/employees/{id}/calendar
func (h *Handler) UnassignCalendar(w http.ResponseWriter, r *http.Request) {
	if err := h.Calendars.Unassign(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ResolveDay classifies a date for an employee.
// GET /api/employees/{id}/day?date=YYYY-MM-DD
func (h *Handler) ResolveDay(w http.ResponseWriter, r *http.Request) {
	date, err := core.ParseDate(r.URL.Query().Get("date"))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	res, err := h.Calendars.ResolveDay(r.Context(), chi.URLParam(r, "id"), date)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// =============================================================================
// LEAVE ENDPOINTS
// =============================================================================

// CreateLeaveRequest submits a new leave request.
// POST /api/leave/requests
func (h *Handler) CreateLeaveRequest(w http.ResponseWriter, r *http.Request) {
	var req CreateLeaveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	start, err := core.ParseDate(req.StartDate)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	end, err := core.ParseDate(req.EndDate)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	created, err := h.Leave.CreateRequest(r.Context(), leave.CreateInput{
		EmployeeID: req.EmployeeID,
		Type:       leave.Type(req.Type),
		StartDate:  start,
		EndDate:    end,
		Reason:     req.Reason,
	})
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// ListLeaveRequests returns an employee's requests.
// GET /api/employees/{id}/leave/requests
func (h *Handler) ListLeaveRequests(w http.ResponseWriter, r *http.Request) {
	reqs, err := h.Leave.Requests(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	if reqs == nil {
		reqs = []leave.Request{}
	}
	writeJSON(w, http.StatusOK, reqs)
}

// SetLeaveStatus approves or rejects a pending request.
// POST /api/leave/requests/{id}/status
func (h *Handler) SetLeaveStatus(w http.ResponseWriter, r *http.Request) {
	var req SetLeaveStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	updated, err := h.Leave.SetStatus(r.Context(), chi.URLParam(r, "id"),
		leave.Status(req.Status), req.AdminNotes, actorFrom(r))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// CancelLeaveRequest cancels a request (owner while pending; admin also
// while approved, with balance rollback).
// POST /api/leave/requests/{id}/cancel
func (h *Handler) CancelLeaveRequest(w http.ResponseWriter, r *http.Request) {
	updated, err := h.Leave.Cancel(r.Context(), chi.URLParam(r, "id"), actorFrom(r))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// DeleteLeaveRequest hard-deletes a pending request.
// DELETE /api/leave/requests/{id}
func (h *Handler) DeleteLeaveRequest(w http.ResponseWriter, r *http.Request) {
	if err := h.Leave.Delete(r.Context(), chi.URLParam(r, "id"), actorFrom(r)); err != nil {
		h.writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetLeaveBalances returns an employee's balances for a year.
// GET /api/employees/{id}/leave/balances?year=2025
func (h *Handler) GetLeaveBalances(w http.ResponseWriter, r *http.Request) {
	year, err := strconv.Atoi(r.URL.Query().Get("year"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid year", err)
		return
	}
	balances, err := h.Leave.Balances(r.Context(), chi.URLParam(r, "id"), year)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	if balances == nil {
		balances = []leave.Balance{}
	}
	writeJSON(w, http.StatusOK, balances)
}

// ProvisionBalance creates or adjusts a balance row (admin).
// PUT /api/leave/balances
func (h *Handler) ProvisionBalance(w http.ResponseWriter, r *http.Request) {
	var req ProvisionBalanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	allocated, err := decimal.NewFromString(req.Allocated)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid allocated amount", err)
		return
	}
	err = h.Leave.Provision(r.Context(), leave.Balance{
		EmployeeID: req.EmployeeID,
		Type:       leave.Type(req.Type),
		Year:       req.Year,
		Allocated:  allocated,
		Used:       decimal.Zero,
	}, actorFrom(r))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// ATTENDANCE ENDPOINTS
// =============================================================================

// ClockIn opens the employee's record for today.
// POST /api/attendance/clock-in
func (h *Handler) ClockIn(w http.ResponseWriter, r *http.Request) {
	var req ClockInRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	rec, err := h.Attendance.ClockIn(r.Context(), attendance.ClockInInput{
		EmployeeID: req.EmployeeID,
		Method:     attendance.Method(req.Method),
		Latitude:   req.Latitude,
		Longitude:  req.Longitude,
		At:         req.Timestamp,
	})
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

// ClockOut closes the employee's record for today.
// POST /api/attendance/clock-out
func (h *Handler) ClockOut(w http.ResponseWriter, r *http.Request) {
	var req ClockOutRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	rec, err := h.Attendance.ClockOut(r.Context(), req.EmployeeID,
		attendance.Method(req.Method), req.Timestamp)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// ManualAttendance creates a record on the manager/admin path.
// POST /api/attendance/manual
func (h *Handler) ManualAttendance(w http.ResponseWriter, r *http.Request) {
	var req ManualAttendanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	day, err := core.ParseDate(req.Date)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	rec, err := h.Attendance.ManualEntry(r.Context(), attendance.ManualInput{
		EmployeeID: req.EmployeeID,
		Day:        day,
		CheckIn:    req.CheckIn,
		CheckOut:   req.CheckOut,
		Status:     attendance.Status(req.Status),
		Note:       req.Note,
	}, actorFrom(r))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, rec)
}

// UpdateAttendance retroactively edits a record (manager/admin).
// PATCH /api/attendance/records/{id}
func (h *Handler) UpdateAttendance(w http.ResponseWriter, r *http.Request) {
	var req UpdateAttendanceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	var status *attendance.Status
	if req.Status != nil {
		st := attendance.Status(*req.Status)
		status = &st
	}
	rec, err := h.Attendance.Update(r.Context(), chi.URLParam(r, "id"), attendance.UpdateInput{
		CheckIn:  req.CheckIn,
		CheckOut: req.CheckOut,
		Status:   status,
		Note:     req.Note,
	}, actorFrom(r))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// GetAttendance returns an employee's records in a date range.
// GET /api/employees/{id}/attendance?from=YYYY-MM-DD&to=YYYY-MM-DD
func (h *Handler) GetAttendance(w http.ResponseWriter, r *http.Request) {
	from, err := core.ParseDate(r.URL.Query().Get("from"))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	to, err := core.ParseDate(r.URL.Query().Get("to"))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	records, err := h.Attendance.Records(r.Context(), chi.URLParam(r, "id"), from, to)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	if records == nil {
		records = []attendance.Record{}
	}
	writeJSON(w, http.StatusOK, records)
}

// GetAttendanceLogs returns the append-only trail for one record.
// GET /api/attendance/records/{id}/logs
func (h *Handler) GetAttendanceLogs(w http.ResponseWriter, r *http.Request) {
	logs, err := h.Attendance.Logs(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	if logs == nil {
		logs = []attendance.Log{}
	}
	writeJSON(w, http.StatusOK, logs)
}

// =============================================================================
// HELPERS
// =============================================================================

func toCalendar(req CalendarRequest, id string) (*calendar.Calendar, error) {
	cal := calendar.Calendar{
		ID:       id,
		OrgID:    req.OrgID,
		Name:     req.Name,
		DayStart: req.DayStart,
		DayEnd:   req.DayEnd,
		Rules:    req.Rules,
	}
	for _, h := range req.Holidays {
		start, err := core.ParseDate(h.StartDate)
		if err != nil {
			return nil, err
		}
		end, err := core.ParseDate(h.EndDate)
		if err != nil {
			return nil, err
		}
		cal.Holidays = append(cal.Holidays, calendar.Holiday{
			Name:      h.Name,
			StartDate: start,
			EndDate:   end,
		})
	}
	return &cal, nil
}

// writeDomainError maps the core taxonomy onto HTTP statuses so callers
// can branch on cause.
func (h *Handler) writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, core.ErrNotFound):
		writeError(w, http.StatusNotFound, "Not found", err)
	case errors.Is(err, core.ErrConflict):
		writeError(w, http.StatusConflict, "Conflict", err)
	case errors.Is(err, core.ErrInsufficientBalance):
		writeError(w, http.StatusUnprocessableEntity, "Insufficient balance", err)
	case errors.Is(err, core.ErrInvalidTransition):
		writeError(w, http.StatusUnprocessableEntity, "Invalid transition", err)
	case errors.Is(err, core.ErrUnauthorized):
		writeError(w, http.StatusForbidden, "Not authorized", err)
	case errors.Is(err, core.ErrValidation), errors.Is(err, core.ErrInvalidRange):
		writeError(w, http.StatusBadRequest, "Invalid request", err)
	default:
		h.Log.WithError(err).Error("internal error")
		writeError(w, http.StatusInternalServerError, "Internal error", nil)
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
