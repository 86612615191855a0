package leave

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/warp/workforce-core/core"
	"github.com/warp/workforce-core/dispatch"
)

// =============================================================================
// SERVICE - Request workflow with transactional balance guarantees
// =============================================================================

// Service drives the leave request state machine over a Store.
type Service struct {
	store    Store
	dispatch *dispatch.Dispatcher // may be nil
	now      func() time.Time
}

func NewService(store Store, d *dispatch.Dispatcher) *Service {
	return &Service{store: store, dispatch: d, now: time.Now}
}

// CreateInput carries the employee-supplied fields of a new request.
type CreateInput struct {
	EmployeeID string
	Type       Type
	StartDate  time.Time
	EndDate    time.Time
	Reason     string
}

// CreateRequest validates and inserts a PENDING request. The balance is NOT
// debited here; that happens at approval. Rules are checked in order and
// the first violation is returned as its own error kind:
//  1. startDate <= endDate                       -> core.ErrInvalidRange
//  2. no overlapping PENDING/APPROVED request    -> core.ErrConflict
//  3. allocated - used >= totalDays for the      -> core.ErrInsufficientBalance
//     balance keyed by (employee, type, startDate.Year())
//
// Overlap check and insert run in one store transaction so two concurrent
// creations for the same window cannot both pass.
func (s *Service) CreateRequest(ctx context.Context, in CreateInput) (*Request, error) {
	start, end := core.Day(in.StartDate), core.Day(in.EndDate)
	if end.Before(start) {
		return nil, fmt.Errorf("%w: start %s after end %s",
			core.ErrInvalidRange, core.FormatDate(start), core.FormatDate(end))
	}
	if in.Type == "" {
		return nil, &core.ValidationError{Field: "type", Reason: "required"}
	}

	totalDays := core.DaysInclusive(start, end)
	now := s.now().UTC()
	req := Request{
		ID:         uuid.NewString(),
		EmployeeID: in.EmployeeID,
		Type:       in.Type,
		StartDate:  start,
		EndDate:    end,
		TotalDays:  totalDays,
		Status:     StatusPending,
		Reason:     in.Reason,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	err := s.store.WithTx(ctx, func(tx Tx) error {
		overlapping, err := tx.ListActiveOverlapping(ctx, in.EmployeeID, start, end)
		if err != nil {
			return fmt.Errorf("overlap check: %w", err)
		}
		if len(overlapping) > 0 {
			return &core.ConflictError{Reason: fmt.Sprintf(
				"overlaps %s request %s (%s..%s)",
				overlapping[0].Status, overlapping[0].ID,
				core.FormatDate(overlapping[0].StartDate), core.FormatDate(overlapping[0].EndDate))}
		}

		bal, err := tx.GetBalance(ctx, in.EmployeeID, in.Type, start.Year())
		if err != nil {
			return fmt.Errorf("balance lookup: %w", err)
		}
		if bal == nil {
			return &core.NotFoundError{Resource: "leave balance",
				ID: fmt.Sprintf("%s/%s/%d", in.EmployeeID, in.Type, start.Year())}
		}
		if bal.Available().LessThan(decimal.NewFromInt(int64(totalDays))) {
			return &InsufficientBalanceError{
				EmployeeID: in.EmployeeID,
				Type:       in.Type,
				Year:       start.Year(),
				Available:  bal.Available(),
				Requested:  decimal.NewFromInt(int64(totalDays)),
			}
		}

		return tx.InsertRequest(ctx, req)
	})
	if err != nil {
		return nil, err
	}

	s.dispatch.Audit(dispatch.AuditEntry{
		ActorID:      in.EmployeeID,
		Action:       "leave.request.created",
		ResourceType: "leave_request",
		ResourceID:   req.ID,
		Metadata:     map[string]string{"type": string(req.Type), "days": strconv.Itoa(totalDays)},
	})
	return &req, nil
}

// SetStatus applies an administrative decision. Only PENDING -> APPROVED
// and PENDING -> REJECTED are legal here; everything else fails with
// core.ErrInvalidTransition (cancellation has its own path).
//
// Approval re-validates the balance against its current committed value in
// the same transaction that writes the status: two pending requests that
// each passed the creation-time check cannot jointly overcommit.
func (s *Service) SetStatus(ctx context.Context, requestID string, newStatus Status, adminNotes string, actor core.Actor) (*Request, error) {
	if newStatus != StatusApproved && newStatus != StatusRejected {
		return nil, fmt.Errorf("%w: SetStatus only accepts APPROVED or REJECTED, got %s",
			core.ErrInvalidTransition, newStatus)
	}

	var updated Request
	err := s.store.WithTx(ctx, func(tx Tx) error {
		req, err := tx.GetRequest(ctx, requestID)
		if err != nil {
			return err
		}
		if req == nil {
			return &core.NotFoundError{Resource: "leave request", ID: requestID}
		}
		if req.Status != StatusPending {
			return fmt.Errorf("%w: request is %s, only PENDING can be decided",
				core.ErrInvalidTransition, req.Status)
		}

		if newStatus == StatusApproved {
			if err := debit(ctx, tx, req); err != nil {
				return err
			}
		}

		req.Status = newStatus
		req.AdminNotes = adminNotes
		req.DecidedBy = actor.ID
		req.UpdatedAt = s.now().UTC()
		if err := tx.UpdateRequest(ctx, *req); err != nil {
			return err
		}
		updated = *req
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.emitDecision(&updated, actor)
	return &updated, nil
}

// Cancel transitions a request to CANCELLED. The owning employee may cancel
// while PENDING; an admin may also cancel while APPROVED, in which case the
// balance debit is rolled back in the same transaction.
func (s *Service) Cancel(ctx context.Context, requestID string, actor core.Actor) (*Request, error) {
	var updated Request
	err := s.store.WithTx(ctx, func(tx Tx) error {
		req, err := tx.GetRequest(ctx, requestID)
		if err != nil {
			return err
		}
		if req == nil {
			return &core.NotFoundError{Resource: "leave request", ID: requestID}
		}

		if !actor.Admin && req.EmployeeID != actor.ID {
			return fmt.Errorf("%w: only the owner or an admin may cancel", core.ErrUnauthorized)
		}

		switch req.Status {
		case StatusPending:
			// always cancellable
		case StatusApproved:
			if !actor.Admin {
				return fmt.Errorf("%w: approved requests require administrative cancellation",
					core.ErrUnauthorized)
			}
			if err := credit(ctx, tx, req); err != nil {
				return err
			}
		default:
			return fmt.Errorf("%w: cannot cancel a %s request", core.ErrInvalidTransition, req.Status)
		}

		req.Status = StatusCancelled
		req.DecidedBy = actor.ID
		req.UpdatedAt = s.now().UTC()
		if err := tx.UpdateRequest(ctx, *req); err != nil {
			return err
		}
		updated = *req
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.dispatch.Audit(dispatch.AuditEntry{
		ActorID:      actor.ID,
		Action:       "leave.request.cancelled",
		ResourceType: "leave_request",
		ResourceID:   updated.ID,
	})
	s.dispatch.Notify(dispatch.Notification{
		UserID:    updated.EmployeeID,
		EventType: "leave.cancelled",
		Payload:   map[string]string{"requestId": updated.ID},
	})
	return &updated, nil
}

// Delete hard-deletes a request. Permitted only while PENDING, by the owner
// or an admin. No ledger effect: a pending request never touched the balance.
func (s *Service) Delete(ctx context.Context, requestID string, actor core.Actor) error {
	err := s.store.WithTx(ctx, func(tx Tx) error {
		req, err := tx.GetRequest(ctx, requestID)
		if err != nil {
			return err
		}
		if req == nil {
			return &core.NotFoundError{Resource: "leave request", ID: requestID}
		}
		if !actor.Admin && req.EmployeeID != actor.ID {
			return fmt.Errorf("%w: only the owner or an admin may delete", core.ErrUnauthorized)
		}
		if req.Status != StatusPending {
			return fmt.Errorf("%w: only PENDING requests can be deleted, request is %s",
				core.ErrInvalidTransition, req.Status)
		}
		return tx.DeleteRequest(ctx, requestID)
	})
	if err != nil {
		return err
	}

	s.dispatch.Audit(dispatch.AuditEntry{
		ActorID:      actor.ID,
		Action:       "leave.request.deleted",
		ResourceType: "leave_request",
		ResourceID:   requestID,
	})
	return nil
}

// Get returns one request.
func (s *Service) Get(ctx context.Context, requestID string) (*Request, error) {
	req, err := s.store.GetRequest(ctx, requestID)
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, &core.NotFoundError{Resource: "leave request", ID: requestID}
	}
	return req, nil
}

// Requests lists an employee's requests, newest first.
func (s *Service) Requests(ctx context.Context, employeeID string) ([]Request, error) {
	return s.store.ListRequests(ctx, employeeID)
}

// Balances lists an employee's balances for a year.
func (s *Service) Balances(ctx context.Context, employeeID string, year int) ([]Balance, error) {
	return s.store.ListBalances(ctx, employeeID, year)
}

// Provision creates or adjusts a balance row (administrator path). The
// used <= allocated invariant is enforced against the row's current usage.
func (s *Service) Provision(ctx context.Context, b Balance, actor core.Actor) error {
	if !actor.Admin {
		return fmt.Errorf("%w: balance provisioning is administrative", core.ErrUnauthorized)
	}
	if b.Allocated.IsNegative() {
		return &core.ValidationError{Field: "allocated", Reason: "must not be negative"}
	}
	err := s.store.WithTx(ctx, func(tx Tx) error {
		existing, err := tx.GetBalance(ctx, b.EmployeeID, b.Type, b.Year)
		if err != nil {
			return err
		}
		if existing != nil {
			b.Used = existing.Used
		}
		if b.Used.GreaterThan(b.Allocated) {
			return fmt.Errorf("%w: %s days already used exceed new allocation %s",
				core.ErrValidation, b.Used, b.Allocated)
		}
		return tx.UpsertBalance(ctx, b)
	})
	if err != nil {
		return err
	}

	s.dispatch.Audit(dispatch.AuditEntry{
		ActorID:      actor.ID,
		Action:       "leave.balance.provisioned",
		ResourceType: "leave_balance",
		ResourceID:   fmt.Sprintf("%s/%s/%d", b.EmployeeID, b.Type, b.Year),
		Metadata:     map[string]string{"allocated": b.Allocated.String()},
	})
	return nil
}

// =============================================================================
// BALANCE MUTATIONS - Always against re-read state, inside the caller's tx
// =============================================================================

func debit(ctx context.Context, tx Tx, req *Request) error {
	year := req.StartDate.Year()
	bal, err := tx.GetBalance(ctx, req.EmployeeID, req.Type, year)
	if err != nil {
		return err
	}
	if bal == nil {
		return &core.NotFoundError{Resource: "leave balance",
			ID: fmt.Sprintf("%s/%s/%d", req.EmployeeID, req.Type, year)}
	}

	total := decimal.NewFromInt(int64(req.TotalDays))
	if bal.Available().LessThan(total) {
		return &InsufficientBalanceError{
			EmployeeID: req.EmployeeID,
			Type:       req.Type,
			Year:       year,
			Available:  bal.Available(),
			Requested:  total,
		}
	}
	return tx.SetBalanceUsed(ctx, req.EmployeeID, req.Type, year, bal.Used.Add(total))
}

func credit(ctx context.Context, tx Tx, req *Request) error {
	year := req.StartDate.Year()
	bal, err := tx.GetBalance(ctx, req.EmployeeID, req.Type, year)
	if err != nil {
		return err
	}
	if bal == nil {
		return &core.NotFoundError{Resource: "leave balance",
			ID: fmt.Sprintf("%s/%s/%d", req.EmployeeID, req.Type, year)}
	}

	used := bal.Used.Sub(decimal.NewFromInt(int64(req.TotalDays)))
	if used.IsNegative() {
		used = decimal.Zero
	}
	return tx.SetBalanceUsed(ctx, req.EmployeeID, req.Type, year, used)
}

func (s *Service) emitDecision(req *Request, actor core.Actor) {
	action := "leave.request.rejected"
	event := "leave.rejected"
	if req.Status == StatusApproved {
		action = "leave.request.approved"
		event = "leave.approved"
	}
	s.dispatch.Audit(dispatch.AuditEntry{
		ActorID:      actor.ID,
		Action:       action,
		ResourceType: "leave_request",
		ResourceID:   req.ID,
		Metadata:     map[string]string{"days": strconv.Itoa(req.TotalDays)},
	})
	s.dispatch.Notify(dispatch.Notification{
		UserID:    req.EmployeeID,
		EventType: event,
		Payload: map[string]string{
			"requestId": req.ID,
			"start":     core.FormatDate(req.StartDate),
			"end":       core.FormatDate(req.EndDate),
		},
	})
}
