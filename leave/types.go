/*
Package leave owns leave balances and the request state machine.

PURPOSE:
  Maintains the per-(employee, type, year) ledger of allocated vs. used days
  and drives requests through PENDING -> APPROVED / REJECTED / CANCELLED.

INVARIANTS:
  1. used <= allocated after every committed mutation. Enforced inside the
     same store transaction as the mutation, against re-read state - never
     against a value checked earlier in the call.
  2. No two non-terminal (PENDING/APPROVED) requests for one employee may
     overlap in date range.
  3. Balance is debited only by the approval transition, and credited back
     only by administrative cancellation of an approved request.

STATE MACHINE:
  PENDING  -> APPROVED | REJECTED   (admin, via SetStatus)
  PENDING  -> CANCELLED             (owner or admin, via Cancel)
  APPROVED -> CANCELLED             (admin only, via Cancel; balance rolls back)
  APPROVED, REJECTED, CANCELLED are otherwise terminal.
  Hard delete is allowed only while PENDING (balance untouched by then).

DAY COUNTING:
  totalDays is the inclusive calendar-day count of [startDate, endDate],
  computed once at creation. It is deliberately not adjusted by the
  calendar resolver; working-day-aware durations are the extension point.

SEE ALSO:
  - service.go: the operations
  - store/sqlite/leave.go: persistence with transactional balance updates
*/
package leave

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// LEAVE TYPES AND STATUSES
// =============================================================================

// Type identifies a leave category. The set is organization policy; these
// constants cover the common ones but the ledger treats Type as opaque.
type Type string

const (
	TypeAnnual    Type = "ANNUAL"
	TypeSick      Type = "SICK"
	TypeCasual    Type = "CASUAL"
	TypeMaternity Type = "MATERNITY"
	TypePaternity Type = "PATERNITY"
	TypeUnpaid    Type = "UNPAID"
)

type Status string

const (
	StatusPending   Status = "PENDING"
	StatusApproved  Status = "APPROVED"
	StatusRejected  Status = "REJECTED"
	StatusCancelled Status = "CANCELLED"
)

// Terminal reports whether no SetStatus transition can leave s.
func (s Status) Terminal() bool {
	return s == StatusApproved || s == StatusRejected || s == StatusCancelled
}

// =============================================================================
// ENTITIES
// =============================================================================

// Balance is the per-(employee, type, year) ledger row. Allocated and Used
// are decimal day counts so half-day grants stay exact.
type Balance struct {
	EmployeeID string          `json:"employeeId"`
	Type       Type            `json:"type"`
	Year       int             `json:"year"`
	Allocated  decimal.Decimal `json:"allocated"`
	Used       decimal.Decimal `json:"used"`
}

// Available returns allocated - used.
func (b Balance) Available() decimal.Decimal {
	return b.Allocated.Sub(b.Used)
}

// Request is one dated leave application.
type Request struct {
	ID         string    `json:"id"`
	EmployeeID string    `json:"employeeId"`
	Type       Type      `json:"type"`
	StartDate  time.Time `json:"startDate"`
	EndDate    time.Time `json:"endDate"`
	TotalDays  int       `json:"totalDays"`
	Status     Status    `json:"status"`
	Reason     string    `json:"reason,omitempty"`
	AdminNotes string    `json:"adminNotes,omitempty"`
	DecidedBy  string    `json:"decidedBy,omitempty"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// =============================================================================
// STORE - Persistence interface implemented by store/sqlite
// =============================================================================

// Reader is the read side shared by Store and Tx.
type Reader interface {
	GetRequest(ctx context.Context, id string) (*Request, error)
	ListRequests(ctx context.Context, employeeID string) ([]Request, error)

	// ListActiveOverlapping returns PENDING/APPROVED requests for the
	// employee whose inclusive date range intersects [start, end].
	ListActiveOverlapping(ctx context.Context, employeeID string, start, end time.Time) ([]Request, error)

	GetBalance(ctx context.Context, employeeID string, typ Type, year int) (*Balance, error)
	ListBalances(ctx context.Context, employeeID string, year int) ([]Balance, error)
}

// Tx is the mutation surface available inside a store transaction. Reads
// through Tx observe the transaction's own writes, which is what makes the
// commit-time re-validation in Service.SetStatus sound.
type Tx interface {
	Reader

	InsertRequest(ctx context.Context, r Request) error
	UpdateRequest(ctx context.Context, r Request) error
	DeleteRequest(ctx context.Context, id string) error

	UpsertBalance(ctx context.Context, b Balance) error
	SetBalanceUsed(ctx context.Context, employeeID string, typ Type, year int, used decimal.Decimal) error
}

// Store is the full persistence interface. Every mutation path goes
// through WithTx so invariant checks and writes commit atomically.
type Store interface {
	Reader
	WithTx(ctx context.Context, fn func(tx Tx) error) error
}
