package leave

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/warp/workforce-core/core"
)

// InsufficientBalanceError details a balance shortage for one
// (employee, type, year) row. Unwraps to core.ErrInsufficientBalance.
type InsufficientBalanceError struct {
	EmployeeID string
	Type       Type
	Year       int
	Available  decimal.Decimal
	Requested  decimal.Decimal
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient %s balance for %d: available %s, requested %s",
		e.Type, e.Year, e.Available, e.Requested)
}

func (e *InsufficientBalanceError) Unwrap() error { return core.ErrInsufficientBalance }
