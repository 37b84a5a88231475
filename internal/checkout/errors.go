package checkout

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	// ErrProductNotFound means a referenced product is no longer
	// resolvable for the account. Fatal for the evaluation pass.
	ErrProductNotFound = errors.New("product not found")

	// ErrInsufficientStock means a requested quantity exceeds what is
	// currently available.
	ErrInsufficientStock = errors.New("insufficient stock")

	// ErrDuplicateLine means the same product appears on more than one
	// line of the draft.
	ErrDuplicateLine = errors.New("duplicate product line")
)

// StockError ties one of the sentinel errors above to the offending line so
// the caller can tell the operator which product to fix.
type StockError struct {
	Err       error
	ProductID string
	Available decimal.Decimal
	Requested decimal.Decimal
}

func (e *StockError) Error() string {
	if errors.Is(e.Err, ErrInsufficientStock) {
		return fmt.Sprintf("insufficient stock for product %s: available %s, requested %s",
			e.ProductID, e.Available, e.Requested)
	}
	return fmt.Sprintf("%s: %s", e.Err.Error(), e.ProductID)
}

func (e *StockError) Unwrap() error { return e.Err }
