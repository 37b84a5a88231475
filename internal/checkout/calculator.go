// Package checkout derives sale totals from a draft set of line items and
// validates them against current stock. It holds no state between calls:
// the surrounding UI re-runs Evaluate on every change event.
package checkout

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
)

// ProductSnapshot is a read-only view of one product at evaluation time,
// fetched through a StockLookup. The calculator never writes it back.
type ProductSnapshot struct {
	ProductID          string          `json:"product_id"`
	UnitPrice          decimal.Decimal `json:"unit_price"`
	AvailableStock     decimal.Decimal `json:"available_stock"`
	WholesaleThreshold decimal.Decimal `json:"wholesale_threshold"`
	WholesaleDiscount  decimal.Decimal `json:"wholesale_discount"`
}

// StockLookup resolves snapshots for a single account. Implementations must
// only return products owned by accountID and must report a missing product
// with an error wrapping ErrProductNotFound.
type StockLookup interface {
	Snapshot(ctx context.Context, accountID, productID string) (ProductSnapshot, error)
}

// LineItem is one row of a sale draft. Rows exist only within an editing
// session; nothing is persisted until the sale is confirmed.
type LineItem struct {
	ProductID string          `json:"product_id"`
	Quantity  decimal.Decimal `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	// Discount is per unit. It is recomputed from the product's wholesale
	// settings unless the calculator preserves manual edits.
	Discount       decimal.Decimal `json:"discount"`
	DiscountEdited bool            `json:"discount_edited,omitempty"`
}

// Draft is the full editing state handed over on each change event.
type Draft struct {
	Items           []LineItem      `json:"items"`
	AmountDue       decimal.Decimal `json:"amount_due"`
	AmountDueEdited bool            `json:"amount_due_edited,omitempty"`
}

// Totals are recomputed from scratch on every evaluation.
type Totals struct {
	Subtotal      decimal.Decimal `json:"subtotal"`
	TotalDiscount decimal.Decimal `json:"total_discount"`
	AmountDue     decimal.Decimal `json:"amount_due"`
}

type Calculator struct {
	Lookup StockLookup

	// The legacy panel recomputes the per-line discount and the amount due
	// on every change, silently clobbering manual operator edits. These
	// flags keep such edits instead. Both default to the legacy behavior.
	PreserveDiscountEdits  bool
	PreserveAmountDueEdits bool
}

// Evaluate validates the draft and derives totals. It is all-or-nothing: on
// any error no totals are returned. Lines with an empty product or a
// non-positive quantity are incomplete rows, skipped rather than rejected.
// Checks run in input order and the first violation wins.
func (c *Calculator) Evaluate(ctx context.Context, accountID string, d Draft) (Totals, error) {
	t, _, err := c.EvaluateLines(ctx, accountID, d)
	return t, err
}

// EvaluateLines is Evaluate plus the complete rows it actually summed,
// each carrying the discount it earned. Confirmation must persist and
// publish these lines, not the raw request lines, so stored items always
// add up to the stored totals.
func (c *Calculator) EvaluateLines(ctx context.Context, accountID string, d Draft) (Totals, []LineItem, error) {
	items := completeRows(d.Items)

	seen := make(map[string]struct{}, len(items))
	for _, it := range items {
		if _, dup := seen[it.ProductID]; dup {
			return Totals{}, nil, &StockError{Err: ErrDuplicateLine, ProductID: it.ProductID}
		}
		seen[it.ProductID] = struct{}{}
	}

	subtotal := decimal.Zero
	totalDiscount := decimal.Zero
	lines := make([]LineItem, 0, len(items))
	for _, it := range items {
		snap, err := c.Lookup.Snapshot(ctx, accountID, it.ProductID)
		if err != nil {
			if errors.Is(err, ErrProductNotFound) {
				return Totals{}, nil, &StockError{Err: ErrProductNotFound, ProductID: it.ProductID}
			}
			return Totals{}, nil, err
		}

		// Wholesale discount kicks in at the threshold quantity. Runs
		// before the stock check so a rejected draft still shows the
		// discount the operator would get.
		disc := it.Discount
		if !(c.PreserveDiscountEdits && it.DiscountEdited) {
			disc = decimal.Zero
			if it.Quantity.GreaterThanOrEqual(snap.WholesaleThreshold) {
				disc = snap.WholesaleDiscount
			}
		}

		if it.Quantity.GreaterThan(snap.AvailableStock) {
			return Totals{}, nil, &StockError{
				Err:       ErrInsufficientStock,
				ProductID: it.ProductID,
				Available: snap.AvailableStock,
				Requested: it.Quantity,
			}
		}

		it.Discount = disc
		lines = append(lines, it)
		subtotal = subtotal.Add(it.Quantity.Mul(it.UnitPrice))
		totalDiscount = totalDiscount.Add(it.Quantity.Mul(disc))
	}

	due := subtotal
	if c.PreserveAmountDueEdits && d.AmountDueEdited {
		due = d.AmountDue
	}
	return Totals{Subtotal: subtotal, TotalDiscount: totalDiscount, AmountDue: due}, lines, nil
}

// completeRows drops incomplete rows: no product selected yet, or no
// quantity entered. The editing UI always has such rows in flight.
func completeRows(items []LineItem) []LineItem {
	out := make([]LineItem, 0, len(items))
	for _, it := range items {
		if it.ProductID == "" || !it.Quantity.IsPositive() {
			continue
		}
		out = append(out, it)
	}
	return out
}
