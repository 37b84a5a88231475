package checkout

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

// --- mock lookup ---

type mapLookup struct {
	snapshots map[string]ProductSnapshot
	accountID string // when set, Snapshot fails on a mismatched account
	calls     int
}

func (m *mapLookup) Snapshot(_ context.Context, accountID, productID string) (ProductSnapshot, error) {
	m.calls++
	if m.accountID != "" && accountID != m.accountID {
		return ProductSnapshot{}, &StockError{Err: ErrProductNotFound, ProductID: productID}
	}
	s, ok := m.snapshots[productID]
	if !ok {
		return ProductSnapshot{}, &StockError{Err: ErrProductNotFound, ProductID: productID}
	}
	return s, nil
}

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func snap(id, price, stock, threshold, discount string) ProductSnapshot {
	return ProductSnapshot{
		ProductID:          id,
		UnitPrice:          d(price),
		AvailableStock:     d(stock),
		WholesaleThreshold: d(threshold),
		WholesaleDiscount:  d(discount),
	}
}

func item(id, qty, price string) LineItem {
	return LineItem{ProductID: id, Quantity: d(qty), UnitPrice: d(price)}
}

// --- evaluation ---

func TestEvaluate(t *testing.T) {
	lookup := &mapLookup{snapshots: map[string]ProductSnapshot{
		"A": snap("A", "1000", "10", "5", "100"),
		"B": snap("B", "500", "10", "5", "50"),
		"C": snap("C", "200", "5", "0", "0"),
	}}
	calc := &Calculator{Lookup: lookup}

	tests := []struct {
		name          string
		draft         Draft
		wantSubtotal  string
		wantDiscount  string
		wantAmountDue string
		wantErr       error
		wantProduct   string
	}{
		{
			name:          "empty draft yields zero totals",
			draft:         Draft{},
			wantSubtotal:  "0",
			wantDiscount:  "0",
			wantAmountDue: "0",
		},
		{
			name: "incomplete rows are skipped not rejected",
			draft: Draft{Items: []LineItem{
				{ProductID: "", Quantity: d("3"), UnitPrice: d("1000")},
				{ProductID: "A", Quantity: decimal.Zero, UnitPrice: d("1000")},
			}},
			wantSubtotal:  "0",
			wantDiscount:  "0",
			wantAmountDue: "0",
		},
		{
			name: "wholesale discount below and at threshold",
			draft: Draft{Items: []LineItem{
				item("A", "3", "1000"), // 3 < 5, no discount
				item("B", "6", "500"),  // 6 >= 5, 50/unit
			}},
			wantSubtotal:  "6000",
			wantDiscount:  "300",
			wantAmountDue: "6000",
		},
		{
			name:        "insufficient stock halts evaluation",
			draft:       Draft{Items: []LineItem{item("C", "20", "200")}},
			wantErr:     ErrInsufficientStock,
			wantProduct: "C",
		},
		{
			name: "first violation in input order wins",
			draft: Draft{Items: []LineItem{
				item("B", "11", "500"),
				item("A", "99", "1000"),
			}},
			wantErr:     ErrInsufficientStock,
			wantProduct: "B",
		},
		{
			name: "unknown product is fatal",
			draft: Draft{Items: []LineItem{
				item("A", "1", "1000"),
				item("ZZ", "1", "10"),
			}},
			wantErr:     ErrProductNotFound,
			wantProduct: "ZZ",
		},
		{
			name: "duplicate product lines rejected",
			draft: Draft{Items: []LineItem{
				item("A", "1", "1000"),
				item("A", "2", "1000"),
			}},
			wantErr:     ErrDuplicateLine,
			wantProduct: "A",
		},
		{
			name: "amount due resets to subtotal even when edited",
			draft: Draft{
				Items:           []LineItem{item("A", "2", "1000")},
				AmountDue:       d("1500"),
				AmountDueEdited: true,
			},
			wantSubtotal:  "2000",
			wantDiscount:  "0",
			wantAmountDue: "2000",
		},
		{
			name: "manual discount is overwritten by recompute",
			draft: Draft{Items: []LineItem{
				{ProductID: "A", Quantity: d("3"), UnitPrice: d("1000"), Discount: d("77"), DiscountEdited: true},
			}},
			wantSubtotal:  "3000",
			wantDiscount:  "0",
			wantAmountDue: "3000",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := calc.Evaluate(context.Background(), "acct-1", tt.draft)

			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("error = %v, want %v", err, tt.wantErr)
				}
				var se *StockError
				if !errors.As(err, &se) {
					t.Fatalf("error %v is not a *StockError", err)
				}
				if se.ProductID != tt.wantProduct {
					t.Errorf("ProductID = %q, want %q", se.ProductID, tt.wantProduct)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !got.Subtotal.Equal(d(tt.wantSubtotal)) {
				t.Errorf("Subtotal = %s, want %s", got.Subtotal, tt.wantSubtotal)
			}
			if !got.TotalDiscount.Equal(d(tt.wantDiscount)) {
				t.Errorf("TotalDiscount = %s, want %s", got.TotalDiscount, tt.wantDiscount)
			}
			if !got.AmountDue.Equal(d(tt.wantAmountDue)) {
				t.Errorf("AmountDue = %s, want %s", got.AmountDue, tt.wantAmountDue)
			}
		})
	}
}

func TestEvaluateThresholdBoundary(t *testing.T) {
	lookup := &mapLookup{snapshots: map[string]ProductSnapshot{
		"A": snap("A", "1000", "100", "5", "100"),
	}}
	calc := &Calculator{Lookup: lookup}

	// Exactly at the threshold: discounted.
	got, err := calc.Evaluate(context.Background(), "acct-1", Draft{Items: []LineItem{item("A", "5", "1000")}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.TotalDiscount.Equal(d("500")) {
		t.Errorf("at threshold: TotalDiscount = %s, want 500", got.TotalDiscount)
	}

	// One below: no discount.
	got, err = calc.Evaluate(context.Background(), "acct-1", Draft{Items: []LineItem{item("A", "4", "1000")}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.TotalDiscount.IsZero() {
		t.Errorf("below threshold: TotalDiscount = %s, want 0", got.TotalDiscount)
	}
}

func TestEvaluateInsufficientStockDetails(t *testing.T) {
	lookup := &mapLookup{snapshots: map[string]ProductSnapshot{
		"C": snap("C", "200", "5", "0", "0"),
	}}
	calc := &Calculator{Lookup: lookup}

	_, err := calc.Evaluate(context.Background(), "acct-1", Draft{Items: []LineItem{item("C", "20", "200")}})
	var se *StockError
	if !errors.As(err, &se) {
		t.Fatalf("error = %v, want *StockError", err)
	}
	if se.ProductID != "C" || !se.Available.Equal(d("5")) || !se.Requested.Equal(d("20")) {
		t.Errorf("details = {%s %s %s}, want {C 5 20}", se.ProductID, se.Available, se.Requested)
	}
}

func TestEvaluateIdempotent(t *testing.T) {
	lookup := &mapLookup{snapshots: map[string]ProductSnapshot{
		"A": snap("A", "1000", "10", "5", "100"),
		"B": snap("B", "500", "10", "5", "50"),
	}}
	calc := &Calculator{Lookup: lookup}
	draft := Draft{Items: []LineItem{item("A", "3", "1000"), item("B", "6", "500")}}

	first, err := calc.Evaluate(context.Background(), "acct-1", draft)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := calc.Evaluate(context.Background(), "acct-1", draft)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !first.Subtotal.Equal(second.Subtotal) ||
		!first.TotalDiscount.Equal(second.TotalDiscount) ||
		!first.AmountDue.Equal(second.AmountDue) {
		t.Errorf("totals differ between identical evaluations: %+v vs %+v", first, second)
	}
	if lookup.calls != 4 {
		t.Errorf("lookup calls = %d, want one per item per evaluation (4)", lookup.calls)
	}
}

func TestEvaluateStickyOverrides(t *testing.T) {
	lookup := &mapLookup{snapshots: map[string]ProductSnapshot{
		"A": snap("A", "1000", "10", "5", "100"),
	}}
	calc := &Calculator{Lookup: lookup, PreserveDiscountEdits: true, PreserveAmountDueEdits: true}

	draft := Draft{
		Items: []LineItem{
			{ProductID: "A", Quantity: d("6"), UnitPrice: d("1000"), Discount: d("25"), DiscountEdited: true},
		},
		AmountDue:       d("4000"),
		AmountDueEdited: true,
	}
	got, err := calc.Evaluate(context.Background(), "acct-1", draft)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// 6 >= threshold 5 would normally force 100/unit; the edit survives.
	if !got.TotalDiscount.Equal(d("150")) {
		t.Errorf("TotalDiscount = %s, want 150 (manual 25 x 6)", got.TotalDiscount)
	}
	if !got.AmountDue.Equal(d("4000")) {
		t.Errorf("AmountDue = %s, want edited 4000", got.AmountDue)
	}
	if !got.Subtotal.Equal(d("6000")) {
		t.Errorf("Subtotal = %s, want 6000", got.Subtotal)
	}
}

func TestEvaluateTenantScoping(t *testing.T) {
	lookup := &mapLookup{
		accountID: "acct-1",
		snapshots: map[string]ProductSnapshot{"A": snap("A", "1000", "10", "5", "100")},
	}
	calc := &Calculator{Lookup: lookup}

	_, err := calc.Evaluate(context.Background(), "acct-2", Draft{Items: []LineItem{item("A", "1", "1000")}})
	if !errors.Is(err, ErrProductNotFound) {
		t.Fatalf("cross-account lookup: error = %v, want ErrProductNotFound", err)
	}
}

func TestEvaluateLinesCarriesDerivedDiscounts(t *testing.T) {
	lookup := &mapLookup{snapshots: map[string]ProductSnapshot{
		"A": snap("A", "1000", "10", "5", "100"),
		"B": snap("B", "500", "10", "5", "50"),
	}}
	calc := &Calculator{Lookup: lookup}

	// The client sends zero discounts; line A qualifies for wholesale.
	draft := Draft{Items: []LineItem{
		{ProductID: "", Quantity: d("1"), UnitPrice: d("9")}, // incomplete, dropped
		item("A", "6", "1000"),
		item("B", "2", "500"),
	}}
	totals, lines, err := calc.EvaluateLines(context.Background(), "acct-1", draft)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(lines) != 2 {
		t.Fatalf("lines = %d, want 2 complete rows", len(lines))
	}
	if !lines[0].Discount.Equal(d("100")) {
		t.Errorf("line A discount = %s, want derived 100", lines[0].Discount)
	}
	if !lines[1].Discount.Equal(d("0")) {
		t.Errorf("line B discount = %s, want 0", lines[1].Discount)
	}
	if !totals.TotalDiscount.Equal(d("600")) {
		t.Errorf("TotalDiscount = %s, want 600", totals.TotalDiscount)
	}

	// The returned lines must reproduce the totals exactly.
	sum := decimal.Zero
	for _, ln := range lines {
		sum = sum.Add(ln.Quantity.Mul(ln.Discount))
	}
	if !sum.Equal(totals.TotalDiscount) {
		t.Errorf("sum of line discounts = %s, totals say %s", sum, totals.TotalDiscount)
	}
}

func TestEvaluateLinesKeepsStickyDiscountEdit(t *testing.T) {
	lookup := &mapLookup{snapshots: map[string]ProductSnapshot{
		"A": snap("A", "1000", "10", "5", "100"),
	}}
	calc := &Calculator{Lookup: lookup, PreserveDiscountEdits: true}

	draft := Draft{Items: []LineItem{
		{ProductID: "A", Quantity: d("6"), UnitPrice: d("1000"), Discount: d("25"), DiscountEdited: true},
	}}
	_, lines, err := calc.EvaluateLines(context.Background(), "acct-1", draft)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !lines[0].Discount.Equal(d("25")) {
		t.Errorf("edited discount = %s, want preserved 25", lines[0].Discount)
	}
}
