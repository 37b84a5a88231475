package httpx

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/dukahub/go-pos-sales/internal/checkout"
)

type fakeLookup struct {
	snapshots map[string]checkout.ProductSnapshot
}

func (f *fakeLookup) Snapshot(_ context.Context, _, productID string) (checkout.ProductSnapshot, error) {
	s, ok := f.snapshots[productID]
	if !ok {
		return checkout.ProductSnapshot{}, fmt.Errorf("%w: %s", checkout.ErrProductNotFound, productID)
	}
	return s, nil
}

func newPreviewRouter(t *testing.T) http.Handler {
	t.Helper()
	lookup := &fakeLookup{snapshots: map[string]checkout.ProductSnapshot{
		"A": {
			ProductID:          "A",
			UnitPrice:          decimal.RequireFromString("1000"),
			AvailableStock:     decimal.RequireFromString("10"),
			WholesaleThreshold: decimal.RequireFromString("5"),
			WholesaleDiscount:  decimal.RequireFromString("100"),
		},
		"B": {
			ProductID:          "B",
			UnitPrice:          decimal.RequireFromString("500"),
			AvailableStock:     decimal.RequireFromString("10"),
			WholesaleThreshold: decimal.RequireFromString("5"),
			WholesaleDiscount:  decimal.RequireFromString("50"),
		},
	}}
	h := &SalesHandler{Calc: &checkout.Calculator{Lookup: lookup}}
	r := NewRouter()
	r.Post("/accounts/{accountID}/sales/preview", h.previewSale)
	return r
}

func TestPreviewSale(t *testing.T) {
	srv := httptest.NewServer(newPreviewRouter(t))
	defer srv.Close()

	body := `{"items":[
		{"product_id":"A","quantity":3,"unit_price":1000},
		{"product_id":"B","quantity":6,"unit_price":500}
	]}`
	resp, err := http.Post(srv.URL+"/accounts/acct-1/sales/preview", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}

	var got PreviewResp
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatal(err)
	}
	if !got.Subtotal.Equal(decimal.RequireFromString("6000")) {
		t.Errorf("subtotal = %s, want 6000", got.Subtotal)
	}
	if !got.TotalDiscount.Equal(decimal.RequireFromString("300")) {
		t.Errorf("total_discount = %s, want 300", got.TotalDiscount)
	}
	if !got.AmountDue.Equal(decimal.RequireFromString("6000")) {
		t.Errorf("amount_due = %s, want 6000", got.AmountDue)
	}
	if got.Display.Subtotal != "6,000" {
		t.Errorf("display subtotal = %q, want 6,000", got.Display.Subtotal)
	}
}

func TestPreviewSaleInsufficientStock(t *testing.T) {
	srv := httptest.NewServer(newPreviewRouter(t))
	defer srv.Close()

	body := `{"items":[{"product_id":"A","quantity":20,"unit_price":1000}]}`
	resp, err := http.Post(srv.URL+"/accounts/acct-1/sales/preview", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", resp.StatusCode)
	}

	var got struct {
		Error     string          `json:"error"`
		ProductID string          `json:"product_id"`
		Available decimal.Decimal `json:"available"`
		Requested decimal.Decimal `json:"requested"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatal(err)
	}
	if got.Error != "insufficient_stock" || got.ProductID != "A" {
		t.Errorf("body = %+v", got)
	}
	if !got.Available.Equal(decimal.RequireFromString("10")) || !got.Requested.Equal(decimal.RequireFromString("20")) {
		t.Errorf("available/requested = %s/%s, want 10/20", got.Available, got.Requested)
	}
}

func TestPreviewSaleUnknownProduct(t *testing.T) {
	srv := httptest.NewServer(newPreviewRouter(t))
	defer srv.Close()

	body := `{"items":[{"product_id":"ZZ","quantity":1,"unit_price":10}]}`
	resp, err := http.Post(srv.URL+"/accounts/acct-1/sales/preview", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", resp.StatusCode)
	}
	var got struct {
		Error string `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&got); err != nil {
		t.Fatal(err)
	}
	if got.Error != "product_not_found" {
		t.Errorf("error = %q, want product_not_found", got.Error)
	}
}
