package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"

	"github.com/dukahub/go-pos-sales/internal/checkout"
	kafkax "github.com/dukahub/go-pos-sales/internal/kafka"
	"github.com/dukahub/go-pos-sales/internal/redisx"
	"github.com/dukahub/go-pos-sales/internal/sales"
)

type SalesHandler struct {
	Repo            *sales.Repo
	Calc            *checkout.Calculator
	ConfirmProducer *kafkax.Producer // sale.confirmed
	VoidProducer    *kafkax.Producer // sale.voided
	Redis           *redis.Client
	Service         string
}

type ConfirmSaleReq struct {
	ExternalID      string              `json:"external_id"`
	UserID          string              `json:"user_id"`
	CustomerID      string              `json:"customer_id,omitempty"`
	PaymentMethodID string              `json:"payment_method_id"`
	Items           []checkout.LineItem `json:"items"`
	AmountDue       decimal.Decimal     `json:"amount_due"`
	AmountDueEdited bool                `json:"amount_due_edited,omitempty"`
}

type ConfirmSaleResp struct {
	SaleID        string          `json:"sale_id"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	TotalDiscount decimal.Decimal `json:"total_discount"`
	Paid          decimal.Decimal `json:"paid"`
	Idempotent    bool            `json:"idempotent"`
}

type displayTotals struct {
	Subtotal      string `json:"subtotal"`
	TotalDiscount string `json:"total_discount"`
	AmountDue     string `json:"amount_due"`
}

type PreviewResp struct {
	Subtotal      decimal.Decimal `json:"subtotal"`
	TotalDiscount decimal.Decimal `json:"total_discount"`
	AmountDue     decimal.Decimal `json:"amount_due"`
	Display       displayTotals   `json:"display"`
}

func (h *SalesHandler) Register(r *chi.Mux) {
	r.Route("/accounts/{accountID}", func(r chi.Router) {
		r.Post("/sales/preview", h.previewSale)
		r.Post("/sales", h.confirmSale)
		r.Get("/sales/{id}", h.getSale)
		r.Post("/sales/{id}/void", h.voidSale)
		r.Get("/products", h.listProducts)
		r.Get("/customers", h.listCustomers)
		r.Get("/payment-methods", h.listPaymentMethods)
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

// writeStockError renders a checkout rejection as a 422 the UI can present
// to the operator. Returns false when err is not a stock error.
func writeStockError(w http.ResponseWriter, err error) bool {
	var se *checkout.StockError
	if !errors.As(err, &se) {
		return false
	}
	body := map[string]any{
		"product_id": se.ProductID,
		"message":    se.Error(),
	}
	switch {
	case errors.Is(se.Err, checkout.ErrInsufficientStock):
		body["error"] = "insufficient_stock"
		body["available"] = se.Available
		body["requested"] = se.Requested
	case errors.Is(se.Err, checkout.ErrProductNotFound):
		body["error"] = "product_not_found"
	case errors.Is(se.Err, checkout.ErrDuplicateLine):
		body["error"] = "duplicate_line"
	default:
		body["error"] = "invalid_sale"
	}
	writeJSON(w, http.StatusUnprocessableEntity, body)
	return true
}

func (h *SalesHandler) previewSale(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "accountID")

	var draft checkout.Draft
	if err := json.NewDecoder(r.Body).Decode(&draft); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	totals, err := h.Calc.Evaluate(ctx, accountID, draft)
	if err != nil {
		if writeStockError(w, err) {
			return
		}
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	writeJSON(w, http.StatusOK, PreviewResp{
		Subtotal:      totals.Subtotal,
		TotalDiscount: totals.TotalDiscount,
		AmountDue:     totals.AmountDue,
		Display: displayTotals{
			Subtotal:      checkout.FormatAmount(totals.Subtotal),
			TotalDiscount: checkout.FormatAmount(totals.TotalDiscount),
			AmountDue:     checkout.FormatAmount(totals.AmountDue),
		},
	})
}

func (h *SalesHandler) confirmSale(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "accountID")

	var req ConfirmSaleReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if req.ExternalID == "" || req.UserID == "" || req.PaymentMethodID == "" || len(req.Items) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing fields"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	// Full recheck against committed stock; confirmation is all-or-nothing.
	// The returned items carry the discount each line earned, and they are
	// what gets persisted and published so stored lines sum to the totals.
	totals, items, err := h.Calc.EvaluateLines(ctx, accountID, checkout.Draft{
		Items:           req.Items,
		AmountDue:       req.AmountDue,
		AmountDueEdited: req.AmountDueEdited,
	})
	if err != nil {
		if writeStockError(w, err) {
			return
		}
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	if len(items) == 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "no complete line items"})
		return
	}

	saleID, existed, err := h.Repo.CreateSaleTx(ctx, accountID, req.ExternalID, req.UserID,
		req.CustomerID, req.PaymentMethodID, items, totals)
	if err != nil {
		if writeStockError(w, err) {
			return
		}
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	idemKey := fmt.Sprintf(redisx.KeyIdemSaleConfirm, accountID, req.ExternalID)
	_ = h.Redis.Set(ctx, idemKey, saleID, redisx.TTLIdempotency).Err()
	statusKey := fmt.Sprintf(redisx.KeySaleStatus, accountID, saleID)
	_ = h.Redis.Set(ctx, statusKey, `{"status":"CONFIRMED"}`, redisx.TTLStatusCache).Err()

	if !existed {
		lines := make([]sales.SaleLine, 0, len(items))
		for _, it := range items {
			lines = append(lines, sales.SaleLine{
				ProductID: it.ProductID,
				Quantity:  it.Quantity,
				Price:     it.UnitPrice,
				Discount:  it.Discount,
			})
		}
		ev := sales.Envelope{
			EventID:       uuid.NewString(),
			EventType:     sales.EventSaleConfirmed,
			EventVersion:  1,
			OccurredAt:    time.Now().UTC(),
			Producer:      h.Service,
			TraceID:       r.Header.Get("X-Request-Id"),
			CorrelationID: saleID,
		}
		ev.Payload = kafkax.MustMarshal(sales.SaleConfirmedPayload{
			SaleID:        saleID,
			ExternalID:    req.ExternalID,
			AccountID:     accountID,
			CustomerID:    req.CustomerID,
			Items:         lines,
			Subtotal:      totals.Subtotal,
			TotalDiscount: totals.TotalDiscount,
			Paid:          totals.AmountDue,
		})
		h.ConfirmProducer.Publish(sales.PartitionKey(saleID), kafkax.MustMarshal(ev),
			kafkago.Header{Key: "x-event-type", Value: []byte(sales.EventSaleConfirmed)},
			kafkago.Header{Key: "x-event-version", Value: []byte("1")},
		)
	}

	writeJSON(w, http.StatusAccepted, ConfirmSaleResp{
		SaleID:        saleID,
		Subtotal:      totals.Subtotal,
		TotalDiscount: totals.TotalDiscount,
		Paid:          totals.AmountDue,
		Idempotent:    existed,
	})
}

func (h *SalesHandler) getSale(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "accountID")
	saleID := chi.URLParam(r, "id")
	if saleID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing id"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	// The cache key carries the account so a hit can never leak a sale
	// across tenants; the DB fallback filters on account_id the same way.
	key := fmt.Sprintf(redisx.KeySaleStatus, accountID, saleID)
	if s, err := h.Redis.Get(ctx, key).Result(); err == nil && s != "" {
		writeJSON(w, http.StatusOK, json.RawMessage(s))
		return
	}

	status, err := h.Repo.GetSaleStatus(ctx, accountID, saleID)
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
		return
	}
	b, _ := json.Marshal(map[string]any{"status": status})
	_ = h.Redis.Set(ctx, key, b, redisx.TTLStatusCache).Err()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(b)
}

func (h *SalesHandler) voidSale(w http.ResponseWriter, r *http.Request) {
	accountID := chi.URLParam(r, "accountID")
	saleID := chi.URLParam(r, "id")

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	status, err := h.Repo.GetSaleStatus(ctx, accountID, saleID)
	if errors.Is(err, pgx.ErrNoRows) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
		return
	}
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	if err := h.Repo.SetSaleStatus(ctx, accountID, saleID, status, sales.StatusVoided); err != nil {
		if errors.Is(err, sales.ErrInvalidTransition) {
			writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
			return
		}
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	statusKey := fmt.Sprintf(redisx.KeySaleStatus, accountID, saleID)
	_ = h.Redis.Set(ctx, statusKey, `{"status":"VOIDED"}`, redisx.TTLStatusCache).Err()

	ev := sales.Envelope{
		EventID:       uuid.NewString(),
		EventType:     sales.EventSaleVoided,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      h.Service,
		TraceID:       r.Header.Get("X-Request-Id"),
		CorrelationID: saleID,
		Payload:       kafkax.MustMarshal(sales.SaleVoidedPayload{SaleID: saleID, AccountID: accountID}),
	}
	h.VoidProducer.Publish(sales.PartitionKey(saleID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(sales.EventSaleVoided)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)

	writeJSON(w, http.StatusAccepted, map[string]string{"sale_id": saleID, "status": string(sales.StatusVoided)})
}

func (h *SalesHandler) listProducts(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, func(ctx context.Context, accountID string) (any, error) {
		return h.Repo.ListProducts(ctx, accountID)
	})
}

func (h *SalesHandler) listCustomers(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, func(ctx context.Context, accountID string) (any, error) {
		return h.Repo.ListCustomers(ctx, accountID)
	})
}

func (h *SalesHandler) listPaymentMethods(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, func(ctx context.Context, accountID string) (any, error) {
		return h.Repo.ListPaymentMethods(ctx, accountID)
	})
}

func (h *SalesHandler) list(w http.ResponseWriter, r *http.Request, fetch func(context.Context, string) (any, error)) {
	accountID := chi.URLParam(r, "accountID")

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	out, err := fetch(ctx, accountID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, out)
}
