package sales

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

const (
	EventSaleConfirmed     = "SaleConfirmed"
	EventSaleStockApplied  = "SaleStockApplied"
	EventSaleStockRejected = "SaleStockRejected"
	EventSaleVoided        = "SaleVoided"
)

type Envelope struct {
	EventID       string          `json:"event_id"` // uuid
	EventType     string          `json:"event_type"`
	EventVersion  int             `json:"event_version"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Producer      string          `json:"producer"`
	TraceID       string          `json:"trace_id,omitempty"`
	CorrelationID string          `json:"correlation_id,omitempty"` // sale_id
	Payload       json.RawMessage `json:"payload"`
}

// ---- payloads ----

type SaleLine struct {
	ProductID string          `json:"product_id"`
	Quantity  decimal.Decimal `json:"quantity"`
	Price     decimal.Decimal `json:"price"`
	Discount  decimal.Decimal `json:"discount"`
}

type ItemQty struct {
	ProductID string          `json:"product_id"`
	Quantity  decimal.Decimal `json:"quantity"`
}

type SaleConfirmedPayload struct {
	SaleID        string          `json:"sale_id"`
	ExternalID    string          `json:"external_id"`
	AccountID     string          `json:"account_id"`
	CustomerID    string          `json:"customer_id,omitempty"`
	Items         []SaleLine      `json:"items"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	TotalDiscount decimal.Decimal `json:"total_discount"`
	Paid          decimal.Decimal `json:"paid"`
}

type SaleStockAppliedPayload struct {
	SaleID    string    `json:"sale_id"`
	AccountID string    `json:"account_id"`
	Items     []ItemQty `json:"items"`
}

type StockRejectedDetail struct {
	ProductID string          `json:"product_id"`
	Requested decimal.Decimal `json:"requested"`
	Available decimal.Decimal `json:"available"`
}

type SaleStockRejectedPayload struct {
	SaleID    string                `json:"sale_id"`
	AccountID string                `json:"account_id"`
	Reason    string                `json:"reason"` // e.g., OUT_OF_STOCK
	Details   []StockRejectedDetail `json:"details,omitempty"`
}

type SaleVoidedPayload struct {
	SaleID    string `json:"sale_id"`
	AccountID string `json:"account_id"`
}
