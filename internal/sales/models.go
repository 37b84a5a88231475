package sales

import (
	"time"

	"github.com/shopspring/decimal"
)

// Account is the tenant. Every other entity is scoped to one account.
type Account struct {
	ID        string
	Name      string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type Customer struct {
	ID        string
	AccountID string
	Name      string
	Contact   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type PaymentMethod struct {
	ID        string
	AccountID string
	Name      string
}

type Product struct {
	ID           string
	AccountID    string
	Name         string
	Barcode      string
	BuyingPrice  decimal.Decimal
	SellingPrice decimal.Decimal
	Stock        decimal.Decimal
	StockAlert   decimal.Decimal
	Unit         string
	ExpireDate   *time.Time
	// A quantity at or above WholesaleThreshold earns WholesaleDiscount
	// per unit. Zero on both means no wholesale pricing.
	WholesaleThreshold decimal.Decimal
	WholesaleDiscount  decimal.Decimal
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

type Sale struct {
	ID              string
	AccountID       string
	ExternalID      string
	CustomerID      *string
	UserID          string
	PaymentMethodID string
	Subtotal        decimal.Decimal
	TotalDiscount   decimal.Decimal
	Paid            decimal.Decimal
	Status          Status
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

type SaleItem struct {
	ID        string
	SaleID    string
	ProductID string
	Quantity  decimal.Decimal
	Price     decimal.Decimal
	Discount  decimal.Decimal
}
