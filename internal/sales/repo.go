package sales

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/dukahub/go-pos-sales/internal/checkout"
)

type Repo struct{ DB *pgxpool.Pool }

var ErrInvalidTransition = errors.New("invalid sale status transition")

// Snapshot loads the stock view for one product, scoped to the account.
// Satisfies checkout.StockLookup.
func (r *Repo) Snapshot(ctx context.Context, accountID, productID string) (checkout.ProductSnapshot, error) {
	var price, stock, threshold, discount string
	err := r.DB.QueryRow(ctx, `
		SELECT selling_price::text, stock::text, whole_sale::text, discount::text
		FROM products WHERE id=$1 AND account_id=$2`, productID, accountID).
		Scan(&price, &stock, &threshold, &discount)
	if errors.Is(err, pgx.ErrNoRows) {
		return checkout.ProductSnapshot{}, fmt.Errorf("%w: %s", checkout.ErrProductNotFound, productID)
	}
	if err != nil {
		return checkout.ProductSnapshot{}, fmt.Errorf("snapshot %s: %w", productID, err)
	}

	snap := checkout.ProductSnapshot{ProductID: productID}
	for _, f := range []struct {
		dst *decimal.Decimal
		src string
	}{
		{&snap.UnitPrice, price},
		{&snap.AvailableStock, stock},
		{&snap.WholesaleThreshold, threshold},
		{&snap.WholesaleDiscount, discount},
	} {
		d, err := decimal.NewFromString(f.src)
		if err != nil {
			return checkout.ProductSnapshot{}, fmt.Errorf("snapshot %s: bad numeric %q: %w", productID, f.src, err)
		}
		*f.dst = d
	}
	return snap, nil
}

func (r *Repo) ListProducts(ctx context.Context, accountID string) ([]Product, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT id, name, COALESCE(barcode, ''), buying_price::text, selling_price::text,
		       stock::text, stock_alert::text, COALESCE(unit, ''),
		       whole_sale::text, discount::text, created_at, updated_at
		FROM products WHERE account_id=$1 ORDER BY name`, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Product
	for rows.Next() {
		var p Product
		var buying, selling, stock, alert, threshold, disc string
		if err := rows.Scan(&p.ID, &p.Name, &p.Barcode, &buying, &selling,
			&stock, &alert, &p.Unit, &threshold, &disc, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, err
		}
		p.AccountID = accountID
		for _, f := range []struct {
			dst *decimal.Decimal
			src string
		}{
			{&p.BuyingPrice, buying}, {&p.SellingPrice, selling},
			{&p.Stock, stock}, {&p.StockAlert, alert},
			{&p.WholesaleThreshold, threshold}, {&p.WholesaleDiscount, disc},
		} {
			d, err := decimal.NewFromString(f.src)
			if err != nil {
				return nil, fmt.Errorf("product %s: bad numeric %q: %w", p.ID, f.src, err)
			}
			*f.dst = d
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *Repo) ListCustomers(ctx context.Context, accountID string) ([]Customer, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT id, name, COALESCE(contact, ''), created_at, updated_at
		FROM customers WHERE account_id=$1 ORDER BY name`, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Customer
	for rows.Next() {
		var c Customer
		if err := rows.Scan(&c.ID, &c.Name, &c.Contact, &c.CreatedAt, &c.UpdatedAt); err != nil {
			return nil, err
		}
		c.AccountID = accountID
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *Repo) ListPaymentMethods(ctx context.Context, accountID string) ([]PaymentMethod, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT id, name FROM payment_methods WHERE account_id=$1 ORDER BY name`, accountID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []PaymentMethod
	for rows.Next() {
		var m PaymentMethod
		if err := rows.Scan(&m.ID, &m.Name); err != nil {
			return nil, err
		}
		m.AccountID = accountID
		out = append(out, m)
	}
	return out, rows.Err()
}

// CreateSaleTx persists a confirmed sale with its items. Idempotent via
// external_id: a repeat confirmation returns the existing sale untouched.
// Totals must come from a successful checkout evaluation; prices are the
// operator-approved line prices, not re-read here (the form allows price
// edits per line).
func (r *Repo) CreateSaleTx(ctx context.Context, accountID, externalID, userID, customerID, paymentMethodID string,
	items []checkout.LineItem, totals checkout.Totals) (saleID string, existed bool, err error) {

	row := r.DB.QueryRow(ctx, `SELECT id FROM sales WHERE account_id=$1 AND external_id=$2`, accountID, externalID)
	if err = row.Scan(&saleID); err == nil {
		return saleID, true, nil
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return "", false, err
	}

	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return "", false, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	// Products must still resolve inside the account at confirmation time.
	for _, it := range items {
		var one int
		err := tx.QueryRow(ctx, `SELECT 1 FROM products WHERE id=$1 AND account_id=$2`, it.ProductID, accountID).Scan(&one)
		if errors.Is(err, pgx.ErrNoRows) {
			return "", false, fmt.Errorf("%w: %s", checkout.ErrProductNotFound, it.ProductID)
		}
		if err != nil {
			return "", false, err
		}
	}

	saleID = uuid.NewString()
	var custID any
	if customerID != "" {
		custID = customerID
	}
	_, err = tx.Exec(ctx, `
		INSERT INTO sales(id, account_id, external_id, customer_id, user_id, payment_method_id,
		                  subtotal, total_discount, paid, status)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		saleID, accountID, externalID, custID, userID, paymentMethodID,
		totals.Subtotal.String(), totals.TotalDiscount.String(), totals.AmountDue.String(), StatusConfirmed)
	if err != nil {
		return "", false, err
	}

	for _, it := range items {
		_, err = tx.Exec(ctx, `
			INSERT INTO sale_items(id, sale_id, product_id, quantity, price, discount)
			VALUES ($1,$2,$3,$4,$5,$6)`,
			uuid.NewString(), saleID, it.ProductID,
			it.Quantity.String(), it.UnitPrice.String(), it.Discount.String())
		if err != nil {
			return "", false, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return "", false, err
	}
	return saleID, false, nil
}

func (r *Repo) GetSaleStatus(ctx context.Context, accountID, saleID string) (Status, error) {
	var s string
	err := r.DB.QueryRow(ctx, `SELECT status FROM sales WHERE id=$1 AND account_id=$2`, saleID, accountID).Scan(&s)
	if err != nil {
		return "", err
	}
	return Status(s), nil
}

// SetSaleStatus applies a guarded transition. The WHERE clause re-checks the
// source status so concurrent workers cannot double-apply.
func (r *Repo) SetSaleStatus(ctx context.Context, accountID, saleID string, from, to Status) error {
	if !CanTransition(from, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	ct, err := r.DB.Exec(ctx, `
		UPDATE sales SET status=$3, updated_at=now()
		WHERE id=$1 AND account_id=$2 AND status=$4`, saleID, accountID, to, from)
	if err != nil {
		return err
	}
	if ct.RowsAffected() != 1 {
		return fmt.Errorf("%w: sale %s no longer %s", ErrInvalidTransition, saleID, from)
	}
	return nil
}
