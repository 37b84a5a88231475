package sales

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

type StockRepo struct{ DB *pgxpool.Pool }

// Applied reports whether every item of the sale already has an OUT
// movement (idempotency short-circuit for redelivered events).
func (r *StockRepo) Applied(ctx context.Context, saleID string, itemCount int) (bool, error) {
	var n int
	err := r.DB.QueryRow(ctx, `
		SELECT COUNT(*) FROM stock_movements
		WHERE sale_id = $1 AND direction = 'OUT'`, saleID).Scan(&n)
	if err != nil {
		return false, err
	}
	return n == itemCount, nil
}

// ApplyAll deducts stock for a confirmed sale: lock each product row
// (FOR UPDATE), check availability, decrement, record the movement.
// Any shortfall rolls the whole transaction back and returns the details.
func (r *StockRepo) ApplyAll(ctx context.Context, accountID, saleID string, items []ItemQty) (ok bool, details []StockRejectedDetail, err error) {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return false, nil, err
	}
	defer tx.Rollback(ctx)

	var rejects []StockRejectedDetail

	for _, it := range items {
		var stockText string
		err := tx.QueryRow(ctx, `
			SELECT stock::text FROM products
			WHERE id=$1 AND account_id=$2 FOR UPDATE`, it.ProductID, accountID).Scan(&stockText)
		if err != nil {
			return false, nil, err
		}
		stock, err := decimal.NewFromString(stockText)
		if err != nil {
			return false, nil, fmt.Errorf("product %s: bad stock %q: %w", it.ProductID, stockText, err)
		}

		if stock.LessThan(it.Quantity) {
			rejects = append(rejects, StockRejectedDetail{
				ProductID: it.ProductID, Requested: it.Quantity, Available: stock,
			})
			continue
		}

		ct, err := tx.Exec(ctx, `
			UPDATE products SET stock = stock - $3, updated_at = now()
			WHERE id=$1 AND account_id=$2`, it.ProductID, accountID, it.Quantity.String())
		if err != nil {
			return false, nil, err
		}
		if ct.RowsAffected() != 1 {
			rejects = append(rejects, StockRejectedDetail{
				ProductID: it.ProductID, Requested: it.Quantity, Available: stock,
			})
			continue
		}

		if _, err := tx.Exec(ctx, `
			INSERT INTO stock_movements(sale_id, product_id, quantity, direction)
			VALUES ($1,$2,$3,'OUT')
			ON CONFLICT (sale_id, product_id, direction) DO NOTHING
		`, saleID, it.ProductID, it.Quantity.String()); err != nil {
			return false, nil, err
		}
	}

	if len(rejects) > 0 {
		return false, rejects, nil // rollback via defer
	}
	if err := tx.Commit(ctx); err != nil {
		return false, nil, err
	}
	return true, nil, nil
}

// RestockAll reverses a sale's OUT movements when it is voided.
func (r *StockRepo) RestockAll(ctx context.Context, accountID, saleID string) error {
	tx, err := r.DB.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	rows, err := tx.Query(ctx, `
		SELECT sm.product_id, sm.quantity::text
		FROM stock_movements sm
		WHERE sm.sale_id=$1 AND sm.direction='OUT'
		  AND NOT EXISTS (
			SELECT 1 FROM stock_movements r
			WHERE r.sale_id=sm.sale_id AND r.product_id=sm.product_id AND r.direction='IN')`,
		saleID)
	if err != nil {
		return err
	}
	defer rows.Close()

	type rec struct {
		pid string
		qty decimal.Decimal
	}
	var recs []rec
	for rows.Next() {
		var x rec
		var qtyText string
		if err := rows.Scan(&x.pid, &qtyText); err != nil {
			return err
		}
		if x.qty, err = decimal.NewFromString(qtyText); err != nil {
			return fmt.Errorf("movement %s: bad quantity %q: %w", x.pid, qtyText, err)
		}
		recs = append(recs, x)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for _, x := range recs {
		if _, err := tx.Exec(ctx, `
			UPDATE products SET stock = stock + $3, updated_at = now()
			WHERE id=$1 AND account_id=$2`, x.pid, accountID, x.qty.String()); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, `
			INSERT INTO stock_movements(sale_id, product_id, quantity, direction)
			VALUES ($1,$2,$3,'IN')
			ON CONFLICT (sale_id, product_id, direction) DO NOTHING
		`, saleID, x.pid, x.qty.String()); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}
