package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS accounts (
		id          TEXT PRIMARY KEY,
		name        TEXT NOT NULL,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS customers (
		id          TEXT PRIMARY KEY,
		account_id  TEXT NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
		name        TEXT NOT NULL,
		contact     TEXT,
		created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS payment_methods (
		id          TEXT PRIMARY KEY,
		account_id  TEXT NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
		name        TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS products (
		id            TEXT PRIMARY KEY,
		account_id    TEXT NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
		name          TEXT NOT NULL,
		barcode       TEXT,
		buying_price  NUMERIC NOT NULL DEFAULT 0 CHECK (buying_price >= 0),
		selling_price NUMERIC NOT NULL DEFAULT 0 CHECK (selling_price >= 0),
		stock         NUMERIC NOT NULL DEFAULT 0 CHECK (stock >= 0),
		stock_alert   NUMERIC NOT NULL DEFAULT 0,
		unit          TEXT,
		expire_date   DATE,
		whole_sale    NUMERIC NOT NULL DEFAULT 0,
		discount      NUMERIC NOT NULL DEFAULT 0,
		created_at    TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at    TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS sales (
		id                TEXT PRIMARY KEY,
		account_id        TEXT NOT NULL REFERENCES accounts(id) ON DELETE CASCADE,
		external_id       TEXT NOT NULL,
		customer_id       TEXT REFERENCES customers(id),
		user_id           TEXT NOT NULL,
		payment_method_id TEXT NOT NULL REFERENCES payment_methods(id),
		subtotal          NUMERIC NOT NULL DEFAULT 0,
		total_discount    NUMERIC NOT NULL DEFAULT 0,
		paid              NUMERIC NOT NULL DEFAULT 0,
		status            TEXT NOT NULL,
		created_at        TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at        TIMESTAMPTZ NOT NULL DEFAULT now(),
		UNIQUE (account_id, external_id)
	)`,
	`CREATE TABLE IF NOT EXISTS sale_items (
		id         TEXT PRIMARY KEY,
		sale_id    TEXT NOT NULL REFERENCES sales(id) ON DELETE CASCADE,
		product_id TEXT NOT NULL REFERENCES products(id),
		quantity   NUMERIC NOT NULL CHECK (quantity > 0),
		price      NUMERIC NOT NULL CHECK (price >= 0),
		discount   NUMERIC NOT NULL DEFAULT 0 CHECK (discount >= 0)
	)`,
	`CREATE TABLE IF NOT EXISTS stock_movements (
		sale_id    TEXT NOT NULL REFERENCES sales(id) ON DELETE CASCADE,
		product_id TEXT NOT NULL REFERENCES products(id),
		quantity   NUMERIC NOT NULL CHECK (quantity > 0),
		direction  TEXT NOT NULL CHECK (direction IN ('OUT','IN')),
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		UNIQUE (sale_id, product_id, direction)
	)`,
}

// Migrate applies the schema. Statements are idempotent; safe to run on
// every boot in dev.
func Migrate(ctx context.Context, db *pgxpool.Pool) error {
	for _, stmt := range schema {
		if _, err := db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("migrate: %w", err)
		}
	}
	return nil
}
