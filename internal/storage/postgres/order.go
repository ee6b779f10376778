package postgres

import (
	"context"
	"encoding/json"

	"github.com/go-faster/errors"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"

	"github.com/vendalivre/pos-engine/internal/domain/checkout"
	"github.com/vendalivre/pos-engine/internal/domain/code"
)

var _ checkout.Repository = (*OrderRepository)(nil)

// pgUniqueViolation is the PostgreSQL error code for unique_violation.
const pgUniqueViolation = "23505"

// orderLine is the JSONB shape of one persisted line item.
type orderLine struct {
	ProductID       string          `json:"productId"`
	Name            string          `json:"name"`
	UnitPrice       decimal.Decimal `json:"unitPrice"`
	Quantity        int             `json:"quantity"`
	DiscountPercent decimal.Decimal `json:"discountPercent"`
}

// OrderRepository persists finalized transactions. Stock decrement happens in
// the same database transaction as the insert, and the code bloom filter is
// updated on success so the generator's negative lookups stay correct.
type OrderRepository struct {
	pool  *pgxpool.Pool
	codes *CodeRepository
}

// NewOrderRepository returns an OrderRepository that uses the given pool.
// codes may be nil in tests.
func NewOrderRepository(pool *pgxpool.Pool, codes *CodeRepository) *OrderRepository {
	return &OrderRepository{pool: pool, codes: codes}
}

// PersistTransaction inserts the record and decrements stock for every line.
// A unique_violation on the order number surfaces as checkout.ErrDuplicateCode
// so the orchestrator can regenerate and retry.
func (r *OrderRepository) PersistTransaction(ctx context.Context, rec *checkout.Record) error {
	lines := make([]orderLine, len(rec.Lines))
	for i, l := range rec.Lines {
		lines[i] = orderLine{
			ProductID:       l.ProductID,
			Name:            l.Name,
			UnitPrice:       l.UnitPrice,
			Quantity:        l.Quantity,
			DiscountPercent: l.DiscountPercent,
		}
	}
	itemsJSON, err := json.Marshal(lines)
	if err != nil {
		return errors.Wrap(err, "marshal order items")
	}

	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return errors.Wrap(err, "begin")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	_, err = tx.Exec(ctx, `
		INSERT INTO service_orders
			(id, order_number, customer_id, items, subtotal, discount, tax, total,
			 payment_method, tendered, change_due, created_at)
		VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		rec.ID, rec.OrderNumber, rec.CustomerID, itemsJSON,
		rec.Totals.Subtotal, rec.Totals.DiscountAmount, rec.Totals.TaxAmount, rec.Totals.Total,
		string(rec.Payment.Method), rec.Payment.Tendered, rec.Payment.Change, rec.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return errors.Wrapf(checkout.ErrDuplicateCode, "order number %q", rec.OrderNumber)
		}
		return errors.Wrapf(err, "insert order %q", rec.OrderNumber)
	}

	for _, l := range rec.Lines {
		if _, err := tx.Exec(ctx,
			`UPDATE products SET stock = stock - $2 WHERE id = $1`,
			l.ProductID, l.Quantity,
		); err != nil {
			return errors.Wrapf(err, "decrement stock for %q", l.ProductID)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return errors.Wrap(err, "commit")
	}

	if r.codes != nil {
		r.codes.Observe(code.NamespaceOrder, rec.OrderNumber)
	}
	return nil
}
