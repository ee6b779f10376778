package checkout

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/google/uuid"

	"github.com/vendalivre/pos-engine/internal/domain/cart"
	"github.com/vendalivre/pos-engine/internal/domain/code"
	"github.com/vendalivre/pos-engine/internal/domain/payment"
)

// ErrDuplicateCode is returned by Repository implementations when the store's
// uniqueness constraint rejects a generated identifier. The orchestrator
// responds by regenerating the order number.
var ErrDuplicateCode = errors.New("generated code already taken")

// maxFinalizeAttempts bounds order-number regeneration on duplicate-key
// rejections from the store.
const maxFinalizeAttempts = 3

// Record is the assembled transaction handed to persistence on finalization.
type Record struct {
	ID          string
	OrderNumber string
	Lines       []cart.Line
	Totals      cart.Totals
	Payment     payment.Attempt
	CustomerID  string
	CreatedAt   time.Time
}

// Repository persists finalized transactions. Implementations must enforce
// uniqueness of OrderNumber and surface violations as ErrDuplicateCode.
type Repository interface {
	PersistTransaction(ctx context.Context, rec *Record) error
}

// Generator produces order numbers. Satisfied by *code.Generator.
type Generator interface {
	Generate(ctx context.Context, ns code.Namespace, seed string) (string, error)
}

// Service finalizes settled transactions: it generates the order number,
// assembles the record, and hands it to persistence.
type Service struct {
	codes  Generator
	orders Repository
	now    func() time.Time
}

// NewService creates a checkout Service with the required collaborators.
func NewService(codes Generator, orders Repository) *Service {
	return &Service{
		codes:  codes,
		orders: orders,
		now:    time.Now,
	}
}

// Finalize moves a settled transaction to its terminal state. The persisted
// totals are exactly the totals frozen at pricing time — no adjustment
// happens after payment. On ErrDuplicateCode from the store the order number
// is regenerated, up to maxFinalizeAttempts.
//
// Any failure reopens the transaction with the cart lines intact, so the
// sale can be re-priced and retried; success clears the cart.
func (s *Service) Finalize(ctx context.Context, t *Transaction) (*Record, error) {
	if t.state != StateSettled {
		return nil, &InvalidTransitionError{From: t.state, Op: "finalize"}
	}

	var lastErr error
	for attempt := 0; attempt < maxFinalizeAttempts; attempt++ {
		number, err := s.codes.Generate(ctx, code.NamespaceOrder, "")
		if err != nil {
			t.reopen()
			return nil, errors.Wrap(err, "generate order number")
		}

		rec := &Record{
			ID:          uuid.New().String(),
			OrderNumber: number,
			Lines:       t.cart.Lines(),
			Totals:      *t.frozen,
			Payment:     *t.attempt,
			CustomerID:  t.cart.CustomerID(),
			CreatedAt:   s.now(),
		}

		if err := s.orders.PersistTransaction(ctx, rec); err != nil {
			if errors.Is(err, ErrDuplicateCode) {
				lastErr = err
				continue
			}
			t.reopen()
			return nil, errors.Wrap(err, "persist transaction")
		}

		t.OrderID = rec.ID
		t.OrderNumber = rec.OrderNumber
		t.state = StateFinalized
		t.cart.Clear()
		return rec, nil
	}

	t.reopen()
	return nil, errors.Wrapf(lastErr, "order number collided %d times", maxFinalizeAttempts)
}
