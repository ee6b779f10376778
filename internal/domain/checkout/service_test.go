package checkout

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/go-faster/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vendalivre/pos-engine/internal/domain/cart"
	"github.com/vendalivre/pos-engine/internal/domain/code"
	"github.com/vendalivre/pos-engine/internal/domain/payment"
)

// --- Mock implementations ---

type mockGenerator struct {
	calls int
	err   error
}

func (m *mockGenerator) Generate(_ context.Context, ns code.Namespace, _ string) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	m.calls++
	return fmt.Sprintf("OS-%04d", m.calls), nil
}

type mockOrderRepo struct {
	records  []*Record
	failures int // number of leading calls to reject with ErrDuplicateCode
	err      error
}

func (m *mockOrderRepo) PersistTransaction(_ context.Context, rec *Record) error {
	if m.err != nil {
		return m.err
	}
	if m.failures > 0 {
		m.failures--
		return ErrDuplicateCode
	}
	m.records = append(m.records, rec)
	return nil
}

func newSettled(t *testing.T) *Transaction {
	t.Helper()
	c := cart.New(dec("10"))
	c.SetCustomer("cust-7")
	c.AddItem("p1", "Mouse", dec("100.00"), 10)
	c.SetOrderDiscount(dec("10"), cart.DiscountPercent)
	return settledTransaction(t, c, "99.00")
}

// --- Tests ---

func TestFinalize(t *testing.T) {
	gen := &mockGenerator{}
	repo := &mockOrderRepo{}
	svc := NewService(gen, repo)
	fixedNow := time.Date(2025, 11, 3, 9, 30, 0, 0, time.UTC)
	svc.now = func() time.Time { return fixedNow }

	tx := newSettled(t)
	frozenTotal := tx.FrozenTotals().Total

	rec, err := svc.Finalize(context.Background(), tx)
	require.NoError(t, err)

	assert.Equal(t, StateFinalized, tx.State())
	assert.Equal(t, "OS-0001", rec.OrderNumber)
	assert.Equal(t, rec.OrderNumber, tx.OrderNumber)
	assert.NotEmpty(t, rec.ID)
	assert.Equal(t, "cust-7", rec.CustomerID)
	assert.Equal(t, fixedNow, rec.CreatedAt)

	// Persisted total equals the frozen priced total, untouched by payment.
	assert.True(t, frozenTotal.Equal(rec.Totals.Total))
	assert.True(t, dec("99.00").Equal(rec.Totals.Total))
	require.Len(t, rec.Lines, 1)
	assert.Equal(t, "p1", rec.Lines[0].ProductID)
	assert.Equal(t, payment.MethodCash, rec.Payment.Method)

	// The in-memory cart is cleared on success.
	assert.Equal(t, 0, tx.Cart().Len())
}

func TestFinalize_RequiresSettled(t *testing.T) {
	svc := NewService(&mockGenerator{}, &mockOrderRepo{})

	tx := pricedTransaction(t, newCartWithItem("10.00"))
	_, err := svc.Finalize(context.Background(), tx)

	var itErr *InvalidTransitionError
	require.ErrorAs(t, err, &itErr)
	assert.Equal(t, StatePriced, itErr.From)
}

func TestFinalize_RetriesOnDuplicateCode(t *testing.T) {
	gen := &mockGenerator{}
	repo := &mockOrderRepo{failures: 2}
	svc := NewService(gen, repo)

	tx := newSettled(t)
	rec, err := svc.Finalize(context.Background(), tx)
	require.NoError(t, err)

	// Two collisions, third number sticks.
	assert.Equal(t, 3, gen.calls)
	assert.Equal(t, "OS-0003", rec.OrderNumber)
	assert.Equal(t, StateFinalized, tx.State())
}

func TestFinalize_GivesUpAfterBoundedRetries(t *testing.T) {
	gen := &mockGenerator{}
	repo := &mockOrderRepo{failures: maxFinalizeAttempts}
	svc := NewService(gen, repo)

	tx := newSettled(t)
	_, err := svc.Finalize(context.Background(), tx)

	require.ErrorIs(t, err, ErrDuplicateCode)
	assert.Equal(t, maxFinalizeAttempts, gen.calls)

	// Exhausting the retries reopens the sale with the cart intact.
	assert.Equal(t, StateOpen, tx.State())
	assert.Equal(t, 1, tx.Cart().Len())
}

func TestFinalize_PersistErrorReopensWithCartIntact(t *testing.T) {
	svc := NewService(&mockGenerator{}, &mockOrderRepo{err: errors.New("connection reset")})

	tx := newSettled(t)
	_, err := svc.Finalize(context.Background(), tx)

	require.Error(t, err)
	assert.Equal(t, StateOpen, tx.State())
	assert.Equal(t, 1, tx.Cart().Len())
	assert.Nil(t, tx.FrozenTotals())
	assert.Nil(t, tx.Attempt())
	assert.Empty(t, tx.OrderNumber)
}

func TestFinalize_GeneratorErrorReopens(t *testing.T) {
	svc := NewService(&mockGenerator{err: errors.New("repository down")}, &mockOrderRepo{})

	tx := newSettled(t)
	_, err := svc.Finalize(context.Background(), tx)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "generate order number")
	assert.Equal(t, StateOpen, tx.State())
}

func TestFinalize_TransientFailureAllowsFullRetry(t *testing.T) {
	gen := &mockGenerator{}
	repo := &mockOrderRepo{err: errors.New("connection reset")}
	svc := NewService(gen, repo)

	tx := newSettled(t)
	_, err := svc.Finalize(context.Background(), tx)
	require.Error(t, err)
	assert.Equal(t, StateOpen, tx.State())

	// The store recovers; the same transaction is re-driven end to end.
	repo.err = nil
	totals, err := tx.Price()
	require.NoError(t, err)
	require.NoError(t, tx.BeginPayment(payment.MethodCash))
	_, err = tx.ConfirmPayment(totals.Total)
	require.NoError(t, err)

	rec, err := svc.Finalize(context.Background(), tx)
	require.NoError(t, err)
	assert.Equal(t, StateFinalized, tx.State())
	assert.Equal(t, "OS-0002", rec.OrderNumber)
	assert.Equal(t, 0, tx.Cart().Len())
}
