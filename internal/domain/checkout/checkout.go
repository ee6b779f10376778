// Package checkout orchestrates one sales transaction: it freezes cart
// totals, drives payment settlement, and finalizes the priced transaction
// into a persisted record with a generated order number.
package checkout

import (
	"fmt"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/vendalivre/pos-engine/internal/domain/cart"
	"github.com/vendalivre/pos-engine/internal/domain/payment"
)

// State is the lifecycle stage of a transaction.
type State string

const (
	// StateOpen accepts cart mutations.
	StateOpen State = "open"
	// StatePriced has totals computed and frozen for the payment step.
	StatePriced State = "priced"
	// StateAwaitingPayment has a method chosen and waits on settlement.
	StateAwaitingPayment State = "awaiting_payment"
	// StateSettled has a valid payment attempt with change computed.
	StateSettled State = "settled"
	// StateFinalized is terminal: the record has been handed to persistence.
	StateFinalized State = "finalized"
	// StateCancelled is the escape hatch from any non-finalized state.
	StateCancelled State = "cancelled"
)

// Sentinel errors for transaction lifecycle violations.
var (
	ErrFinalized = errors.New("transaction already finalized")
	ErrCancelled = errors.New("transaction cancelled")
)

// InvalidTransitionError reports an operation attempted in the wrong state.
type InvalidTransitionError struct {
	From State
	Op   string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot %s a transaction in state %q", e.Op, e.From)
}

// Transaction tracks one cart through pricing, settlement, and finalization.
// It is owned by a single session and is not safe for concurrent use.
type Transaction struct {
	cart    *cart.Cart
	state   State
	frozen  *cart.Totals
	method  payment.MethodKind
	attempt *payment.Attempt

	// Set by Service.Finalize.
	OrderID     string
	OrderNumber string
}

// NewTransaction starts an open transaction over the given cart.
func NewTransaction(c *cart.Cart) *Transaction {
	return &Transaction{cart: c, state: StateOpen}
}

// State returns the current lifecycle stage.
func (t *Transaction) State() State {
	return t.state
}

// Cart returns the underlying cart for read access. Mutations must go
// through Mutate so the state machine sees them.
func (t *Transaction) Cart() *cart.Cart {
	return t.cart
}

// FrozenTotals returns the totals frozen at pricing time, or nil before
// the transaction has been priced.
func (t *Transaction) FrozenTotals() *cart.Totals {
	return t.frozen
}

// Attempt returns the settled payment attempt, or nil before settlement.
func (t *Transaction) Attempt() *payment.Attempt {
	return t.attempt
}

// Mutate applies a cart mutation. Mutating after pricing forces the
// transaction back to Open, voiding the frozen totals and any pending
// payment attempt. Finalized and cancelled transactions reject mutations.
func (t *Transaction) Mutate(fn func(*cart.Cart)) error {
	switch t.state {
	case StateFinalized:
		return ErrFinalized
	case StateCancelled:
		return ErrCancelled
	case StatePriced, StateAwaitingPayment, StateSettled:
		t.reopen()
	}
	fn(t.cart)
	return nil
}

func (t *Transaction) reopen() {
	t.state = StateOpen
	t.frozen = nil
	t.method = ""
	t.attempt = nil
}

// Price computes and freezes the cart totals for the payment step. Pricing
// again while already priced simply recomputes.
func (t *Transaction) Price() (cart.Totals, error) {
	switch t.state {
	case StateOpen, StatePriced:
	default:
		return cart.Totals{}, &InvalidTransitionError{From: t.state, Op: "price"}
	}

	frozen := t.cart.Totals().Rounded()
	t.frozen = &frozen
	t.state = StatePriced
	return frozen, nil
}

// BeginPayment selects the payment method and moves to AwaitingPayment.
func (t *Transaction) BeginPayment(kind payment.MethodKind) error {
	if t.state != StatePriced {
		return &InvalidTransitionError{From: t.state, Op: "begin payment"}
	}
	if !kind.Known() {
		return errors.Errorf("unknown payment method %q", kind)
	}
	t.method = kind
	t.state = StateAwaitingPayment
	return nil
}

// ConfirmPayment settles the chosen method against the frozen total. On a
// rejected tender the transaction stays in AwaitingPayment and the typed
// settlement error is returned; nothing else changes.
func (t *Transaction) ConfirmPayment(tendered decimal.Decimal) (*payment.Attempt, error) {
	if t.state != StateAwaitingPayment {
		return nil, &InvalidTransitionError{From: t.state, Op: "confirm payment"}
	}

	attempt, err := payment.Evaluate(t.frozen.Total, t.method, tendered)
	if err != nil {
		return nil, err
	}

	t.attempt = attempt
	t.state = StateSettled
	return attempt, nil
}

// Cancel aborts the transaction from any non-finalized state. The cart is
// left intact; the surrounding application decides what to do with it.
func (t *Transaction) Cancel() error {
	if t.state == StateFinalized {
		return ErrFinalized
	}
	t.state = StateCancelled
	return nil
}
