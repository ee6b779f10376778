// Package payment implements tender validation and change computation for a
// single checkout. Settlement is a pure, synchronous computation: cash must
// cover the total, non-cash methods must match it exactly.
package payment

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/vendalivre/pos-engine/internal/domain/money"
)

// MethodKind enumerates the supported payment method families.
type MethodKind string

const (
	MethodCash  MethodKind = "cash"
	MethodCard  MethodKind = "card"
	MethodPix   MethodKind = "pix"
	MethodOther MethodKind = "other"
)

// Known reports whether k is one of the supported method kinds.
func (k MethodKind) Known() bool {
	switch k {
	case MethodCash, MethodCard, MethodPix, MethodOther:
		return true
	}
	return false
}

// InsufficientTenderError indicates cash tendered below the amount due.
type InsufficientTenderError struct {
	Total    decimal.Decimal
	Tendered decimal.Decimal
}

func (e *InsufficientTenderError) Error() string {
	return fmt.Sprintf("tendered %s is less than total %s", e.Tendered, e.Total)
}

// TenderMismatchError indicates a non-cash tender that does not match the
// amount due exactly.
type TenderMismatchError struct {
	Method   MethodKind
	Total    decimal.Decimal
	Tendered decimal.Decimal
}

func (e *TenderMismatchError) Error() string {
	return fmt.Sprintf("%s payment must equal total %s exactly, got %s", e.Method, e.Total, e.Tendered)
}

// Attempt is the outcome of a successful settlement evaluation. It is
// ephemeral: it exists only between settlement and finalization of one
// checkout.
type Attempt struct {
	Method   MethodKind
	Tendered decimal.Decimal
	Change   decimal.Decimal
}

// Evaluate validates the tendered amount against the total due.
//
// Cash: valid iff tendered >= total; change is the difference. Other methods:
// tendered must equal the total exactly and change is always zero. The typed
// error describes the rejection; cart state is never touched here.
func Evaluate(total decimal.Decimal, kind MethodKind, tendered decimal.Decimal) (*Attempt, error) {
	if kind == MethodCash {
		if tendered.LessThan(total) {
			return nil, &InsufficientTenderError{Total: total, Tendered: tendered}
		}
		return &Attempt{
			Method:   kind,
			Tendered: tendered,
			Change:   tendered.Sub(total),
		}, nil
	}

	if !tendered.Equal(total) {
		return nil, &TenderMismatchError{Method: kind, Total: total, Tendered: tendered}
	}
	return &Attempt{
		Method:   kind,
		Tendered: tendered,
		Change:   decimal.Zero,
	}, nil
}

// AddQuickAmount adds a fixed denomination to the current tendered value.
// Negative results clamp to zero. It is a convenience transform over the
// tender field only; Evaluate remains the single validation point.
func AddQuickAmount(current, denomination decimal.Decimal) decimal.Decimal {
	return money.FloorAtZero(current.Add(denomination))
}

// ExactAmount returns the tender that settles the total with no change.
func ExactAmount(total decimal.Decimal) decimal.Decimal {
	return total
}
