package handler

import (
	"context"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/vendalivre/pos-engine/internal/domain/checkout"
	"github.com/vendalivre/pos-engine/internal/domain/payment"
	"github.com/vendalivre/pos-engine/internal/domain/product"
)

// verifyLines batch-checks every cart line against the catalog. A product
// pulled from the catalog mid-sale fails pricing instead of freezing a
// total the store can no longer honor.
func (h *Handler) verifyLines(ctx context.Context, tx *checkout.Transaction) error {
	lines := tx.Cart().Lines()
	if len(lines) == 0 {
		return nil
	}

	ids := make([]string, len(lines))
	for i, l := range lines {
		ids[i] = l.ProductID
	}
	known, err := h.products.GetByIDs(ctx, ids)
	if err != nil {
		return errors.Wrap(err, "verify cart lines")
	}

	found := make(map[string]struct{}, len(known))
	for _, p := range known {
		found[p.ID] = struct{}{}
	}
	for _, l := range lines {
		if _, ok := found[l.ProductID]; !ok {
			return errors.Wrapf(product.ErrNotFound, "product %q", l.ProductID)
		}
	}
	return nil
}

func (h *Handler) price(w http.ResponseWriter, r *http.Request) {
	var view totalsView
	err := h.sessions.With(r.PathValue("id"), func(tx *checkout.Transaction) error {
		if err := h.verifyLines(r.Context(), tx); err != nil {
			return err
		}
		totals, err := tx.Price()
		if err != nil {
			return err
		}
		view = totalsView{
			Subtotal:       totals.Subtotal.InexactFloat64(),
			DiscountAmount: totals.DiscountAmount.InexactFloat64(),
			TaxAmount:      totals.TaxAmount.InexactFloat64(),
			Total:          totals.Total.InexactFloat64(),
		}
		return nil
	})
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respond(w, http.StatusOK, view)
}

type beginPaymentRequest struct {
	Method string `json:"method"`
}

func (h *Handler) beginPayment(w http.ResponseWriter, r *http.Request) {
	var req beginPaymentRequest
	if !decode(w, r, &req) {
		return
	}

	kind := payment.MethodKind(req.Method)
	if !kind.Known() {
		respondError(w, http.StatusBadRequest, "unknown payment method")
		return
	}

	err := h.sessions.With(r.PathValue("id"), func(tx *checkout.Transaction) error {
		return tx.BeginPayment(kind)
	})
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respond(w, http.StatusOK, map[string]string{"state": string(checkout.StateAwaitingPayment)})
}

type confirmPaymentRequest struct {
	Tendered decimal.Decimal `json:"tendered"`
}

type confirmPaymentResponse struct {
	OrderID     string  `json:"orderId"`
	OrderNumber string  `json:"orderNumber"`
	Total       float64 `json:"total"`
	Tendered    float64 `json:"tendered"`
	Change      float64 `json:"change"`
}

// confirmPayment settles the tender and finalizes the transaction in one
// request. A rejected tender leaves the transaction awaiting payment so the
// operator can re-enter the amount.
func (h *Handler) confirmPayment(w http.ResponseWriter, r *http.Request) {
	var req confirmPaymentRequest
	if !decode(w, r, &req) {
		return
	}

	var resp confirmPaymentResponse
	err := h.sessions.With(r.PathValue("id"), func(tx *checkout.Transaction) error {
		attempt, err := tx.ConfirmPayment(req.Tendered)
		if err != nil {
			return err
		}

		rec, err := h.checkouts.Finalize(r.Context(), tx)
		if err != nil {
			return err
		}

		resp = confirmPaymentResponse{
			OrderID:     rec.ID,
			OrderNumber: rec.OrderNumber,
			Total:       rec.Totals.Total.InexactFloat64(),
			Tendered:    attempt.Tendered.InexactFloat64(),
			Change:      attempt.Change.InexactFloat64(),
		}
		return nil
	})
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respond(w, http.StatusOK, resp)
}

func (h *Handler) cancelCheckout(w http.ResponseWriter, r *http.Request) {
	err := h.sessions.With(r.PathValue("id"), func(tx *checkout.Transaction) error {
		return tx.Cancel()
	})
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respond(w, http.StatusOK, map[string]string{"state": string(checkout.StateCancelled)})
}
