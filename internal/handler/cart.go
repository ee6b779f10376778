package handler

import (
	"net/http"

	"github.com/shopspring/decimal"

	"github.com/vendalivre/pos-engine/internal/domain/cart"
	"github.com/vendalivre/pos-engine/internal/domain/checkout"
)

type lineView struct {
	ProductID       string  `json:"productId"`
	Name            string  `json:"name"`
	UnitPrice       float64 `json:"unitPrice"`
	Quantity        int     `json:"quantity"`
	MaxQuantity     int     `json:"maxQuantity"`
	DiscountPercent float64 `json:"discountPercent"`
}

type totalsView struct {
	Subtotal       float64 `json:"subtotal"`
	DiscountAmount float64 `json:"discountAmount"`
	TaxAmount      float64 `json:"taxAmount"`
	Total          float64 `json:"total"`
}

type cartView struct {
	State      string     `json:"state"`
	CustomerID string     `json:"customerId,omitempty"`
	Lines      []lineView `json:"lines"`
	Totals     totalsView `json:"totals"`
}

func toTotalsView(t cart.Totals) totalsView {
	rounded := t.Rounded()
	return totalsView{
		Subtotal:       rounded.Subtotal.InexactFloat64(),
		DiscountAmount: rounded.DiscountAmount.InexactFloat64(),
		TaxAmount:      rounded.TaxAmount.InexactFloat64(),
		Total:          rounded.Total.InexactFloat64(),
	}
}

func toCartView(tx *checkout.Transaction) cartView {
	c := tx.Cart()
	lines := c.Lines()
	out := cartView{
		State:      string(tx.State()),
		CustomerID: c.CustomerID(),
		Lines:      make([]lineView, len(lines)),
		Totals:     toTotalsView(c.Totals()),
	}
	for i, l := range lines {
		out.Lines[i] = lineView{
			ProductID:       l.ProductID,
			Name:            l.Name,
			UnitPrice:       l.UnitPrice.InexactFloat64(),
			Quantity:        l.Quantity,
			MaxQuantity:     l.MaxQuantity,
			DiscountPercent: l.DiscountPercent.InexactFloat64(),
		}
	}
	return out
}

func (h *Handler) createSession(w http.ResponseWriter, r *http.Request) {
	id := h.sessions.Create()
	respond(w, http.StatusCreated, map[string]string{"sessionId": id})
}

func (h *Handler) removeSession(w http.ResponseWriter, r *http.Request) {
	h.sessions.Remove(r.PathValue("id"))
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) getCart(w http.ResponseWriter, r *http.Request) {
	h.withCartView(w, r, func(*checkout.Transaction) error { return nil })
}

type addItemRequest struct {
	ProductID string `json:"productId"`
}

func (h *Handler) addItem(w http.ResponseWriter, r *http.Request) {
	var req addItemRequest
	if !decode(w, r, &req) {
		return
	}
	if req.ProductID == "" {
		respondError(w, http.StatusBadRequest, "productId is required")
		return
	}

	p, err := h.products.GetByID(r.Context(), req.ProductID)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	h.withCartView(w, r, func(tx *checkout.Transaction) error {
		return tx.Mutate(func(c *cart.Cart) {
			c.AddItem(p.ID, p.Name, p.Price, p.Stock)
		})
	})
}

type updateQuantityRequest struct {
	Delta int `json:"delta"`
}

func (h *Handler) updateQuantity(w http.ResponseWriter, r *http.Request) {
	var req updateQuantityRequest
	if !decode(w, r, &req) {
		return
	}
	productID := r.PathValue("productID")

	h.withCartView(w, r, func(tx *checkout.Transaction) error {
		return tx.Mutate(func(c *cart.Cart) {
			c.UpdateQuantity(productID, req.Delta)
		})
	})
}

func (h *Handler) removeItem(w http.ResponseWriter, r *http.Request) {
	productID := r.PathValue("productID")

	h.withCartView(w, r, func(tx *checkout.Transaction) error {
		return tx.Mutate(func(c *cart.Cart) {
			c.RemoveItem(productID)
		})
	})
}

type lineDiscountRequest struct {
	Percent decimal.Decimal `json:"percent"`
}

func (h *Handler) setLineDiscount(w http.ResponseWriter, r *http.Request) {
	var req lineDiscountRequest
	if !decode(w, r, &req) {
		return
	}
	productID := r.PathValue("productID")

	h.withCartView(w, r, func(tx *checkout.Transaction) error {
		return tx.Mutate(func(c *cart.Cart) {
			c.SetLineDiscount(productID, req.Percent)
		})
	})
}

type orderDiscountRequest struct {
	Type  string          `json:"type"`
	Value decimal.Decimal `json:"value"`
}

func (h *Handler) setOrderDiscount(w http.ResponseWriter, r *http.Request) {
	var req orderDiscountRequest
	if !decode(w, r, &req) {
		return
	}

	typ := cart.DiscountType(req.Type)
	if typ != cart.DiscountPercent && typ != cart.DiscountFixed {
		respondError(w, http.StatusBadRequest, "discount type must be percent or fixed")
		return
	}

	h.withCartView(w, r, func(tx *checkout.Transaction) error {
		return tx.Mutate(func(c *cart.Cart) {
			c.SetOrderDiscount(req.Value, typ)
		})
	})
}

type customerRequest struct {
	CustomerID string `json:"customerId"`
}

func (h *Handler) setCustomer(w http.ResponseWriter, r *http.Request) {
	var req customerRequest
	if !decode(w, r, &req) {
		return
	}

	h.withCartView(w, r, func(tx *checkout.Transaction) error {
		return tx.Mutate(func(c *cart.Cart) {
			c.SetCustomer(req.CustomerID)
		})
	})
}

func (h *Handler) clearCart(w http.ResponseWriter, r *http.Request) {
	h.withCartView(w, r, func(tx *checkout.Transaction) error {
		return tx.Mutate(func(c *cart.Cart) {
			c.Clear()
		})
	})
}

// withCartView runs op on the session's transaction and responds with the
// refreshed cart view.
func (h *Handler) withCartView(w http.ResponseWriter, r *http.Request, op func(*checkout.Transaction) error) {
	var view cartView
	err := h.sessions.With(r.PathValue("id"), func(tx *checkout.Transaction) error {
		if err := op(tx); err != nil {
			return err
		}
		view = toCartView(tx)
		return nil
	})
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respond(w, http.StatusOK, view)
}
