// Package handler exposes the pricing, checkout, and code-generation engines
// over a JSON HTTP API. Handlers validate and translate; all business rules
// live in the domain packages.
package handler

import (
	"net/http"

	"github.com/vendalivre/pos-engine/internal/domain/checkout"
	"github.com/vendalivre/pos-engine/internal/domain/code"
	"github.com/vendalivre/pos-engine/internal/domain/product"
	"github.com/vendalivre/pos-engine/internal/session"
)

// Handler holds the dependencies for all API endpoints.
type Handler struct {
	sessions  *session.Manager
	products  product.Repository
	checkouts *checkout.Service
	codes     *code.Generator
}

// NewHandler constructs a Handler with the required domain dependencies.
func NewHandler(
	sessions *session.Manager,
	products product.Repository,
	checkouts *checkout.Service,
	codes *code.Generator,
) *Handler {
	return &Handler{
		sessions:  sessions,
		products:  products,
		checkouts: checkouts,
		codes:     codes,
	}
}

// Register mounts all API routes on the mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/products", h.listProducts)
	mux.HandleFunc("GET /api/products/{id}", h.getProduct)
	mux.HandleFunc("GET /api/categories", h.listCategories)

	mux.HandleFunc("POST /api/sessions", h.createSession)
	mux.HandleFunc("DELETE /api/sessions/{id}", h.removeSession)
	mux.HandleFunc("GET /api/sessions/{id}/cart", h.getCart)
	mux.HandleFunc("POST /api/sessions/{id}/cart/items", h.addItem)
	mux.HandleFunc("PATCH /api/sessions/{id}/cart/items/{productID}", h.updateQuantity)
	mux.HandleFunc("DELETE /api/sessions/{id}/cart/items/{productID}", h.removeItem)
	mux.HandleFunc("PUT /api/sessions/{id}/cart/items/{productID}/discount", h.setLineDiscount)
	mux.HandleFunc("PUT /api/sessions/{id}/cart/discount", h.setOrderDiscount)
	mux.HandleFunc("PUT /api/sessions/{id}/cart/customer", h.setCustomer)
	mux.HandleFunc("DELETE /api/sessions/{id}/cart", h.clearCart)

	mux.HandleFunc("POST /api/sessions/{id}/checkout/price", h.price)
	mux.HandleFunc("POST /api/sessions/{id}/checkout/payment", h.beginPayment)
	mux.HandleFunc("POST /api/sessions/{id}/checkout/confirm", h.confirmPayment)
	mux.HandleFunc("POST /api/sessions/{id}/checkout/cancel", h.cancelCheckout)

	mux.HandleFunc("POST /api/codes/{namespace}", h.generateCode)
}
