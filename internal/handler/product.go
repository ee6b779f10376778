package handler

import (
	"net/http"

	"github.com/go-faster/errors"

	"github.com/vendalivre/pos-engine/internal/domain/product"
)

type productView struct {
	ID         string  `json:"id"`
	SKU        string  `json:"sku"`
	Name       string  `json:"name"`
	Price      float64 `json:"price"`
	CategoryID string  `json:"categoryId,omitempty"`
	Stock      int     `json:"stock"`
}

func toProductView(p product.Product) productView {
	return productView{
		ID:         p.ID,
		SKU:        p.SKU,
		Name:       p.Name,
		Price:      p.Price.InexactFloat64(),
		CategoryID: p.CategoryID,
		Stock:      p.Stock,
	}
}

func (h *Handler) listProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.products.List(r.Context())
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	out := make([]productView, len(products))
	for i, p := range products {
		out[i] = toProductView(p)
	}
	respond(w, http.StatusOK, out)
}

func (h *Handler) getProduct(w http.ResponseWriter, r *http.Request) {
	p, err := h.products.GetByID(r.Context(), r.PathValue("id"))
	if errors.Is(err, product.ErrNotFound) {
		respondError(w, http.StatusNotFound, "product not found")
		return
	}
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respond(w, http.StatusOK, toProductView(*p))
}

type categoryView struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Code string `json:"code"`
}

func (h *Handler) listCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.products.ListCategories(r.Context())
	if err != nil {
		respondDomainError(w, r, err)
		return
	}

	out := make([]categoryView, len(categories))
	for i, c := range categories {
		out[i] = categoryView{ID: c.ID, Name: c.Name, Code: c.Code}
	}
	respond(w, http.StatusOK, out)
}
