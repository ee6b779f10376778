package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/vendalivre/pos-engine/internal/domain/checkout"
	"github.com/vendalivre/pos-engine/internal/domain/code"
	"github.com/vendalivre/pos-engine/internal/domain/payment"
	"github.com/vendalivre/pos-engine/internal/domain/product"
	"github.com/vendalivre/pos-engine/internal/session"
)

// errorResponse is the JSON body of every non-2xx response.
type errorResponse struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func respond(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func respondError(w http.ResponseWriter, status int, msg string) {
	respond(w, status, errorResponse{Code: status, Message: msg})
}

// respondDomainError maps domain failures to HTTP statuses. Anything not in
// the taxonomy is treated as a repository failure: the cart state is intact
// and the client may retry.
func respondDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, session.ErrNotFound):
		respondError(w, http.StatusNotFound, "session not found")
	case errors.Is(err, product.ErrNotFound):
		respondError(w, http.StatusUnprocessableEntity, "product not found")
	case errors.Is(err, code.ErrUnknownNamespace):
		respondError(w, http.StatusBadRequest, "unknown code namespace")
	case errors.Is(err, checkout.ErrFinalized), errors.Is(err, checkout.ErrCancelled):
		respondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, checkout.ErrDuplicateCode):
		respondError(w, http.StatusConflict, "order number allocation failed, retry checkout")
	default:
		var (
			transitionErr *checkout.InvalidTransitionError
			tenderErr     *payment.InsufficientTenderError
			mismatchErr   *payment.TenderMismatchError
		)
		switch {
		case errors.As(err, &transitionErr):
			respondError(w, http.StatusConflict, transitionErr.Error())
		case errors.As(err, &tenderErr):
			respondError(w, http.StatusUnprocessableEntity, tenderErr.Error())
		case errors.As(err, &mismatchErr):
			respondError(w, http.StatusUnprocessableEntity, mismatchErr.Error())
		default:
			zctx.From(r.Context()).Error("repository failure", zap.Error(err))
			respondError(w, http.StatusServiceUnavailable, "repository unavailable")
		}
	}
}

// decode reads the request body into v, limited to 1 MiB.
func decode(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return false
	}
	return true
}
