package handler

import (
	"net/http"

	"github.com/vendalivre/pos-engine/internal/domain/code"
)

type generateCodeRequest struct {
	Seed string `json:"seed"`
}

func (h *Handler) generateCode(w http.ResponseWriter, r *http.Request) {
	ns := code.Namespace(r.PathValue("namespace"))
	if !ns.Known() {
		respondDomainError(w, r, code.ErrUnknownNamespace)
		return
	}

	var req generateCodeRequest
	if !decode(w, r, &req) {
		return
	}

	generated, err := h.codes.Generate(r.Context(), ns, req.Seed)
	if err != nil {
		respondDomainError(w, r, err)
		return
	}
	respond(w, http.StatusOK, map[string]string{"code": generated})
}
