package handler

import (
	"net/http"

	"nimbusdrive/internal/auth"
	"nimbusdrive/internal/service"
)

type QuotaHandler struct {
	quotaService *service.QuotaService
	verifier     *auth.Verifier
}

func NewQuotaHandler(quotaService *service.QuotaService, verifier *auth.Verifier) *QuotaHandler {
	return &QuotaHandler{
		quotaService: quotaService,
		verifier:     verifier,
	}
}

func (h *QuotaHandler) Usage(w http.ResponseWriter, r *http.Request) {
	userID, err := h.verifier.VerifyToken(r)
	if err != nil {
		writeError(w, err)
		return
	}

	usage, err := h.quotaService.Usage(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, usage)
}
