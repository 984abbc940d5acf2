package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"nimbusdrive/internal/auth"
	"nimbusdrive/internal/domain"
	"nimbusdrive/internal/service"
)

type ShareHandler struct {
	shareService *service.ShareService
	verifier     *auth.Verifier
}

func NewShareHandler(shareService *service.ShareService, verifier *auth.Verifier) *ShareHandler {
	return &ShareHandler{
		shareService: shareService,
		verifier:     verifier,
	}
}

type createShareRequest struct {
	ResourceID string     `json:"resource_id"`
	Visibility string     `json:"visibility"`
	UserIDs    []string   `json:"user_ids,omitempty"`
	ExpiresAt  *time.Time `json:"expires_at,omitempty"`
}

func (h *ShareHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, err := h.verifier.VerifyToken(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var req createShareRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, domain.NewError(domain.KindValidation, "invalid request body"))
		return
	}

	share, err := h.shareService.Create(r.Context(), userID, service.ShareOptions{
		ResourceID: req.ResourceID,
		Visibility: domain.Visibility(req.Visibility),
		UserIDs:    req.UserIDs,
		ExpiresAt:  req.ExpiresAt,
	})
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, share)
}

func (h *ShareHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, err := h.verifier.VerifyToken(r)
	if err != nil {
		writeError(w, err)
		return
	}

	share, err := h.shareService.Get(r.Context(), userID, chi.URLParam(r, "token"))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, share)
}

func (h *ShareHandler) Revoke(w http.ResponseWriter, r *http.Request) {
	userID, err := h.verifier.VerifyToken(r)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.shareService.Revoke(r.Context(), userID, chi.URLParam(r, "token")); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Access выдает подписанный доступ к раздаче. Публичные раздачи
// доступны без токена, поэтому ошибка авторизации здесь не фатальна.
func (h *ShareHandler) Access(w http.ResponseWriter, r *http.Request) {
	userID, err := h.verifier.VerifyToken(r)
	if err != nil {
		userID = ""
	}

	access, err := h.shareService.Access(r.Context(), userID, chi.URLParam(r, "token"))
	if err != nil {
		writeError(w, err)
		return
	}

	// куки ставятся и в заголовках, чтобы браузер ходил в CDN напрямую
	for name, value := range access.Cookies {
		http.SetCookie(w, &http.Cookie{
			Name:     name,
			Value:    value,
			Path:     "/",
			Expires:  access.ExpiresAt,
			Secure:   true,
			HttpOnly: true,
			SameSite: http.SameSiteNoneMode,
		})
	}

	writeJSON(w, http.StatusOK, access)
}
