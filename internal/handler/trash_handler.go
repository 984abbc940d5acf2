package handler

import (
	"net/http"

	"nimbusdrive/internal/auth"
	"nimbusdrive/internal/service"
)

type TrashHandler struct {
	trashService *service.TrashService
	verifier     *auth.Verifier
}

func NewTrashHandler(trashService *service.TrashService, verifier *auth.Verifier) *TrashHandler {
	return &TrashHandler{
		trashService: trashService,
		verifier:     verifier,
	}
}

type emptyTrashResponse struct {
	Purged int `json:"purged"`
}

func (h *TrashHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, err := h.verifier.VerifyToken(r)
	if err != nil {
		writeError(w, err)
		return
	}

	items, err := h.trashService.List(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, items)
}

// Trash помещает файл в корзину
func (h *TrashHandler) Trash(w http.ResponseWriter, r *http.Request) {
	userID, err := h.verifier.VerifyToken(r)
	if err != nil {
		writeError(w, err)
		return
	}

	fileUUID, err := fileUUIDParam(r)
	if err != nil {
		writeError(w, err)
		return
	}

	file, err := h.trashService.Trash(r.Context(), userID, fileUUID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, file)
}

// Restore возвращает файл из корзины
func (h *TrashHandler) Restore(w http.ResponseWriter, r *http.Request) {
	userID, err := h.verifier.VerifyToken(r)
	if err != nil {
		writeError(w, err)
		return
	}

	fileUUID, err := fileUUIDParam(r)
	if err != nil {
		writeError(w, err)
		return
	}

	file, err := h.trashService.Restore(r.Context(), userID, fileUUID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, file)
}

// Empty немедленно очищает корзину пользователя
func (h *TrashHandler) Empty(w http.ResponseWriter, r *http.Request) {
	userID, err := h.verifier.VerifyToken(r)
	if err != nil {
		writeError(w, err)
		return
	}

	purged, err := h.trashService.EmptyTrash(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, emptyTrashResponse{Purged: purged})
}
