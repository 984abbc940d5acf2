package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"nimbusdrive/internal/auth"
	"nimbusdrive/internal/domain"
	"nimbusdrive/internal/service"
)

type DirectoryHandler struct {
	directoryService *service.DirectoryService
	verifier         *auth.Verifier
}

func NewDirectoryHandler(directoryService *service.DirectoryService, verifier *auth.Verifier) *DirectoryHandler {
	return &DirectoryHandler{
		directoryService: directoryService,
		verifier:         verifier,
	}
}

type createDirectoryRequest struct {
	Name     string `json:"name"`
	ParentID int64  `json:"parent_id"`
}

type renameRequest struct {
	Name string `json:"name"`
}

type moveDirectoryRequest struct {
	ParentID int64 `json:"parent_id"`
}

func directoryIDParam(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		return 0, domain.NewError(domain.KindValidation, "invalid directory id")
	}
	return id, nil
}

func (h *DirectoryHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, err := h.verifier.VerifyToken(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var req createDirectoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, domain.NewError(domain.KindValidation, "invalid request body"))
		return
	}

	dir, err := h.directoryService.Create(r.Context(), userID, req.ParentID, req.Name)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, dir)
}

// GetRoot отдает содержимое корневой папки, создавая её при первом
// обращении
func (h *DirectoryHandler) GetRoot(w http.ResponseWriter, r *http.Request) {
	userID, err := h.verifier.VerifyToken(r)
	if err != nil {
		writeError(w, err)
		return
	}

	root, err := h.directoryService.EnsureRoot(r.Context(), userID)
	if err != nil {
		writeError(w, err)
		return
	}

	content, err := h.directoryService.Get(r.Context(), userID, root.ID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, content)
}

func (h *DirectoryHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, err := h.verifier.VerifyToken(r)
	if err != nil {
		writeError(w, err)
		return
	}

	id, err := directoryIDParam(r)
	if err != nil {
		writeError(w, err)
		return
	}

	content, err := h.directoryService.Get(r.Context(), userID, id)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, content)
}

func (h *DirectoryHandler) Rename(w http.ResponseWriter, r *http.Request) {
	userID, err := h.verifier.VerifyToken(r)
	if err != nil {
		writeError(w, err)
		return
	}

	id, err := directoryIDParam(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var req renameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, domain.NewError(domain.KindValidation, "invalid request body"))
		return
	}

	dir, err := h.directoryService.Rename(r.Context(), userID, id, req.Name)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dir)
}

func (h *DirectoryHandler) Move(w http.ResponseWriter, r *http.Request) {
	userID, err := h.verifier.VerifyToken(r)
	if err != nil {
		writeError(w, err)
		return
	}

	id, err := directoryIDParam(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var req moveDirectoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, domain.NewError(domain.KindValidation, "invalid request body"))
		return
	}

	dir, err := h.directoryService.Move(r.Context(), userID, id, req.ParentID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, dir)
}

func (h *DirectoryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, err := h.verifier.VerifyToken(r)
	if err != nil {
		writeError(w, err)
		return
	}

	id, err := directoryIDParam(r)
	if err != nil {
		writeError(w, err)
		return
	}

	if err := h.directoryService.Delete(r.Context(), userID, id); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
