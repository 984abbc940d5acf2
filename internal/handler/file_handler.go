package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"nimbusdrive/internal/auth"
	"nimbusdrive/internal/domain"
	"nimbusdrive/internal/service"
)

type FileHandler struct {
	fileService *service.FileService
	verifier    *auth.Verifier
}

func NewFileHandler(fileService *service.FileService, verifier *auth.Verifier) *FileHandler {
	return &FileHandler{
		fileService: fileService,
		verifier:    verifier,
	}
}

type requestUploadRequest struct {
	DirectoryID int64  `json:"directory_id"`
	Name        string `json:"name"`
	ContentType string `json:"content_type"`
	SizeBytes   int64  `json:"size_bytes"`
}

type moveFileRequest struct {
	DirectoryID int64 `json:"directory_id"`
}

type downloadURLResponse struct {
	URL string `json:"url"`
}

func fileUUIDParam(r *http.Request) (uuid.UUID, error) {
	fileUUID, err := uuid.Parse(chi.URLParam(r, "uuid"))
	if err != nil {
		return uuid.Nil, domain.NewError(domain.KindValidation, "invalid file uuid")
	}
	return fileUUID, nil
}

// RequestUpload регистрирует файл и возвращает pre-signed URL загрузки
func (h *FileHandler) RequestUpload(w http.ResponseWriter, r *http.Request) {
	userID, err := h.verifier.VerifyToken(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var req requestUploadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, domain.NewError(domain.KindValidation, "invalid request body"))
		return
	}

	intent, err := h.fileService.RequestUpload(r.Context(), userID, req.DirectoryID, req.Name, req.ContentType, req.SizeBytes)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, intent)
}

// CompleteUpload подтверждает, что клиент загрузил объект
func (h *FileHandler) CompleteUpload(w http.ResponseWriter, r *http.Request) {
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

	file, err := h.fileService.CompleteUpload(r.Context(), userID, fileUUID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, file)
}

func (h *FileHandler) DownloadURL(w http.ResponseWriter, r *http.Request) {
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

	url, err := h.fileService.DownloadURL(r.Context(), userID, fileUUID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, downloadURLResponse{URL: url})
}

func (h *FileHandler) Rename(w http.ResponseWriter, r *http.Request) {
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

	var req renameRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, domain.NewError(domain.KindValidation, "invalid request body"))
		return
	}

	file, err := h.fileService.Rename(r.Context(), userID, fileUUID, req.Name)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, file)
}

func (h *FileHandler) Move(w http.ResponseWriter, r *http.Request) {
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

	var req moveFileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, domain.NewError(domain.KindValidation, "invalid request body"))
		return
	}

	file, err := h.fileService.Move(r.Context(), userID, fileUUID, req.DirectoryID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, file)
}

// HardDelete безвозвратно удаляет файл, минуя корзину
func (h *FileHandler) HardDelete(w http.ResponseWriter, r *http.Request) {
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

	if err := h.fileService.HardDelete(r.Context(), userID, fileUUID); err != nil {
		writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
