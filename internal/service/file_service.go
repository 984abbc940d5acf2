package service

import (
	"context"
	"log"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"nimbusdrive/internal/domain"
)

const (
	uploadURLTTL   = 15 * time.Minute
	downloadURLTTL = time.Hour
)

// UploadIntent — ответ на запрос загрузки: запись файла и подписанный
// URL, по которому клиент кладет содержимое напрямую в хранилище
type UploadIntent struct {
	File      domain.File `json:"file"`
	UploadURL string      `json:"upload_url"`
	ExpiresAt time.Time   `json:"expires_at"`
}

// FileService управляет файлами: загрузка через pre-signed URL,
// скачивание через CDN, переименование и перемещение
type FileService struct {
	files       FileStore
	dirs        DirectoryStore
	objects     ObjectStorage
	gateway     ContentGateway
	scheduler   DeleteScheduler
	quota       *QuotaService
	aggregation *AggregationService
}

func NewFileService(
	files FileStore,
	dirs DirectoryStore,
	objects ObjectStorage,
	gateway ContentGateway,
	scheduler DeleteScheduler,
	quota *QuotaService,
	aggregation *AggregationService,
) *FileService {
	return &FileService{
		files:       files,
		dirs:        dirs,
		objects:     objects,
		gateway:     gateway,
		scheduler:   scheduler,
		quota:       quota,
		aggregation: aggregation,
	}
}

func (s *FileService) getOwned(ctx context.Context, ownerID string, fileUUID uuid.UUID) (*domain.File, error) {
	file, err := s.files.GetByUUID(ctx, fileUUID)
	if err != nil {
		return nil, err
	}
	if file.OwnerID != ownerID {
		return nil, domain.NewError(domain.KindNotFound, "file not found")
	}

	return file, nil
}

func validateFileName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.NewError(domain.KindValidation, "file name is required")
	}
	if len(name) > 255 {
		return domain.NewError(domain.KindValidation, "file name is too long")
	}
	if strings.ContainsAny(name, "/\x00") {
		return domain.NewError(domain.KindValidation, "file name contains invalid characters")
	}

	return nil
}

// splitName отделяет расширение: "report.pdf" -> ("report", ".pdf")
func splitName(fullName string) (string, string) {
	ext := filepath.Ext(fullName)
	return strings.TrimSuffix(fullName, ext), strings.ToLower(ext)
}

// RequestUpload создает запись файла в состоянии загрузки и возвращает
// pre-signed URL. Содержимое никогда не проходит через сервис.
func (s *FileService) RequestUpload(ctx context.Context, ownerID string, directoryID int64, fullName, contentType string, sizeBytes int64) (*UploadIntent, error) {
	if err := validateFileName(fullName); err != nil {
		return nil, err
	}
	if sizeBytes < 0 {
		return nil, domain.NewError(domain.KindValidation, "file size must not be negative")
	}

	dir, err := s.dirs.GetByID(ctx, directoryID)
	if err != nil {
		return nil, err
	}
	if dir.OwnerID != ownerID {
		return nil, domain.NewError(domain.KindNotFound, "directory not found")
	}

	if err := s.quota.CheckCapacity(ctx, ownerID, sizeBytes); err != nil {
		return nil, err
	}

	name, ext := splitName(strings.TrimSpace(fullName))
	fileUUID := uuid.New()

	file := &domain.File{
		UUID:        fileUUID,
		Name:        name,
		Extension:   ext,
		SizeBytes:   sizeBytes,
		DirectoryID: directoryID,
		OwnerID:     ownerID,
		StorageKey:  domain.StorageKeyFor(ownerID, fileUUID, ext),
		IsUploading: true,
	}
	if err := s.files.Create(ctx, file); err != nil {
		return nil, err
	}

	uploadURL, err := s.objects.PresignUpload(ctx, file.StorageKey, contentType, uploadURLTTL)
	if err != nil {
		// запись без URL бесполезна, подчищаем сразу
		if delErr := s.files.Delete(ctx, fileUUID); delErr != nil {
			log.Printf("[File] Failed to clean up record %s after presign error: %v", fileUUID, delErr)
		}
		return nil, err
	}

	return &UploadIntent{
		File:      *file,
		UploadURL: uploadURL,
		ExpiresAt: time.Now().Add(uploadURLTTL),
	}, nil
}

// CompleteUpload подтверждает загрузку. Объект проверяется в хранилище:
// если клиент так и не загрузил его, запись удаляется.
func (s *FileService) CompleteUpload(ctx context.Context, ownerID string, fileUUID uuid.UUID) (*domain.File, error) {
	file, err := s.getOwned(ctx, ownerID, fileUUID)
	if err != nil {
		return nil, err
	}
	if !file.IsUploading {
		return file, nil
	}

	exists, err := s.objects.Exists(ctx, file.StorageKey)
	if err != nil {
		return nil, err
	}
	if !exists {
		if delErr := s.files.Delete(ctx, fileUUID); delErr != nil {
			log.Printf("[File] Failed to remove record %s for missing object: %v", fileUUID, delErr)
		}
		return nil, domain.NewError(domain.KindValidation, "object was not uploaded")
	}

	if err := s.files.MarkUploaded(ctx, fileUUID); err != nil {
		return nil, err
	}

	if err := s.aggregation.Propagate(ctx, file.DirectoryID); err != nil {
		return nil, err
	}

	log.Printf("[File] Upload completed for %s (%d bytes)", fileUUID, file.SizeBytes)
	return s.files.GetByUUID(ctx, fileUUID)
}

// DownloadURL выдает подписанную ссылку на скачивание через CDN
func (s *FileService) DownloadURL(ctx context.Context, ownerID string, fileUUID uuid.UUID) (string, error) {
	file, err := s.getOwned(ctx, ownerID, fileUUID)
	if err != nil {
		return "", err
	}
	if file.IsUploading {
		return "", domain.NewError(domain.KindInvalidOperation, "file upload is not completed")
	}
	if file.IsTrashed() {
		return "", domain.NewError(domain.KindInvalidOperation, "file is in trash")
	}

	return s.gateway.SignedDownloadURL(file.StorageKey, file.Name+file.Extension, downloadURLTTL)
}

func (s *FileService) Rename(ctx context.Context, ownerID string, fileUUID uuid.UUID, newName string) (*domain.File, error) {
	if err := validateFileName(newName); err != nil {
		return nil, err
	}

	file, err := s.getOwned(ctx, ownerID, fileUUID)
	if err != nil {
		return nil, err
	}
	if file.IsTrashed() {
		return nil, domain.NewError(domain.KindInvalidOperation, "file is in trash")
	}

	// расширение привязано к ключу объекта и не меняется
	name, ext := splitName(strings.TrimSpace(newName))
	if ext != "" && ext != file.Extension {
		return nil, domain.NewError(domain.KindValidation, "file extension cannot be changed")
	}

	if err := s.files.UpdateName(ctx, fileUUID, name); err != nil {
		return nil, err
	}

	return s.files.GetByUUID(ctx, fileUUID)
}

// HardDelete немедленно и безвозвратно удаляет файл, минуя корзину.
// Отложенное задание, если файл уже лежал в корзине, снимается; снятие
// сугубо подстраховочное — после удаления строки воркер сам увидит,
// что файла больше нет.
func (s *FileService) HardDelete(ctx context.Context, ownerID string, fileUUID uuid.UUID) error {
	file, err := s.getOwned(ctx, ownerID, fileUUID)
	if err != nil {
		return err
	}

	if cancelled, cancelErr := s.scheduler.CancelDelete(ctx, domain.DeleteJobID(fileUUID)); cancelErr != nil {
		log.Printf("[File] Failed to cancel delete job for %s: %v", fileUUID, cancelErr)
	} else if cancelled {
		log.Printf("[File] Cancelled scheduled delete for %s", fileUUID)
	}

	if err := s.objects.DeleteObject(ctx, file.StorageKey); err != nil {
		return err
	}
	if err := s.gateway.Invalidate(ctx, []string{"/" + file.StorageKey}); err != nil {
		log.Printf("[File] Cache invalidation failed for %s: %v", file.StorageKey, err)
	}
	if err := s.files.Delete(ctx, fileUUID); err != nil {
		return err
	}

	log.Printf("[File] Hard deleted file %s (%s)", fileUUID, file.StorageKey)
	return s.aggregation.Propagate(ctx, file.DirectoryID)
}

// Move переносит файл в другую папку и пересчитывает размеры обеих
func (s *FileService) Move(ctx context.Context, ownerID string, fileUUID uuid.UUID, directoryID int64) (*domain.File, error) {
	file, err := s.getOwned(ctx, ownerID, fileUUID)
	if err != nil {
		return nil, err
	}
	if file.IsTrashed() {
		return nil, domain.NewError(domain.KindInvalidOperation, "file is in trash")
	}

	dir, err := s.dirs.GetByID(ctx, directoryID)
	if err != nil {
		return nil, err
	}
	if dir.OwnerID != ownerID {
		return nil, domain.NewError(domain.KindNotFound, "directory not found")
	}

	if file.DirectoryID == directoryID {
		return file, nil
	}

	oldDirectoryID := file.DirectoryID
	if err := s.files.UpdateDirectory(ctx, fileUUID, directoryID); err != nil {
		return nil, err
	}

	if err := s.aggregation.Propagate(ctx, oldDirectoryID); err != nil {
		return nil, err
	}
	if err := s.aggregation.Propagate(ctx, directoryID); err != nil {
		return nil, err
	}

	return s.files.GetByUUID(ctx, fileUUID)
}
