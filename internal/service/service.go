package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"nimbusdrive/internal/domain"
	"nimbusdrive/internal/storage/cdn"
)

// Интерфейсы слоя хранения объявлены на стороне потребителя,
// чтобы сервисы тестировались на фейках без базы и облака.

type DirectoryStore interface {
	Create(ctx context.Context, dir *domain.Directory) error
	GetByID(ctx context.Context, id int64) (*domain.Directory, error)
	GetAnyByID(ctx context.Context, id int64) (*domain.Directory, error)
	GetRoot(ctx context.Context, ownerID string) (*domain.Directory, error)
	UpdateName(ctx context.Context, id int64, newName string) error
	UpdateParent(ctx context.Context, id int64, newParentID int64) error
	ListChildren(ctx context.Context, id int64) ([]domain.DirectoryChild, error)
	GetBreadcrumbs(ctx context.Context, id int64) ([]domain.Breadcrumb, error)
	RecomputeSize(ctx context.Context, id int64) (*int64, error)
	MarkSubtreeDeleted(ctx context.Context, id int64) error
	CollectSubtreeFiles(ctx context.Context, id int64) ([]domain.File, error)
	DeleteSubtree(ctx context.Context, id int64) error
}

type FileStore interface {
	Create(ctx context.Context, file *domain.File) error
	GetByUUID(ctx context.Context, fileUUID uuid.UUID) (*domain.File, error)
	ListByDirectory(ctx context.Context, directoryID int64) ([]domain.File, error)
	UpdateName(ctx context.Context, fileUUID uuid.UUID, newName string) error
	UpdateDirectory(ctx context.Context, fileUUID uuid.UUID, directoryID int64) error
	MarkUploaded(ctx context.Context, fileUUID uuid.UUID) error
	SetDeletedAt(ctx context.Context, fileUUID uuid.UUID, deletedAt *time.Time) error
	Delete(ctx context.Context, fileUUID uuid.UUID) error
	ListTrash(ctx context.Context, ownerID string) ([]domain.TrashItem, error)
	ListExpiredTrashed(ctx context.Context, now time.Time) ([]domain.File, error)
	ListTrashedByOwner(ctx context.Context, ownerID string) ([]domain.File, error)
}

type ShareStore interface {
	Create(ctx context.Context, share *domain.Share) error
	GetByToken(ctx context.Context, token string) (*domain.Share, error)
	FindActive(ctx context.Context, resourceType domain.ResourceType, resourceID, ownerID string, now time.Time) (*domain.Share, error)
	Deactivate(ctx context.Context, token string) error
}

type QuotaStore interface {
	UsedBytes(ctx context.Context, ownerID string) (int64, error)
	LimitBytes(ctx context.Context, ownerID string, defaultLimit int64) (int64, error)
}

// ObjectStorage — операции с объектами в S3
type ObjectStorage interface {
	PresignUpload(ctx context.Context, key, contentType string, ttl time.Duration) (string, error)
	Exists(ctx context.Context, key string) (bool, error)
	DeleteObject(ctx context.Context, key string) error
}

// ContentGateway — подпись ссылок и инвалидация кеша CDN
type ContentGateway interface {
	SignedURL(path string, ttl time.Duration) (string, error)
	SignedDownloadURL(path, fileName string, ttl time.Duration) (string, error)
	SignedCookies(pathPrefix string, ttl time.Duration) (map[string]string, error)
	Invalidate(ctx context.Context, paths []string) error
}

// ShareMappings — таблица токен раздачи -> объект на стороне CDN
type ShareMappings interface {
	PutShareMapping(ctx context.Context, token string, mapping cdn.ShareMapping) error
	DeleteShareMapping(ctx context.Context, token string) error
}

// DeleteScheduler ставит и снимает отложенные задания на удаление
type DeleteScheduler interface {
	ScheduleDelete(ctx context.Context, job *domain.DeleteJob) error
	CancelDelete(ctx context.Context, jobID string) (bool, error)
}
