package service

import (
	"context"
	"crypto/rand"
	"fmt"
	"log"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"nimbusdrive/internal/domain"
	"nimbusdrive/internal/storage/cdn"
)

const (
	shareTokenLength = 12
	shareTokenChars  = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789_-"

	// sharePathPrefix — префикс путей раздачи на дистрибуции; edge-функция
	// по токену достает из KVS реальный ключ объекта
	sharePathPrefix = "private/shares"

	shareAccessTTL = 24 * time.Hour
)

// ShareOptions — параметры создания раздачи
type ShareOptions struct {
	ResourceID string
	Visibility domain.Visibility
	UserIDs    []string
	ExpiresAt  *time.Time
}

// ShareService выдает доступ к файлам и папкам по токену. Доступ идет
// через CDN: по токену подписываются куки, ограниченные префиксом пути
// раздачи, а соответствие токена объекту хранится в KeyValueStore.
type ShareService struct {
	shares    ShareStore
	files     FileStore
	dirs      DirectoryStore
	gateway   ContentGateway
	mappings  ShareMappings
	cdnDomain string

	now func() time.Time
}

func NewShareService(
	shares ShareStore,
	files FileStore,
	dirs DirectoryStore,
	gateway ContentGateway,
	mappings ShareMappings,
	cdnDomain string,
) *ShareService {
	return &ShareService{
		shares:    shares,
		files:     files,
		dirs:      dirs,
		gateway:   gateway,
		mappings:  mappings,
		cdnDomain: strings.TrimSuffix(cdnDomain, "/"),
		now:       time.Now,
	}
}

// newShareToken генерирует короткий токен, пригодный для URL
func newShareToken() (string, error) {
	buf := make([]byte, shareTokenLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate share token: %w", err)
	}

	for i := range buf {
		buf[i] = shareTokenChars[int(buf[i])%len(shareTokenChars)]
	}
	return string(buf), nil
}

// resolveResource находит ресурс по идентификатору: uuid означает файл,
// число — папку. Возвращает тип и проверяет принадлежность владельцу.
func (s *ShareService) resolveResource(ctx context.Context, ownerID, resourceID string) (domain.ResourceType, error) {
	if fileUUID, err := uuid.Parse(resourceID); err == nil {
		file, getErr := s.files.GetByUUID(ctx, fileUUID)
		if getErr != nil {
			return "", getErr
		}
		if file.OwnerID != ownerID {
			return "", domain.NewError(domain.KindNotFound, "file not found")
		}
		if file.IsUploading {
			return "", domain.NewError(domain.KindInvalidOperation, "file upload is not completed")
		}
		if file.IsTrashed() {
			return "", domain.NewError(domain.KindInvalidOperation, "file is in trash")
		}
		return domain.ResourceTypeFile, nil
	}

	dirID, err := strconv.ParseInt(resourceID, 10, 64)
	if err != nil {
		return "", domain.NewError(domain.KindValidation, "invalid resource id")
	}

	dir, err := s.dirs.GetByID(ctx, dirID)
	if err != nil {
		return "", err
	}
	if dir.OwnerID != ownerID {
		return "", domain.NewError(domain.KindNotFound, "directory not found")
	}
	return domain.ResourceTypeDirectory, nil
}

// Create создает раздачу. На один ресурс допускается только одна
// активная раздача.
func (s *ShareService) Create(ctx context.Context, ownerID string, opts ShareOptions) (*domain.Share, error) {
	if opts.Visibility != domain.VisibilityPublic && opts.Visibility != domain.VisibilityPrivate {
		return nil, domain.NewError(domain.KindValidation, "visibility must be public or private")
	}
	if opts.Visibility == domain.VisibilityPublic && len(opts.UserIDs) > 0 {
		return nil, domain.NewError(domain.KindValidation, "public share cannot have an allowed user list")
	}
	if opts.Visibility == domain.VisibilityPrivate && len(opts.UserIDs) == 0 {
		return nil, domain.NewError(domain.KindValidation, "private share requires at least one user")
	}
	if opts.ExpiresAt != nil && opts.ExpiresAt.Before(s.now()) {
		return nil, domain.NewError(domain.KindValidation, "expiration must be in the future")
	}

	resourceType, err := s.resolveResource(ctx, ownerID, opts.ResourceID)
	if err != nil {
		return nil, err
	}

	if existing, findErr := s.shares.FindActive(ctx, resourceType, opts.ResourceID, ownerID, s.now()); findErr == nil {
		return nil, domain.NewError(domain.KindConflict,
			fmt.Sprintf("resource already has an active share %s", existing.Token))
	} else if !domain.IsKind(findErr, domain.KindNotFound) {
		return nil, findErr
	}

	token, err := newShareToken()
	if err != nil {
		return nil, err
	}

	share := &domain.Share{
		Token:        token,
		ResourceType: resourceType,
		ResourceID:   opts.ResourceID,
		OwnerID:      ownerID,
		Visibility:   opts.Visibility,
		UserIDs:      strings.Join(opts.UserIDs, ","),
		ExpiresAt:    opts.ExpiresAt,
		IsActive:     true,
	}
	if err := s.shares.Create(ctx, share); err != nil {
		return nil, err
	}

	log.Printf("[Share] Created %s share %s for %s %s", share.Visibility, token, resourceType, opts.ResourceID)
	return share, nil
}

// Revoke отзывает раздачу: деактивирует запись, убирает маппинг из KVS
// и сбрасывает кеш путей раздачи
func (s *ShareService) Revoke(ctx context.Context, ownerID, token string) error {
	share, err := s.shares.GetByToken(ctx, token)
	if err != nil {
		return err
	}
	if share.OwnerID != ownerID {
		return domain.NewError(domain.KindForbidden, "share belongs to another user")
	}

	if err := s.shares.Deactivate(ctx, token); err != nil {
		return err
	}

	if err := s.mappings.DeleteShareMapping(ctx, token); err != nil {
		log.Printf("[Share] Failed to delete KVS mapping for %s: %v", token, err)
	}

	path := fmt.Sprintf("/%s/%s/*", sharePathPrefix, token)
	if err := s.gateway.Invalidate(ctx, []string{path}); err != nil {
		log.Printf("[Share] Cache invalidation failed for %s: %v", token, err)
	}

	log.Printf("[Share] Revoked share %s", token)
	return nil
}

// Access проверяет право пользователя на раздачу и выдает подписанный
// доступ. Для приватных раздач userID обязателен.
func (s *ShareService) Access(ctx context.Context, userID, token string) (*domain.ShareAccess, error) {
	share, err := s.shares.GetByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if !share.IsActive {
		return nil, domain.NewError(domain.KindNotFound, "share not found")
	}
	if share.IsExpired(s.now()) {
		return nil, domain.NewError(domain.KindForbidden, "share link has expired")
	}

	if share.Visibility == domain.VisibilityPrivate {
		if userID == "" {
			return nil, domain.NewError(domain.KindUnauthorized, "authentication required")
		}
		if userID != share.OwnerID && !share.AllowsUser(userID) {
			return nil, domain.NewError(domain.KindForbidden, "user is not allowed to access this share")
		}
	}

	ttl := shareAccessTTL
	if share.ExpiresAt != nil {
		if remaining := share.ExpiresAt.Sub(s.now()); remaining < ttl {
			ttl = remaining
		}
	}

	switch share.ResourceType {
	case domain.ResourceTypeFile:
		return s.accessFile(ctx, share, ttl)
	case domain.ResourceTypeDirectory:
		return s.accessDirectory(ctx, share, ttl)
	default:
		return nil, domain.NewError(domain.KindDependency, "unknown share resource type")
	}
}

func (s *ShareService) accessFile(ctx context.Context, share *domain.Share, ttl time.Duration) (*domain.ShareAccess, error) {
	fileUUID, err := uuid.Parse(share.ResourceID)
	if err != nil {
		return nil, domain.NewError(domain.KindDependency, "share references invalid file id")
	}

	file, err := s.files.GetByUUID(ctx, fileUUID)
	if err != nil {
		return nil, err
	}
	if file.IsTrashed() {
		return nil, domain.NewError(domain.KindNotFound, "shared file no longer exists")
	}

	fileName := file.Name + file.Extension

	// edge-функция дистрибуции перепишет путь раздачи в настоящий ключ
	if err := s.mappings.PutShareMapping(ctx, share.Token, cdn.ShareMapping{
		StoragePath: file.StorageKey,
		FileName:    fileName,
		ResourceID:  share.ResourceID,
		CreatedAt:   s.now(),
	}); err != nil {
		return nil, err
	}

	sharePath := fmt.Sprintf("%s/%s/%s", sharePathPrefix, share.Token, fileName)

	cookies, err := s.gateway.SignedCookies(fmt.Sprintf("%s/%s/*", sharePathPrefix, share.Token), ttl)
	if err != nil {
		return nil, err
	}

	signedURL, err := s.gateway.SignedDownloadURL(sharePath, fileName, ttl)
	if err != nil {
		return nil, err
	}

	return &domain.ShareAccess{
		Token:        share.Token,
		ResourceType: share.ResourceType,
		ResourceURL:  fmt.Sprintf("%s/%s", s.cdnDomain, sharePath),
		SignedURL:    signedURL,
		Cookies:      cookies,
		ExpiresAt:    s.now().Add(ttl),
	}, nil
}

func (s *ShareService) accessDirectory(ctx context.Context, share *domain.Share, ttl time.Duration) (*domain.ShareAccess, error) {
	dirID, err := strconv.ParseInt(share.ResourceID, 10, 64)
	if err != nil {
		return nil, domain.NewError(domain.KindDependency, "share references invalid directory id")
	}

	if _, err := s.dirs.GetByID(ctx, dirID); err != nil {
		if domain.IsKind(err, domain.KindNotFound) {
			return nil, domain.NewError(domain.KindNotFound, "shared directory no longer exists")
		}
		return nil, err
	}

	prefix := fmt.Sprintf("%s/%s", sharePathPrefix, share.Token)

	cookies, err := s.gateway.SignedCookies(prefix+"/*", ttl)
	if err != nil {
		return nil, err
	}

	return &domain.ShareAccess{
		Token:        share.Token,
		ResourceType: share.ResourceType,
		ResourceURL:  fmt.Sprintf("%s/%s/", s.cdnDomain, prefix),
		Cookies:      cookies,
		ExpiresAt:    s.now().Add(ttl),
	}, nil
}

// Get возвращает раздачу владельцу
func (s *ShareService) Get(ctx context.Context, ownerID, token string) (*domain.Share, error) {
	share, err := s.shares.GetByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if share.OwnerID != ownerID {
		return nil, domain.NewError(domain.KindNotFound, "share not found")
	}
	return share, nil
}
