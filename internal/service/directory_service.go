package service

import (
	"context"
	"fmt"
	"log"
	"strings"

	"nimbusdrive/internal/domain"
)

const rootDirectoryName = "Root"

// DirectoryService управляет деревом папок пользователя
type DirectoryService struct {
	dirs        DirectoryStore
	files       FileStore
	objects     ObjectStorage
	gateway     ContentGateway
	aggregation *AggregationService
}

func NewDirectoryService(
	dirs DirectoryStore,
	files FileStore,
	objects ObjectStorage,
	gateway ContentGateway,
	aggregation *AggregationService,
) *DirectoryService {
	return &DirectoryService{
		dirs:        dirs,
		files:       files,
		objects:     objects,
		gateway:     gateway,
		aggregation: aggregation,
	}
}

// getOwned возвращает папку, проверив принадлежность пользователю.
// Чужая папка неотличима от несуществующей.
func (s *DirectoryService) getOwned(ctx context.Context, ownerID string, id int64) (*domain.Directory, error) {
	dir, err := s.dirs.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if dir.OwnerID != ownerID {
		return nil, domain.NewError(domain.KindNotFound, "directory not found")
	}

	return dir, nil
}

// EnsureRoot возвращает корневую папку пользователя, создавая её при
// первом обращении
func (s *DirectoryService) EnsureRoot(ctx context.Context, ownerID string) (*domain.Directory, error) {
	root, err := s.dirs.GetRoot(ctx, ownerID)
	if err == nil {
		return root, nil
	}
	if !domain.IsKind(err, domain.KindNotFound) {
		return nil, err
	}

	root = &domain.Directory{
		Name:    rootDirectoryName,
		OwnerID: ownerID,
	}
	if createErr := s.dirs.Create(ctx, root); createErr != nil {
		// параллельный запрос мог создать корень первым
		if domain.IsKind(createErr, domain.KindConflict) {
			return s.dirs.GetRoot(ctx, ownerID)
		}
		return nil, createErr
	}

	log.Printf("[Directory] Created root directory %d for user %s", root.ID, ownerID)
	return root, nil
}

func validateDirectoryName(name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return domain.NewError(domain.KindValidation, "directory name is required")
	}
	if len(name) > 255 {
		return domain.NewError(domain.KindValidation, "directory name is too long")
	}
	if strings.ContainsAny(name, "/\x00") {
		return domain.NewError(domain.KindValidation, "directory name contains invalid characters")
	}

	return nil
}

func (s *DirectoryService) Create(ctx context.Context, ownerID string, parentID int64, name string) (*domain.Directory, error) {
	if err := validateDirectoryName(name); err != nil {
		return nil, err
	}
	if _, err := s.getOwned(ctx, ownerID, parentID); err != nil {
		return nil, err
	}

	dir := &domain.Directory{
		Name:     strings.TrimSpace(name),
		OwnerID:  ownerID,
		ParentID: &parentID,
	}
	if err := s.dirs.Create(ctx, dir); err != nil {
		return nil, err
	}

	return dir, nil
}

func (s *DirectoryService) Rename(ctx context.Context, ownerID string, id int64, newName string) (*domain.Directory, error) {
	if err := validateDirectoryName(newName); err != nil {
		return nil, err
	}

	dir, err := s.getOwned(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	if dir.IsRoot() {
		return nil, domain.NewError(domain.KindForbidden, "root directory cannot be renamed")
	}

	if err := s.dirs.UpdateName(ctx, id, strings.TrimSpace(newName)); err != nil {
		return nil, err
	}

	return s.dirs.GetByID(ctx, id)
}

// Move переносит папку под нового родителя. Перенос папки в собственное
// поддерево создал бы цикл, поэтому сначала проверяется цепочка предков
// нового родителя.
func (s *DirectoryService) Move(ctx context.Context, ownerID string, id, newParentID int64) (*domain.Directory, error) {
	dir, err := s.getOwned(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}
	if dir.IsRoot() {
		return nil, domain.NewError(domain.KindForbidden, "root directory cannot be moved")
	}
	if id == newParentID {
		return nil, domain.NewError(domain.KindInvalidOperation, "directory cannot be moved into itself")
	}

	newParent, err := s.getOwned(ctx, ownerID, newParentID)
	if err != nil {
		return nil, err
	}

	if err := s.ensureNotDescendant(ctx, id, newParent); err != nil {
		return nil, err
	}

	oldParentID := dir.ParentID
	if err := s.dirs.UpdateParent(ctx, id, newParentID); err != nil {
		return nil, err
	}

	// оба затронутых поддерева пересчитываются от точки изменения вверх
	if oldParentID != nil {
		if err := s.aggregation.Propagate(ctx, *oldParentID); err != nil {
			return nil, err
		}
	}
	if err := s.aggregation.Propagate(ctx, newParentID); err != nil {
		return nil, err
	}

	return s.dirs.GetByID(ctx, id)
}

// ensureNotDescendant идет по предкам кандидата в родители; встреча с
// перемещаемой папкой означает попытку создать цикл
func (s *DirectoryService) ensureNotDescendant(ctx context.Context, movedID int64, candidate *domain.Directory) error {
	current := candidate
	for current.ParentID != nil {
		if *current.ParentID == movedID {
			return domain.NewError(domain.KindInvalidOperation, "directory cannot be moved into its own subtree")
		}

		parent, err := s.dirs.GetByID(ctx, *current.ParentID)
		if err != nil {
			return err
		}
		current = parent
	}

	return nil
}

// Get собирает полное содержимое папки: файлы, подпапки со счетчиками,
// хлебные крошки и сводную статистику
func (s *DirectoryService) Get(ctx context.Context, ownerID string, id int64) (*domain.DirectoryContent, error) {
	dir, err := s.getOwned(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}

	files, err := s.files.ListByDirectory(ctx, id)
	if err != nil {
		return nil, err
	}

	children, err := s.dirs.ListChildren(ctx, id)
	if err != nil {
		return nil, err
	}

	breadcrumbs, err := s.dirs.GetBreadcrumbs(ctx, id)
	if err != nil {
		return nil, err
	}

	return &domain.DirectoryContent{
		Directory:   *dir,
		Files:       files,
		Directories: children,
		Breadcrumbs: breadcrumbs,
		Stats: domain.DirectoryStats{
			TotalFiles:          len(files),
			TotalSubdirectories: len(children),
			TotalSize:           dir.SizeBytes,
		},
	}, nil
}

// Delete рекурсивно удаляет папку вместе с содержимым. Сначала всё
// поддерево помечается удаленным одной транзакцией, затем стираются
// объекты в хранилище и только после этого строки из базы. Повторный
// вызов после частичного сбоя продолжает с того же места.
func (s *DirectoryService) Delete(ctx context.Context, ownerID string, id int64) error {
	dir, err := s.dirs.GetAnyByID(ctx, id)
	if err != nil {
		return err
	}
	if dir.OwnerID != ownerID {
		return domain.NewError(domain.KindNotFound, "directory not found")
	}
	if dir.IsRoot() {
		return domain.NewError(domain.KindForbidden, "root directory cannot be deleted")
	}

	if dir.DeletedAt == nil {
		if err := s.dirs.MarkSubtreeDeleted(ctx, id); err != nil {
			return err
		}
	}

	files, err := s.dirs.CollectSubtreeFiles(ctx, id)
	if err != nil {
		return err
	}

	invalidatePaths := make([]string, 0, len(files))
	for i := range files {
		if delErr := s.objects.DeleteObject(ctx, files[i].StorageKey); delErr != nil {
			return fmt.Errorf("failed to delete object %s: %w", files[i].StorageKey, delErr)
		}
		invalidatePaths = append(invalidatePaths, "/"+files[i].StorageKey)
	}

	if len(invalidatePaths) > 0 {
		if invErr := s.gateway.Invalidate(ctx, invalidatePaths); invErr != nil {
			log.Printf("[Directory] Cache invalidation failed for directory %d: %v", id, invErr)
		}
	}

	if err := s.dirs.DeleteSubtree(ctx, id); err != nil {
		return err
	}

	log.Printf("[Directory] Deleted directory %d with %d files for user %s", id, len(files), ownerID)

	if dir.ParentID != nil {
		return s.aggregation.Propagate(ctx, *dir.ParentID)
	}
	return nil
}
