package service

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"nimbusdrive/internal/domain"
	"nimbusdrive/internal/storage/cdn"
)

// Фейковые реализации хранилищ держат состояние в памяти и ведут себя
// как настоящие репозитории, включая частичные уникальные индексы и
// пересчет размеров.

type fakeStore struct {
	dirs   map[int64]*domain.Directory
	files  map[uuid.UUID]*domain.File
	nextID int64
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		dirs:   make(map[int64]*domain.Directory),
		files:  make(map[uuid.UUID]*domain.File),
		nextID: 1,
	}
}

func (s *fakeStore) addDir(ownerID string, parentID *int64, name string) *domain.Directory {
	dir := &domain.Directory{
		ID:       s.nextID,
		Name:     name,
		OwnerID:  ownerID,
		ParentID: parentID,
	}
	s.nextID++
	s.dirs[dir.ID] = dir
	return dir
}

func (s *fakeStore) addFile(ownerID string, dirID int64, name string, size int64) *domain.File {
	file := &domain.File{
		UUID:        uuid.New(),
		Name:        name,
		Extension:   ".bin",
		SizeBytes:   size,
		DirectoryID: dirID,
		OwnerID:     ownerID,
	}
	file.StorageKey = domain.StorageKeyFor(ownerID, file.UUID, file.Extension)
	s.files[file.UUID] = file
	return file
}

type fakeDirectoryStore struct {
	*fakeStore
}

func (s *fakeDirectoryStore) Create(_ context.Context, dir *domain.Directory) error {
	for _, existing := range s.dirs {
		if existing.DeletedAt != nil {
			continue
		}
		if dir.ParentID == nil && existing.ParentID == nil && existing.OwnerID == dir.OwnerID {
			return domain.NewError(domain.KindConflict, "root directory already exists")
		}
		if dir.ParentID != nil && existing.ParentID != nil &&
			*existing.ParentID == *dir.ParentID && existing.Name == dir.Name {
			return domain.NewError(domain.KindConflict, "directory with this name already exists")
		}
	}

	dir.ID = s.nextID
	s.nextID++
	s.dirs[dir.ID] = dir
	return nil
}

func (s *fakeDirectoryStore) GetByID(_ context.Context, id int64) (*domain.Directory, error) {
	dir, ok := s.dirs[id]
	if !ok || dir.DeletedAt != nil {
		return nil, domain.NewError(domain.KindNotFound, "directory not found")
	}
	copied := *dir
	return &copied, nil
}

func (s *fakeDirectoryStore) GetAnyByID(_ context.Context, id int64) (*domain.Directory, error) {
	dir, ok := s.dirs[id]
	if !ok {
		return nil, domain.NewError(domain.KindNotFound, "directory not found")
	}
	copied := *dir
	return &copied, nil
}

func (s *fakeDirectoryStore) GetRoot(_ context.Context, ownerID string) (*domain.Directory, error) {
	for _, dir := range s.dirs {
		if dir.OwnerID == ownerID && dir.ParentID == nil && dir.DeletedAt == nil {
			copied := *dir
			return &copied, nil
		}
	}
	return nil, domain.NewError(domain.KindNotFound, "root directory not found")
}

func (s *fakeDirectoryStore) UpdateName(_ context.Context, id int64, newName string) error {
	dir, ok := s.dirs[id]
	if !ok || dir.DeletedAt != nil {
		return domain.NewError(domain.KindNotFound, "directory not found")
	}
	dir.Name = newName
	return nil
}

func (s *fakeDirectoryStore) UpdateParent(_ context.Context, id int64, newParentID int64) error {
	dir, ok := s.dirs[id]
	if !ok || dir.DeletedAt != nil {
		return domain.NewError(domain.KindNotFound, "directory not found")
	}
	dir.ParentID = &newParentID
	return nil
}

func (s *fakeDirectoryStore) ListChildren(_ context.Context, id int64) ([]domain.DirectoryChild, error) {
	var children []domain.DirectoryChild
	for _, dir := range s.dirs {
		if dir.ParentID != nil && *dir.ParentID == id && dir.DeletedAt == nil {
			children = append(children, domain.DirectoryChild{Directory: *dir})
		}
	}
	sort.Slice(children, func(i, j int) bool { return children[i].ID < children[j].ID })
	return children, nil
}

func (s *fakeDirectoryStore) GetBreadcrumbs(_ context.Context, id int64) ([]domain.Breadcrumb, error) {
	var chain []domain.Breadcrumb
	current, ok := s.dirs[id]
	if !ok {
		return nil, domain.NewError(domain.KindNotFound, "directory not found")
	}
	for current != nil {
		chain = append([]domain.Breadcrumb{{ID: current.ID, Name: current.Name}}, chain...)
		if current.ParentID == nil {
			break
		}
		current = s.dirs[*current.ParentID]
	}
	return chain, nil
}

func (s *fakeDirectoryStore) RecomputeSize(_ context.Context, id int64) (*int64, error) {
	dir, ok := s.dirs[id]
	if !ok {
		return nil, nil
	}

	var total int64
	for _, file := range s.files {
		if file.DirectoryID == id && file.DeletedAt == nil && !file.IsUploading {
			total += file.SizeBytes
		}
	}
	for _, child := range s.dirs {
		if child.ParentID != nil && *child.ParentID == id && child.DeletedAt == nil {
			total += child.SizeBytes
		}
	}
	dir.SizeBytes = total
	return dir.ParentID, nil
}

func (s *fakeDirectoryStore) subtreeIDs(id int64) []int64 {
	ids := []int64{id}
	for _, dir := range s.dirs {
		if dir.ParentID != nil && *dir.ParentID == id {
			ids = append(ids, s.subtreeIDs(dir.ID)...)
		}
	}
	return ids
}

func (s *fakeDirectoryStore) MarkSubtreeDeleted(_ context.Context, id int64) error {
	now := time.Now()
	for _, dirID := range s.subtreeIDs(id) {
		if dir, ok := s.dirs[dirID]; ok {
			dir.DeletedAt = &now
		}
		for _, file := range s.files {
			if file.DirectoryID == dirID && file.DeletedAt == nil {
				file.DeletedAt = &now
			}
		}
	}
	return nil
}

func (s *fakeDirectoryStore) CollectSubtreeFiles(_ context.Context, id int64) ([]domain.File, error) {
	var files []domain.File
	for _, dirID := range s.subtreeIDs(id) {
		for _, file := range s.files {
			if file.DirectoryID == dirID {
				files = append(files, *file)
			}
		}
	}
	return files, nil
}

func (s *fakeDirectoryStore) DeleteSubtree(_ context.Context, id int64) error {
	for _, dirID := range s.subtreeIDs(id) {
		for fileUUID, file := range s.files {
			if file.DirectoryID == dirID {
				delete(s.files, fileUUID)
			}
		}
		delete(s.dirs, dirID)
	}
	return nil
}

type fakeFileStore struct {
	*fakeStore
}

func (s *fakeFileStore) Create(_ context.Context, file *domain.File) error {
	for _, existing := range s.files {
		if existing.DirectoryID == file.DirectoryID &&
			existing.Name == file.Name && existing.Extension == file.Extension &&
			existing.DeletedAt == nil {
			return domain.NewError(domain.KindConflict, "file with this name already exists")
		}
	}
	copied := *file
	s.files[file.UUID] = &copied
	return nil
}

func (s *fakeFileStore) GetByUUID(_ context.Context, fileUUID uuid.UUID) (*domain.File, error) {
	file, ok := s.files[fileUUID]
	if !ok {
		return nil, domain.NewError(domain.KindNotFound, "file not found")
	}
	copied := *file
	return &copied, nil
}

func (s *fakeFileStore) ListByDirectory(_ context.Context, directoryID int64) ([]domain.File, error) {
	var files []domain.File
	for _, file := range s.files {
		if file.DirectoryID == directoryID && file.DeletedAt == nil {
			files = append(files, *file)
		}
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	return files, nil
}

func (s *fakeFileStore) UpdateName(_ context.Context, fileUUID uuid.UUID, newName string) error {
	file, ok := s.files[fileUUID]
	if !ok {
		return domain.NewError(domain.KindNotFound, "file not found")
	}
	file.Name = newName
	return nil
}

func (s *fakeFileStore) UpdateDirectory(_ context.Context, fileUUID uuid.UUID, directoryID int64) error {
	file, ok := s.files[fileUUID]
	if !ok {
		return domain.NewError(domain.KindNotFound, "file not found")
	}
	file.DirectoryID = directoryID
	return nil
}

func (s *fakeFileStore) MarkUploaded(_ context.Context, fileUUID uuid.UUID) error {
	file, ok := s.files[fileUUID]
	if !ok {
		return domain.NewError(domain.KindNotFound, "file not found")
	}
	file.IsUploading = false
	return nil
}

func (s *fakeFileStore) SetDeletedAt(_ context.Context, fileUUID uuid.UUID, deletedAt *time.Time) error {
	file, ok := s.files[fileUUID]
	if !ok {
		return domain.NewError(domain.KindNotFound, "file not found")
	}
	if deletedAt == nil {
		for _, existing := range s.files {
			if existing.UUID != fileUUID && existing.DirectoryID == file.DirectoryID &&
				existing.Name == file.Name && existing.Extension == file.Extension &&
				existing.DeletedAt == nil {
				return domain.NewError(domain.KindConflict, "file with this name already exists")
			}
		}
	}
	file.DeletedAt = deletedAt
	return nil
}

func (s *fakeFileStore) Delete(_ context.Context, fileUUID uuid.UUID) error {
	if _, ok := s.files[fileUUID]; !ok {
		return domain.NewError(domain.KindNotFound, "file not found")
	}
	delete(s.files, fileUUID)
	return nil
}

func (s *fakeFileStore) ListTrash(_ context.Context, ownerID string) ([]domain.TrashItem, error) {
	var items []domain.TrashItem
	for _, file := range s.files {
		if file.OwnerID == ownerID && file.DeletedAt != nil {
			items = append(items, domain.TrashItem{
				UUID:        file.UUID,
				Name:        file.Name + file.Extension,
				SizeBytes:   file.SizeBytes,
				DirectoryID: file.DirectoryID,
				PurgeAt:     *file.DeletedAt,
			})
		}
	}
	return items, nil
}

func (s *fakeFileStore) ListExpiredTrashed(_ context.Context, now time.Time) ([]domain.File, error) {
	var files []domain.File
	for _, file := range s.files {
		if file.DeletedAt != nil && !file.DeletedAt.After(now) {
			files = append(files, *file)
		}
	}
	return files, nil
}

func (s *fakeFileStore) ListTrashedByOwner(_ context.Context, ownerID string) ([]domain.File, error) {
	var files []domain.File
	for _, file := range s.files {
		if file.OwnerID == ownerID && file.DeletedAt != nil {
			files = append(files, *file)
		}
	}
	return files, nil
}

type fakeObjectStorage struct {
	objects map[string]bool
	deleted []string
}

func newFakeObjectStorage() *fakeObjectStorage {
	return &fakeObjectStorage{objects: make(map[string]bool)}
}

func (s *fakeObjectStorage) PresignUpload(_ context.Context, key, _ string, _ time.Duration) (string, error) {
	return "https://s3.test/" + key + "?signature=upload", nil
}

func (s *fakeObjectStorage) Exists(_ context.Context, key string) (bool, error) {
	return s.objects[key], nil
}

func (s *fakeObjectStorage) DeleteObject(_ context.Context, key string) error {
	delete(s.objects, key)
	s.deleted = append(s.deleted, key)
	return nil
}

type fakeGateway struct {
	invalidated [][]string
}

func (g *fakeGateway) SignedURL(path string, _ time.Duration) (string, error) {
	return "https://cdn.test/" + path + "?signature=url", nil
}

func (g *fakeGateway) SignedDownloadURL(path, _ string, _ time.Duration) (string, error) {
	return "https://cdn.test/" + path + "?signature=download", nil
}

func (g *fakeGateway) SignedCookies(pathPrefix string, _ time.Duration) (map[string]string, error) {
	return map[string]string{
		"CloudFront-Policy":      "policy-" + pathPrefix,
		"CloudFront-Signature":   "signature",
		"CloudFront-Key-Pair-Id": "key-pair",
	}, nil
}

func (g *fakeGateway) Invalidate(_ context.Context, paths []string) error {
	g.invalidated = append(g.invalidated, paths)
	return nil
}

type fakeScheduler struct {
	jobs map[string]*domain.DeleteJob
}

func newFakeScheduler() *fakeScheduler {
	return &fakeScheduler{jobs: make(map[string]*domain.DeleteJob)}
}

func (s *fakeScheduler) ScheduleDelete(_ context.Context, job *domain.DeleteJob) error {
	copied := *job
	copied.Status = domain.JobStatusPending
	s.jobs[job.ID] = &copied
	return nil
}

func (s *fakeScheduler) CancelDelete(_ context.Context, jobID string) (bool, error) {
	job, ok := s.jobs[jobID]
	if !ok || job.Status != domain.JobStatusPending {
		return false, nil
	}
	job.Status = domain.JobStatusCancelled
	return true, nil
}

type fakeMappings struct {
	mappings map[string]cdn.ShareMapping
}

func newFakeMappings() *fakeMappings {
	return &fakeMappings{mappings: make(map[string]cdn.ShareMapping)}
}

func (m *fakeMappings) PutShareMapping(_ context.Context, token string, mapping cdn.ShareMapping) error {
	m.mappings[token] = mapping
	return nil
}

func (m *fakeMappings) DeleteShareMapping(_ context.Context, token string) error {
	delete(m.mappings, token)
	return nil
}

type fakeShareStore struct {
	shares map[string]*domain.Share
}

func newFakeShareStore() *fakeShareStore {
	return &fakeShareStore{shares: make(map[string]*domain.Share)}
}

func (s *fakeShareStore) Create(_ context.Context, share *domain.Share) error {
	if _, ok := s.shares[share.Token]; ok {
		return domain.NewError(domain.KindConflict, "share token already exists")
	}
	copied := *share
	s.shares[share.Token] = &copied
	return nil
}

func (s *fakeShareStore) GetByToken(_ context.Context, token string) (*domain.Share, error) {
	share, ok := s.shares[token]
	if !ok {
		return nil, domain.NewError(domain.KindNotFound, "share not found")
	}
	copied := *share
	return &copied, nil
}

func (s *fakeShareStore) FindActive(_ context.Context, resourceType domain.ResourceType, resourceID, ownerID string, now time.Time) (*domain.Share, error) {
	for _, share := range s.shares {
		if share.ResourceType == resourceType && share.ResourceID == resourceID &&
			share.OwnerID == ownerID && share.IsActive && !share.IsExpired(now) {
			copied := *share
			return &copied, nil
		}
	}
	return nil, domain.NewError(domain.KindNotFound, "no active share")
}

func (s *fakeShareStore) Deactivate(_ context.Context, token string) error {
	share, ok := s.shares[token]
	if !ok {
		return domain.NewError(domain.KindNotFound, "share not found")
	}
	share.IsActive = false
	return nil
}

type fakeQuotaStore struct {
	files *fakeStore
	limit int64
}

func (s *fakeQuotaStore) UsedBytes(_ context.Context, ownerID string) (int64, error) {
	var total int64
	for _, file := range s.files.files {
		if file.OwnerID == ownerID {
			total += file.SizeBytes
		}
	}
	return total, nil
}

func (s *fakeQuotaStore) LimitBytes(_ context.Context, _ string, defaultLimit int64) (int64, error) {
	if s.limit > 0 {
		return s.limit, nil
	}
	return defaultLimit, nil
}
