package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nimbusdrive/internal/domain"
)

type directoryTestEnv struct {
	store   *fakeStore
	dirs    *fakeDirectoryStore
	files   *fakeFileStore
	objects *fakeObjectStorage
	gateway *fakeGateway
	svc     *DirectoryService
}

func newDirectoryTestEnv() *directoryTestEnv {
	store := newFakeStore()
	dirs := &fakeDirectoryStore{fakeStore: store}
	files := &fakeFileStore{fakeStore: store}
	objects := newFakeObjectStorage()
	gateway := &fakeGateway{}
	aggregation := NewAggregationService(dirs)

	return &directoryTestEnv{
		store:   store,
		dirs:    dirs,
		files:   files,
		objects: objects,
		gateway: gateway,
		svc:     NewDirectoryService(dirs, files, objects, gateway, aggregation),
	}
}

func (e *directoryTestEnv) propagate(t *testing.T, dirID int64) {
	t.Helper()
	require.NoError(t, NewAggregationService(e.dirs).Propagate(context.Background(), dirID))
}

func TestEnsureRootCreatesOnce(t *testing.T) {
	env := newDirectoryTestEnv()
	ctx := context.Background()

	root, err := env.svc.EnsureRoot(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, root.IsRoot())

	again, err := env.svc.EnsureRoot(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, root.ID, again.ID)
}

func TestCreateDirectoryRejectsDuplicateName(t *testing.T) {
	env := newDirectoryTestEnv()
	ctx := context.Background()
	root := env.store.addDir("alice", nil, "Root")

	_, err := env.svc.Create(ctx, "alice", root.ID, "docs")
	require.NoError(t, err)

	_, err = env.svc.Create(ctx, "alice", root.ID, "docs")
	require.Error(t, err)
	assert.Equal(t, domain.KindConflict, domain.KindOf(err))
}

func TestCreateDirectoryValidatesName(t *testing.T) {
	env := newDirectoryTestEnv()
	ctx := context.Background()
	root := env.store.addDir("alice", nil, "Root")

	for _, name := range []string{"", "   ", "a/b"} {
		_, err := env.svc.Create(ctx, "alice", root.ID, name)
		require.Error(t, err, "name %q", name)
		assert.Equal(t, domain.KindValidation, domain.KindOf(err))
	}
}

func TestRootDirectoryIsImmutable(t *testing.T) {
	env := newDirectoryTestEnv()
	ctx := context.Background()
	root := env.store.addDir("alice", nil, "Root")
	other := env.store.addDir("alice", &root.ID, "docs")

	_, err := env.svc.Rename(ctx, "alice", root.ID, "new name")
	assert.Equal(t, domain.KindForbidden, domain.KindOf(err))

	_, err = env.svc.Move(ctx, "alice", root.ID, other.ID)
	assert.Equal(t, domain.KindForbidden, domain.KindOf(err))

	err = env.svc.Delete(ctx, "alice", root.ID)
	assert.Equal(t, domain.KindForbidden, domain.KindOf(err))
}

func TestMoveDirectoryIntoOwnSubtreeFails(t *testing.T) {
	env := newDirectoryTestEnv()
	ctx := context.Background()
	root := env.store.addDir("alice", nil, "Root")
	a := env.store.addDir("alice", &root.ID, "a")
	b := env.store.addDir("alice", &a.ID, "b")
	c := env.store.addDir("alice", &b.ID, "c")

	_, err := env.svc.Move(ctx, "alice", a.ID, c.ID)
	require.Error(t, err)
	assert.Equal(t, domain.KindInvalidOperation, domain.KindOf(err))

	_, err = env.svc.Move(ctx, "alice", a.ID, a.ID)
	require.Error(t, err)
	assert.Equal(t, domain.KindInvalidOperation, domain.KindOf(err))

	// дерево не изменилось
	assert.Equal(t, root.ID, *env.store.dirs[a.ID].ParentID)
}

func TestMoveDirectoryUpdatesBothSubtreeSizes(t *testing.T) {
	env := newDirectoryTestEnv()
	ctx := context.Background()
	root := env.store.addDir("alice", nil, "Root")
	src := env.store.addDir("alice", &root.ID, "src")
	dst := env.store.addDir("alice", &root.ID, "dst")
	moved := env.store.addDir("alice", &src.ID, "moved")
	env.store.addFile("alice", moved.ID, "data", 500)

	env.propagate(t, moved.ID)
	require.Equal(t, int64(500), env.store.dirs[src.ID].SizeBytes)

	_, err := env.svc.Move(ctx, "alice", moved.ID, dst.ID)
	require.NoError(t, err)

	assert.Equal(t, int64(0), env.store.dirs[src.ID].SizeBytes)
	assert.Equal(t, int64(500), env.store.dirs[dst.ID].SizeBytes)
	assert.Equal(t, int64(500), env.store.dirs[root.ID].SizeBytes)
}

// Чужая папка должна выглядеть для клиента ровно как несуществующая,
// иначе по коду ответа можно перебирать чужие идентификаторы.
func TestForeignDirectoryReportedAsNotFound(t *testing.T) {
	env := newDirectoryTestEnv()
	ctx := context.Background()
	root := env.store.addDir("alice", nil, "Root")
	docs := env.store.addDir("alice", &root.ID, "docs")

	_, err := env.svc.Get(ctx, "bob", docs.ID)
	assert.Equal(t, domain.KindNotFound, domain.KindOf(err))

	_, err = env.svc.Rename(ctx, "bob", docs.ID, "stolen")
	assert.Equal(t, domain.KindNotFound, domain.KindOf(err))

	err = env.svc.Delete(ctx, "bob", docs.ID)
	assert.Equal(t, domain.KindNotFound, domain.KindOf(err))
}

func TestDeleteDirectoryRemovesSubtreeAndObjects(t *testing.T) {
	env := newDirectoryTestEnv()
	ctx := context.Background()
	root := env.store.addDir("alice", nil, "Root")
	docs := env.store.addDir("alice", &root.ID, "docs")
	nested := env.store.addDir("alice", &docs.ID, "nested")
	f1 := env.store.addFile("alice", docs.ID, "a", 100)
	f2 := env.store.addFile("alice", nested.ID, "b", 200)

	env.propagate(t, nested.ID)
	require.Equal(t, int64(300), env.store.dirs[root.ID].SizeBytes)

	require.NoError(t, env.svc.Delete(ctx, "alice", docs.ID))

	assert.NotContains(t, env.store.dirs, docs.ID)
	assert.NotContains(t, env.store.dirs, nested.ID)
	assert.NotContains(t, env.store.files, f1.UUID)
	assert.NotContains(t, env.store.files, f2.UUID)
	assert.ElementsMatch(t, []string{f1.StorageKey, f2.StorageKey}, env.objects.deleted)

	// размер родителя пересчитан после удаления
	assert.Equal(t, int64(0), env.store.dirs[root.ID].SizeBytes)
}

func TestGetDirectoryContent(t *testing.T) {
	env := newDirectoryTestEnv()
	ctx := context.Background()
	root := env.store.addDir("alice", nil, "Root")
	docs := env.store.addDir("alice", &root.ID, "docs")
	env.store.addDir("alice", &docs.ID, "nested")
	env.store.addFile("alice", docs.ID, "a", 100)
	env.propagate(t, docs.ID)

	content, err := env.svc.Get(ctx, "alice", docs.ID)
	require.NoError(t, err)

	assert.Len(t, content.Files, 1)
	assert.Len(t, content.Directories, 1)
	assert.Equal(t, 1, content.Stats.TotalFiles)
	assert.Equal(t, 1, content.Stats.TotalSubdirectories)
	assert.Equal(t, int64(100), content.Stats.TotalSize)

	require.Len(t, content.Breadcrumbs, 2)
	assert.Equal(t, root.ID, content.Breadcrumbs[0].ID)
	assert.Equal(t, docs.ID, content.Breadcrumbs[1].ID)
}
