package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"nimbusdrive/internal/domain"
)

type trashTestEnv struct {
	store     *fakeStore
	dirs      *fakeDirectoryStore
	files     *fakeFileStore
	objects   *fakeObjectStorage
	gateway   *fakeGateway
	scheduler *fakeScheduler
	svc       *TrashService
	now       time.Time
}

func newTrashTestEnv() *trashTestEnv {
	store := newFakeStore()
	dirs := &fakeDirectoryStore{fakeStore: store}
	files := &fakeFileStore{fakeStore: store}
	objects := newFakeObjectStorage()
	gateway := &fakeGateway{}
	scheduler := newFakeScheduler()
	aggregation := NewAggregationService(dirs)

	env := &trashTestEnv{
		store:     store,
		dirs:      dirs,
		files:     files,
		objects:   objects,
		gateway:   gateway,
		scheduler: scheduler,
		now:       time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}

	env.svc = NewTrashService(files, objects, gateway, scheduler, aggregation, 24*time.Hour)
	env.svc.now = func() time.Time { return env.now }
	return env
}

func (e *trashTestEnv) propagate(t *testing.T, dirID int64) {
	t.Helper()
	require.NoError(t, NewAggregationService(e.dirs).Propagate(context.Background(), dirID))
}

func TestTrashSchedulesDeferredDelete(t *testing.T) {
	env := newTrashTestEnv()
	ctx := context.Background()
	root := env.store.addDir("alice", nil, "Root")
	file := env.store.addFile("alice", root.ID, "data", 100)
	env.objects.objects[file.StorageKey] = true
	env.propagate(t, root.ID)
	require.Equal(t, int64(100), env.store.dirs[root.ID].SizeBytes)

	trashed, err := env.svc.Trash(ctx, "alice", file.UUID)
	require.NoError(t, err)

	wantPurgeAt := env.now.Add(24 * time.Hour)
	require.NotNil(t, trashed.DeletedAt)
	assert.Equal(t, wantPurgeAt, *trashed.DeletedAt)

	// объект еще на месте, удалено только из выборок
	assert.True(t, env.objects.objects[file.StorageKey])

	job, ok := env.scheduler.jobs[domain.DeleteJobID(file.UUID)]
	require.True(t, ok)
	assert.Equal(t, wantPurgeAt, job.FireAt)
	assert.Equal(t, file.StorageKey, job.StorageKey)

	// файл в корзине не учитывается в размере папки
	assert.Equal(t, int64(0), env.store.dirs[root.ID].SizeBytes)
}

func TestTrashIsIdempotent(t *testing.T) {
	env := newTrashTestEnv()
	ctx := context.Background()
	root := env.store.addDir("alice", nil, "Root")
	file := env.store.addFile("alice", root.ID, "data", 100)

	first, err := env.svc.Trash(ctx, "alice", file.UUID)
	require.NoError(t, err)

	// повторный вызов позже не сдвигает срок удаления
	env.now = env.now.Add(6 * time.Hour)
	second, err := env.svc.Trash(ctx, "alice", file.UUID)
	require.NoError(t, err)

	assert.Equal(t, *first.DeletedAt, *second.DeletedAt)
	assert.Len(t, env.scheduler.jobs, 1)
}

func TestRestoreCancelsScheduledDelete(t *testing.T) {
	env := newTrashTestEnv()
	ctx := context.Background()
	root := env.store.addDir("alice", nil, "Root")
	file := env.store.addFile("alice", root.ID, "data", 100)

	_, err := env.svc.Trash(ctx, "alice", file.UUID)
	require.NoError(t, err)
	require.Equal(t, int64(0), env.store.dirs[root.ID].SizeBytes)

	restored, err := env.svc.Restore(ctx, "alice", file.UUID)
	require.NoError(t, err)
	assert.Nil(t, restored.DeletedAt)

	job := env.scheduler.jobs[domain.DeleteJobID(file.UUID)]
	assert.Equal(t, domain.JobStatusCancelled, job.Status)

	// размер вернулся
	assert.Equal(t, int64(100), env.store.dirs[root.ID].SizeBytes)
}

func TestRestoreIsIdempotent(t *testing.T) {
	env := newTrashTestEnv()
	ctx := context.Background()
	root := env.store.addDir("alice", nil, "Root")
	file := env.store.addFile("alice", root.ID, "data", 100)

	restored, err := env.svc.Restore(ctx, "alice", file.UUID)
	require.NoError(t, err)
	assert.Nil(t, restored.DeletedAt)
	assert.Empty(t, env.scheduler.jobs)
}

func TestRestoreConflictsWithNewFileOfSameName(t *testing.T) {
	env := newTrashTestEnv()
	ctx := context.Background()
	root := env.store.addDir("alice", nil, "Root")
	file := env.store.addFile("alice", root.ID, "data", 100)

	_, err := env.svc.Trash(ctx, "alice", file.UUID)
	require.NoError(t, err)

	// на освободившееся имя встал новый файл
	env.store.addFile("alice", root.ID, "data", 50)

	_, err = env.svc.Restore(ctx, "alice", file.UUID)
	require.Error(t, err)
	assert.Equal(t, domain.KindConflict, domain.KindOf(err))

	// файл остался в корзине
	assert.NotNil(t, env.store.files[file.UUID].DeletedAt)
}

func TestExecutePurgeDeletesFile(t *testing.T) {
	env := newTrashTestEnv()
	ctx := context.Background()
	root := env.store.addDir("alice", nil, "Root")
	file := env.store.addFile("alice", root.ID, "data", 100)
	env.objects.objects[file.StorageKey] = true

	_, err := env.svc.Trash(ctx, "alice", file.UUID)
	require.NoError(t, err)

	job := env.scheduler.jobs[domain.DeleteJobID(file.UUID)]
	require.NoError(t, env.svc.ExecutePurge(ctx, job))

	assert.NotContains(t, env.store.files, file.UUID)
	assert.Contains(t, env.objects.deleted, file.StorageKey)
	assert.NotEmpty(t, env.gateway.invalidated)
}

func TestExecutePurgeSkipsRestoredFile(t *testing.T) {
	env := newTrashTestEnv()
	ctx := context.Background()
	root := env.store.addDir("alice", nil, "Root")
	file := env.store.addFile("alice", root.ID, "data", 100)
	env.objects.objects[file.StorageKey] = true

	_, err := env.svc.Trash(ctx, "alice", file.UUID)
	require.NoError(t, err)
	job := env.scheduler.jobs[domain.DeleteJobID(file.UUID)]

	// восстановление случилось после того, как воркер забрал задание
	job.Status = domain.JobStatusRunning
	_, err = env.svc.Restore(ctx, "alice", file.UUID)
	require.NoError(t, err)

	require.NoError(t, env.svc.ExecutePurge(ctx, job))

	// файл и объект целы
	assert.Contains(t, env.store.files, file.UUID)
	assert.True(t, env.objects.objects[file.StorageKey])
	assert.Empty(t, env.objects.deleted)
}

func TestExecutePurgeMissingFileIsNoop(t *testing.T) {
	env := newTrashTestEnv()
	ctx := context.Background()
	root := env.store.addDir("alice", nil, "Root")
	file := env.store.addFile("alice", root.ID, "data", 100)

	_, err := env.svc.Trash(ctx, "alice", file.UUID)
	require.NoError(t, err)
	job := env.scheduler.jobs[domain.DeleteJobID(file.UUID)]

	delete(env.store.files, file.UUID)

	require.NoError(t, env.svc.ExecutePurge(ctx, job))
	assert.Empty(t, env.objects.deleted)
}

func TestEmptyTrashPurgesEverything(t *testing.T) {
	env := newTrashTestEnv()
	ctx := context.Background()
	root := env.store.addDir("alice", nil, "Root")
	f1 := env.store.addFile("alice", root.ID, "a", 100)
	f2 := env.store.addFile("alice", root.ID, "b", 200)
	kept := env.store.addFile("alice", root.ID, "kept", 300)
	env.objects.objects[f1.StorageKey] = true
	env.objects.objects[f2.StorageKey] = true

	_, err := env.svc.Trash(ctx, "alice", f1.UUID)
	require.NoError(t, err)
	_, err = env.svc.Trash(ctx, "alice", f2.UUID)
	require.NoError(t, err)

	purged, err := env.svc.EmptyTrash(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 2, purged)

	assert.NotContains(t, env.store.files, f1.UUID)
	assert.NotContains(t, env.store.files, f2.UUID)
	assert.Contains(t, env.store.files, kept.UUID)
	assert.ElementsMatch(t, []string{f1.StorageKey, f2.StorageKey}, env.objects.deleted)
}

func TestSweepExpiredReschedulesOverdueFiles(t *testing.T) {
	env := newTrashTestEnv()
	ctx := context.Background()
	root := env.store.addDir("alice", nil, "Root")
	file := env.store.addFile("alice", root.ID, "data", 100)

	_, err := env.svc.Trash(ctx, "alice", file.UUID)
	require.NoError(t, err)

	// имитируем потерю задания
	delete(env.scheduler.jobs, domain.DeleteJobID(file.UUID))

	// до истечения срока обход ничего не ставит
	require.NoError(t, env.svc.SweepExpired(ctx))
	assert.Empty(t, env.scheduler.jobs)

	env.now = env.now.Add(25 * time.Hour)
	require.NoError(t, env.svc.SweepExpired(ctx))

	job, ok := env.scheduler.jobs[domain.DeleteJobID(file.UUID)]
	require.True(t, ok)
	assert.Equal(t, domain.JobStatusPending, job.Status)
}

// Чужой файл неотличим от несуществующего
func TestForeignFileReportedAsNotFound(t *testing.T) {
	env := newTrashTestEnv()
	ctx := context.Background()
	root := env.store.addDir("alice", nil, "Root")
	file := env.store.addFile("alice", root.ID, "data", 100)

	_, err := env.svc.Trash(ctx, "bob", file.UUID)
	assert.Equal(t, domain.KindNotFound, domain.KindOf(err))

	_, err = env.svc.Restore(ctx, "bob", file.UUID)
	assert.Equal(t, domain.KindNotFound, domain.KindOf(err))
}
