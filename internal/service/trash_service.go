package service

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"nimbusdrive/internal/domain"
)

// TrashService реализует отложенное удаление файлов. Помещение в
// корзину ставит отложенное задание; источником истины остается
// пометка deleted_at на файле, а не очередь: воркер перед физическим
// удалением перечитывает файл и молча выходит, если тот восстановлен.
type TrashService struct {
	files       FileStore
	objects     ObjectStorage
	gateway     ContentGateway
	scheduler   DeleteScheduler
	aggregation *AggregationService
	gracePeriod time.Duration
	maxAttempts int

	now func() time.Time
}

func NewTrashService(
	files FileStore,
	objects ObjectStorage,
	gateway ContentGateway,
	scheduler DeleteScheduler,
	aggregation *AggregationService,
	gracePeriod time.Duration,
) *TrashService {
	return &TrashService{
		files:       files,
		objects:     objects,
		gateway:     gateway,
		scheduler:   scheduler,
		aggregation: aggregation,
		gracePeriod: gracePeriod,
		maxAttempts: 3,
		now:         time.Now,
	}
}

func (s *TrashService) getOwned(ctx context.Context, ownerID string, fileUUID uuid.UUID) (*domain.File, error) {
	file, err := s.files.GetByUUID(ctx, fileUUID)
	if err != nil {
		return nil, err
	}
	if file.OwnerID != ownerID {
		return nil, domain.NewError(domain.KindNotFound, "file not found")
	}

	return file, nil
}

// Trash помечает файл удаленным и планирует физическое удаление после
// отсрочки. Повторный вызов для файла в корзине ничего не меняет.
func (s *TrashService) Trash(ctx context.Context, ownerID string, fileUUID uuid.UUID) (*domain.File, error) {
	file, err := s.getOwned(ctx, ownerID, fileUUID)
	if err != nil {
		return nil, err
	}
	if file.IsUploading {
		return nil, domain.NewError(domain.KindInvalidOperation, "file upload is not completed")
	}
	if file.IsTrashed() {
		return file, nil
	}

	purgeAt := s.now().Add(s.gracePeriod)
	if err := s.files.SetDeletedAt(ctx, fileUUID, &purgeAt); err != nil {
		return nil, err
	}

	job := &domain.DeleteJob{
		ID:          domain.DeleteJobID(fileUUID),
		FileUUID:    fileUUID,
		StorageKey:  file.StorageKey,
		Status:      domain.JobStatusPending,
		FireAt:      purgeAt,
		MaxAttempts: s.maxAttempts,
	}
	if err := s.scheduler.ScheduleDelete(ctx, job); err != nil {
		return nil, err
	}

	if err := s.aggregation.Propagate(ctx, file.DirectoryID); err != nil {
		return nil, err
	}

	file.DeletedAt = &purgeAt
	return file, nil
}

// Restore возвращает файл из корзины. Снятие задания из очереди —
// лишь оптимизация: даже если воркер уже забрал его, повторная
// проверка deleted_at не даст удалить восстановленный файл.
func (s *TrashService) Restore(ctx context.Context, ownerID string, fileUUID uuid.UUID) (*domain.File, error) {
	file, err := s.getOwned(ctx, ownerID, fileUUID)
	if err != nil {
		return nil, err
	}
	if !file.IsTrashed() {
		return file, nil
	}

	if err := s.files.SetDeletedAt(ctx, fileUUID, nil); err != nil {
		return nil, err
	}

	cancelled, err := s.scheduler.CancelDelete(ctx, domain.DeleteJobID(fileUUID))
	if err != nil {
		log.Printf("[Trash] Failed to cancel delete job for %s: %v", fileUUID, err)
	} else if !cancelled {
		log.Printf("[Trash] Delete job for %s already running, restore guarded by liveness check", fileUUID)
	}

	if err := s.aggregation.Propagate(ctx, file.DirectoryID); err != nil {
		return nil, err
	}

	file.DeletedAt = nil
	return file, nil
}

func (s *TrashService) List(ctx context.Context, ownerID string) ([]domain.TrashItem, error) {
	return s.files.ListTrash(ctx, ownerID)
}

// ExecutePurge физически удаляет файл по заданию из очереди.
// Отсутствующий или восстановленный файл — не ошибка.
func (s *TrashService) ExecutePurge(ctx context.Context, job *domain.DeleteJob) error {
	file, err := s.files.GetByUUID(ctx, job.FileUUID)
	if err != nil {
		if domain.IsKind(err, domain.KindNotFound) {
			log.Printf("[Trash] File %s already gone, job %s is a no-op", job.FileUUID, job.ID)
			return nil
		}
		return err
	}
	if !file.IsTrashed() {
		log.Printf("[Trash] File %s was restored, skipping purge", job.FileUUID)
		return nil
	}

	return s.purge(ctx, file)
}

func (s *TrashService) purge(ctx context.Context, file *domain.File) error {
	if err := s.objects.DeleteObject(ctx, file.StorageKey); err != nil {
		return err
	}

	if err := s.gateway.Invalidate(ctx, []string{"/" + file.StorageKey}); err != nil {
		log.Printf("[Trash] Cache invalidation failed for %s: %v", file.StorageKey, err)
	}

	if err := s.files.Delete(ctx, file.UUID); err != nil {
		return err
	}

	log.Printf("[Trash] Purged file %s (%s)", file.UUID, file.StorageKey)
	return s.aggregation.Propagate(ctx, file.DirectoryID)
}

// EmptyTrash немедленно удаляет всё содержимое корзины пользователя,
// не дожидаясь отсрочки
func (s *TrashService) EmptyTrash(ctx context.Context, ownerID string) (int, error) {
	files, err := s.files.ListTrashedByOwner(ctx, ownerID)
	if err != nil {
		return 0, err
	}

	purged := 0
	for i := range files {
		jobID := domain.DeleteJobID(files[i].UUID)
		if _, cancelErr := s.scheduler.CancelDelete(ctx, jobID); cancelErr != nil {
			log.Printf("[Trash] Failed to cancel job %s: %v", jobID, cancelErr)
		}

		if purgeErr := s.purge(ctx, &files[i]); purgeErr != nil {
			return purged, purgeErr
		}
		purged++
	}

	return purged, nil
}

// sweepSlack отделяет просроченные файлы от тех, чьи задания
// выполняются прямо сейчас
const sweepSlack = 10 * time.Minute

// SweepExpired — страховка на случай потерянных заданий: файлы, чья
// отсрочка давно истекла, ставятся в очередь заново. Запускается по
// таймеру раз в час.
func (s *TrashService) SweepExpired(ctx context.Context) error {
	files, err := s.files.ListExpiredTrashed(ctx, s.now().Add(-sweepSlack))
	if err != nil {
		return err
	}

	for i := range files {
		job := &domain.DeleteJob{
			ID:          domain.DeleteJobID(files[i].UUID),
			FileUUID:    files[i].UUID,
			StorageKey:  files[i].StorageKey,
			Status:      domain.JobStatusPending,
			FireAt:      s.now(),
			MaxAttempts: s.maxAttempts,
		}
		if schedErr := s.scheduler.ScheduleDelete(ctx, job); schedErr != nil {
			log.Printf("[Trash] Failed to reschedule purge of %s: %v", files[i].UUID, schedErr)
		}
	}

	if len(files) > 0 {
		log.Printf("[Trash] Rescheduled %d overdue purge jobs", len(files))
	}
	return nil
}
