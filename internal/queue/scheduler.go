package queue

import (
	"context"
	"fmt"
	"log"

	"nimbusdrive/internal/domain"
)

// JobScheduler пишет задания в таблицу очереди. Повторная постановка
// с тем же ID полностью заменяет прежнее задание.
type JobScheduler struct {
	store JobStore
}

func NewJobScheduler(store JobStore) *JobScheduler {
	return &JobScheduler{store: store}
}

func (s *JobScheduler) ScheduleDelete(ctx context.Context, job *domain.DeleteJob) error {
	if err := s.store.Schedule(ctx, job); err != nil {
		return fmt.Errorf("failed to schedule delete job %s: %w", job.ID, err)
	}

	log.Printf("[Queue] Scheduled delete job %s (fire at %s)", job.ID, job.FireAt.Format("2006-01-02 15:04:05"))
	return nil
}

// CancelDelete снимает задание, если оно еще не начало выполняться.
// Возвращает false, когда отменять уже нечего.
func (s *JobScheduler) CancelDelete(ctx context.Context, jobID string) (bool, error) {
	cancelled, err := s.store.Cancel(ctx, jobID)
	if err != nil {
		return false, fmt.Errorf("failed to cancel delete job %s: %w", jobID, err)
	}

	if cancelled {
		log.Printf("[Queue] Cancelled delete job %s", jobID)
	}
	return cancelled, nil
}
