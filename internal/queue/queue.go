package queue

import (
	"context"
	"time"

	"nimbusdrive/internal/domain"
)

// JobStore — слой хранения отложенных заданий на удаление
type JobStore interface {
	Schedule(ctx context.Context, job *domain.DeleteJob) error
	Cancel(ctx context.Context, jobID string) (bool, error)
	ClaimDue(ctx context.Context, limit int, now time.Time) ([]domain.DeleteJob, error)
	MarkDone(ctx context.Context, jobID string) error
	Requeue(ctx context.Context, jobID string, fireAt time.Time, lastError string) error
	Abandon(ctx context.Context, jobID string, lastError string) error
}

// Scheduler ставит и снимает отложенные задания
type Scheduler interface {
	ScheduleDelete(ctx context.Context, job *domain.DeleteJob) error
	CancelDelete(ctx context.Context, jobID string) (bool, error)
}

// Handler выполняет одно заявленное задание
type Handler interface {
	HandleDelete(ctx context.Context, job *domain.DeleteJob) error
}

// HandlerFunc адаптирует функцию под Handler
type HandlerFunc func(ctx context.Context, job *domain.DeleteJob) error

func (f HandlerFunc) HandleDelete(ctx context.Context, job *domain.DeleteJob) error {
	return f(ctx, job)
}
