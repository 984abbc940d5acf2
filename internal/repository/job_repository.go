package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"nimbusdrive/internal/domain"
)

type JobRepository struct {
	db *sqlx.DB
}

func NewJobRepository(db *sqlx.DB) *JobRepository {
	return &JobRepository{db: db}
}

// Schedule ставит задание либо заменяет существующее с тем же id:
// счетчик попыток и статус сбрасываются, время срабатывания перезаписывается.
func (r *JobRepository) Schedule(ctx context.Context, job *domain.DeleteJob) error {
	query := `
        INSERT INTO delete_jobs (id, file_uuid, storage_key, status, fire_at, attempts, max_attempts)
        VALUES ($1, $2, $3, 'pending', $4, 0, $5)
        ON CONFLICT (id) DO UPDATE
        SET storage_key = EXCLUDED.storage_key,
            status = 'pending',
            fire_at = EXCLUDED.fire_at,
            attempts = 0,
            max_attempts = EXCLUDED.max_attempts,
            last_error = NULL,
            updated_at = CURRENT_TIMESTAMP
        RETURNING created_at, updated_at`

	err := r.db.QueryRowContext(
		ctx,
		query,
		job.ID,
		job.FileUUID,
		job.StorageKey,
		job.FireAt,
		job.MaxAttempts,
	).Scan(&job.CreatedAt, &job.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to schedule job: %w", err)
	}

	job.Status = domain.JobStatusPending
	job.Attempts = 0
	return nil
}

// Cancel снимает задание, если оно еще не начало выполняться.
// Возвращает false, когда задание уже выполняется или завершено.
func (r *JobRepository) Cancel(ctx context.Context, jobID string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
        UPDATE delete_jobs
        SET status = 'cancelled', updated_at = CURRENT_TIMESTAMP
        WHERE id = $1 AND status = 'pending'`, jobID)
	if err != nil {
		return false, fmt.Errorf("failed to cancel job: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get affected rows: %w", err)
	}

	return rows > 0, nil
}

// ClaimDue забирает пачку созревших заданий, помечая их выполняющимися.
// SKIP LOCKED исключает выполнение одного задания двумя воркерами.
func (r *JobRepository) ClaimDue(ctx context.Context, limit int, now time.Time) ([]domain.DeleteJob, error) {
	var jobs []domain.DeleteJob
	query := `
        UPDATE delete_jobs
        SET status = 'running', attempts = attempts + 1, updated_at = CURRENT_TIMESTAMP
        WHERE id IN (
            SELECT id FROM delete_jobs
            WHERE status = 'pending' AND fire_at <= $2
            ORDER BY fire_at
            LIMIT $1
            FOR UPDATE SKIP LOCKED
        )
        RETURNING id, file_uuid, storage_key, status, fire_at, attempts,
                  max_attempts, last_error, created_at, updated_at`

	err := r.db.SelectContext(ctx, &jobs, query, limit, now)
	if err != nil {
		return nil, fmt.Errorf("failed to claim due jobs: %w", err)
	}

	return jobs, nil
}

func (r *JobRepository) MarkDone(ctx context.Context, jobID string) error {
	_, err := r.db.ExecContext(ctx, `
        UPDATE delete_jobs
        SET status = 'done', last_error = NULL, updated_at = CURRENT_TIMESTAMP
        WHERE id = $1`, jobID)
	if err != nil {
		return fmt.Errorf("failed to mark job done: %w", err)
	}

	return nil
}

// Requeue возвращает задание в очередь на повтор с заданным временем.
func (r *JobRepository) Requeue(ctx context.Context, jobID string, fireAt time.Time, lastError string) error {
	_, err := r.db.ExecContext(ctx, `
        UPDATE delete_jobs
        SET status = 'pending', fire_at = $2, last_error = $3, updated_at = CURRENT_TIMESTAMP
        WHERE id = $1`, jobID, fireAt, lastError)
	if err != nil {
		return fmt.Errorf("failed to requeue job: %w", err)
	}

	return nil
}

// Abandon переводит задание в терминальное состояние после исчерпания попыток.
func (r *JobRepository) Abandon(ctx context.Context, jobID string, lastError string) error {
	_, err := r.db.ExecContext(ctx, `
        UPDATE delete_jobs
        SET status = 'abandoned', last_error = $2, updated_at = CURRENT_TIMESTAMP
        WHERE id = $1`, jobID, lastError)
	if err != nil {
		return fmt.Errorf("failed to abandon job: %w", err)
	}

	return nil
}

func (r *JobRepository) GetByID(ctx context.Context, jobID string) (*domain.DeleteJob, error) {
	var job domain.DeleteJob
	query := `
        SELECT id, file_uuid, storage_key, status, fire_at, attempts,
               max_attempts, last_error, created_at, updated_at
        FROM delete_jobs
        WHERE id = $1`

	err := r.db.GetContext(ctx, &job, query, jobID)
	if err != nil {
		if isNoRows(err) {
			return nil, domain.NewError(domain.KindNotFound, "job not found")
		}
		return nil, fmt.Errorf("failed to get job: %w", err)
	}

	return &job, nil
}

// ListAbandoned отдает брошенные задания для ручного вмешательства.
func (r *JobRepository) ListAbandoned(ctx context.Context) ([]domain.DeleteJob, error) {
	var jobs []domain.DeleteJob
	query := `
        SELECT id, file_uuid, storage_key, status, fire_at, attempts,
               max_attempts, last_error, created_at, updated_at
        FROM delete_jobs
        WHERE status = 'abandoned'
        ORDER BY updated_at`

	err := r.db.SelectContext(ctx, &jobs, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list abandoned jobs: %w", err)
	}

	return jobs, nil
}
