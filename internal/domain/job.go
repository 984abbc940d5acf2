package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusDone      JobStatus = "done"
	JobStatusCancelled JobStatus = "cancelled"
	JobStatusAbandoned JobStatus = "abandoned"
)

// DeleteJob — отложенное задание на физическое удаление файла.
// Идентификатор детерминированно выводится из uuid файла: повторная постановка
// заменяет существующее задание, а не дублирует его.
type DeleteJob struct {
	ID          string    `json:"id" db:"id"`
	FileUUID    uuid.UUID `json:"file_uuid" db:"file_uuid"`
	StorageKey  string    `json:"storage_key" db:"storage_key"`
	Status      JobStatus `json:"status" db:"status"`
	FireAt      time.Time `json:"fire_at" db:"fire_at"`
	Attempts    int       `json:"attempts" db:"attempts"`
	MaxAttempts int       `json:"max_attempts" db:"max_attempts"`
	LastError   *string   `json:"last_error,omitempty" db:"last_error"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// DeleteJobID строит идентификатор задания по uuid файла.
func DeleteJobID(fileUUID uuid.UUID) string {
	return fmt.Sprintf("file-delete:%s", fileUUID)
}
