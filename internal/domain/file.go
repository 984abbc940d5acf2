package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

type File struct {
	UUID        uuid.UUID  `json:"uuid" db:"uuid"`
	Name        string     `json:"name" db:"name"`
	Extension   string     `json:"extension" db:"extension"`
	SizeBytes   int64      `json:"size_bytes" db:"size_bytes"`
	DirectoryID int64      `json:"directory_id" db:"directory_id"`
	OwnerID     string     `json:"owner_id" db:"owner_id"`
	StorageKey  string     `json:"-" db:"storage_key"`
	IsUploading bool       `json:"is_uploading" db:"is_uploading"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at" db:"updated_at"`
	DeletedAt   *time.Time `json:"deleted_at,omitempty" db:"deleted_at"`
}

// IsTrashed — файл в корзине; deleted_at хранит момент планового удаления.
func (f *File) IsTrashed() bool {
	return f.DeletedAt != nil
}

// StorageKeyFor строит ключ объекта детерминированно из владельца, uuid и расширения.
// Ключ уникален на файл и восстановим без обращения к базе.
func StorageKeyFor(ownerID string, fileUUID uuid.UUID, extension string) string {
	return fmt.Sprintf("users/%s/files/%s%s", ownerID, fileUUID, extension)
}

// TrashItem — файл в корзине вместе с исходным расположением.
// PurgeAt — момент планового физического удаления (deleted_at в базе).
type TrashItem struct {
	UUID        uuid.UUID `json:"uuid" db:"uuid"`
	Name        string    `json:"name" db:"name"`
	SizeBytes   int64     `json:"size_bytes" db:"size_bytes"`
	DirectoryID int64     `json:"directory_id" db:"directory_id"`
	Path        string    `json:"path" db:"path"`
	PurgeAt     time.Time `json:"purge_at" db:"deleted_at"`
}
