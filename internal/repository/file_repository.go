package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"nimbusdrive/internal/domain"
)

type FileRepository struct {
	db *sqlx.DB
}

func NewFileRepository(db *sqlx.DB) *FileRepository {
	return &FileRepository{db: db}
}

func (r *FileRepository) Create(ctx context.Context, file *domain.File) error {
	query := `
        INSERT INTO files (uuid, name, extension, size_bytes, directory_id, owner_id, storage_key, is_uploading)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
        RETURNING created_at, updated_at`

	err := r.db.QueryRowContext(
		ctx,
		query,
		file.UUID,
		file.Name,
		file.Extension,
		file.SizeBytes,
		file.DirectoryID,
		file.OwnerID,
		file.StorageKey,
		file.IsUploading,
	).Scan(&file.CreatedAt, &file.UpdatedAt)

	if err != nil {
		if isUniqueViolation(err) {
			return domain.NewError(domain.KindConflict, "file with this name already exists in this directory")
		}
		return fmt.Errorf("failed to create file: %w", err)
	}

	return nil
}

func (r *FileRepository) GetByUUID(ctx context.Context, fileUUID uuid.UUID) (*domain.File, error) {
	var file domain.File
	query := `
        SELECT uuid, name, extension, size_bytes, directory_id, owner_id,
               storage_key, is_uploading, created_at, updated_at, deleted_at
        FROM files
        WHERE uuid = $1`

	err := r.db.GetContext(ctx, &file, query, fileUUID)
	if err != nil {
		if isNoRows(err) {
			return nil, domain.NewError(domain.KindNotFound, "file not found")
		}
		return nil, fmt.Errorf("failed to get file: %w", err)
	}

	return &file, nil
}

func (r *FileRepository) ListByDirectory(ctx context.Context, directoryID int64) ([]domain.File, error) {
	var files []domain.File
	query := `
        SELECT uuid, name, extension, size_bytes, directory_id, owner_id,
               storage_key, is_uploading, created_at, updated_at, deleted_at
        FROM files
        WHERE directory_id = $1 AND deleted_at IS NULL
        ORDER BY name`

	err := r.db.SelectContext(ctx, &files, query, directoryID)
	if err != nil {
		return nil, fmt.Errorf("failed to list files: %w", err)
	}

	return files, nil
}

func (r *FileRepository) UpdateName(ctx context.Context, fileUUID uuid.UUID, newName string) error {
	query := `
        UPDATE files
        SET name = $1, updated_at = CURRENT_TIMESTAMP
        WHERE uuid = $2`

	_, err := r.db.ExecContext(ctx, query, newName, fileUUID)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.NewError(domain.KindConflict, "file with this name already exists in this directory")
		}
		return fmt.Errorf("failed to rename file: %w", err)
	}

	return nil
}

func (r *FileRepository) UpdateDirectory(ctx context.Context, fileUUID uuid.UUID, directoryID int64) error {
	query := `
        UPDATE files
        SET directory_id = $1, updated_at = CURRENT_TIMESTAMP
        WHERE uuid = $2`

	_, err := r.db.ExecContext(ctx, query, directoryID, fileUUID)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.NewError(domain.KindConflict, "file with this name already exists in target directory")
		}
		return fmt.Errorf("failed to move file: %w", err)
	}

	return nil
}

// MarkUploaded снимает флаг загрузки после подтверждения объекта в хранилище.
func (r *FileRepository) MarkUploaded(ctx context.Context, fileUUID uuid.UUID) error {
	query := `
        UPDATE files
        SET is_uploading = FALSE, updated_at = CURRENT_TIMESTAMP
        WHERE uuid = $1`

	_, err := r.db.ExecContext(ctx, query, fileUUID)
	if err != nil {
		return fmt.Errorf("failed to mark file uploaded: %w", err)
	}

	return nil
}

// SetDeletedAt выставляет или снимает пометку корзины.
func (r *FileRepository) SetDeletedAt(ctx context.Context, fileUUID uuid.UUID, deletedAt *time.Time) error {
	query := `
        UPDATE files
        SET deleted_at = $1, updated_at = CURRENT_TIMESTAMP
        WHERE uuid = $2`

	_, err := r.db.ExecContext(ctx, query, deletedAt, fileUUID)
	if err != nil {
		if isUniqueViolation(err) {
			// Восстановление невозможно: место занято видимым соседом с тем же именем
			return domain.NewError(domain.KindConflict, "file with this name already exists in this directory")
		}
		return fmt.Errorf("failed to update file trash marker: %w", err)
	}

	return nil
}

func (r *FileRepository) Delete(ctx context.Context, fileUUID uuid.UUID) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM files WHERE uuid = $1`, fileUUID)
	if err != nil {
		return fmt.Errorf("failed to delete file: %w", err)
	}

	return nil
}

// ListTrash возвращает файлы в корзине вместе с исходным путем,
// восстановленным рекурсивным проходом по parent_id.
func (r *FileRepository) ListTrash(ctx context.Context, ownerID string) ([]domain.TrashItem, error) {
	var items []domain.TrashItem
	query := `
        WITH RECURSIVE dir_paths AS (
            SELECT id, parent_id, '/' || name AS path
            FROM directories
            WHERE parent_id IS NULL

            UNION ALL

            SELECT d.id, d.parent_id, p.path || '/' || d.name
            FROM directories d
            INNER JOIN dir_paths p ON d.parent_id = p.id
        )
        SELECT f.uuid, f.name, f.size_bytes, f.directory_id, f.deleted_at,
               COALESCE(p.path, '/') AS path
        FROM files f
        LEFT JOIN dir_paths p ON p.id = f.directory_id
        WHERE f.owner_id = $1 AND f.deleted_at IS NOT NULL
        ORDER BY f.deleted_at DESC`

	err := r.db.SelectContext(ctx, &items, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list trash: %w", err)
	}

	return items, nil
}

// ListExpiredTrashed находит файлы, чей срок в корзине уже истек.
// Страховочная выборка для часовой зачистки; основной механизм — очередь.
func (r *FileRepository) ListExpiredTrashed(ctx context.Context, now time.Time) ([]domain.File, error) {
	var files []domain.File
	query := `
        SELECT uuid, name, extension, size_bytes, directory_id, owner_id,
               storage_key, is_uploading, created_at, updated_at, deleted_at
        FROM files
        WHERE deleted_at IS NOT NULL AND deleted_at <= $1`

	err := r.db.SelectContext(ctx, &files, query, now)
	if err != nil {
		return nil, fmt.Errorf("failed to list expired trashed files: %w", err)
	}

	return files, nil
}

func (r *FileRepository) ListTrashedByOwner(ctx context.Context, ownerID string) ([]domain.File, error) {
	var files []domain.File
	query := `
        SELECT uuid, name, extension, size_bytes, directory_id, owner_id,
               storage_key, is_uploading, created_at, updated_at, deleted_at
        FROM files
        WHERE owner_id = $1 AND deleted_at IS NOT NULL`

	err := r.db.SelectContext(ctx, &files, query, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list trashed files: %w", err)
	}

	return files, nil
}
