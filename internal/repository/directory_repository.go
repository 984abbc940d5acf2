package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"nimbusdrive/internal/domain"
)

type DirectoryRepository struct {
	db *sqlx.DB
}

func NewDirectoryRepository(db *sqlx.DB) *DirectoryRepository {
	return &DirectoryRepository{db: db}
}

func (r *DirectoryRepository) Create(ctx context.Context, dir *domain.Directory) error {
	query := `
        INSERT INTO directories (name, owner_id, parent_id)
        VALUES ($1, $2, $3)
        RETURNING id, size_bytes, created_at, updated_at`

	err := r.db.QueryRowContext(
		ctx,
		query,
		dir.Name,
		dir.OwnerID,
		dir.ParentID,
	).Scan(&dir.ID, &dir.SizeBytes, &dir.CreatedAt, &dir.UpdatedAt)

	if err != nil {
		if isUniqueViolation(err) {
			return domain.NewError(domain.KindConflict, "directory with this name already exists in this location")
		}
		return fmt.Errorf("failed to create directory: %w", err)
	}

	return nil
}

func (r *DirectoryRepository) GetByID(ctx context.Context, id int64) (*domain.Directory, error) {
	var dir domain.Directory
	query := `
        SELECT id, name, owner_id, parent_id, size_bytes, created_at, updated_at, deleted_at
        FROM directories
        WHERE id = $1 AND deleted_at IS NULL`

	err := r.db.GetContext(ctx, &dir, query, id)
	if err != nil {
		if isNoRows(err) {
			return nil, domain.NewError(domain.KindNotFound, "directory not found")
		}
		return nil, fmt.Errorf("failed to get directory: %w", err)
	}

	return &dir, nil
}

// GetAnyByID находит папку независимо от пометки об удалении. Нужен пути
// удаления: прерванный каскад можно безопасно перезапустить по тому же id.
func (r *DirectoryRepository) GetAnyByID(ctx context.Context, id int64) (*domain.Directory, error) {
	var dir domain.Directory
	query := `
        SELECT id, name, owner_id, parent_id, size_bytes, created_at, updated_at, deleted_at
        FROM directories
        WHERE id = $1`

	err := r.db.GetContext(ctx, &dir, query, id)
	if err != nil {
		if isNoRows(err) {
			return nil, domain.NewError(domain.KindNotFound, "directory not found")
		}
		return nil, fmt.Errorf("failed to get directory: %w", err)
	}

	return &dir, nil
}

func (r *DirectoryRepository) GetRoot(ctx context.Context, ownerID string) (*domain.Directory, error) {
	var dir domain.Directory
	query := `
        SELECT id, name, owner_id, parent_id, size_bytes, created_at, updated_at, deleted_at
        FROM directories
        WHERE owner_id = $1 AND parent_id IS NULL
        LIMIT 1`

	err := r.db.GetContext(ctx, &dir, query, ownerID)
	if err != nil {
		if isNoRows(err) {
			return nil, domain.NewError(domain.KindNotFound, "root directory not found")
		}
		return nil, fmt.Errorf("failed to get root directory: %w", err)
	}

	return &dir, nil
}

func (r *DirectoryRepository) UpdateName(ctx context.Context, id int64, newName string) error {
	query := `
        UPDATE directories
        SET name = $1, updated_at = CURRENT_TIMESTAMP
        WHERE id = $2 AND deleted_at IS NULL`

	result, err := r.db.ExecContext(ctx, query, newName, id)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.NewError(domain.KindConflict, "directory with this name already exists in this location")
		}
		return fmt.Errorf("failed to rename directory: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return domain.NewError(domain.KindNotFound, "directory not found")
	}

	return nil
}

func (r *DirectoryRepository) UpdateParent(ctx context.Context, id int64, newParentID int64) error {
	query := `
        UPDATE directories
        SET parent_id = $1, updated_at = CURRENT_TIMESTAMP
        WHERE id = $2 AND deleted_at IS NULL`

	result, err := r.db.ExecContext(ctx, query, newParentID, id)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.NewError(domain.KindConflict, "directory with this name already exists in target directory")
		}
		return fmt.Errorf("failed to move directory: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return domain.NewError(domain.KindNotFound, "directory not found")
	}

	return nil
}

// ListChildren возвращает видимые подпапки вместе с агрегированной статистикой.
func (r *DirectoryRepository) ListChildren(ctx context.Context, id int64) ([]domain.DirectoryChild, error) {
	var children []domain.DirectoryChild
	query := `
        SELECT
            d.id, d.name, d.owner_id, d.parent_id, d.size_bytes,
            d.created_at, d.updated_at, d.deleted_at,
            (SELECT COUNT(*) FROM files f
             WHERE f.directory_id = d.id AND f.deleted_at IS NULL) AS files_count,
            (SELECT COUNT(*) FROM directories c
             WHERE c.parent_id = d.id AND c.deleted_at IS NULL) AS subfolders_count
        FROM directories d
        WHERE d.parent_id = $1 AND d.deleted_at IS NULL
        ORDER BY d.name`

	err := r.db.SelectContext(ctx, &children, query, id)
	if err != nil {
		return nil, fmt.Errorf("failed to list subdirectories: %w", err)
	}

	return children, nil
}

// GetBreadcrumbs восстанавливает путь от корня до папки одним рекурсивным
// запросом по parent_id, без последовательных обращений на каждый уровень.
func (r *DirectoryRepository) GetBreadcrumbs(ctx context.Context, id int64) ([]domain.Breadcrumb, error) {
	var crumbs []domain.Breadcrumb
	query := `
        WITH RECURSIVE chain AS (
            SELECT id, name, parent_id, 0 AS depth
            FROM directories
            WHERE id = $1

            UNION ALL

            SELECT d.id, d.name, d.parent_id, c.depth + 1
            FROM directories d
            INNER JOIN chain c ON d.id = c.parent_id
        )
        SELECT id, name FROM chain ORDER BY depth DESC`

	err := r.db.SelectContext(ctx, &crumbs, query, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get breadcrumbs: %w", err)
	}

	return crumbs, nil
}

// RecomputeSize пересчитывает размер папки из её непосредственных детей:
// сумма видимых файлов плюс уже корректные агрегаты подпапок. Возвращает
// parent_id для продолжения прохода вверх (nil на корне).
func (r *DirectoryRepository) RecomputeSize(ctx context.Context, id int64) (*int64, error) {
	query := `
        UPDATE directories d
        SET size_bytes =
                COALESCE((SELECT SUM(f.size_bytes) FROM files f
                          WHERE f.directory_id = d.id AND f.deleted_at IS NULL
                            AND NOT f.is_uploading), 0)
              + COALESCE((SELECT SUM(c.size_bytes) FROM directories c
                          WHERE c.parent_id = d.id AND c.deleted_at IS NULL), 0),
            updated_at = CURRENT_TIMESTAMP
        WHERE d.id = $1
        RETURNING d.parent_id`

	var parentID *int64
	err := r.db.QueryRowContext(ctx, query, id).Scan(&parentID)
	if err != nil {
		if isNoRows(err) {
			// Папка уже удалена каскадом; подниматься выше не от чего
			return nil, nil
		}
		return nil, fmt.Errorf("failed to recompute directory size: %w", err)
	}

	return parentID, nil
}

// MarkSubtreeDeleted помечает поддерево и его файлы удаленными одним проходом.
// Каскадное удаление сперва прячет поддерево из всех выборок, поэтому
// прерванное удаление не оставляет видимых полупустых папок.
func (r *DirectoryRepository) MarkSubtreeDeleted(ctx context.Context, id int64) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
        WITH RECURSIVE subtree AS (
            SELECT id FROM directories WHERE id = $1
            UNION ALL
            SELECT d.id FROM directories d
            INNER JOIN subtree s ON d.parent_id = s.id
        )
        UPDATE directories
        SET deleted_at = CURRENT_TIMESTAMP
        WHERE id IN (SELECT id FROM subtree) AND deleted_at IS NULL`, id)
	if err != nil {
		return fmt.Errorf("failed to mark subtree deleted: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
        WITH RECURSIVE subtree AS (
            SELECT id FROM directories WHERE id = $1
            UNION ALL
            SELECT d.id FROM directories d
            INNER JOIN subtree s ON d.parent_id = s.id
        )
        UPDATE files
        SET deleted_at = CURRENT_TIMESTAMP
        WHERE directory_id IN (SELECT id FROM subtree) AND deleted_at IS NULL`, id)
	if err != nil {
		return fmt.Errorf("failed to mark subtree files deleted: %w", err)
	}

	return tx.Commit()
}

// CollectSubtreeFiles собирает uuid и ключи хранилища всех файлов поддерева,
// включая уже лежащие в корзине.
func (r *DirectoryRepository) CollectSubtreeFiles(ctx context.Context, id int64) ([]domain.File, error) {
	var files []domain.File
	query := `
        WITH RECURSIVE subtree AS (
            SELECT id FROM directories WHERE id = $1
            UNION ALL
            SELECT d.id FROM directories d
            INNER JOIN subtree s ON d.parent_id = s.id
        )
        SELECT f.uuid, f.name, f.extension, f.size_bytes, f.directory_id,
               f.owner_id, f.storage_key, f.is_uploading,
               f.created_at, f.updated_at, f.deleted_at
        FROM files f
        WHERE f.directory_id IN (SELECT id FROM subtree)`

	err := r.db.SelectContext(ctx, &files, query, id)
	if err != nil {
		return nil, fmt.Errorf("failed to collect subtree files: %w", err)
	}

	return files, nil
}

// DeleteSubtree удаляет строки поддерева: сперва файлы, затем папки.
// Повторный вызов на уже вычищенном поддереве безопасен.
func (r *DirectoryRepository) DeleteSubtree(ctx context.Context, id int64) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
        WITH RECURSIVE subtree AS (
            SELECT id FROM directories WHERE id = $1
            UNION ALL
            SELECT d.id FROM directories d
            INNER JOIN subtree s ON d.parent_id = s.id
        )
        DELETE FROM files WHERE directory_id IN (SELECT id FROM subtree)`, id)
	if err != nil {
		return fmt.Errorf("failed to delete subtree files: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
        WITH RECURSIVE subtree AS (
            SELECT id FROM directories WHERE id = $1
            UNION ALL
            SELECT d.id FROM directories d
            INNER JOIN subtree s ON d.parent_id = s.id
        )
        DELETE FROM directories WHERE id IN (SELECT id FROM subtree)`, id)
	if err != nil {
		return fmt.Errorf("failed to delete subtree: %w", err)
	}

	return tx.Commit()
}
