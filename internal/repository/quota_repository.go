package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

type QuotaRepository struct {
	db *sqlx.DB
}

func NewQuotaRepository(db *sqlx.DB) *QuotaRepository {
	return &QuotaRepository{db: db}
}

// UsedBytes считает занятое место: все файлы пользователя, включая корзину
// (объект в хранилище еще существует, пока корзина не вычищена).
func (r *QuotaRepository) UsedBytes(ctx context.Context, ownerID string) (int64, error) {
	var used int64
	query := `SELECT COALESCE(SUM(size_bytes), 0) FROM files WHERE owner_id = $1`

	err := r.db.GetContext(ctx, &used, query, ownerID)
	if err != nil {
		return 0, fmt.Errorf("failed to sum used bytes: %w", err)
	}

	return used, nil
}

// LimitBytes возвращает лимит пользователя; при отсутствии записи создает
// запись с лимитом по умолчанию.
func (r *QuotaRepository) LimitBytes(ctx context.Context, ownerID string, defaultLimit int64) (int64, error) {
	var limit int64
	query := `
        INSERT INTO storage_quotas (owner_id, limit_bytes)
        VALUES ($1, $2)
        ON CONFLICT (owner_id) DO UPDATE SET updated_at = storage_quotas.updated_at
        RETURNING limit_bytes`

	err := r.db.QueryRowContext(ctx, query, ownerID, defaultLimit).Scan(&limit)
	if err != nil {
		return 0, fmt.Errorf("failed to get quota limit: %w", err)
	}

	return limit, nil
}
