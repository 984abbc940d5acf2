package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"nimbusdrive/internal/domain"
)

type ShareRepository struct {
	db *sqlx.DB
}

func NewShareRepository(db *sqlx.DB) *ShareRepository {
	return &ShareRepository{db: db}
}

func (r *ShareRepository) Create(ctx context.Context, share *domain.Share) error {
	query := `
        INSERT INTO shares (token, resource_type, resource_id, owner_id, visibility, user_ids, expires_at, is_active)
        VALUES ($1, $2, $3, $4, $5, $6, $7, TRUE)
        RETURNING created_at`

	err := r.db.QueryRowContext(
		ctx,
		query,
		share.Token,
		share.ResourceType,
		share.ResourceID,
		share.OwnerID,
		share.Visibility,
		share.UserIDs,
		share.ExpiresAt,
	).Scan(&share.CreatedAt)

	if err != nil {
		if isUniqueViolation(err) {
			return domain.NewError(domain.KindConflict, "share token collision")
		}
		return fmt.Errorf("failed to create share: %w", err)
	}

	share.IsActive = true
	return nil
}

func (r *ShareRepository) GetByToken(ctx context.Context, token string) (*domain.Share, error) {
	var share domain.Share
	query := `
        SELECT token, resource_type, resource_id, owner_id, visibility,
               user_ids, expires_at, is_active, created_at
        FROM shares
        WHERE token = $1`

	err := r.db.GetContext(ctx, &share, query, token)
	if err != nil {
		if isNoRows(err) {
			return nil, domain.NewError(domain.KindNotFound, "share not found")
		}
		return nil, fmt.Errorf("failed to get share: %w", err)
	}

	return &share, nil
}

// FindActive ищет действующую (активную и непросроченную) шару на ресурс.
func (r *ShareRepository) FindActive(ctx context.Context, resourceType domain.ResourceType, resourceID, ownerID string, now time.Time) (*domain.Share, error) {
	var share domain.Share
	query := `
        SELECT token, resource_type, resource_id, owner_id, visibility,
               user_ids, expires_at, is_active, created_at
        FROM shares
        WHERE resource_type = $1 AND resource_id = $2 AND owner_id = $3
          AND is_active = TRUE
          AND (expires_at IS NULL OR expires_at > $4)
        LIMIT 1`

	err := r.db.GetContext(ctx, &share, query, resourceType, resourceID, ownerID, now)
	if err != nil {
		if isNoRows(err) {
			return nil, domain.NewError(domain.KindNotFound, "no active share")
		}
		return nil, fmt.Errorf("failed to find active share: %w", err)
	}

	return &share, nil
}

func (r *ShareRepository) Deactivate(ctx context.Context, token string) error {
	result, err := r.db.ExecContext(ctx, `UPDATE shares SET is_active = FALSE WHERE token = $1`, token)
	if err != nil {
		return fmt.Errorf("failed to deactivate share: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return domain.NewError(domain.KindNotFound, "share not found")
	}

	return nil
}
