package service

import (
	"context"

	"nimbusdrive/internal/domain"
)

// QuotaUsage — текущее потребление места пользователем.
// Занятое место считается по всем файлам, включая корзину.
type QuotaUsage struct {
	UsedBytes      int64 `json:"used_bytes"`
	LimitBytes     int64 `json:"limit_bytes"`
	AvailableBytes int64 `json:"available_bytes"`
}

type QuotaService struct {
	quotas       QuotaStore
	defaultLimit int64
}

func NewQuotaService(quotas QuotaStore, defaultLimit int64) *QuotaService {
	return &QuotaService{quotas: quotas, defaultLimit: defaultLimit}
}

func (s *QuotaService) Usage(ctx context.Context, ownerID string) (*QuotaUsage, error) {
	used, err := s.quotas.UsedBytes(ctx, ownerID)
	if err != nil {
		return nil, err
	}

	limit, err := s.quotas.LimitBytes(ctx, ownerID, s.defaultLimit)
	if err != nil {
		return nil, err
	}

	available := limit - used
	if available < 0 {
		available = 0
	}

	return &QuotaUsage{
		UsedBytes:      used,
		LimitBytes:     limit,
		AvailableBytes: available,
	}, nil
}

// CheckCapacity проверяет, поместится ли еще addBytes
func (s *QuotaService) CheckCapacity(ctx context.Context, ownerID string, addBytes int64) error {
	usage, err := s.Usage(ctx, ownerID)
	if err != nil {
		return err
	}

	if usage.UsedBytes+addBytes > usage.LimitBytes {
		return domain.NewError(domain.KindValidation, "storage quota exceeded")
	}

	return nil
}
