package service

import (
	"context"
	"fmt"
)

// AggregationService поддерживает агрегированные размеры папок.
// Размер папки = сумма видимых файлов в ней + сохраненные размеры
// видимых подпапок, поэтому пересчет одного уровня читает только
// прямых детей, а изменение поднимается к корню за O(глубина).
type AggregationService struct {
	dirs DirectoryStore
}

func NewAggregationService(dirs DirectoryStore) *AggregationService {
	return &AggregationService{dirs: dirs}
}

// Propagate пересчитывает размер папки и всех её предков до корня.
// Вызывается из самой нижней затронутой точки после любого изменения
// содержимого: загрузки, перемещения, корзины, восстановления, удаления.
func (s *AggregationService) Propagate(ctx context.Context, directoryID int64) error {
	current := &directoryID
	for current != nil {
		parentID, err := s.dirs.RecomputeSize(ctx, *current)
		if err != nil {
			return fmt.Errorf("failed to recompute size of directory %d: %w", *current, err)
		}
		current = parentID
	}

	return nil
}
