package s3

import (
	"context"
	"time"
)

// Storage определяет интерфейс шлюза объектного хранилища.
type Storage interface {
	// PresignUpload выдает предподписанный URL для прямой загрузки объекта
	PresignUpload(ctx context.Context, key, contentType string, ttl time.Duration) (string, error)
	// Exists проверяет наличие объекта
	Exists(ctx context.Context, key string) (bool, error)
	// DeleteObject удаляет объект; отсутствие объекта считается успехом
	DeleteObject(ctx context.Context, key string) error
}
