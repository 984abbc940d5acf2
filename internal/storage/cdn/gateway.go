package cdn

import (
	"context"
	"time"
)

// Gateway определяет интерфейс шлюза подписанного доступа через CDN.
type Gateway interface {
	// SignedURL выдает подписанный URL на путь дистрибуции
	SignedURL(path string, ttl time.Duration) (string, error)
	// SignedDownloadURL — вариант с выдачей файла как вложения
	SignedDownloadURL(path, fileName string, ttl time.Duration) (string, error)
	// SignedCookies выдает подписанные куки, ограниченные префиксом пути
	SignedCookies(pathPrefix string, ttl time.Duration) (map[string]string, error)
	// Invalidate сбрасывает кеш по списку путей; вызывающий не должен
	// блокироваться на ошибке
	Invalidate(ctx context.Context, paths []string) error
}

// ShareMapping — значение, которое кладется в key-value store на границе CDN
// по токену шары.
type ShareMapping struct {
	StoragePath string    `json:"s3_path"`
	FileName    string    `json:"file_name"`
	ResourceID  string    `json:"resource_id"`
	CreatedAt   time.Time `json:"created_at"`
}

// KeyValueStore — интерфейс edge-маппинга токен шары → метаданные ресурса.
type KeyValueStore interface {
	PutShareMapping(ctx context.Context, token string, mapping ShareMapping) error
	DeleteShareMapping(ctx context.Context, token string) error
}
