package usecase

import (
	"context"
	"time"

	"github.com/DRSN-tech/digital-vault/internal/domain"
)

// ObjectsInfra управляет загрузкой и удалением наборов объектов товара.
type ObjectsInfra interface {
	// UploadObjects загружает объекты параллельно. Результат в порядке запроса.
	// При ошибке уже загруженные объекты удаляются в фоне, ошибка возвращается.
	UploadObjects(ctx context.Context, req *UploadObjectsReq) (*UploadObjectsRes, error)
	// DeleteObjects удаляет объекты по принципу best-effort и возвращает ключи, которые удалить не удалось.
	DeleteObjects(ctx context.Context, keys []string) []string
	// CleanupObjects запускает фоновое удаление с повторами.
	CleanupObjects(keys []string)
	// KeyFromURL восстанавливает ключ объекта по его публичному адресу.
	KeyFromURL(url string) (string, error)
	// Namespaces возвращает пространства ключей превью и файлов товара.
	Namespaces() (previews string, assets string)
}

type MessageProducer interface {
	WriteRawMessage(ctx context.Context, req *WriteRawMessageReq) error
}

// EventEncoder сериализует событие об изменении товара для outbox.
type EventEncoder interface {
	Encode(eventID string, eventType OutboxEventType, product *domain.Product, occurredAt time.Time) ([]byte, error)
}
