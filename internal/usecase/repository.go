package usecase

import (
	"context"
	"time"

	"github.com/DRSN-tech/digital-vault/internal/domain"
)

// ProductRepository — хранилище записей товаров.
// FindByID, Update и Delete возвращают e.ErrProductNotFound, если записи нет;
// Insert и Update возвращают e.ErrCategoryNotFound при ссылке на несуществующую категорию.
type ProductRepository interface {
	Insert(ctx context.Context, product *domain.Product) (*domain.Product, error)
	FindByID(ctx context.Context, id string) (*domain.Product, error)
	FindByOwner(ctx context.Context, userID string) ([]domain.Product, error)
	FindAll(ctx context.Context) ([]domain.Product, error)
	Update(ctx context.Context, id string, patch *domain.ProductPatch) (*domain.Product, error)
	Delete(ctx context.Context, id string) error
	ObjectRefs(ctx context.Context) (*domain.ObjectRefs, error)
}

// ObjectRepository — клиент объектного хранилища.
// Put возвращает адрес объекта: публичный URL для публичных объектов и ключ для приватных.
// Delete идемпотентен: удаление отсутствующего ключа не ошибка.
type ObjectRepository interface {
	Put(ctx context.Context, object *domain.StoredObject) (string, error)
	Delete(ctx context.Context, key string) error
	List(ctx context.Context, prefix string) ([]domain.ObjectInfo, error)
}

type CacheRepository interface {
	GetProduct(ctx context.Context, id string) (*domain.Product, error)
	SetProduct(ctx context.Context, product *domain.Product) error
	DeleteProduct(ctx context.Context, id string) error
}

type OutboxRepository interface {
	Create(ctx context.Context, event *OutboxEvent) (*OutboxEvent, error)
	GetAndMarkAsProcessing(ctx context.Context, limit int) ([]*OutboxEvent, error)
	MarkAsProcessed(ctx context.Context, id int64) error
	MarkAsPending(ctx context.Context, id int64) error
	// RequeueStale возвращает в очередь события, застрявшие в обработке дольше olderThan.
	RequeueStale(ctx context.Context, olderThan time.Duration) (int64, error)
}

// TxManager выполняет fn в одной транзакции БД.
type TxManager interface {
	Do(ctx context.Context, fn func(ctx context.Context) error) error
}

// CategoryRepository — справочник категорий. Управление категориями вне этого сервиса.
type CategoryRepository interface {
	List(ctx context.Context) ([]domain.Category, error)
}
