package usecase

import (
	"time"

	"github.com/DRSN-tech/digital-vault/internal/domain"
	"github.com/shopspring/decimal"
)

// PRODUCT USECASE

// ProductFile — файл, полученный через multipart/form-data.
type ProductFile struct {
	Data     []byte // содержимое файла
	MimeType string // Content-Type файла
	Size     int64  // фактический размер в байтах
	Name     string // оригинальное имя файла (для расширения и логов)
}

// Actor — пользователь, от имени которого выполняется изменение.
type Actor struct {
	UserID  string
	IsAdmin bool
}

// CreateProductReq — запрос на создание товара.
type CreateProductReq struct {
	Title       string
	Description string
	Price       decimal.Decimal
	Status      domain.ProductStatus // пустой статус означает PENDING
	CategoryID  string
	UserID      string
	Previews    []ProductFile
	Asset       *ProductFile
}

// UpdateProductReq — запрос на изменение товара. nil-поля не меняются.
// Непустой Previews полностью заменяет набор превью, Asset заменяет файл товара.
type UpdateProductReq struct {
	ID          string
	Actor       *Actor
	Title       *string
	Description *string
	Price       *decimal.Decimal
	Status      *domain.ProductStatus
	CategoryID  *string
	Previews    []ProductFile
	Asset       *ProductFile
}

type DeleteProductReq struct {
	ID    string
	Actor *Actor
}

// INFRASTUCTURE

// UploadObject — один объект для загрузки в пространство ключей Namespace.
type UploadObject struct {
	Namespace  string
	File       ProductFile
	Visibility domain.Visibility
}

type UploadObjectsReq struct {
	Objects []UploadObject
}

// UploadedObject — ключ и адрес загруженного объекта.
type UploadedObject struct {
	Key     string
	Address string
}

type UploadObjectsRes struct {
	Objects []UploadedObject
}

// Keys возвращает ключи всех загруженных объектов.
func (r *UploadObjectsRes) Keys() []string {
	keys := make([]string, 0, len(r.Objects))
	for _, obj := range r.Objects {
		keys = append(keys, obj.Key)
	}

	return keys
}

type WriteRawMessageReq struct {
	ProductID string
	EventType OutboxEventType
	Payload   []byte
}

// OUTBOX

type OutboxStatus string

const (
	Pending    OutboxStatus = "pending"
	Processing OutboxStatus = "processing"
	Processed  OutboxStatus = "processed"
)

type OutboxEventType string

const (
	ProductCreated OutboxEventType = "product.created"
	ProductUpdated OutboxEventType = "product.updated"
	ProductDeleted OutboxEventType = "product.deleted"
)

// OutboxEvent — событие об изменении товара, записываемое в одной транзакции с товаром.
type OutboxEvent struct {
	ID          int64
	EventID     string
	EventType   OutboxEventType
	ProductID   string
	Payload     []byte
	Status      OutboxStatus
	CreatedAt   time.Time
	ProcessedAt *time.Time
}

// SWEEP

// SweepRes — итог сверки хранилища с записями товаров.
type SweepRes struct {
	Scanned    int
	Referenced int
	Young      int      // неиспользуемые объекты моложе grace period
	Orphans    []string // неиспользуемые объекты старше grace period
	Deleted    []string
	Failed     []string
	DryRun     bool
}

// MAPPERS

func NewUploadObjectsReq(objects []UploadObject) *UploadObjectsReq {
	return &UploadObjectsReq{Objects: objects}
}

func NewUploadObjectsRes(objects []UploadedObject) *UploadObjectsRes {
	return &UploadObjectsRes{Objects: objects}
}

func NewProductFile(data []byte, mimeType string, size int64, name string) *ProductFile {
	return &ProductFile{
		Data:     data,
		MimeType: mimeType,
		Size:     size,
		Name:     name,
	}
}

func NewWriteRawMessageReq(productID string, eventType OutboxEventType, payload []byte) *WriteRawMessageReq {
	return &WriteRawMessageReq{
		ProductID: productID,
		EventType: eventType,
		Payload:   payload,
	}
}

func NewOutboxEvent(eventID string, eventType OutboxEventType, productID string, payload []byte, createdAt time.Time) *OutboxEvent {
	return &OutboxEvent{
		EventID:   eventID,
		EventType: eventType,
		ProductID: productID,
		Payload:   payload,
		Status:    Pending,
		CreatedAt: createdAt,
	}
}
