package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ProductStatus — статус модерации товара
type ProductStatus string

const (
	StatusPending  ProductStatus = "PENDING"
	StatusApproved ProductStatus = "APPROVED"
	StatusRejected ProductStatus = "REJECTED"
)

func (s ProductStatus) IsValid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusRejected:
		return true
	default:
		return false
	}
}

// Product описывает цифровой товар: запись в БД плюс набор объектов в хранилище.
type Product struct {
	ID          string
	Title       string
	Description string
	Price       decimal.Decimal // Точная десятичная цена, в БД хранится как NUMERIC
	Status      ProductStatus
	CategoryID  string
	UserID      string   // Владелец, задаётся один раз при создании
	PreviewURLs []string // Публичные адреса превью в порядке загрузки
	AssetKey    string   // Ключ приватного файла товара, не публичный адрес
	CreatedAt   time.Time
	UpdatedAt   *time.Time
}

func NewProduct(
	id string,
	title string,
	description string,
	price decimal.Decimal,
	status ProductStatus,
	categoryID string,
	userID string,
	previewURLs []string,
	assetKey string,
) *Product {
	if status == "" {
		status = StatusPending
	}
	if previewURLs == nil {
		previewURLs = []string{}
	}

	return &Product{
		ID:          id,
		Title:       title,
		Description: description,
		Price:       price,
		Status:      status,
		CategoryID:  categoryID,
		UserID:      userID,
		PreviewURLs: previewURLs,
		AssetKey:    assetKey,
	}
}

// ProductPatch — частичное обновление товара. nil означает «поле не меняется».
// Владелец и идентификатор товара патчем не меняются.
type ProductPatch struct {
	Title       *string
	Description *string
	Price       *decimal.Decimal
	Status      *ProductStatus
	CategoryID  *string
	PreviewURLs *[]string
	AssetKey    *string
}

// IsEmpty сообщает, что патч ничего не меняет.
func (p *ProductPatch) IsEmpty() bool {
	return p.Title == nil &&
		p.Description == nil &&
		p.Price == nil &&
		p.Status == nil &&
		p.CategoryID == nil &&
		p.PreviewURLs == nil &&
		p.AssetKey == nil
}
