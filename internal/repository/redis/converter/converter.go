package converter

import (
	"fmt"

	"github.com/DRSN-tech/digital-vault/internal/domain"
	"github.com/shopspring/decimal"
)

// ProductConverter преобразует товар между domain и моделью кэша.
type ProductConverter struct{}

func (ProductConverter) ToRedisModel(entity *domain.Product) *ProductRedisModel {
	return &ProductRedisModel{
		ID:          entity.ID,
		Title:       entity.Title,
		Description: entity.Description,
		Price:       entity.Price.String(),
		Status:      string(entity.Status),
		CategoryID:  entity.CategoryID,
		UserID:      entity.UserID,
		PreviewURLs: entity.PreviewURLs,
		AssetKey:    entity.AssetKey,
		CreatedAt:   entity.CreatedAt,
		UpdatedAt:   entity.UpdatedAt,
	}
}

func (ProductConverter) ToEntity(model *ProductRedisModel) (*domain.Product, error) {
	price, err := decimal.NewFromString(model.Price)
	if err != nil {
		return nil, fmt.Errorf("cached product %s: invalid price %q: %w", model.ID, model.Price, err)
	}

	previews := model.PreviewURLs
	if previews == nil {
		previews = []string{}
	}

	return &domain.Product{
		ID:          model.ID,
		Title:       model.Title,
		Description: model.Description,
		Price:       price,
		Status:      domain.ProductStatus(model.Status),
		CategoryID:  model.CategoryID,
		UserID:      model.UserID,
		PreviewURLs: previews,
		AssetKey:    model.AssetKey,
		CreatedAt:   model.CreatedAt,
		UpdatedAt:   model.UpdatedAt,
	}, nil
}
