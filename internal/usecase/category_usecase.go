package usecase

import (
	"context"

	"github.com/DRSN-tech/digital-vault/internal/domain"
	"github.com/DRSN-tech/digital-vault/pkg/e"
)

type CategoryUseCase struct {
	categoryRepo CategoryRepository
}

func NewCategoryUC(categoryRepo CategoryRepository) *CategoryUseCase {
	return &CategoryUseCase{categoryRepo: categoryRepo}
}

func (c *CategoryUseCase) ListCategories(ctx context.Context) ([]domain.Category, error) {
	const op = "CategoryUseCase.ListCategories"

	categories, err := c.categoryRepo.List(ctx)
	if err != nil {
		return nil, e.Wrap(op, e.Mark(e.ErrPersistenceFailed, err))
	}

	return categories, nil
}
