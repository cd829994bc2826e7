package usecase

import (
	"context"
	"time"

	"github.com/DRSN-tech/digital-vault/internal/domain"
)

type ProductUC interface {
	CreateProduct(ctx context.Context, req *CreateProductReq) (*domain.Product, error)
	UpdateProduct(ctx context.Context, req *UpdateProductReq) (*domain.Product, error)
	DeleteProduct(ctx context.Context, req *DeleteProductReq) error
	GetProduct(ctx context.Context, id string) (*domain.Product, error)
	ListProducts(ctx context.Context) ([]domain.Product, error)
	ListUserProducts(ctx context.Context, userID string) ([]domain.Product, error)
}

type SweepUC interface {
	Sweep(ctx context.Context, now time.Time) (*SweepRes, error)
}

type CategoryUC interface {
	ListCategories(ctx context.Context) ([]domain.Category, error)
}
