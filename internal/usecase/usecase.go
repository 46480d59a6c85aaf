package usecase

import (
	"context"

	"github.com/DRSN-tech/catalog-backend/internal/domain"
)

type ProductUC interface {
	ListProducts(ctx context.Context, req *ListProductsReq) ([]domain.Product, error)
	CreateProduct(ctx context.Context, req *CreateProductReq) (*domain.Product, error)
	DeleteProduct(ctx context.Context, req *DeleteProductReq) (*domain.Product, error)
	ImportProducts(ctx context.Context, req *ImportProductsReq) ([]domain.Product, error)
}
