package usecase

import (
	"context"

	"github.com/DRSN-tech/catalog-backend/internal/domain"
)

// ProductRepository — хранилище всей коллекции товаров целиком.
// ReadAll возвращает пустой срез без ошибки, если хранилище отсутствует или пусто,
// и ошибку, оборачивающую e.ErrCorruptStore, если содержимое не читается.
type ProductRepository interface {
	ReadAll(ctx context.Context) ([]domain.Product, error)
	WriteAll(ctx context.Context, products []domain.Product) error
}

// CacheRepository кэширует список товаров. ok == false означает промах.
type CacheRepository interface {
	GetProducts(ctx context.Context) (products []domain.Product, ok bool, err error)
	SetProducts(ctx context.Context, products []domain.Product) error
	DeleteProducts(ctx context.Context) error
}
