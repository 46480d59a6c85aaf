package usecase

import (
	"context"
	"io"

	"github.com/DRSN-tech/catalog-backend/internal/domain"
)

// UploadInfra сохраняет загруженный файл в каталог статики.
type UploadInfra interface {
	Save(ctx context.Context, image *ProductImage) (*SavedImage, error)
}

// ImagesInfra зеркалирует сохранённые изображения во внешнее хранилище в фоне.
type ImagesInfra interface {
	MirrorImage(image *SavedImage)
	DropImage(objectKey string)
}

// EventPublisher в фоне публикует изменения каталога одной пачкой.
// Ошибки доставки остаются на стороне публикатора.
type EventPublisher interface {
	Publish(events ...*domain.ProductEvent)
}

// SheetParser разбирает книгу Excel в строки для импорта.
type SheetParser interface {
	ParseProducts(r io.Reader) ([]CreateProductReq, error)
}
