package usecase

import (
	"context"
	"errors"
	"math"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/DRSN-tech/catalog-backend/internal/cfg"
	"github.com/DRSN-tech/catalog-backend/internal/domain"
	"github.com/DRSN-tech/catalog-backend/pkg/e"
	"github.com/DRSN-tech/catalog-backend/pkg/logger"
	"github.com/google/uuid"
)

// ProductUseCase реализует операции каталога поверх хранилища всей коллекции:
// каждая мутация читает коллекцию целиком, меняет её в памяти и перезаписывает.
// Блокировок нет, при параллельных записях побеждает последняя.
type ProductUseCase struct {
	productRepo ProductRepository
	cacheRepo   CacheRepository // может быть nil
	uploads     UploadInfra
	imagesInfra ImagesInfra    // может быть nil
	publisher   EventPublisher // может быть nil
	sheetParser SheetParser
	cfg         *cfg.CatalogCfg
	logger      logger.Logger

	now        func() time.Time
	newEventID func() string
	bg         sync.WaitGroup

	// generation растёт при каждой мутации; заполнение кэша, прочитавшее коллекцию
	// до мутации, не должно оставить в кэше старый список
	generation atomic.Uint64
}

func NewProductUC(
	productRepo ProductRepository,
	cacheRepo CacheRepository,
	uploads UploadInfra,
	imagesInfra ImagesInfra,
	publisher EventPublisher,
	sheetParser SheetParser,
	cfg *cfg.CatalogCfg,
	logger logger.Logger,
) *ProductUseCase {
	return &ProductUseCase{
		productRepo: productRepo,
		cacheRepo:   cacheRepo,
		uploads:     uploads,
		imagesInfra: imagesInfra,
		publisher:   publisher,
		sheetParser: sheetParser,
		cfg:         cfg,
		logger:      logger,
		now:         time.Now,
		newEventID:  uuid.NewString,
	}
}

// ListProducts возвращает коллекцию, отфильтрованную по req.
// Проблемы чтения хранилища не возвращаются: вызывающий получает пустой список.
func (p *ProductUseCase) ListProducts(ctx context.Context, req *ListProductsReq) ([]domain.Product, error) {
	const op = "ProductUseCase.ListProducts"

	filter, err := newProductFilter(req)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	products, cached := p.cachedProducts(ctx)
	if !cached {
		gen := p.generation.Load()
		var readOK bool
		products, readOK = p.readProducts(ctx)
		if readOK {
			p.refillCache(products, gen)
		}
	}

	return filter.apply(products), nil
}

// CreateProduct сохраняет загруженное изображение (если есть) и добавляет товар в конец коллекции.
func (p *ProductUseCase) CreateProduct(ctx context.Context, req *CreateProductReq) (*domain.Product, error) {
	const op = "ProductUseCase.CreateProduct"

	imageURL := req.ImageURL
	var saved *SavedImage
	if req.Image != nil {
		var err error
		saved, err = p.uploads.Save(ctx, req.Image)
		if err != nil {
			return nil, e.Wrap(op, err)
		}
		imageURL = saved.PublicPath
	}

	products, _ := p.readProducts(ctx)

	product := domain.NewProduct(
		nextProductID(products, p.now()),
		req.Name,
		req.Description,
		req.Price,
		req.Category,
		req.Power,
		imageURL,
	)
	products = append(products, *product)

	if err := p.productRepo.WriteAll(ctx, products); err != nil {
		return nil, e.Wrap(op, err)
	}

	p.afterChange(ctx, domain.ProductCreated, *product)
	if saved != nil && p.imagesInfra != nil {
		p.imagesInfra.MirrorImage(saved)
	}

	return product, nil
}

// DeleteProduct удаляет товар по точному совпадению id. Если совпадения нет и это разрешено
// конфигурацией, параметр трактуется как позиция в коллекции.
func (p *ProductUseCase) DeleteProduct(ctx context.Context, req *DeleteProductReq) (*domain.Product, error) {
	const op = "ProductUseCase.DeleteProduct"

	products, _ := p.readProducts(ctx)

	idx := p.findForDelete(products, req.RawID)
	if idx < 0 {
		return nil, e.Wrap(op, e.ErrProductNotFound)
	}

	deleted := products[idx]
	products = append(products[:idx], products[idx+1:]...)

	if err := p.productRepo.WriteAll(ctx, products); err != nil {
		return nil, e.Wrap(op, err)
	}

	p.afterChange(ctx, domain.ProductDeleted, deleted)
	if p.imagesInfra != nil && isUploadedImage(deleted.ImageURL) {
		p.imagesInfra.DropImage(deleted.ImageURL)
	}

	return &deleted, nil
}

// ImportProducts добавляет в конец коллекции все товары из книги Excel одной записью.
func (p *ProductUseCase) ImportProducts(ctx context.Context, req *ImportProductsReq) ([]domain.Product, error) {
	const op = "ProductUseCase.ImportProducts"

	rows, err := p.sheetParser.ParseProducts(req.Workbook)
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	products, _ := p.readProducts(ctx)

	imported := make([]domain.Product, 0, len(rows))
	now := p.now()
	for _, row := range rows {
		product := domain.NewProduct(
			nextProductID(products, now),
			row.Name,
			row.Description,
			row.Price,
			row.Category,
			row.Power,
			row.ImageURL,
		)
		products = append(products, *product)
		imported = append(imported, *product)
	}

	if len(imported) == 0 {
		return imported, nil
	}

	if err := p.productRepo.WriteAll(ctx, products); err != nil {
		return nil, e.Wrap(op, err)
	}

	p.afterChange(ctx, domain.ProductCreated, imported...)

	return imported, nil
}

// readProducts читает коллекцию; любая ошибка логируется и даёт пустую коллекцию.
// ok == false означает, что чтение не удалось.
func (p *ProductUseCase) readProducts(ctx context.Context) ([]domain.Product, bool) {
	products, err := p.productRepo.ReadAll(ctx)
	if err != nil {
		if errors.Is(err, e.ErrCorruptStore) {
			p.logger.Errorf(err, "product store is corrupt, treating it as empty")
		} else {
			p.logger.Errorf(err, "failed to read product store, treating it as empty")
		}
		return []domain.Product{}, false
	}
	if products == nil {
		products = []domain.Product{}
	}

	return products, true
}

// findForDelete возвращает индекс удаляемого товара или -1.
func (p *ProductUseCase) findForDelete(products []domain.Product, rawID string) int {
	n, ok := parseNumericParam(rawID)
	if !ok {
		return -1
	}

	for i, pr := range products {
		if pr.ID == n {
			return i
		}
	}

	if p.cfg.DeleteIndexFallback && n >= 0 && n < int64(len(products)) {
		p.logger.Warnf("no product with id %d, deleting by position instead (product id %d)", n, products[n].ID)
		return int(n)
	}

	return -1
}

// cachedProducts возвращает список из кэша, если он настроен и содержит значение.
func (p *ProductUseCase) cachedProducts(ctx context.Context) ([]domain.Product, bool) {
	if p.cacheRepo == nil {
		return nil, false
	}

	products, ok, err := p.cacheRepo.GetProducts(ctx)
	if err != nil {
		p.logger.Warnf("Failed to get products from cache: %v", err)
		return nil, false
	}

	return products, ok
}

// refillCache в фоне кладёт в кэш список, прочитанный при поколении gen.
// Если за это время коллекция изменилась, запись пропускается или сразу сбрасывается.
func (p *ProductUseCase) refillCache(products []domain.Product, gen uint64) {
	if p.cacheRepo == nil {
		return
	}

	p.bg.Add(1)
	go func() {
		defer p.bg.Done()
		bgCtx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
		defer cancel()

		if p.generation.Load() != gen {
			return
		}
		if err := p.cacheRepo.SetProducts(bgCtx, products); err != nil {
			p.logger.Warnf("Failed to cache products in background: %v", err)
			return
		}

		// мутация успела пройти, пока шла запись
		if p.generation.Load() != gen {
			if err := p.cacheRepo.DeleteProducts(bgCtx); err != nil {
				p.logger.Warnf("Failed to drop stale products cache: %v", err)
			}
		}
	}()
}

// Wait ждёт завершения фоновых записей в кэш или истечения ctx.
func (p *ProductUseCase) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		p.bg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// afterChange сбрасывает кэш и передаёт события публикатору. Ошибки только логируются.
// Поколение увеличивается до сброса кэша.
func (p *ProductUseCase) afterChange(ctx context.Context, eventType domain.ProductEventType, products ...domain.Product) {
	p.generation.Add(1)

	if p.cacheRepo != nil {
		if err := p.cacheRepo.DeleteProducts(ctx); err != nil {
			p.logger.Warnf("Failed to invalidate products cache: %v", err)
		}
	}

	if p.publisher != nil && len(products) > 0 {
		at := p.now().UTC()
		events := make([]*domain.ProductEvent, 0, len(products))
		for _, product := range products {
			events = append(events, domain.NewProductEvent(p.newEventID(), eventType, product, at))
		}
		p.publisher.Publish(events...)
	}
}

// isUploadedImage сообщает, указывает ли imageURL на файл, загруженный через API.
func isUploadedImage(imageURL string) bool {
	return strings.HasPrefix(imageURL, cfg.UploadsSubdir+"/")
}

// nextProductID выдаёт метку времени в миллисекундах, сдвигая её вперёд, пока она занята.
func nextProductID(products []domain.Product, now time.Time) int64 {
	id := now.UnixMilli()
	taken := make(map[int64]struct{}, len(products))
	for _, pr := range products {
		taken[pr.ID] = struct{}{}
	}
	for {
		if _, ok := taken[id]; !ok {
			return id
		}
		id++
	}
}

// parseNumericParam разбирает параметр пути как целое число.
// Допускаются записи вида "12", " 12 ", "12.0", "1e3"; дробные, пустые и шестнадцатеричные значения отвергаются.
func parseNumericParam(raw string) (int64, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, false
	}

	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n, true
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, false
	}
	if f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, false
	}

	return int64(f), true
}
