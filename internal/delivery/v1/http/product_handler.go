package http

import (
	"errors"
	"net/http"

	"github.com/DRSN-tech/catalog-backend/internal/usecase"
	"github.com/DRSN-tech/catalog-backend/pkg/e"
	"github.com/DRSN-tech/catalog-backend/pkg/logger"
	"github.com/go-chi/chi/v5"
	"github.com/jimlawless/whereami"
)

const (
	msgProductCreated   = "Product created successfully"
	msgProductDeleted   = "Product deleted successfully"
	msgProductNotFound  = "Product not found"
	msgCreateFailed     = "Error creating product"
	msgDeleteFailed     = "Error deleting product"
	msgProductsImported = "Products imported successfully"
	msgImportFailed     = "Error importing products"
	msgListFailed       = "Error listing products"

	imageFileField    = "imageFile"
	importFileField   = "file"
	productIDURLParam = "id"
)

type ProductHandler struct {
	productUsecase usecase.ProductUC
	logger         logger.Logger
}

func NewProductHandler(productUsecase usecase.ProductUC, logger logger.Logger) *ProductHandler {
	return &ProductHandler{productUsecase: productUsecase, logger: logger}
}

// listProducts
//
//	@Summary		Список товаров
//	@Description	Возвращает коллекцию товаров в порядке добавления. Фильтры необязательны.
//	@Tags			products
//	@Produce		json
//	@Param			category	query		string	false	"Категория (без учёта регистра)"
//	@Param			q			query		string	false	"Подстрока в названии или описании"
//	@Param			minPrice	query		string	false	"Нижняя граница цены"
//	@Param			maxPrice	query		string	false	"Верхняя граница цены"
//	@Success		200			{array}		domain.Product
//	@Failure		400			{object}	ErrorResponse	"Некорректная граница цены"
//	@Router			/api/products [get]
func (p *ProductHandler) listProducts(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := usecase.NewListProductsReq(q.Get("category"), q.Get("q"), q.Get("minPrice"), q.Get("maxPrice"))

	products, err := p.productUsecase.ListProducts(r.Context(), req)
	if err != nil {
		p.logFailure(WriteError(w, err, msgListFailed), err)
		return
	}

	WriteSuccess(w, http.StatusOK, products)
}

// createProduct
//
//	@Summary		Создание товара
//	@Description	Добавляет товар в каталог. Принимает JSON, urlencoded или multipart/form-data с необязательным файлом imageFile.
//	@Tags			products
//	@Accept			json,x-www-form-urlencoded,mpfd
//	@Produce		json
//	@Param			name		formData	string	false	"Название"
//	@Param			description	formData	string	false	"Описание"
//	@Param			price		formData	string	false	"Цена"
//	@Param			category	formData	string	false	"Категория"
//	@Param			power		formData	string	false	"Мощность"
//	@Param			imageUrl	formData	string	false	"URL изображения, если файл не загружается"
//	@Param			imageFile	formData	file	false	"Изображение"
//	@Success		201			{object}	CreateProductResponse
//	@Failure		400			{object}	ErrorResponse	"Некорректное тело запроса"
//	@Failure		500			{object}	ErrorResponse
//	@Router			/api/products [post]
func (p *ProductHandler) createProduct(w http.ResponseWriter, r *http.Request) {
	var (
		body  = &createProductBody{}
		image *usecase.ProductImage
	)

	switch mediaType(r) {
	case contentTypeJSON:
		if err := decodeJSONBody(r, body); err != nil {
			p.logFailure(WriteError(w, err, msgCreateFailed), err)
			return
		}
	case contentTypeMultipart:
		if err := r.ParseMultipartForm(maxMemory); err != nil {
			err = e.Wrap(whereami.WhereAmI(), errors.Join(e.ErrInvalidBody, err))
			p.logFailure(WriteError(w, err, msgCreateFailed), err)
			return
		}
		defer r.MultipartForm.RemoveAll()

		fh, err := singleFile(r.MultipartForm, imageFileField)
		if err != nil {
			p.logFailure(WriteError(w, err, msgCreateFailed), err)
			return
		}
		if fh != nil {
			src, err := fh.Open()
			if err != nil {
				p.logFailure(WriteError(w, err, msgCreateFailed), err)
				return
			}
			defer src.Close()
			image = usecase.NewProductImage(fh.Filename, src)
		}
		body = formBody(r)
	case contentTypeForm:
		if err := r.ParseForm(); err != nil {
			err = e.Wrap(whereami.WhereAmI(), errors.Join(e.ErrInvalidBody, err))
			p.logFailure(WriteError(w, err, msgCreateFailed), err)
			return
		}
		body = formBody(r)
	}

	product, err := p.productUsecase.CreateProduct(r.Context(), body.toReq(image))
	if err != nil {
		p.logFailure(WriteError(w, err, msgCreateFailed), err)
		return
	}

	WriteSuccess(w, http.StatusCreated, &CreateProductResponse{
		Message: msgProductCreated,
		Product: product,
	})
}

// deleteProduct
//
//	@Summary		Удаление товара
//	@Description	Удаляет товар по id. Если такого id нет, параметр может трактоваться как позиция в списке.
//	@Tags			products
//	@Produce		json
//	@Param			id	path		string	true	"id товара или позиция"
//	@Success		200	{object}	MessageResponse
//	@Failure		404	{object}	ErrorResponse	"Товар не найден"
//	@Failure		500	{object}	ErrorResponse
//	@Router			/api/products/{id} [delete]
func (p *ProductHandler) deleteProduct(w http.ResponseWriter, r *http.Request) {
	rawID := chi.URLParam(r, productIDURLParam)

	if _, err := p.productUsecase.DeleteProduct(r.Context(), usecase.NewDeleteProductReq(rawID)); err != nil {
		p.logFailure(WriteError(w, err, msgDeleteFailed), err)
		return
	}

	WriteSuccess(w, http.StatusOK, &MessageResponse{Message: msgProductDeleted})
}

// importProducts
//
//	@Summary		Импорт товаров из Excel
//	@Description	Добавляет товары из первого листа книги .xlsx. Первая строка: заголовок, колонки: name, description, price, category, power, imageUrl.
//	@Tags			products
//	@Accept			mpfd
//	@Produce		json
//	@Param			file	formData	file	true	"Книга .xlsx"
//	@Success		201		{object}	ImportProductsResponse
//	@Failure		400		{object}	ErrorResponse	"Нет файла или файл не является книгой Excel"
//	@Failure		500		{object}	ErrorResponse
//	@Router			/api/products/import [post]
func (p *ProductHandler) importProducts(w http.ResponseWriter, r *http.Request) {
	if err := ensureMultipartForm(r); err != nil {
		p.logFailure(WriteError(w, err, msgImportFailed), err)
		return
	}
	defer r.MultipartForm.RemoveAll()

	fh, err := singleFile(r.MultipartForm, importFileField)
	if err == nil && fh == nil {
		err = e.Wrap(importFileField, e.ErrMissingFile)
	}
	if err != nil {
		p.logFailure(WriteError(w, err, msgImportFailed), err)
		return
	}

	src, err := fh.Open()
	if err != nil {
		p.logFailure(WriteError(w, err, msgImportFailed), err)
		return
	}
	defer src.Close()

	products, err := p.productUsecase.ImportProducts(r.Context(), usecase.NewImportProductsReq(src))
	if err != nil {
		p.logFailure(WriteError(w, err, msgImportFailed), err)
		return
	}

	WriteSuccess(w, http.StatusCreated, &ImportProductsResponse{
		Message:  msgProductsImported,
		Count:    len(products),
		Products: products,
	})
}

// logFailure пишет в лог ошибку обработчика: 4xx на уровне warn, 5xx на уровне error.
func (p *ProductHandler) logFailure(code int, err error) {
	if code >= http.StatusInternalServerError {
		p.logger.Errorf(err, "%d %s", code, http.StatusText(code))
		return
	}
	p.logger.Warnf("%d %s: %s", code, http.StatusText(code), err.Error())
}
