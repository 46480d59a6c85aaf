package usecase

import "io"

// PRODUCT USECASE

// CreateProductReq — запрос на создание товара. Image == nil, если файл не загружался.
type CreateProductReq struct {
	Name        string
	Description string
	Price       string
	Category    string
	Power       string
	ImageURL    string
	Image       *ProductImage
}

// ProductImage — файл из multipart/form-data.
type ProductImage struct {
	Filename string    // оригинальное имя файла от клиента
	Content  io.Reader // содержимое
}

// DeleteProductReq — запрос на удаление. RawID — параметр пути как есть.
type DeleteProductReq struct {
	RawID string
}

// ListProductsReq — необязательные фильтры списка. Пустые поля не фильтруют.
type ListProductsReq struct {
	Category string
	Query    string
	MinPrice string
	MaxPrice string
}

// ImportProductsReq — книга Excel с товарами.
type ImportProductsReq struct {
	Workbook io.Reader
}

// INFRASTRUCTURE

// SavedImage — результат сохранения загрузки.
type SavedImage struct {
	FileName   string // имя файла в каталоге загрузок
	LocalPath  string // путь на диске
	PublicPath string // относительный URL: uploads/<FileName>
}

// MAPPERS

func NewCreateProductReq(name, description, price, category, power, imageURL string, image *ProductImage) *CreateProductReq {
	return &CreateProductReq{
		Name:        name,
		Description: description,
		Price:       price,
		Category:    category,
		Power:       power,
		ImageURL:    imageURL,
		Image:       image,
	}
}

func NewProductImage(filename string, content io.Reader) *ProductImage {
	return &ProductImage{
		Filename: filename,
		Content:  content,
	}
}

func NewDeleteProductReq(rawID string) *DeleteProductReq {
	return &DeleteProductReq{RawID: rawID}
}

func NewListProductsReq(category, query, minPrice, maxPrice string) *ListProductsReq {
	return &ListProductsReq{
		Category: category,
		Query:    query,
		MinPrice: minPrice,
		MaxPrice: maxPrice,
	}
}

func NewImportProductsReq(workbook io.Reader) *ImportProductsReq {
	return &ImportProductsReq{Workbook: workbook}
}

func NewSavedImage(fileName, localPath, publicPath string) *SavedImage {
	return &SavedImage{
		FileName:   fileName,
		LocalPath:  localPath,
		PublicPath: publicPath,
	}
}
