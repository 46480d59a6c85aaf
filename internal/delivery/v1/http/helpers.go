package http

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"net/http"

	"github.com/DRSN-tech/catalog-backend/internal/domain"
	"github.com/DRSN-tech/catalog-backend/internal/usecase"
	"github.com/DRSN-tech/catalog-backend/pkg/e"
	"github.com/jimlawless/whereami"
)

const (
	contentTypeJSON      = "application/json"
	contentTypeForm      = "application/x-www-form-urlencoded"
	contentTypeMultipart = "multipart/form-data"

	maxMemory = 32 << 20
)

type ErrorResponse struct {
	Message string `json:"message"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

type CreateProductResponse struct {
	Message string      `json:"message"`
	Product interface{} `json:"product"`
}

type ImportProductsResponse struct {
	Message  string      `json:"message"`
	Count    int         `json:"count"`
	Products interface{} `json:"products"`
}

func NewErrorResponse(message string) *ErrorResponse {
	return &ErrorResponse{Message: message}
}

// ToHTTPResponse переводит ошибку слоя usecase в код ответа и сообщение.
// Для непредвиденных ошибок возвращается 500 и fallback.
func ToHTTPResponse(err error, fallback string) (int, string) {
	switch {
	case errors.Is(err, e.ErrProductNotFound):
		return http.StatusNotFound, msgProductNotFound
	case errors.Is(err, e.ErrInvalidBody):
		return http.StatusBadRequest, e.ErrInvalidBody.Error()
	case errors.Is(err, e.ErrExpectedMultipart):
		return http.StatusBadRequest, e.ErrExpectedMultipart.Error()
	case errors.Is(err, e.ErrTooManyFiles):
		return http.StatusBadRequest, e.ErrTooManyFiles.Error()
	case errors.Is(err, e.ErrMissingFile):
		return http.StatusBadRequest, e.ErrMissingFile.Error()
	case errors.Is(err, e.ErrInvalidPrice):
		return http.StatusBadRequest, e.ErrInvalidPrice.Error()
	case errors.Is(err, e.ErrInvalidWorkbook):
		return http.StatusBadRequest, e.ErrInvalidWorkbook.Error()
	default:
		return http.StatusInternalServerError, fallback
	}
}

func WriteError(w http.ResponseWriter, err error, fallback string) int {
	code, msg := ToHTTPResponse(err, fallback)
	WriteSuccess(w, code, NewErrorResponse(msg))
	return code
}

func WriteSuccess(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// flexString принимает из JSON строку, число или булево значение и хранит его текстом.
// null оставляет значение пустым, объекты и массивы в теле запроса отвергаются.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && (data[0] == '{' || data[0] == '[') {
		return e.Wrap(string(data), e.ErrInvalidBody)
	}

	var t domain.Text
	if err := t.UnmarshalJSON(data); err != nil {
		return err
	}
	*f = flexString(t)
	return nil
}

type createProductBody struct {
	Name        flexString `json:"name"`
	Description flexString `json:"description"`
	Price       flexString `json:"price"`
	Category    flexString `json:"category"`
	Power       flexString `json:"power"`
	ImageURL    flexString `json:"imageUrl"`
}

func (b *createProductBody) toReq(image *usecase.ProductImage) *usecase.CreateProductReq {
	return usecase.NewCreateProductReq(
		string(b.Name),
		string(b.Description),
		string(b.Price),
		string(b.Category),
		string(b.Power),
		string(b.ImageURL),
		image,
	)
}

// mediaType возвращает тип содержимого запроса без параметров. Пустой или неразборчивый
// заголовок даёт пустую строку.
func mediaType(r *http.Request) string {
	mt, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		return ""
	}
	return mt
}

// decodeJSONBody разбирает JSON-тело. Пустое тело трактуется как пустой объект.
func decodeJSONBody(r *http.Request, body *createProductBody) error {
	data, err := io.ReadAll(r.Body)
	if err != nil {
		return e.Wrap(whereami.WhereAmI(), errors.Join(e.ErrInvalidBody, err))
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}

	if err := json.Unmarshal(data, body); err != nil {
		return e.Wrap(whereami.WhereAmI(), errors.Join(e.ErrInvalidBody, err))
	}

	return nil
}

// formBody собирает поля товара из разобранной формы (urlencoded или multipart).
func formBody(r *http.Request) *createProductBody {
	return &createProductBody{
		Name:        flexString(r.FormValue("name")),
		Description: flexString(r.FormValue("description")),
		Price:       flexString(r.FormValue("price")),
		Category:    flexString(r.FormValue("category")),
		Power:       flexString(r.FormValue("power")),
		ImageURL:    flexString(r.FormValue("imageUrl")),
	}
}

// singleFile возвращает единственный файл поля field или nil, если поле пустое.
// Больше одного файла в поле — e.ErrTooManyFiles.
func singleFile(form *multipart.Form, field string) (*multipart.FileHeader, error) {
	if form == nil {
		return nil, nil
	}

	files := form.File[field]
	switch len(files) {
	case 0:
		return nil, nil
	case 1:
		return files[0], nil
	default:
		return nil, e.Wrap(field, e.ErrTooManyFiles)
	}
}

func ensureMultipartForm(r *http.Request) error {
	if mediaType(r) != contentTypeMultipart {
		return e.Wrap(whereami.WhereAmI(), e.ErrExpectedMultipart)
	}
	if err := r.ParseMultipartForm(maxMemory); err != nil {
		return e.Wrap(whereami.WhereAmI(), errors.Join(e.ErrInvalidBody, err))
	}
	return nil
}
