package usecase

import (
	"strings"

	"github.com/DRSN-tech/catalog-backend/internal/domain"
	"github.com/DRSN-tech/catalog-backend/pkg/e"
	"github.com/shopspring/decimal"
)

// productFilter — разобранные фильтры списка товаров.
type productFilter struct {
	category string
	query    string
	minPrice *decimal.Decimal
	maxPrice *decimal.Decimal
}

func newProductFilter(req *ListProductsReq) (*productFilter, error) {
	f := &productFilter{}
	if req == nil {
		return f, nil
	}

	f.category = strings.ToLower(strings.TrimSpace(req.Category))
	f.query = strings.ToLower(strings.TrimSpace(req.Query))

	var err error
	if f.minPrice, err = parsePriceBound(req.MinPrice); err != nil {
		return nil, e.Wrap("minPrice", err)
	}
	if f.maxPrice, err = parsePriceBound(req.MaxPrice); err != nil {
		return nil, e.Wrap("maxPrice", err)
	}

	return f, nil
}

func (f *productFilter) empty() bool {
	return f.category == "" && f.query == "" && f.minPrice == nil && f.maxPrice == nil
}

// apply возвращает новый срез; исходный не меняется.
func (f *productFilter) apply(products []domain.Product) []domain.Product {
	result := make([]domain.Product, 0, len(products))
	if f.empty() {
		return append(result, products...)
	}

	for _, pr := range products {
		if f.match(pr) {
			result = append(result, pr)
		}
	}

	return result
}

func (f *productFilter) match(pr domain.Product) bool {
	if f.category != "" && strings.ToLower(strings.TrimSpace(pr.Category)) != f.category {
		return false
	}

	if f.query != "" &&
		!strings.Contains(strings.ToLower(pr.Name), f.query) &&
		!strings.Contains(strings.ToLower(pr.Description), f.query) {
		return false
	}

	if f.minPrice == nil && f.maxPrice == nil {
		return true
	}

	// цены, которые не разбираются как число, при заданной границе не проходят
	price, ok := parsePrice(pr.Price)
	if !ok {
		return false
	}
	if f.minPrice != nil && price.LessThan(*f.minPrice) {
		return false
	}
	if f.maxPrice != nil && price.GreaterThan(*f.maxPrice) {
		return false
	}

	return true
}

func parsePriceBound(s string) (*decimal.Decimal, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}

	d, ok := parsePrice(s)
	if !ok {
		return nil, e.ErrInvalidPrice
	}

	return &d, nil
}

// parsePrice принимает "10", "10.50", " 1 299,99 " (пробелы и запятая как разделитель дробной части).
func parsePrice(s string) (decimal.Decimal, bool) {
	s = strings.Join(strings.Fields(s), "")
	s = strings.ReplaceAll(s, ",", ".")
	if s == "" {
		return decimal.Zero, false
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}

	return d, true
}
