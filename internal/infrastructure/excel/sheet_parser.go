package excel

import (
	"io"
	"strings"

	"github.com/DRSN-tech/catalog-backend/internal/usecase"
	"github.com/DRSN-tech/catalog-backend/pkg/e"
	"github.com/xuri/excelize/v2"
)

// Порядок колонок листа. Первая строка — заголовок.
const (
	colName = iota
	colDescription
	colPrice
	colCategory
	colPower
	colImageURL
)

// SheetParser читает товары с первого листа книги .xlsx.
type SheetParser struct{}

func NewSheetParser() *SheetParser {
	return &SheetParser{}
}

// ParseProducts пропускает строку заголовка и строки с пустым названием.
// Недостающие ячейки в конце строки считаются пустыми.
func (s *SheetParser) ParseProducts(r io.Reader) ([]usecase.CreateProductReq, error) {
	const op = "SheetParser.ParseProducts"

	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, e.Wrap(op, e.ErrInvalidWorkbook)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, e.Wrap(op, e.ErrInvalidWorkbook)
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, e.Wrap(op, err)
	}

	result := make([]usecase.CreateProductReq, 0, len(rows))
	for i, row := range rows {
		if i == 0 {
			continue // заголовок
		}

		name := cell(row, colName)
		if name == "" {
			continue
		}

		result = append(result, *usecase.NewCreateProductReq(
			name,
			cell(row, colDescription),
			cell(row, colPrice),
			cell(row, colCategory),
			cell(row, colPower),
			cell(row, colImageURL),
			nil,
		))
	}

	return result, nil
}

func cell(row []string, idx int) string {
	if idx >= len(row) {
		return ""
	}

	return strings.TrimSpace(row[idx])
}
