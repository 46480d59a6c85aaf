package domain

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
)

// Product описывает товар каталога.
// Все текстовые поля свободные; отсутствующие значения хранятся как пустые строки.
type Product struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Price       string `json:"price"`
	Category    string `json:"category"`
	Power       string `json:"power"`
	ImageURL    string `json:"imageUrl"`
}

func NewProduct(id int64, name, description, price, category, power, imageURL string) *Product {
	return &Product{
		ID:          id,
		Name:        name,
		Description: description,
		Price:       price,
		Category:    category,
		Power:       power,
		ImageURL:    imageURL,
	}
}

// UnmarshalJSON читает запись без проверки схемы: текстовые поля могут прийти числом,
// булевым значением или вложенным JSON, id может оказаться дробным числом или строкой.
func (p *Product) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID          json.RawMessage `json:"id"`
		Name        Text            `json:"name"`
		Description Text            `json:"description"`
		Price       Text            `json:"price"`
		Category    Text            `json:"category"`
		Power       Text            `json:"power"`
		ImageURL    Text            `json:"imageUrl"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*p = Product{
		ID:          parseStoredID(raw.ID),
		Name:        string(raw.Name),
		Description: string(raw.Description),
		Price:       string(raw.Price),
		Category:    string(raw.Category),
		Power:       string(raw.Power),
		ImageURL:    string(raw.ImageURL),
	}
	return nil
}

// Text — строка, которую можно прочитать из любого JSON-значения.
// null даёт пустую строку, прочие значения кроме строк сохраняются литералом.
type Text string

func (t *Text) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*t = ""
		return nil
	}

	if data[0] != '"' {
		var buf bytes.Buffer
		if err := json.Compact(&buf, data); err != nil {
			return err
		}
		*t = Text(buf.String())
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*t = Text(s)
	return nil
}

// parseStoredID приводит id записи к целому. Нечисловой id даёт 0.
func parseStoredID(raw json.RawMessage) int64 {
	s := string(bytes.TrimSpace(raw))
	if len(s) > 0 && s[0] == '"' {
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0
		}
	}

	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		return n
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f < math.MinInt64 || f >= math.MaxInt64 {
		return 0
	}
	return int64(math.Trunc(f))
}
