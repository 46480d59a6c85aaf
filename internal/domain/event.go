package domain

import "time"

// ProductEventType — тип изменения каталога.
type ProductEventType string

const (
	ProductCreated ProductEventType = "product.created"
	ProductDeleted ProductEventType = "product.deleted"
)

// ProductEvent описывает изменение каталога, публикуемое во внешнюю шину.
type ProductEvent struct {
	EventID    string           `json:"eventId"`
	Type       ProductEventType `json:"type"`
	ProductID  int64            `json:"productId"`
	Product    Product          `json:"product"`
	OccurredAt time.Time        `json:"occurredAt"`
}

func NewProductEvent(eventID string, eventType ProductEventType, product Product, occurredAt time.Time) *ProductEvent {
	return &ProductEvent{
		EventID:    eventID,
		Type:       eventType,
		ProductID:  product.ID,
		Product:    product,
		OccurredAt: occurredAt,
	}
}
