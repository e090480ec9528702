package events

import (
	"context"
	"time"

	"github.com/google/uuid"

	"tienda-b2b/internal/domain"
)

// EventType names an order lifecycle event.
type EventType string

const (
	EventTypeOrderSubmitted EventType = "order.submitted"
	EventTypeOrderFallback  EventType = "order.fallback"
	EventTypeOrderConfirmed EventType = "order.confirmed"
	EventTypeOrderCanceled  EventType = "order.canceled"
)

// DefaultOrderTopic is used when no topic is configured.
const DefaultOrderTopic = "tienda.order.events"

// OrderEvent is the payload published for order changes.
type OrderEvent struct {
	ID         string    `json:"id"`
	EventType  EventType `json:"event_type"`
	OrderRef   string    `json:"order_ref"`
	LegacyID   int64     `json:"legacy_id"`
	Local      bool      `json:"local"`
	CustomerID *int64    `json:"customer_id,omitempty"`
	Status     string    `json:"status"`
	Total      string    `json:"total,omitempty"`
	Lines      int       `json:"lines"`
	Timestamp  time.Time `json:"timestamp"`
}

// Publisher delivers order events. Delivery is best-effort for callers.
type Publisher interface {
	PublishOrderEvent(ctx context.Context, event OrderEvent) error
}

// NewOrderEvent builds an event from the canonical order.
func NewOrderEvent(eventType EventType, o domain.Order, now time.Time) OrderEvent {
	ev := OrderEvent{
		ID:         uuid.NewString(),
		EventType:  eventType,
		OrderRef:   o.Ref.String(),
		LegacyID:   o.Ref.LegacyID(),
		Local:      o.Ref.IsLocal(),
		CustomerID: o.CustomerID,
		Status:     string(o.Status),
		Lines:      len(o.Lines),
		Timestamp:  now.UTC(),
	}
	if o.Total != nil {
		ev.Total = o.Total.Amount.StringFixed(2)
	}
	return ev
}

// Noop discards events.
type Noop struct{}

func (Noop) PublishOrderEvent(context.Context, OrderEvent) error { return nil }
