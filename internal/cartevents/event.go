// Package cartevents publishes cart domain events after successful mutations.
// Delivery is best effort: a failed publish is logged and counted, never
// surfaced to the customer.
package cartevents

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/storefront/internal/cart"
	"github.com/angelmondragon/storefront/pkg/enums"
	"github.com/angelmondragon/storefront/pkg/money"
)

// Event describes one successful cart mutation.
type Event struct {
	ID          uuid.UUID           `json:"id"`
	Type        enums.CartEventType `json:"type"`
	SessionID   string              `json:"session_id"`
	AccountID   string              `json:"account_id,omitempty"`
	ProductID   string              `json:"product_id,omitempty"`
	Quantity    *int                `json:"quantity,omitempty"`
	VoucherCode string              `json:"voucher_code,omitempty"`
	Subtotal    decimal.Decimal     `json:"subtotal"`
	Total       decimal.Decimal     `json:"total"`
	TotalCents  int64               `json:"total_cents"`
	ItemCount   int                 `json:"item_count"`
	Changes     []cart.ChangeRecord `json:"changes,omitempty"`
	OccurredAt  time.Time           `json:"occurred_at"`
}

// NewEvent stamps an event of the given type with the totals of agg.
func NewEvent(eventType enums.CartEventType, sessionID string, agg cart.Aggregate, changes []cart.Change) Event {
	return Event{
		ID:         uuid.New(),
		Type:       eventType,
		SessionID:  sessionID,
		Subtotal:   agg.Subtotal,
		Total:      agg.Total,
		TotalCents: money.Cents(agg.Total),
		ItemCount:  agg.ItemCount(),
		Changes:    cart.Records(changes),
		OccurredAt: time.Now().UTC(),
	}
}

// Publisher accepts cart events.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// Noop discards every event.
type Noop struct{}

// Publish implements Publisher.
func (Noop) Publish(context.Context, Event) error { return nil }
