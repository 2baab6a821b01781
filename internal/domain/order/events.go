package order

import (
	"time"

	"github.com/Abdulsheik786/bite-ai-smart-canteen/internal/domain/cart"
)

// ConfirmedEvent is emitted once payment settles. The inventory worker
// consumes it to decrement stock; duplicate deliveries are absorbed by the
// inventoryApplied guard.
type ConfirmedEvent struct {
	OrderID        string
	CustomerID     string
	Lines          []cart.Line
	TransactionRef string
	OccurredAt     time.Time
}

func (ConfirmedEvent) EventName() string { return "order.confirmed" }

func NewConfirmedEvent(o *Order) ConfirmedEvent {
	lines := make([]cart.Line, len(o.Lines))
	copy(lines, o.Lines)
	return ConfirmedEvent{
		OrderID:        o.ID,
		CustomerID:     o.CustomerID,
		Lines:          lines,
		TransactionRef: o.TransactionRef,
		OccurredAt:     time.Now().UTC(),
	}
}

// StatusChangedEvent is emitted on every lifecycle move for user-facing
// notification.
type StatusChangedEvent struct {
	OrderID    string
	CustomerID string
	From       Status
	To         Status
	Reason     string
	OccurredAt time.Time
}

func (StatusChangedEvent) EventName() string { return "order.status_changed" }

func NewStatusChangedEvent(o *Order, from Status, reason string) StatusChangedEvent {
	return StatusChangedEvent{
		OrderID:    o.ID,
		CustomerID: o.CustomerID,
		From:       from,
		To:         o.Status,
		Reason:     reason,
		OccurredAt: time.Now().UTC(),
	}
}
