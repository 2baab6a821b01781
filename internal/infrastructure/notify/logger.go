package notify

import (
	"context"

	domnotification "github.com/Abdulsheik786/bite-ai-smart-canteen/internal/domain/notification"
	domorder "github.com/Abdulsheik786/bite-ai-smart-canteen/internal/domain/order"
	"github.com/Abdulsheik786/bite-ai-smart-canteen/internal/observability"
)

// LogNotifier is the default emitter: it writes user-facing signals to the
// structured log. A real deployment would push to websockets or a messaging
// channel instead.
type LogNotifier struct {
	log observability.Logger
}

var _ domnotification.Notifier = (*LogNotifier)(nil)

func NewLogNotifier(logger observability.Logger) *LogNotifier {
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &LogNotifier{log: logger.With(observability.F("component", "notifier"))}
}

func (n *LogNotifier) OrderStatusChanged(_ context.Context, customerID, orderID string, from, to domorder.Status) {
	n.log.Info("order_status_notification",
		observability.F("customer_id", customerID),
		observability.F("order_id", orderID),
		observability.F("from", string(from)),
		observability.F("to", string(to)),
	)
}

func (n *LogNotifier) LowStock(_ context.Context, sku string, remaining, threshold int) {
	n.log.Warn("low_stock_notification",
		observability.F("sku", sku),
		observability.F("remaining", remaining),
		observability.F("threshold", threshold),
	)
}

func (n *LogNotifier) InventoryShortfall(_ context.Context, orderID, sku string, missing int) {
	n.log.Warn("inventory_shortfall_notification",
		observability.F("order_id", orderID),
		observability.F("sku", sku),
		observability.F("missing", missing),
	)
}
