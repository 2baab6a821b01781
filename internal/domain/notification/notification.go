package notification

import (
	"context"

	"github.com/Abdulsheik786/bite-ai-smart-canteen/internal/domain/order"
)

// Notifier is the outbound port for user-facing signals. Delivery is
// best-effort; the core never blocks on it.
type Notifier interface {
	OrderStatusChanged(ctx context.Context, customerID, orderID string, from, to order.Status)
	LowStock(ctx context.Context, sku string, remaining, threshold int)
	InventoryShortfall(ctx context.Context, orderID, sku string, missing int)
}
