package inventory

import "time"

// LowStockEvent is raised when a decrement crosses the reorder threshold.
// It is advisory and never blocks the decrement.
type LowStockEvent struct {
	SKU        string
	Remaining  int
	Threshold  int
	OccurredAt time.Time
}

func (LowStockEvent) EventName() string { return "inventory.low_stock" }

func NewLowStockEvent(item *Item) LowStockEvent {
	return LowStockEvent{
		SKU:        item.SKU,
		Remaining:  item.Quantity,
		Threshold:  item.ReorderThreshold,
		OccurredAt: time.Now().UTC(),
	}
}

// ShortfallEvent reports that an authorized order consumed more stock than
// was on hand. The order itself is unaffected.
type ShortfallEvent struct {
	OrderID    string
	SKU        string
	Missing    int
	OccurredAt time.Time
}

func (ShortfallEvent) EventName() string { return "inventory.shortfall" }

func NewShortfallEvent(orderID, sku string, missing int) ShortfallEvent {
	return ShortfallEvent{
		OrderID:    orderID,
		SKU:        sku,
		Missing:    missing,
		OccurredAt: time.Now().UTC(),
	}
}
