package notify

import (
	"context"

	dominventory "github.com/Abdulsheik786/bite-ai-smart-canteen/internal/domain/inventory"
	domnotification "github.com/Abdulsheik786/bite-ai-smart-canteen/internal/domain/notification"
	domorder "github.com/Abdulsheik786/bite-ai-smart-canteen/internal/domain/order"
	domoutbox "github.com/Abdulsheik786/bite-ai-smart-canteen/internal/domain/outbox"
)

// Worker fans lifecycle and stock events out to the notification emitter.
type Worker struct {
	subscriber domoutbox.Subscriber
	notifier   domnotification.Notifier
}

func NewWorker(subscriber domoutbox.Subscriber, notifier domnotification.Notifier) *Worker {
	return &Worker{subscriber: subscriber, notifier: notifier}
}

func (w *Worker) Start() {
	w.subscriber.Subscribe(domorder.StatusChangedEvent{}.EventName(), w.handleStatusChanged)
	w.subscriber.Subscribe(dominventory.LowStockEvent{}.EventName(), w.handleLowStock)
	w.subscriber.Subscribe(dominventory.ShortfallEvent{}.EventName(), w.handleShortfall)
}

func (w *Worker) handleStatusChanged(ctx context.Context, e domoutbox.Event) error {
	evt, ok := e.(domorder.StatusChangedEvent)
	if !ok {
		return nil
	}
	w.notifier.OrderStatusChanged(ctx, evt.CustomerID, evt.OrderID, evt.From, evt.To)
	return nil
}

func (w *Worker) handleLowStock(ctx context.Context, e domoutbox.Event) error {
	evt, ok := e.(dominventory.LowStockEvent)
	if !ok {
		return nil
	}
	w.notifier.LowStock(ctx, evt.SKU, evt.Remaining, evt.Threshold)
	return nil
}

func (w *Worker) handleShortfall(ctx context.Context, e domoutbox.Event) error {
	evt, ok := e.(dominventory.ShortfallEvent)
	if !ok {
		return nil
	}
	w.notifier.InventoryShortfall(ctx, evt.OrderID, evt.SKU, evt.Missing)
	return nil
}
