package worker

import (
	"context"

	appinventory "github.com/Abdulsheik786/bite-ai-smart-canteen/internal/application/inventory"
	domorder "github.com/Abdulsheik786/bite-ai-smart-canteen/internal/domain/order"
	domoutbox "github.com/Abdulsheik786/bite-ai-smart-canteen/internal/domain/outbox"
	"github.com/Abdulsheik786/bite-ai-smart-canteen/internal/observability"
	"github.com/Abdulsheik786/bite-ai-smart-canteen/internal/observability/logctx"
)

// Worker applies stock decrements when orders are confirmed. The service
// underneath is idempotent, so redelivered events are harmless.
type Worker struct {
	subscriber domoutbox.Subscriber
	service    *appinventory.Service
	log        observability.Logger
}

func New(subscriber domoutbox.Subscriber, service *appinventory.Service, logger observability.Logger) *Worker {
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &Worker{
		subscriber: subscriber,
		service:    service,
		log:        logger.With(observability.F("component", "inventory_worker")),
	}
}

func (w *Worker) Start() {
	w.subscriber.Subscribe(domorder.ConfirmedEvent{}.EventName(), w.handleOrderConfirmed)
}

func (w *Worker) handleOrderConfirmed(ctx context.Context, e domoutbox.Event) error {
	evt, ok := e.(domorder.ConfirmedEvent)
	if !ok {
		return nil
	}

	logger := logctx.FromOr(ctx, w.log)
	if err := w.service.ApplyOrder(ctx, evt.OrderID); err != nil {
		logger.Warn("inventory_apply_failed",
			observability.F("order_id", evt.OrderID),
			observability.F("error", err.Error()),
		)
		return err
	}
	logger.Info("inventory_applied", observability.F("order_id", evt.OrderID))
	return nil
}
