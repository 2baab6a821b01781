package inventory

import (
	"context"
	"errors"
	"fmt"

	domain "github.com/Abdulsheik786/bite-ai-smart-canteen/internal/domain/inventory"
	domorder "github.com/Abdulsheik786/bite-ai-smart-canteen/internal/domain/order"
	domoutbox "github.com/Abdulsheik786/bite-ai-smart-canteen/internal/domain/outbox"
	"github.com/Abdulsheik786/bite-ai-smart-canteen/internal/observability"
)

// claimAttempts bounds the CAS loop that flips the inventoryApplied flag.
const claimAttempts = 3

// defaultReorderThreshold applies to skus first seen via restock.
const defaultReorderThreshold = 10

// Service decrements stock for confirmed orders exactly once and handles
// admin restocks. Stockout never fails an already-authorized order; the
// shortfall is reported instead.
type Service struct {
	items     domain.Repository
	orders    domorder.Repository
	publisher domoutbox.Publisher
	log       observability.Logger
}

func NewService(items domain.Repository, orders domorder.Repository, publisher domoutbox.Publisher, logger observability.Logger) *Service {
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &Service{
		items:     items,
		orders:    orders,
		publisher: publisher,
		log:       logger.With(observability.F("component", "inventory_service")),
	}
}

// ApplyOrder decrements stock for every line of a confirmed order. The
// inventoryApplied flag is claimed first through a CAS on the order version;
// only the claimer touches stock, so redelivered confirmation events are
// no-ops.
func (s *Service) ApplyOrder(ctx context.Context, orderID string) error {
	for attempt := 1; attempt <= claimAttempts; attempt++ {
		o, err := s.orders.Get(ctx, orderID)
		if err != nil {
			return fmt.Errorf("inventory: load order: %w", err)
		}
		if o.InventoryApplied {
			return nil
		}

		o.MarkInventoryApplied()
		err = s.orders.Update(ctx, o, o.Version)
		if errors.Is(err, domorder.ErrConflict) {
			continue
		}
		if err != nil {
			return fmt.Errorf("inventory: claim order: %w", err)
		}

		s.decrementLines(ctx, o)
		return nil
	}
	return domorder.ErrConflict
}

func (s *Service) decrementLines(ctx context.Context, o *domorder.Order) {
	for _, line := range o.Lines {
		item, err := s.items.Get(ctx, line.ItemID)
		if errors.Is(err, domain.ErrNotFound) {
			s.publish(ctx, domain.NewShortfallEvent(o.ID, line.ItemID, line.Quantity))
			continue
		}
		if err != nil {
			s.log.Error("inventory_load_failed",
				observability.F("sku", line.ItemID),
				observability.F("error", err.Error()),
			)
			continue
		}

		shortfall, err := item.Deduct(line.Quantity)
		if err != nil {
			s.log.Error("inventory_deduct_failed",
				observability.F("sku", line.ItemID),
				observability.F("error", err.Error()),
			)
			continue
		}
		if err := s.items.Save(ctx, item); err != nil {
			s.log.Error("inventory_save_failed",
				observability.F("sku", line.ItemID),
				observability.F("error", err.Error()),
			)
			continue
		}

		if shortfall > 0 {
			s.publish(ctx, domain.NewShortfallEvent(o.ID, line.ItemID, shortfall))
		}
		if item.LowStock() {
			s.publish(ctx, domain.NewLowStockEvent(item))
		}
	}
}

// Restock is the admin path; unknown skus are created on first restock.
func (s *Service) Restock(ctx context.Context, sku string, quantity int) (int, error) {
	item, err := s.items.Get(ctx, sku)
	if errors.Is(err, domain.ErrNotFound) {
		item, err = domain.NewItem(sku, 0, defaultReorderThreshold)
	}
	if err != nil {
		return 0, err
	}

	if err := item.Restock(quantity); err != nil {
		return 0, err
	}
	if err := s.items.Save(ctx, item); err != nil {
		return 0, err
	}
	return item.Quantity, nil
}

func (s *Service) publish(ctx context.Context, e domoutbox.Event) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, e); err != nil {
		s.log.Warn("event_publish_failed",
			observability.F("event", e.EventName()),
			observability.F("error", err.Error()),
		)
	}
}
