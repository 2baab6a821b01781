package notify

import (
	"context"
	"sync"
	"testing"

	dominventory "github.com/Abdulsheik786/bite-ai-smart-canteen/internal/domain/inventory"
	domorder "github.com/Abdulsheik786/bite-ai-smart-canteen/internal/domain/order"
	"github.com/Abdulsheik786/bite-ai-smart-canteen/internal/infrastructure/outbox"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingNotifier struct {
	mu         sync.Mutex
	statuses   []string
	lowStock   []string
	shortfalls []string
}

func (n *recordingNotifier) OrderStatusChanged(_ context.Context, _, orderID string, _, to domorder.Status) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.statuses = append(n.statuses, orderID+":"+string(to))
}

func (n *recordingNotifier) LowStock(_ context.Context, sku string, _, _ int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.lowStock = append(n.lowStock, sku)
}

func (n *recordingNotifier) InventoryShortfall(_ context.Context, orderID, sku string, _ int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.shortfalls = append(n.shortfalls, orderID+":"+sku)
}

func TestWorkerFansOutToNotifier(t *testing.T) {
	ctx := context.Background()
	bus := outbox.NewBus(nil)
	notifier := &recordingNotifier{}

	NewWorker(bus, notifier).Start()
	bus.Start(ctx)

	require.NoError(t, bus.Publish(ctx, domorder.StatusChangedEvent{
		OrderID:    "ord-1",
		CustomerID: "john@university.edu",
		From:       domorder.StatusPending,
		To:         domorder.StatusConfirmed,
	}))
	require.NoError(t, bus.Publish(ctx, dominventory.LowStockEvent{SKU: "1", Remaining: 4, Threshold: 10}))
	require.NoError(t, bus.Publish(ctx, dominventory.ShortfallEvent{OrderID: "ord-1", SKU: "1", Missing: 2}))

	bus.Stop(ctx)

	notifier.mu.Lock()
	defer notifier.mu.Unlock()
	assert.Equal(t, []string{"ord-1:confirmed"}, notifier.statuses)
	assert.Equal(t, []string{"1"}, notifier.lowStock)
	assert.Equal(t, []string{"ord-1:1"}, notifier.shortfalls)
}
