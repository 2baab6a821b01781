package provider

import (
	"context"
	"fmt"
	"sync"
	"time"

	dompayment "github.com/Abdulsheik786/bite-ai-smart-canteen/internal/domain/payment"
	"github.com/Abdulsheik786/bite-ai-smart-canteen/internal/infrastructure/id"
	"github.com/Abdulsheik786/bite-ai-smart-canteen/internal/observability"
)

// CallbackSink consumes provider confirmations, normally the order service.
type CallbackSink interface {
	HandleConfirmation(ctx context.Context, conf dompayment.Confirmation) error
}

// SimulatedClient stands in for a real UPI/QR provider. It hands out a
// merchant reference immediately and, when auto-confirm is enabled, delivers
// the asynchronous confirmation after a short delay, like a terminal that the
// customer scans a moment later.
type SimulatedClient struct {
	mu           sync.Mutex
	sink         CallbackSink
	ids          id.Generator
	confirmDelay time.Duration
	autoConfirm  bool
	log          observability.Logger
}

func NewSimulatedClient(ids id.Generator, confirmDelay time.Duration, autoConfirm bool, logger observability.Logger) *SimulatedClient {
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &SimulatedClient{
		ids:          ids,
		confirmDelay: confirmDelay,
		autoConfirm:  autoConfirm,
		log:          logger.With(observability.F("component", "upi_provider")),
	}
}

// SetSink wires the confirmation consumer after construction; the client and
// the order service reference each other.
func (c *SimulatedClient) SetSink(sink CallbackSink) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sink = sink
}

func (c *SimulatedClient) RequestPayment(ctx context.Context, orderID string, amount int64) (string, error) {
	_ = ctx
	ref := fmt.Sprintf("upi-%s", c.ids.NewID())

	c.log.Info("provider_payment_requested",
		observability.F("order_id", orderID),
		observability.F("amount", amount),
		observability.F("ref", ref),
	)

	c.mu.Lock()
	sink := c.sink
	auto := c.autoConfirm
	delay := c.confirmDelay
	c.mu.Unlock()

	if auto && sink != nil {
		go func() {
			time.Sleep(delay)
			err := sink.HandleConfirmation(context.Background(), dompayment.Confirmation{
				OrderID:        orderID,
				TransactionRef: ref,
				Outcome:        dompayment.OutcomeSucceeded,
			})
			if err != nil {
				c.log.Warn("provider_confirmation_rejected",
					observability.F("order_id", orderID),
					observability.F("error", err.Error()),
				)
			}
		}()
	}
	return ref, nil
}
