package payment

import (
	"context"

	domorder "github.com/Abdulsheik786/bite-ai-smart-canteen/internal/domain/order"
	dompayment "github.com/Abdulsheik786/bite-ai-smart-canteen/internal/domain/payment"
	domwallet "github.com/Abdulsheik786/bite-ai-smart-canteen/internal/domain/wallet"
	"github.com/Abdulsheik786/bite-ai-smart-canteen/internal/infrastructure/id"
	"github.com/Abdulsheik786/bite-ai-smart-canteen/internal/observability"
)

// Strategy authorizes payment for an order and returns a transaction
// reference, or a typed failure from the domain payment package. On any
// failure path no partial debit or dangling reservation remains.
type Strategy interface {
	Authorize(ctx context.Context, o *domorder.Order) (string, error)
}

// Gateway is polymorphic over the configured settlement strategies and owns
// the rendezvous point for asynchronous provider confirmations.
type Gateway struct {
	strategies map[dompayment.Method]Strategy
	calls      *rendezvous
	log        observability.Logger
}

func NewGateway(
	wallets domwallet.Repository,
	client ProviderClient,
	ids id.Generator,
	opts ExternalOptions,
	logger observability.Logger,
) *Gateway {
	if logger == nil {
		logger = observability.NopLogger()
	}
	calls := newRendezvous()
	return &Gateway{
		strategies: map[dompayment.Method]Strategy{
			dompayment.MethodWallet:   NewWalletStrategy(wallets, ids, logger),
			dompayment.MethodExternal: NewExternalStrategy(client, calls, opts, logger),
		},
		calls: calls,
		log:   logger.With(observability.F("component", "payment_gateway")),
	}
}

func (g *Gateway) Authorize(ctx context.Context, o *domorder.Order) (string, error) {
	strategy, ok := g.strategies[o.PaymentMethod]
	if !ok {
		return "", dompayment.ErrUnknownMethod
	}
	return strategy.Authorize(ctx, o)
}

// Deliver hands a provider confirmation to the authorization waiting on the
// same order, if any. It reports false when no waiter exists, meaning the
// confirmation arrived late and the caller must reconcile against the order's
// current state.
func (g *Gateway) Deliver(conf dompayment.Confirmation) bool {
	delivered := g.calls.deliver(conf)
	g.log.Debug("confirmation_delivered",
		observability.F("order_id", conf.OrderID),
		observability.F("rendezvous", delivered),
	)
	return delivered
}
