package payment

import (
	"context"
	"fmt"
	"time"

	domorder "github.com/Abdulsheik786/bite-ai-smart-canteen/internal/domain/order"
	dompayment "github.com/Abdulsheik786/bite-ai-smart-canteen/internal/domain/payment"
	"github.com/Abdulsheik786/bite-ai-smart-canteen/internal/observability"
)

// ProviderClient issues a payment request on the provider side and returns a
// pending merchant reference. Settlement arrives later as an asynchronous
// confirmation; the reference alone proves nothing.
type ProviderClient interface {
	RequestPayment(ctx context.Context, orderID string, amount int64) (string, error)
}

// ExternalOptions tunes the external strategy.
type ExternalOptions struct {
	// ConfirmDeadline is how long one wait for a confirmation may last.
	// Defaults to 120 seconds.
	ConfirmDeadline time.Duration
	// RetryBackoff is the pause before the single retry of an unreachable
	// provider request.
	RetryBackoff time.Duration
}

func (o ExternalOptions) withDefaults() ExternalOptions {
	if o.ConfirmDeadline <= 0 {
		o.ConfirmDeadline = 120 * time.Second
	}
	if o.RetryBackoff <= 0 {
		o.RetryBackoff = 500 * time.Millisecond
	}
	return o
}

// ExternalStrategy drives the QR/UPI provider flow: request, wait for the
// asynchronous confirmation rendezvoused by order id, retry the request once
// on deadline expiry, then surface Timeout.
type ExternalStrategy struct {
	client ProviderClient
	calls  *rendezvous
	opts   ExternalOptions
	log    observability.Logger
}

func NewExternalStrategy(client ProviderClient, calls *rendezvous, opts ExternalOptions, logger observability.Logger) *ExternalStrategy {
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &ExternalStrategy{
		client: client,
		calls:  calls,
		opts:   opts.withDefaults(),
		log:    logger.With(observability.F("component", "external_strategy")),
	}
}

func (s *ExternalStrategy) Authorize(ctx context.Context, o *domorder.Order) (string, error) {
	// Register before the first request so a provider that confirms faster
	// than we return cannot slip past the rendezvous.
	confirmations, release := s.calls.register(o.ID)
	defer release()

	if err := s.request(ctx, o); err != nil {
		return "", err
	}

	const maxWaits = 2 // initial wait plus one automatic re-request
	for wait := 1; wait <= maxWaits; wait++ {
		timer := time.NewTimer(s.opts.ConfirmDeadline)
		select {
		case conf := <-confirmations:
			timer.Stop()
			return settle(conf)
		case <-timer.C:
			if wait < maxWaits {
				s.log.Warn("confirmation_deadline_expired",
					observability.F("order_id", o.ID),
					observability.F("wait", wait),
				)
				if err := s.request(ctx, o); err != nil {
					return "", err
				}
			}
		case <-ctx.Done():
			timer.Stop()
			if conf, ok := s.lastCall(release, confirmations); ok {
				return settle(conf)
			}
			return "", ctx.Err()
		}
	}
	if conf, ok := s.lastCall(release, confirmations); ok {
		return settle(conf)
	}
	return "", dompayment.ErrTimeout
}

// lastCall closes the race between the deadline and a confirmation buffered
// in the same instant. Deregistering first means every later delivery is
// reported as unmatched and reconciled against the order; whatever was
// buffered before deregistration is consumed here, so no confirmation is ever
// silently dropped.
func (s *ExternalStrategy) lastCall(release func(), confirmations <-chan dompayment.Confirmation) (dompayment.Confirmation, bool) {
	release()
	select {
	case conf := <-confirmations:
		return conf, true
	default:
		return dompayment.Confirmation{}, false
	}
}

func settle(conf dompayment.Confirmation) (string, error) {
	if conf.Outcome != dompayment.OutcomeSucceeded {
		return "", dompayment.ErrDeclined
	}
	return conf.TransactionRef, nil
}

// request contacts the provider, retrying once with backoff before surfacing
// Unavailable.
func (s *ExternalStrategy) request(ctx context.Context, o *domorder.Order) error {
	_, err := s.client.RequestPayment(ctx, o.ID, o.Subtotal)
	if err == nil {
		return nil
	}

	s.log.Warn("provider_request_failed",
		observability.F("order_id", o.ID),
		observability.F("error", err.Error()),
	)

	select {
	case <-time.After(s.opts.RetryBackoff):
	case <-ctx.Done():
		return ctx.Err()
	}

	if _, err = s.client.RequestPayment(ctx, o.ID, o.Subtotal); err != nil {
		return fmt.Errorf("%w: %w", dompayment.ErrUnavailable, err)
	}
	return nil
}
