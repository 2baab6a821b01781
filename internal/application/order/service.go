package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	apppayment "github.com/Abdulsheik786/bite-ai-smart-canteen/internal/application/payment"
	"github.com/Abdulsheik786/bite-ai-smart-canteen/internal/domain/cart"
	domain "github.com/Abdulsheik786/bite-ai-smart-canteen/internal/domain/order"
	domoutbox "github.com/Abdulsheik786/bite-ai-smart-canteen/internal/domain/outbox"
	dompayment "github.com/Abdulsheik786/bite-ai-smart-canteen/internal/domain/payment"
	domwallet "github.com/Abdulsheik786/bite-ai-smart-canteen/internal/domain/wallet"
	"github.com/Abdulsheik786/bite-ai-smart-canteen/internal/infrastructure/id"
	"github.com/Abdulsheik786/bite-ai-smart-canteen/internal/observability"
	"github.com/Abdulsheik786/bite-ai-smart-canteen/internal/observability/logctx"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

const (
	serviceName = "order-service"

	useCaseCheckout     = "order.checkout"
	useCaseTransition   = "order.transition"
	useCaseConfirmation = "order.provider_confirmation"

	maxRefundAttempts = 3
	publishTimeout    = 300 * time.Millisecond
)

var ErrValidation = errors.New("order: validation")

// Service is the order ledger: it owns every order's lifecycle and
// coordinates the payment gateway, the wallet ledger and (via events) the
// inventory tracker.
type Service struct {
	orders    domain.Repository
	wallets   domwallet.Repository
	gateway   *apppayment.Gateway
	ids       id.Generator
	publisher domoutbox.Publisher
	tel       observability.Telemetry

	log          observability.Logger
	reqCounter   observability.Counter
	durHistogram observability.Histogram
}

func NewService(
	orders domain.Repository,
	wallets domwallet.Repository,
	gateway *apppayment.Gateway,
	ids id.Generator,
	publisher domoutbox.Publisher,
	tel observability.Telemetry,
) *Service {
	if tel == nil {
		tel = observability.NopTelemetry()
	}
	return &Service{
		orders:       orders,
		wallets:      wallets,
		gateway:      gateway,
		ids:          ids,
		publisher:    publisher,
		tel:          tel,
		log:          tel.Logger().With(observability.F("service", serviceName)),
		reqCounter:   tel.Counter(observability.MUsecaseRequests),
		durHistogram: tel.Histogram(observability.MUsecaseDuration),
	}
}

type CheckoutInput struct {
	Checkout cart.Checkout
	Method   dompayment.Method
}

type CheckoutResult struct {
	OrderID string
	Status  domain.Status
	Version uint64
}

// Checkout turns a frozen cart into a durable order and drives it through
// settlement. On payment failure the returned result still carries the order
// id and its final status alongside the error; only ErrUnavailable leaves the
// order Pending and safe to retry.
func (s *Service) Checkout(ctx context.Context, input CheckoutInput) (_ *CheckoutResult, err error) {
	logger := logctx.FromOr(ctx, s.log).With(observability.F("use_case", useCaseCheckout))
	ctx, span := s.tel.Tracer().Start(ctx, "UC.Checkout",
		attribute.String("use_case", useCaseCheckout),
		attribute.String("order.customer_id", input.Checkout.CustomerID),
	)
	start := time.Now()
	defer func() {
		s.observe(useCaseCheckout, outcomeOf(err), time.Since(start))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetStatus(codes.Ok, "OK")
		}
		span.End()
	}()

	if input.Checkout.CustomerID == "" {
		return nil, fmt.Errorf("%w: customer id is required", ErrValidation)
	}
	if len(input.Checkout.Lines) == 0 {
		return nil, fmt.Errorf("%w: %w", ErrValidation, cart.ErrEmptyCart)
	}

	entity, err := domain.New(s.ids.NewID(), input.Checkout, input.Method)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrValidation, err)
	}
	if err = s.orders.Insert(ctx, entity); err != nil {
		return nil, fmt.Errorf("order: insert: %w", err)
	}

	// Checkout submitted: Created -> Pending.
	if err = s.advance(ctx, entity, domain.StatusPending, ""); err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("order.id", entity.ID))
	logger.Info("checkout_accepted",
		observability.F("order_id", entity.ID),
		observability.F("subtotal", entity.Subtotal),
		observability.F("method", string(input.Method)),
	)

	ref, authErr := s.gateway.Authorize(ctx, entity)
	if authErr == nil {
		if err = s.confirm(ctx, entity, ref); err != nil {
			return nil, err
		}
		return s.result(entity), nil
	}

	if errors.Is(authErr, dompayment.ErrUnavailable) {
		// Provider unreachable after retry: leave Pending, the checkout is
		// safe to retry rather than guessing success.
		logger.Warn("authorize_unavailable", observability.F("order_id", entity.ID))
		return s.result(entity), authErr
	}

	if cancelErr := s.cancelPending(ctx, entity, authErr.Error()); cancelErr != nil {
		// A late confirmation may have confirmed the order under us; report
		// the settled state instead of the payment failure.
		if errors.Is(cancelErr, domain.ErrConflict) {
			if fresh, getErr := s.orders.Get(ctx, entity.ID); getErr == nil && fresh.Status == domain.StatusConfirmed {
				return s.result(fresh), nil
			}
		}
		return nil, cancelErr
	}
	return s.result(entity), authErr
}

type TransitionInput struct {
	OrderID string
	From    domain.Status
	To      domain.Status
	Actor   string
}

type TransitionResult struct {
	Status  domain.Status
	Version uint64
}

// staffSources are the states staff and admin actors may act on. Pending is
// owned by the gateway and Created by checkout itself.
var staffSources = map[domain.Status]bool{
	domain.StatusConfirmed: true,
	domain.StatusPreparing: true,
	domain.StatusReady:     true,
}

// Transition applies a staff-driven lifecycle move. The caller names the
// status it observed; if the order has moved on, the request fails with
// Conflict and no state change, never a silent overwrite.
func (s *Service) Transition(ctx context.Context, input TransitionInput) (_ *TransitionResult, err error) {
	logger := logctx.FromOr(ctx, s.log).With(
		observability.F("use_case", useCaseTransition),
		observability.F("order_id", input.OrderID),
	)
	ctx, span := s.tel.Tracer().Start(ctx, "UC.Transition",
		attribute.String("use_case", useCaseTransition),
		attribute.String("order.id", input.OrderID),
		attribute.String("order.to", string(input.To)),
	)
	start := time.Now()
	defer func() {
		s.observe(useCaseTransition, outcomeOf(err), time.Since(start))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetStatus(codes.Ok, "OK")
		}
		span.End()
	}()

	if !staffSources[input.From] {
		return nil, domain.ErrInvalidTransition
	}

	entity, err := s.orders.Get(ctx, input.OrderID)
	if err != nil {
		return nil, err
	}
	if entity.Status != input.From {
		return nil, domain.ErrConflict
	}

	reason := ""
	if input.To == domain.StatusCancelled {
		reason = "cancelled by " + input.Actor
	}

	// Cancelling a settled order means money already moved; record the
	// compensating credit before the order leaves its current state. If the
	// credit fails the cancel is rejected and stays retryable, and a retry
	// cannot double-credit because the ledger keys refunds by order id.
	if input.To == domain.StatusCancelled && entity.Settled() {
		if err = s.refund(ctx, entity); err != nil {
			logger.Error("refund_failed",
				observability.F("order_id", entity.ID),
				observability.F("error", err.Error()),
			)
			return nil, fmt.Errorf("order: refund: %w", err)
		}
	}

	if err = s.advance(ctx, entity, input.To, reason); err != nil {
		return nil, err
	}

	logger.Info("transition_applied",
		observability.F("from", string(input.From)),
		observability.F("to", string(input.To)),
		observability.F("actor", input.Actor),
	)
	return &TransitionResult{Status: entity.Status, Version: entity.Version}, nil
}

func (s *Service) Get(ctx context.Context, orderID string) (*domain.Order, error) {
	if orderID == "" {
		return nil, fmt.Errorf("%w: order id is required", ErrValidation)
	}
	return s.orders.Get(ctx, orderID)
}

// ListByStatus feeds the staff board, e.g. all orders currently Preparing.
func (s *Service) ListByStatus(ctx context.Context, status domain.Status) ([]*domain.Order, error) {
	switch status {
	case domain.StatusCreated, domain.StatusPending, domain.StatusConfirmed,
		domain.StatusPreparing, domain.StatusReady, domain.StatusCompleted, domain.StatusCancelled:
	default:
		return nil, fmt.Errorf("%w: unknown status %q", ErrValidation, status)
	}
	return s.orders.ListByStatus(ctx, status)
}

// HandleConfirmation consumes an asynchronous provider callback. If an
// authorization is still waiting on the order the confirmation rendezvouses
// with it; otherwise the event is reconciled against the order's current
// state: duplicates are no-ops, confirmations for cancelled orders become
// compensating credits, and a still-Pending order is settled forward.
func (s *Service) HandleConfirmation(ctx context.Context, conf dompayment.Confirmation) (err error) {
	logger := logctx.FromOr(ctx, s.log).With(
		observability.F("use_case", useCaseConfirmation),
		observability.F("order_id", conf.OrderID),
	)
	start := time.Now()
	defer func() { s.observe(useCaseConfirmation, outcomeOf(err), time.Since(start)) }()

	if s.gateway.Deliver(conf) {
		return nil
	}

	entity, err := s.orders.Get(ctx, conf.OrderID)
	if err != nil {
		return err
	}

	switch entity.Status {
	case domain.StatusCancelled:
		if conf.Outcome != dompayment.OutcomeSucceeded {
			return nil
		}
		// The order died before the money arrived. Never forward-apply;
		// record a compensating credit since funds moved externally.
		logger.Warn("late_confirmation_after_cancel")
		return s.refund(ctx, entity)

	case domain.StatusPending:
		if conf.Outcome != dompayment.OutcomeSucceeded {
			return s.cancelPending(ctx, entity, "declined by provider")
		}
		if err = s.confirm(ctx, entity, conf.TransactionRef); err != nil {
			if errors.Is(err, domain.ErrConflict) {
				// Lost the race against a concurrent cancel or confirm;
				// re-reconcile once from fresh state.
				return s.HandleConfirmation(ctx, conf)
			}
			return err
		}
		return nil

	default:
		// Confirmed or further along: duplicate delivery, exactly-once
		// settlement already holds.
		logger.Debug("duplicate_confirmation_ignored",
			observability.F("status", string(entity.Status)),
		)
		return nil
	}
}

// confirm settles the order: transaction ref, Pending -> Confirmed, and the
// confirmed event that triggers the inventory decrement.
func (s *Service) confirm(ctx context.Context, entity *domain.Order, ref string) error {
	from := entity.Status
	entity.SetTransactionRef(ref)
	if err := entity.TransitionTo(domain.StatusConfirmed); err != nil {
		return err
	}
	if err := s.orders.Update(ctx, entity, entity.Version); err != nil {
		return err
	}
	s.publish(ctx, domain.NewConfirmedEvent(entity))
	s.publish(ctx, domain.NewStatusChangedEvent(entity, from, ""))
	return nil
}

func (s *Service) cancelPending(ctx context.Context, entity *domain.Order, reason string) error {
	entity.SetCancelReason(reason)
	return s.advance(ctx, entity, domain.StatusCancelled, reason)
}

// advance performs one CAS-guarded transition and publishes the status
// change.
func (s *Service) advance(ctx context.Context, entity *domain.Order, to domain.Status, reason string) error {
	from := entity.Status
	if err := entity.TransitionTo(to); err != nil {
		return err
	}
	if err := s.orders.Update(ctx, entity, entity.Version); err != nil {
		return err
	}
	s.publish(ctx, domain.NewStatusChangedEvent(entity, from, reason))
	return nil
}

// refund issues the compensating credit for a settled order. Idempotent: the
// wallet ledger keys refunds by order id, so repeated attempts cannot
// double-credit.
func (s *Service) refund(ctx context.Context, entity *domain.Order) error {
	for attempt := 1; attempt <= maxRefundAttempts; attempt++ {
		account, err := s.wallets.Get(ctx, entity.CustomerID)
		if errors.Is(err, domwallet.ErrNotFound) {
			// External-provider customers may never have opened a wallet;
			// the compensating credit opens one at zero.
			account, err = s.openWallet(ctx, entity.CustomerID)
		}
		if err != nil {
			return err
		}
		entry, err := domwallet.NewRefund(s.ids.NewID(), account.OwnerID, entity.Subtotal, entity.ID)
		if err != nil {
			return err
		}
		_, err = s.wallets.Apply(ctx, entry, account.Version)
		if errors.Is(err, domwallet.ErrConflict) {
			continue
		}
		return err
	}
	return domwallet.ErrConflict
}

func (s *Service) openWallet(ctx context.Context, ownerID string) (*domwallet.Account, error) {
	account, err := domwallet.NewAccount(ownerID, 0)
	if err != nil {
		return nil, err
	}
	err = s.wallets.Create(ctx, account)
	if err != nil && !errors.Is(err, domwallet.ErrConflict) {
		return nil, err
	}
	// Conflict means someone else opened it first; either way read it back.
	return s.wallets.Get(ctx, ownerID)
}

func (s *Service) publish(ctx context.Context, e domoutbox.Event) {
	if s.publisher == nil {
		return
	}
	pubCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	if err := s.publisher.Publish(pubCtx, e); err != nil {
		s.log.Warn("event_publish_failed",
			observability.F("event", e.EventName()),
			observability.F("error", err.Error()),
		)
	}
}

func (s *Service) result(entity *domain.Order) *CheckoutResult {
	return &CheckoutResult{OrderID: entity.ID, Status: entity.Status, Version: entity.Version}
}

func (s *Service) observe(useCase, outcome string, elapsed time.Duration) {
	if s.reqCounter != nil {
		s.reqCounter.Add(1,
			observability.L("use_case", useCase),
			observability.L("outcome", outcome),
		)
	}
	if s.durHistogram != nil {
		s.durHistogram.Observe(elapsed.Seconds(),
			observability.L("use_case", useCase),
		)
	}
}

func outcomeOf(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}
