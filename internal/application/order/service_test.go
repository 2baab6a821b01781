package order

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	apppayment "github.com/Abdulsheik786/bite-ai-smart-canteen/internal/application/payment"
	"github.com/Abdulsheik786/bite-ai-smart-canteen/internal/domain/cart"
	domain "github.com/Abdulsheik786/bite-ai-smart-canteen/internal/domain/order"
	domoutbox "github.com/Abdulsheik786/bite-ai-smart-canteen/internal/domain/outbox"
	dompayment "github.com/Abdulsheik786/bite-ai-smart-canteen/internal/domain/payment"
	domwallet "github.com/Abdulsheik786/bite-ai-smart-canteen/internal/domain/wallet"
	"github.com/Abdulsheik786/bite-ai-smart-canteen/internal/infrastructure/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type seqIDs struct {
	mu sync.Mutex
	n  int
}

func (s *seqIDs) NewID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.n++
	return fmt.Sprintf("id-%d", s.n)
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []domoutbox.Event
}

func (p *recordingPublisher) Publish(_ context.Context, e domoutbox.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, e)
	return nil
}

func (p *recordingPublisher) names() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.EventName()
	}
	return out
}

type stubProvider struct {
	mu       sync.Mutex
	requests int
	fail     bool
	confirm  func(orderID, ref string)
}

func (p *stubProvider) RequestPayment(_ context.Context, orderID string, _ int64) (string, error) {
	p.mu.Lock()
	p.requests++
	n := p.requests
	confirm := p.confirm
	fail := p.fail
	p.mu.Unlock()

	if fail {
		return "", fmt.Errorf("connection refused")
	}
	ref := fmt.Sprintf("upi-%d", n)
	if confirm != nil {
		go confirm(orderID, ref)
	}
	return ref, nil
}

type fixture struct {
	svc      *Service
	orders   *memory.OrderRepository
	wallets  *memory.WalletRepository
	provider *stubProvider
	events   *recordingPublisher
}

func newFixture(t *testing.T, opts apppayment.ExternalOptions) *fixture {
	t.Helper()

	f := &fixture{
		orders:   memory.NewOrderRepository(),
		wallets:  memory.NewWalletRepository(),
		provider: &stubProvider{},
		events:   &recordingPublisher{},
	}
	gateway := apppayment.NewGateway(f.wallets, f.provider, &seqIDs{}, opts, nil)
	f.svc = NewService(f.orders, f.wallets, gateway, &seqIDs{}, f.events, nil)
	return f
}

func (f *fixture) seedWallet(t *testing.T, owner string, balance int64) {
	t.Helper()
	account, err := domwallet.NewAccount(owner, balance)
	require.NoError(t, err)
	require.NoError(t, f.wallets.Create(context.Background(), account))
}

func (f *fixture) balance(t *testing.T, owner string) int64 {
	t.Helper()
	account, err := f.wallets.Get(context.Background(), owner)
	require.NoError(t, err)
	return account.Balance
}

func checkoutInput(customer string, method dompayment.Method) CheckoutInput {
	return CheckoutInput{
		Checkout: cart.Checkout{
			CustomerID: customer,
			Lines: []cart.Line{
				{ItemID: "1", Name: "Veg Thali", UnitPrice: 80, Quantity: 1},
				{ItemID: "4", Name: "Fresh Lime Soda", UnitPrice: 25, Quantity: 1},
			},
			Subtotal: 105,
		},
		Method: method,
	}
}

func TestCheckoutWalletHappyPath(t *testing.T) {
	f := newFixture(t, apppayment.ExternalOptions{})
	f.seedWallet(t, "john@university.edu", 250)

	result, err := f.svc.Checkout(context.Background(), checkoutInput("john@university.edu", dompayment.MethodWallet))
	require.NoError(t, err)
	assert.Equal(t, domain.StatusConfirmed, result.Status)

	assert.Equal(t, int64(145), f.balance(t, "john@university.edu"))

	o, err := f.orders.Get(context.Background(), result.OrderID)
	require.NoError(t, err)
	assert.True(t, o.Settled())

	names := f.events.names()
	assert.Contains(t, names, domain.ConfirmedEvent{}.EventName())
	// Created -> Pending and Pending -> Confirmed both announced.
	count := 0
	for _, n := range names {
		if n == (domain.StatusChangedEvent{}).EventName() {
			count++
		}
	}
	assert.Equal(t, 2, count)
}

func TestCheckoutWalletInsufficientFunds(t *testing.T) {
	f := newFixture(t, apppayment.ExternalOptions{})
	f.seedWallet(t, "sarah@university.edu", 50)

	result, err := f.svc.Checkout(context.Background(), checkoutInput("sarah@university.edu", dompayment.MethodWallet))
	assert.ErrorIs(t, err, dompayment.ErrInsufficientFunds)
	require.NotNil(t, result)
	assert.Equal(t, domain.StatusCancelled, result.Status)

	// Nothing moved.
	assert.Equal(t, int64(50), f.balance(t, "sarah@university.edu"))
	entries, err := f.wallets.EntriesByOrder(context.Background(), result.OrderID)
	require.NoError(t, err)
	assert.Empty(t, entries)

	o, err := f.orders.Get(context.Background(), result.OrderID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCancelled, o.Status)
	assert.False(t, o.Settled())
	assert.NotEmpty(t, o.CancelReason)
}

func TestCheckoutExternalConfirmed(t *testing.T) {
	f := newFixture(t, apppayment.ExternalOptions{ConfirmDeadline: time.Second})
	f.provider.confirm = func(orderID, ref string) {
		_ = f.svc.HandleConfirmation(context.Background(), dompayment.Confirmation{
			OrderID:        orderID,
			TransactionRef: ref,
			Outcome:        dompayment.OutcomeSucceeded,
		})
	}

	result, err := f.svc.Checkout(context.Background(), checkoutInput("john@university.edu", dompayment.MethodExternal))
	require.NoError(t, err)
	assert.Equal(t, domain.StatusConfirmed, result.Status)

	o, err := f.orders.Get(context.Background(), result.OrderID)
	require.NoError(t, err)
	assert.Equal(t, "upi-1", o.TransactionRef)
}

func TestCheckoutExternalTimeoutCancels(t *testing.T) {
	f := newFixture(t, apppayment.ExternalOptions{ConfirmDeadline: 10 * time.Millisecond})

	result, err := f.svc.Checkout(context.Background(), checkoutInput("john@university.edu", dompayment.MethodExternal))
	assert.ErrorIs(t, err, dompayment.ErrTimeout)
	require.NotNil(t, result)
	assert.Equal(t, domain.StatusCancelled, result.Status)

	o, err := f.orders.Get(context.Background(), result.OrderID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCancelled, o.Status)
	assert.False(t, o.Settled())
}

func TestCheckoutExternalUnavailableLeavesPending(t *testing.T) {
	f := newFixture(t, apppayment.ExternalOptions{
		ConfirmDeadline: time.Second,
		RetryBackoff:    time.Millisecond,
	})
	f.provider.fail = true

	result, err := f.svc.Checkout(context.Background(), checkoutInput("john@university.edu", dompayment.MethodExternal))
	assert.ErrorIs(t, err, dompayment.ErrUnavailable)
	require.NotNil(t, result)
	assert.Equal(t, domain.StatusPending, result.Status)

	o, err := f.orders.Get(context.Background(), result.OrderID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPending, o.Status)
}

func TestCheckoutValidation(t *testing.T) {
	f := newFixture(t, apppayment.ExternalOptions{})

	input := checkoutInput("", dompayment.MethodWallet)
	_, err := f.svc.Checkout(context.Background(), input)
	assert.ErrorIs(t, err, ErrValidation)

	input = checkoutInput("john@university.edu", dompayment.MethodWallet)
	input.Checkout.Lines = nil
	_, err = f.svc.Checkout(context.Background(), input)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestHandleConfirmationForwardAppliesPending(t *testing.T) {
	// Confirmation arrives after the waiter is gone, e.g. the process
	// restarted between request and callback. The order is still settled.
	f := newFixture(t, apppayment.ExternalOptions{
		ConfirmDeadline: 10 * time.Millisecond,
	})

	result, err := f.svc.Checkout(context.Background(), checkoutInput("john@university.edu", dompayment.MethodExternal))
	assert.ErrorIs(t, err, dompayment.ErrTimeout)
	orderID := result.OrderID

	// Rewind the order to Pending to simulate the callback racing the cancel.
	o, err := f.orders.Get(context.Background(), orderID)
	require.NoError(t, err)
	o.Status = domain.StatusPending
	require.NoError(t, f.orders.Update(context.Background(), o, o.Version))

	err = f.svc.HandleConfirmation(context.Background(), dompayment.Confirmation{
		OrderID:        orderID,
		TransactionRef: "upi-late",
		Outcome:        dompayment.OutcomeSucceeded,
	})
	require.NoError(t, err)

	o, err = f.orders.Get(context.Background(), orderID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusConfirmed, o.Status)
	assert.Equal(t, "upi-late", o.TransactionRef)
}

func TestHandleConfirmationAfterCancelRefundsWithoutForwardApply(t *testing.T) {
	f := newFixture(t, apppayment.ExternalOptions{ConfirmDeadline: 10 * time.Millisecond})
	f.seedWallet(t, "john@university.edu", 100)

	result, err := f.svc.Checkout(context.Background(), checkoutInput("john@university.edu", dompayment.MethodExternal))
	assert.ErrorIs(t, err, dompayment.ErrTimeout)
	require.Equal(t, domain.StatusCancelled, result.Status)

	// Money moved on the provider side even though the order died here; the
	// late success becomes a compensating wallet credit.
	err = f.svc.HandleConfirmation(context.Background(), dompayment.Confirmation{
		OrderID:        result.OrderID,
		TransactionRef: "upi-late",
		Outcome:        dompayment.OutcomeSucceeded,
	})
	require.NoError(t, err)

	o, err := f.orders.Get(context.Background(), result.OrderID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCancelled, o.Status)
	assert.Empty(t, o.TransactionRef)

	assert.Equal(t, int64(205), f.balance(t, "john@university.edu"))

	// The refund ledger key makes a replay of the same callback harmless.
	err = f.svc.HandleConfirmation(context.Background(), dompayment.Confirmation{
		OrderID:        result.OrderID,
		TransactionRef: "upi-late",
		Outcome:        dompayment.OutcomeSucceeded,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(205), f.balance(t, "john@university.edu"))
}

func TestHandleConfirmationDuplicateIsNoOp(t *testing.T) {
	f := newFixture(t, apppayment.ExternalOptions{})
	f.seedWallet(t, "john@university.edu", 250)

	result, err := f.svc.Checkout(context.Background(), checkoutInput("john@university.edu", dompayment.MethodWallet))
	require.NoError(t, err)

	before, err := f.orders.Get(context.Background(), result.OrderID)
	require.NoError(t, err)

	err = f.svc.HandleConfirmation(context.Background(), dompayment.Confirmation{
		OrderID:        result.OrderID,
		TransactionRef: "upi-dup",
		Outcome:        dompayment.OutcomeSucceeded,
	})
	require.NoError(t, err)

	after, err := f.orders.Get(context.Background(), result.OrderID)
	require.NoError(t, err)
	assert.Equal(t, before.Version, after.Version)
	assert.Equal(t, before.TransactionRef, after.TransactionRef)
	assert.Equal(t, int64(145), f.balance(t, "john@university.edu"))
}

func TestHandleConfirmationDeclineCancelsPending(t *testing.T) {
	f := newFixture(t, apppayment.ExternalOptions{ConfirmDeadline: 10 * time.Millisecond})

	result, err := f.svc.Checkout(context.Background(), checkoutInput("john@university.edu", dompayment.MethodExternal))
	assert.ErrorIs(t, err, dompayment.ErrTimeout)

	o, err := f.orders.Get(context.Background(), result.OrderID)
	require.NoError(t, err)
	o.Status = domain.StatusPending
	require.NoError(t, f.orders.Update(context.Background(), o, o.Version))

	err = f.svc.HandleConfirmation(context.Background(), dompayment.Confirmation{
		OrderID: result.OrderID,
		Outcome: dompayment.OutcomeFailed,
	})
	require.NoError(t, err)

	o, err = f.orders.Get(context.Background(), result.OrderID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCancelled, o.Status)
}

func TestTransitionHappyPath(t *testing.T) {
	f := newFixture(t, apppayment.ExternalOptions{})
	f.seedWallet(t, "john@university.edu", 250)

	result, err := f.svc.Checkout(context.Background(), checkoutInput("john@university.edu", dompayment.MethodWallet))
	require.NoError(t, err)

	moved, err := f.svc.Transition(context.Background(), TransitionInput{
		OrderID: result.OrderID,
		From:    domain.StatusConfirmed,
		To:      domain.StatusPreparing,
		Actor:   "staff:kitchen",
	})
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPreparing, moved.Status)
}

func TestTransitionStaleFromConflicts(t *testing.T) {
	f := newFixture(t, apppayment.ExternalOptions{})
	f.seedWallet(t, "john@university.edu", 250)

	result, err := f.svc.Checkout(context.Background(), checkoutInput("john@university.edu", dompayment.MethodWallet))
	require.NoError(t, err)

	_, err = f.svc.Transition(context.Background(), TransitionInput{
		OrderID: result.OrderID,
		From:    domain.StatusConfirmed,
		To:      domain.StatusPreparing,
		Actor:   "staff:kitchen",
	})
	require.NoError(t, err)

	// A second screen still showing Confirmed must not silently overwrite.
	_, err = f.svc.Transition(context.Background(), TransitionInput{
		OrderID: result.OrderID,
		From:    domain.StatusConfirmed,
		To:      domain.StatusCancelled,
		Actor:   "staff:counter",
	})
	assert.ErrorIs(t, err, domain.ErrConflict)

	o, err := f.orders.Get(context.Background(), result.OrderID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusPreparing, o.Status)
}

func TestTransitionRejectsNonStaffSource(t *testing.T) {
	f := newFixture(t, apppayment.ExternalOptions{})

	_, err := f.svc.Transition(context.Background(), TransitionInput{
		OrderID: "ord-1",
		From:    domain.StatusPending,
		To:      domain.StatusCancelled,
		Actor:   "staff:counter",
	})
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestTransitionCancelSettledOrderRefunds(t *testing.T) {
	f := newFixture(t, apppayment.ExternalOptions{})
	f.seedWallet(t, "john@university.edu", 250)

	result, err := f.svc.Checkout(context.Background(), checkoutInput("john@university.edu", dompayment.MethodWallet))
	require.NoError(t, err)
	require.Equal(t, int64(145), f.balance(t, "john@university.edu"))

	_, err = f.svc.Transition(context.Background(), TransitionInput{
		OrderID: result.OrderID,
		From:    domain.StatusConfirmed,
		To:      domain.StatusCancelled,
		Actor:   "staff:counter",
	})
	require.NoError(t, err)

	assert.Equal(t, int64(250), f.balance(t, "john@university.edu"))

	entries, err := f.wallets.EntriesByOrder(context.Background(), result.OrderID)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, domwallet.ReasonDebit, entries[0].Reason)
	assert.Equal(t, domwallet.ReasonRefund, entries[1].Reason)
}

func TestListByStatus(t *testing.T) {
	f := newFixture(t, apppayment.ExternalOptions{})
	f.seedWallet(t, "john@university.edu", 250)

	result, err := f.svc.Checkout(context.Background(), checkoutInput("john@university.edu", dompayment.MethodWallet))
	require.NoError(t, err)

	confirmed, err := f.svc.ListByStatus(context.Background(), domain.StatusConfirmed)
	require.NoError(t, err)
	require.Len(t, confirmed, 1)
	assert.Equal(t, result.OrderID, confirmed[0].ID)

	ready, err := f.svc.ListByStatus(context.Background(), domain.StatusReady)
	require.NoError(t, err)
	assert.Empty(t, ready)

	_, err = f.svc.ListByStatus(context.Background(), domain.Status("bogus"))
	assert.ErrorIs(t, err, ErrValidation)
}

func TestTransitionCancelSettledExternalOrderOpensWalletForRefund(t *testing.T) {
	f := newFixture(t, apppayment.ExternalOptions{ConfirmDeadline: time.Second})
	f.provider.confirm = func(orderID, ref string) {
		_ = f.svc.HandleConfirmation(context.Background(), dompayment.Confirmation{
			OrderID:        orderID,
			TransactionRef: ref,
			Outcome:        dompayment.OutcomeSucceeded,
		})
	}

	// The customer paid through the provider and has never opened a wallet.
	result, err := f.svc.Checkout(context.Background(), checkoutInput("guest@university.edu", dompayment.MethodExternal))
	require.NoError(t, err)
	require.Equal(t, domain.StatusConfirmed, result.Status)

	_, err = f.svc.Transition(context.Background(), TransitionInput{
		OrderID: result.OrderID,
		From:    domain.StatusConfirmed,
		To:      domain.StatusCancelled,
		Actor:   "staff:counter",
	})
	require.NoError(t, err)

	// The compensating credit opened a wallet and landed the full amount.
	assert.Equal(t, int64(105), f.balance(t, "guest@university.edu"))

	entries, err := f.wallets.EntriesByOrder(context.Background(), result.OrderID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, domwallet.ReasonRefund, entries[0].Reason)

	o, err := f.orders.Get(context.Background(), result.OrderID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCancelled, o.Status)
}

func TestHandleConfirmationAfterCancelOpensWalletForRefund(t *testing.T) {
	f := newFixture(t, apppayment.ExternalOptions{ConfirmDeadline: 10 * time.Millisecond})

	result, err := f.svc.Checkout(context.Background(), checkoutInput("guest@university.edu", dompayment.MethodExternal))
	assert.ErrorIs(t, err, dompayment.ErrTimeout)
	require.Equal(t, domain.StatusCancelled, result.Status)

	err = f.svc.HandleConfirmation(context.Background(), dompayment.Confirmation{
		OrderID:        result.OrderID,
		TransactionRef: "upi-late",
		Outcome:        dompayment.OutcomeSucceeded,
	})
	require.NoError(t, err)

	assert.Equal(t, int64(105), f.balance(t, "guest@university.edu"))
}

func TestGetValidatesID(t *testing.T) {
	f := newFixture(t, apppayment.ExternalOptions{})

	_, err := f.svc.Get(context.Background(), "")
	assert.ErrorIs(t, err, ErrValidation)

	_, err = f.svc.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
