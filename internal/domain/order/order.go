package order

import (
	"errors"
	"time"

	"github.com/Abdulsheik786/bite-ai-smart-canteen/internal/domain/cart"
	"github.com/Abdulsheik786/bite-ai-smart-canteen/internal/domain/payment"
)

var (
	ErrNotFound          = errors.New("order: not found")
	ErrConflict          = errors.New("order: stale version")
	ErrInvalidTransition = errors.New("order: illegal status transition")
	ErrNoLines           = errors.New("order: at least one line is required")
)

type Status string

const (
	StatusCreated   Status = "created"
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusPreparing Status = "preparing"
	StatusReady     Status = "ready"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// legalTransitions is the complete edge table of the lifecycle. Completed and
// Cancelled are terminal.
var legalTransitions = map[Status][]Status{
	StatusCreated:   {StatusPending},
	StatusPending:   {StatusConfirmed, StatusCancelled},
	StatusConfirmed: {StatusPreparing, StatusCancelled},
	StatusPreparing: {StatusReady, StatusCancelled},
	StatusReady:     {StatusCompleted, StatusCancelled},
	StatusCompleted: {},
	StatusCancelled: {},
}

// Order owns one purchase from checkout to pickup. Lines are a frozen copy of
// the cart at checkout time. Version increments on every persisted mutation;
// writers must name the version they read or fail with ErrConflict.
type Order struct {
	ID               string
	CustomerID       string
	Lines            []cart.Line
	Subtotal         int64
	Status           Status
	PaymentMethod    payment.Method
	TransactionRef   string
	InventoryApplied bool
	CancelReason     string
	Version          uint64
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

func New(id string, checkout cart.Checkout, method payment.Method) (*Order, error) {
	if len(checkout.Lines) == 0 {
		return nil, ErrNoLines
	}
	if err := method.Validate(); err != nil {
		return nil, err
	}
	lines := make([]cart.Line, len(checkout.Lines))
	copy(lines, checkout.Lines)

	now := time.Now().UTC()
	return &Order{
		ID:            id,
		CustomerID:    checkout.CustomerID,
		Lines:         lines,
		Subtotal:      checkout.Subtotal,
		Status:        StatusCreated,
		PaymentMethod: method,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

func (o *Order) CanTransitionTo(to Status) bool {
	for _, next := range legalTransitions[o.Status] {
		if next == to {
			return true
		}
	}
	return false
}

// TransitionTo moves the order along a legal edge or rejects with no change.
func (o *Order) TransitionTo(to Status) error {
	if !o.CanTransitionTo(to) {
		return ErrInvalidTransition
	}
	o.Status = to
	o.touch()
	return nil
}

func (o *Order) Terminal() bool {
	return o.Status == StatusCompleted || o.Status == StatusCancelled
}

// Settled reports whether money has moved for this order.
func (o *Order) Settled() bool {
	return o.TransactionRef != ""
}

func (o *Order) SetTransactionRef(ref string) {
	o.TransactionRef = ref
	o.touch()
}

func (o *Order) SetCancelReason(reason string) {
	o.CancelReason = reason
	o.touch()
}

// MarkInventoryApplied flips the exactly-once guard for stock decrements.
func (o *Order) MarkInventoryApplied() {
	o.InventoryApplied = true
	o.touch()
}

func (o *Order) Clone() *Order {
	clone := *o
	clone.Lines = make([]cart.Line, len(o.Lines))
	copy(clone.Lines, o.Lines)
	return &clone
}

func (o *Order) touch() {
	o.UpdatedAt = time.Now().UTC()
}
