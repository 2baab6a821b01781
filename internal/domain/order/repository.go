package order

import "context"

type Repository interface {
	Insert(ctx context.Context, order *Order) error
	Get(ctx context.Context, id string) (*Order, error)
	// Update persists the order only if the stored version still equals
	// expectedVersion, then increments it. Stale writers get ErrConflict.
	Update(ctx context.Context, order *Order, expectedVersion uint64) error
	ListByStatus(ctx context.Context, status Status) ([]*Order, error)
}
