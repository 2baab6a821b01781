package inventory

import (
	"errors"
	"time"
)

var (
	ErrNotFound        = errors.New("inventory: sku not found")
	ErrInvalidQuantity = errors.New("inventory: quantity must be greater than zero")
)

// Item tracks on-hand stock for one sku. Stock checks belong to the catalog;
// a decrement for an already-authorized order never fails, it clamps at zero
// and reports the shortfall instead.
type Item struct {
	SKU              string
	Quantity         int
	ReorderThreshold int
	UpdatedAt        time.Time
}

func NewItem(sku string, quantity, reorderThreshold int) (*Item, error) {
	if sku == "" || quantity < 0 {
		return nil, ErrInvalidQuantity
	}
	if reorderThreshold < 0 {
		reorderThreshold = 0
	}
	return &Item{
		SKU:              sku,
		Quantity:         quantity,
		ReorderThreshold: reorderThreshold,
		UpdatedAt:        time.Now().UTC(),
	}, nil
}

// Deduct removes up to quantity units and returns the unmet remainder.
func (i *Item) Deduct(quantity int) (shortfall int, err error) {
	if quantity <= 0 {
		return 0, ErrInvalidQuantity
	}
	if quantity > i.Quantity {
		shortfall = quantity - i.Quantity
		i.Quantity = 0
	} else {
		i.Quantity -= quantity
	}
	i.touch()
	return shortfall, nil
}

func (i *Item) Restock(quantity int) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}
	i.Quantity += quantity
	i.touch()
	return nil
}

// LowStock reports whether the reorder threshold has been reached.
func (i *Item) LowStock() bool {
	return i.Quantity <= i.ReorderThreshold
}

func (i *Item) touch() {
	i.UpdatedAt = time.Now().UTC()
}
