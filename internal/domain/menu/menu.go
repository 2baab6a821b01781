package menu

import (
	"errors"
	"time"
)

var (
	ErrNotFound    = errors.New("menu: item not found")
	ErrUnavailable = errors.New("menu: item unavailable")
	ErrInvalidItem = errors.New("menu: id, name and positive price are required")
)

// Item is a catalog entry. Price and availability change only through admin
// updates between sessions; open carts keep the price they snapshotted.
type Item struct {
	ID        string
	Name      string
	Price     int64
	Category  string
	Available bool
	UpdatedAt time.Time
}

func NewItem(id, name string, price int64, category string) (*Item, error) {
	if id == "" || name == "" || price <= 0 {
		return nil, ErrInvalidItem
	}
	return &Item{
		ID:        id,
		Name:      name,
		Price:     price,
		Category:  category,
		Available: true,
		UpdatedAt: time.Now().UTC(),
	}, nil
}

func (i *Item) SetPrice(price int64) error {
	if price <= 0 {
		return ErrInvalidItem
	}
	i.Price = price
	i.UpdatedAt = time.Now().UTC()
	return nil
}

func (i *Item) SetAvailable(available bool) {
	i.Available = available
	i.UpdatedAt = time.Now().UTC()
}
