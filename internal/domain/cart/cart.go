package cart

import (
	"errors"
	"time"

	"github.com/Abdulsheik786/bite-ai-smart-canteen/internal/domain/menu"
)

var (
	ErrEmptyCart    = errors.New("cart: no lines to check out")
	ErrLineNotFound = errors.New("cart: line index out of range")
)

// Line is a single selected menu item. UnitPrice is snapshotted when the line
// is added so later catalog price edits never change an open cart's total.
type Line struct {
	ItemID    string
	Name      string
	UnitPrice int64
	Quantity  int
}

func (l Line) Total() int64 { return l.UnitPrice * int64(l.Quantity) }

// Cart accumulates lines for one customer session. It is not safe for
// concurrent use on its own; the owning service serializes access.
type Cart struct {
	CustomerID string
	Lines      []Line
	UpdatedAt  time.Time
}

func New(customerID string) *Cart {
	return &Cart{CustomerID: customerID, UpdatedAt: time.Now().UTC()}
}

// AddItem snapshots the item's current price. A repeated add of the same item
// at the same snapshot price bumps the existing line's quantity.
func (c *Cart) AddItem(item *menu.Item, quantity int) error {
	if item == nil || !item.Available {
		return menu.ErrUnavailable
	}
	if quantity <= 0 {
		quantity = 1
	}
	for i := range c.Lines {
		if c.Lines[i].ItemID == item.ID && c.Lines[i].UnitPrice == item.Price {
			c.Lines[i].Quantity += quantity
			c.touch()
			return nil
		}
	}
	c.Lines = append(c.Lines, Line{
		ItemID:    item.ID,
		Name:      item.Name,
		UnitPrice: item.Price,
		Quantity:  quantity,
	})
	c.touch()
	return nil
}

func (c *Cart) RemoveLine(index int) error {
	if index < 0 || index >= len(c.Lines) {
		return ErrLineNotFound
	}
	c.Lines = append(c.Lines[:index], c.Lines[index+1:]...)
	c.touch()
	return nil
}

// Total is always the sum of the snapshot prices, independent of the catalog.
func (c *Cart) Total() int64 {
	var total int64
	for _, l := range c.Lines {
		total += l.Total()
	}
	return total
}

// Checkout is the immutable request produced by Freeze.
type Checkout struct {
	CustomerID string
	Lines      []Line
	Subtotal   int64
}

// Freeze copies the cart into an immutable checkout request. The cart itself
// is left untouched; it is cleared only after the order ledger accepts the
// handoff and settlement succeeds.
func (c *Cart) Freeze() (Checkout, error) {
	if len(c.Lines) == 0 {
		return Checkout{}, ErrEmptyCart
	}
	lines := make([]Line, len(c.Lines))
	copy(lines, c.Lines)
	return Checkout{
		CustomerID: c.CustomerID,
		Lines:      lines,
		Subtotal:   c.Total(),
	}, nil
}

func (c *Cart) Clear() {
	c.Lines = nil
	c.touch()
}

func (c *Cart) touch() {
	c.UpdatedAt = time.Now().UTC()
}
