package cart

import (
	"context"
	"fmt"
	"sync"

	domain "github.com/Abdulsheik786/bite-ai-smart-canteen/internal/domain/cart"
	"github.com/Abdulsheik786/bite-ai-smart-canteen/internal/domain/menu"
	"github.com/Abdulsheik786/bite-ai-smart-canteen/internal/observability"
)

// Service holds the open cart of each customer session. Carts are
// single-actor, so one service-level mutex is enough to keep every mutation,
// including Clear, atomic for observers.
type Service struct {
	mu      sync.Mutex
	carts   map[string]*domain.Cart
	catalog menu.Repository
	log     observability.Logger
}

func NewService(catalog menu.Repository, logger observability.Logger) *Service {
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &Service{
		carts:   make(map[string]*domain.Cart),
		catalog: catalog,
		log:     logger.With(observability.F("component", "cart_service")),
	}
}

// View is an immutable snapshot for presentation.
type View struct {
	CustomerID string
	Lines      []domain.Line
	Total      int64
}

// AddItem validates availability against the catalog and snapshots the
// current price into the cart line.
func (s *Service) AddItem(ctx context.Context, customerID, itemID string, quantity int) (View, error) {
	if customerID == "" {
		return View{}, fmt.Errorf("cart: customer id is required")
	}
	item, err := s.catalog.Get(ctx, itemID)
	if err != nil {
		return View{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.cartForLocked(customerID)
	if err := c.AddItem(item, quantity); err != nil {
		return View{}, err
	}
	return viewOf(c), nil
}

func (s *Service) RemoveLine(ctx context.Context, customerID string, index int) (View, error) {
	_ = ctx

	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.cartForLocked(customerID)
	if err := c.RemoveLine(index); err != nil {
		return View{}, err
	}
	return viewOf(c), nil
}

func (s *Service) Get(ctx context.Context, customerID string) (View, error) {
	_ = ctx

	s.mu.Lock()
	defer s.mu.Unlock()

	return viewOf(s.cartForLocked(customerID)), nil
}

// Freeze produces the immutable checkout request handed to the order ledger.
func (s *Service) Freeze(ctx context.Context, customerID string) (domain.Checkout, error) {
	_ = ctx

	s.mu.Lock()
	defer s.mu.Unlock()

	return s.cartForLocked(customerID).Freeze()
}

// Clear empties the cart after a successful checkout handoff. No observer
// ever sees a partially cleared cart.
func (s *Service) Clear(ctx context.Context, customerID string) {
	_ = ctx

	s.mu.Lock()
	defer s.mu.Unlock()

	s.cartForLocked(customerID).Clear()
	s.log.Debug("cart_cleared", observability.F("customer_id", customerID))
}

func (s *Service) cartForLocked(customerID string) *domain.Cart {
	c, ok := s.carts[customerID]
	if !ok {
		c = domain.New(customerID)
		s.carts[customerID] = c
	}
	return c
}

func viewOf(c *domain.Cart) View {
	lines := make([]domain.Line, len(c.Lines))
	copy(lines, c.Lines)
	return View{CustomerID: c.CustomerID, Lines: lines, Total: c.Total()}
}
