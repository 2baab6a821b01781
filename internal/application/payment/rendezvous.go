package payment

import (
	"sync"

	dompayment "github.com/Abdulsheik786/bite-ai-smart-canteen/internal/domain/payment"
)

// rendezvous matches asynchronous provider confirmations with the
// authorization call blocked on the same order. Matching is strictly by
// order id.
type rendezvous struct {
	mu      sync.Mutex
	waiters map[string]chan dompayment.Confirmation
}

func newRendezvous() *rendezvous {
	return &rendezvous{waiters: make(map[string]chan dompayment.Confirmation)}
}

// register installs a waiter for the order and returns the channel plus a
// release func. The channel is buffered so delivery never blocks the
// callback path.
func (r *rendezvous) register(orderID string) (<-chan dompayment.Confirmation, func()) {
	ch := make(chan dompayment.Confirmation, 1)

	r.mu.Lock()
	r.waiters[orderID] = ch
	r.mu.Unlock()

	release := func() {
		r.mu.Lock()
		if r.waiters[orderID] == ch {
			delete(r.waiters, orderID)
		}
		r.mu.Unlock()
	}
	return ch, release
}

// deliver returns true when a waiter consumed (or already holds) the
// confirmation. A duplicate arriving while the first is still buffered is
// absorbed here rather than treated as late.
func (r *rendezvous) deliver(conf dompayment.Confirmation) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	ch, ok := r.waiters[conf.OrderID]
	if !ok {
		return false
	}
	select {
	case ch <- conf:
	default:
	}
	return true
}
