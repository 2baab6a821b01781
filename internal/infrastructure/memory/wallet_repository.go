package memory

import (
	"context"
	"fmt"
	"sync"

	domain "github.com/Abdulsheik786/bite-ai-smart-canteen/internal/domain/wallet"
)

// WalletRepository keeps accounts and an append-only ledger in memory. The
// balance adjustment, the non-negative check and the entry append happen
// under one lock, so no two debits can both observe sufficient funds.
type WalletRepository struct {
	mu       sync.RWMutex
	accounts map[string]*domain.Account
	entries  []domain.Entry
	byOrder  map[orderReasonKey]int // index into entries
}

type orderReasonKey struct {
	orderID string
	reason  domain.Reason
}

func NewWalletRepository() *WalletRepository {
	return &WalletRepository{
		accounts: make(map[string]*domain.Account),
		byOrder:  make(map[orderReasonKey]int),
	}
}

func (r *WalletRepository) Create(ctx context.Context, account *domain.Account) error {
	_ = ctx
	if account == nil || account.OwnerID == "" {
		return fmt.Errorf("wallet repository: owner id is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.accounts[account.OwnerID]; exists {
		return domain.ErrConflict
	}
	account.Version = 1
	r.accounts[account.OwnerID] = cloneAccount(account)
	return nil
}

func (r *WalletRepository) Get(ctx context.Context, ownerID string) (*domain.Account, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	account, ok := r.accounts[ownerID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return cloneAccount(account), nil
}

// Apply is the single mutation path for balances. It is idempotent per
// (OrderID, Reason): a replayed settlement returns the recorded entry with no
// second balance change.
func (r *WalletRepository) Apply(ctx context.Context, entry domain.Entry, expectedVersion uint64) (domain.Entry, error) {
	_ = ctx

	r.mu.Lock()
	defer r.mu.Unlock()

	if entry.OrderID != "" {
		key := orderReasonKey{orderID: entry.OrderID, reason: entry.Reason}
		if idx, dup := r.byOrder[key]; dup {
			return r.entries[idx], nil
		}
	}

	account, ok := r.accounts[entry.WalletID]
	if !ok {
		return domain.Entry{}, domain.ErrNotFound
	}
	if account.Version != expectedVersion {
		return domain.Entry{}, domain.ErrConflict
	}
	if account.Balance+entry.Delta < 0 {
		return domain.Entry{}, domain.ErrInsufficientFunds
	}

	account.Balance += entry.Delta
	account.Version++
	account.UpdatedAt = entry.CreatedAt

	r.entries = append(r.entries, entry)
	if entry.OrderID != "" {
		r.byOrder[orderReasonKey{orderID: entry.OrderID, reason: entry.Reason}] = len(r.entries) - 1
	}
	return entry, nil
}

func (r *WalletRepository) EntriesByWallet(ctx context.Context, walletID string) ([]domain.Entry, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []domain.Entry
	for _, e := range r.entries {
		if e.WalletID == walletID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *WalletRepository) EntriesByOrder(ctx context.Context, orderID string) ([]domain.Entry, error) {
	_ = ctx

	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []domain.Entry
	for _, e := range r.entries {
		if e.OrderID == orderID {
			out = append(out, e)
		}
	}
	return out, nil
}

func cloneAccount(a *domain.Account) *domain.Account {
	if a == nil {
		return nil
	}
	clone := *a
	return &clone
}
