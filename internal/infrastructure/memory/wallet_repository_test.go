package memory

import (
	"context"
	"sync"
	"testing"

	domwallet "github.com/Abdulsheik786/bite-ai-smart-canteen/internal/domain/wallet"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestAccount(t *testing.T, repo *WalletRepository, owner string, balance int64) *domwallet.Account {
	t.Helper()
	account, err := domwallet.NewAccount(owner, balance)
	require.NoError(t, err)
	require.NoError(t, repo.Create(context.Background(), account))
	return account
}

func TestWalletRepositoryCreate(t *testing.T) {
	repo := NewWalletRepository()
	account := newTestAccount(t, repo, "john@university.edu", 250)
	assert.Equal(t, uint64(1), account.Version)

	dup, err := domwallet.NewAccount("john@university.edu", 0)
	require.NoError(t, err)
	assert.ErrorIs(t, repo.Create(context.Background(), dup), domwallet.ErrConflict)
}

func TestWalletRepositoryApplyDebit(t *testing.T) {
	repo := NewWalletRepository()
	ctx := context.Background()
	newTestAccount(t, repo, "john@university.edu", 250)

	entry, err := domwallet.NewDebit("e-1", "john@university.edu", 105, "ord-1")
	require.NoError(t, err)

	applied, err := repo.Apply(ctx, entry, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(-105), applied.Delta)

	account, err := repo.Get(ctx, "john@university.edu")
	require.NoError(t, err)
	assert.Equal(t, int64(145), account.Balance)
	assert.Equal(t, uint64(2), account.Version)
}

func TestWalletRepositoryApplyStaleVersion(t *testing.T) {
	repo := NewWalletRepository()
	ctx := context.Background()
	newTestAccount(t, repo, "john@university.edu", 250)

	entry, err := domwallet.NewDebit("e-1", "john@university.edu", 10, "ord-1")
	require.NoError(t, err)
	_, err = repo.Apply(ctx, entry, 99)
	assert.ErrorIs(t, err, domwallet.ErrConflict)

	account, err := repo.Get(ctx, "john@university.edu")
	require.NoError(t, err)
	assert.Equal(t, int64(250), account.Balance)
}

func TestWalletRepositoryApplyInsufficientFunds(t *testing.T) {
	repo := NewWalletRepository()
	ctx := context.Background()
	newTestAccount(t, repo, "sarah@university.edu", 50)

	entry, err := domwallet.NewDebit("e-1", "sarah@university.edu", 120, "ord-1")
	require.NoError(t, err)
	_, err = repo.Apply(ctx, entry, 1)
	assert.ErrorIs(t, err, domwallet.ErrInsufficientFunds)

	account, err := repo.Get(ctx, "sarah@university.edu")
	require.NoError(t, err)
	assert.Equal(t, int64(50), account.Balance)

	entries, err := repo.EntriesByWallet(ctx, "sarah@university.edu")
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestWalletRepositoryApplyIdempotentPerOrderReason(t *testing.T) {
	repo := NewWalletRepository()
	ctx := context.Background()
	newTestAccount(t, repo, "john@university.edu", 250)

	first, err := domwallet.NewDebit("e-1", "john@university.edu", 105, "ord-1")
	require.NoError(t, err)
	_, err = repo.Apply(ctx, first, 1)
	require.NoError(t, err)

	// Replayed settlement for the same order: recorded entry back, no second
	// balance change, even with a fresh version.
	replay, err := domwallet.NewDebit("e-2", "john@university.edu", 105, "ord-1")
	require.NoError(t, err)
	applied, err := repo.Apply(ctx, replay, 2)
	require.NoError(t, err)
	assert.Equal(t, "e-1", applied.ID)

	account, err := repo.Get(ctx, "john@university.edu")
	require.NoError(t, err)
	assert.Equal(t, int64(145), account.Balance)

	entries, err := repo.EntriesByOrder(ctx, "ord-1")
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	// A refund for the same order is a different reason and goes through.
	refund, err := domwallet.NewRefund("e-3", "john@university.edu", 105, "ord-1")
	require.NoError(t, err)
	_, err = repo.Apply(ctx, refund, 2)
	require.NoError(t, err)

	account, err = repo.Get(ctx, "john@university.edu")
	require.NoError(t, err)
	assert.Equal(t, int64(250), account.Balance)
}

func TestWalletRepositoryConcurrentDebitsSingleWinner(t *testing.T) {
	repo := NewWalletRepository()
	ctx := context.Background()
	newTestAccount(t, repo, "john@university.edu", 100)

	// Two debits of 80 against a balance of 100, both reading version 1: the
	// CAS lets at most one through and the balance never goes negative.
	orderIDs := []string{"ord-a", "ord-b"}
	var wg sync.WaitGroup
	errs := make([]error, len(orderIDs))
	for i, orderID := range orderIDs {
		wg.Add(1)
		go func(i int, orderID string) {
			defer wg.Done()
			entry, err := domwallet.NewDebit("e-"+orderID, "john@university.edu", 80, orderID)
			if err != nil {
				errs[i] = err
				return
			}
			_, errs[i] = repo.Apply(ctx, entry, 1)
		}(i, orderID)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else {
			assert.ErrorIs(t, err, domwallet.ErrConflict)
		}
	}
	assert.Equal(t, 1, succeeded)

	account, err := repo.Get(ctx, "john@university.edu")
	require.NoError(t, err)
	assert.Equal(t, int64(20), account.Balance)
}
