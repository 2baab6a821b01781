package wallet

import "context"

type Repository interface {
	Get(ctx context.Context, ownerID string) (*Account, error)
	Create(ctx context.Context, account *Account) error

	// Apply appends the entry and adjusts the balance as one atomic step,
	// guarded by compare-and-swap on the account version. The balance check
	// and the debit happen under the same guard, so two debits can never
	// both observe sufficient funds when their sum exceeds the balance.
	//
	// Apply is idempotent per (OrderID, Reason): replaying a settlement or
	// refund returns the previously recorded entry without a second balance
	// change.
	Apply(ctx context.Context, entry Entry, expectedVersion uint64) (Entry, error)

	EntriesByWallet(ctx context.Context, walletID string) ([]Entry, error)
	EntriesByOrder(ctx context.Context, orderID string) ([]Entry, error)
}
