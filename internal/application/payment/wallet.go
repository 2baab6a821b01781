package payment

import (
	"context"
	"errors"

	domorder "github.com/Abdulsheik786/bite-ai-smart-canteen/internal/domain/order"
	dompayment "github.com/Abdulsheik786/bite-ai-smart-canteen/internal/domain/payment"
	domwallet "github.com/Abdulsheik786/bite-ai-smart-canteen/internal/domain/wallet"
	"github.com/Abdulsheik786/bite-ai-smart-canteen/internal/infrastructure/id"
	"github.com/Abdulsheik786/bite-ai-smart-canteen/internal/observability"
)

// maxDebitAttempts bounds the reload-and-retry loop on wallet version
// conflicts before the debit fails with Conflict.
const maxDebitAttempts = 3

// WalletStrategy settles an order synchronously against the customer's
// prepaid balance. The funds check and the debit are one atomic repository
// step; this loop only handles optimistic-concurrency retries.
type WalletStrategy struct {
	wallets domwallet.Repository
	ids     id.Generator
	log     observability.Logger
}

func NewWalletStrategy(wallets domwallet.Repository, ids id.Generator, logger observability.Logger) *WalletStrategy {
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &WalletStrategy{
		wallets: wallets,
		ids:     ids,
		log:     logger.With(observability.F("component", "wallet_strategy")),
	}
}

func (s *WalletStrategy) Authorize(ctx context.Context, o *domorder.Order) (string, error) {
	for attempt := 1; attempt <= maxDebitAttempts; attempt++ {
		account, err := s.wallets.Get(ctx, o.CustomerID)
		if err != nil {
			return "", err
		}
		if account.Balance < o.Subtotal {
			return "", dompayment.ErrInsufficientFunds
		}

		entry, err := domwallet.NewDebit(s.ids.NewID(), account.OwnerID, o.Subtotal, o.ID)
		if err != nil {
			return "", err
		}

		applied, err := s.wallets.Apply(ctx, entry, account.Version)
		switch {
		case err == nil:
			return applied.ID, nil
		case errors.Is(err, domwallet.ErrConflict):
			s.log.Debug("wallet_debit_conflict",
				observability.F("order_id", o.ID),
				observability.F("attempt", attempt),
			)
			continue
		case errors.Is(err, domwallet.ErrInsufficientFunds):
			return "", dompayment.ErrInsufficientFunds
		default:
			return "", err
		}
	}
	return "", dompayment.ErrConflict
}
