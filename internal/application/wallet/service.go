package wallet

import (
	"context"
	"errors"

	domain "github.com/Abdulsheik786/bite-ai-smart-canteen/internal/domain/wallet"
	"github.com/Abdulsheik786/bite-ai-smart-canteen/internal/infrastructure/id"
	"github.com/Abdulsheik786/bite-ai-smart-canteen/internal/observability"
)

const maxTopUpAttempts = 3

// Service covers the wallet operations outside settlement: admin top-ups and
// balance statements. Settlement debits and refunds go through the payment
// gateway and order service.
type Service struct {
	wallets domain.Repository
	ids     id.Generator
	log     observability.Logger
}

func NewService(wallets domain.Repository, ids id.Generator, logger observability.Logger) *Service {
	if logger == nil {
		logger = observability.NopLogger()
	}
	return &Service{
		wallets: wallets,
		ids:     ids,
		log:     logger.With(observability.F("component", "wallet_service")),
	}
}

// TopUp appends a non-order credit entry and returns the new balance.
func (s *Service) TopUp(ctx context.Context, ownerID string, amount int64) (int64, error) {
	for attempt := 1; attempt <= maxTopUpAttempts; attempt++ {
		account, err := s.wallets.Get(ctx, ownerID)
		if err != nil {
			return 0, err
		}
		entry, err := domain.NewTopUp(s.ids.NewID(), account.OwnerID, amount)
		if err != nil {
			return 0, err
		}
		if _, err = s.wallets.Apply(ctx, entry, account.Version); err != nil {
			if errors.Is(err, domain.ErrConflict) {
				continue
			}
			return 0, err
		}
		s.log.Info("wallet_topped_up",
			observability.F("owner_id", ownerID),
			observability.F("amount", amount),
		)
		return account.Balance + amount, nil
	}
	return 0, domain.ErrConflict
}

type Statement struct {
	Account *domain.Account
	Entries []domain.Entry
}

func (s *Service) Statement(ctx context.Context, ownerID string) (*Statement, error) {
	account, err := s.wallets.Get(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	entries, err := s.wallets.EntriesByWallet(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	return &Statement{Account: account, Entries: entries}, nil
}
