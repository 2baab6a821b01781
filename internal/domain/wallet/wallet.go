package wallet

import (
	"errors"
	"time"
)

var (
	ErrNotFound          = errors.New("wallet: account not found")
	ErrConflict          = errors.New("wallet: stale account version")
	ErrInsufficientFunds = errors.New("wallet: insufficient funds")
	ErrInvalidAmount     = errors.New("wallet: amount must be greater than zero")
)

// Account holds a customer's prepaid balance in whole currency units. The
// balance is never negative and is mutated only through ledger entries.
type Account struct {
	OwnerID   string
	Balance   int64
	Version   uint64
	UpdatedAt time.Time
}

func NewAccount(ownerID string, openingBalance int64) (*Account, error) {
	if openingBalance < 0 {
		return nil, ErrInvalidAmount
	}
	return &Account{
		OwnerID:   ownerID,
		Balance:   openingBalance,
		UpdatedAt: time.Now().UTC(),
	}, nil
}

// Reason classifies a ledger entry.
type Reason string

const (
	ReasonDebit  Reason = "order_debit"
	ReasonRefund Reason = "order_refund"
	ReasonTopUp  Reason = "top_up"
)

// Entry is one immutable balance change. Entries are append-only; OrderID is
// empty for non-order credits such as top-ups. At most one entry exists per
// (OrderID, Reason) pair; that is the double-settlement guard.
type Entry struct {
	ID        string
	WalletID  string
	Delta     int64
	Reason    Reason
	OrderID   string
	CreatedAt time.Time
}

func NewDebit(id, walletID string, amount int64, orderID string) (Entry, error) {
	if amount <= 0 {
		return Entry{}, ErrInvalidAmount
	}
	return Entry{
		ID:        id,
		WalletID:  walletID,
		Delta:     -amount,
		Reason:    ReasonDebit,
		OrderID:   orderID,
		CreatedAt: time.Now().UTC(),
	}, nil
}

func NewRefund(id, walletID string, amount int64, orderID string) (Entry, error) {
	if amount <= 0 {
		return Entry{}, ErrInvalidAmount
	}
	return Entry{
		ID:        id,
		WalletID:  walletID,
		Delta:     amount,
		Reason:    ReasonRefund,
		OrderID:   orderID,
		CreatedAt: time.Now().UTC(),
	}, nil
}

func NewTopUp(id, walletID string, amount int64) (Entry, error) {
	if amount <= 0 {
		return Entry{}, ErrInvalidAmount
	}
	return Entry{
		ID:        id,
		WalletID:  walletID,
		Delta:     amount,
		Reason:    ReasonTopUp,
		CreatedAt: time.Now().UTC(),
	}, nil
}
