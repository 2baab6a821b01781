package payment

import "errors"

var (
	ErrInsufficientFunds = errors.New("payment: insufficient funds")
	ErrTimeout           = errors.New("payment: confirmation deadline exceeded")
	ErrUnavailable       = errors.New("payment: provider unreachable")
	ErrDeclined          = errors.New("payment: declined by provider")
	ErrConflict          = errors.New("payment: wallet version conflict")
	ErrUnknownMethod     = errors.New("payment: unknown payment method")
)

// Method selects the settlement strategy for an order.
type Method string

const (
	MethodWallet   Method = "wallet"
	MethodExternal Method = "external"
)

func (m Method) Validate() error {
	switch m {
	case MethodWallet, MethodExternal:
		return nil
	}
	return ErrUnknownMethod
}

// Outcome is the provider's verdict carried by an asynchronous confirmation.
type Outcome string

const (
	OutcomeSucceeded Outcome = "succeeded"
	OutcomeFailed    Outcome = "failed"
)

// Confirmation is the callback payload delivered by the external provider.
// It rendezvouses with the order strictly by OrderID; a successful QR scan
// alone is never treated as settlement.
type Confirmation struct {
	OrderID        string
	TransactionRef string
	Outcome        Outcome
}
