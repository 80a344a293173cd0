package domain

import "errors"

var ErrIllegalTransition = errors.New("illegal transition of payment status")

type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "PENDING"
	PaymentStatusPaid    PaymentStatus = "PAID"
	PaymentStatusFailed  PaymentStatus = "FAILED"
)

var validTransitions = map[PaymentStatus][]PaymentStatus{
	PaymentStatusPending: {PaymentStatusPaid, PaymentStatusFailed},
}

func (s PaymentStatus) IsTerminal() bool {
	return s == PaymentStatusPaid || s == PaymentStatusFailed
}

func (s PaymentStatus) IsValid() bool {
	return s == PaymentStatusPending || s.IsTerminal()
}

// String representation (for logging)
func (s PaymentStatus) String() string {
	return string(s)
}

func CanTransitionTo(from, to PaymentStatus) bool {
	for _, next := range validTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// PaymentResult is a verified processor outcome for one order. It is derived
// from a webhook event and consumed once; it is never stored on its own.
type PaymentResult struct {
	EventID   string
	EventType string
	OrderID   int64
	Status    PaymentStatus
}
