package refund

import (
	"time"

	"github.com/shopspring/decimal"
)

// Status enum. A refund exists only once its dispute or claim is approved,
// so pending means approved and owed.
type Status string

const (
	StatusPending  Status = "pending"
	StatusDeferred Status = "deferred" // held back by the minimum wage floor, retried next run
	StatusPaid     Status = "paid"
)

type Refund struct {
	ID              string
	EmployeeID      string
	Amount          decimal.Decimal
	Description     string
	DisputeID       *string
	ClaimID         *string
	Status          Status
	PaidInRunID     *string
	PaidAt          *time.Time
	DeferredInRunID *string
	DeferralReason  *string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Payable reports whether the refund still has to be paid.
func (r Refund) Payable() bool {
	return r.PaidInRunID == nil && (r.Status == StatusPending || r.Status == StatusDeferred)
}
