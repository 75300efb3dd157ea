package benefit

import (
	"time"

	"github.com/shopspring/decimal"
)

// Kind enum. Signing bonuses and termination benefits share one lifecycle.
type Kind string

const (
	KindSigningBonus       Kind = "signing_bonus"
	KindTerminationBenefit Kind = "termination_benefit"
)

// Status enum
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusPaid     Status = "paid"
	StatusRejected Status = "rejected"
)

var transitions = map[Status][]Status{
	StatusPending:  {StatusApproved, StatusRejected},
	StatusApproved: {StatusPaid},
}

// CanTransition checks the pending -> approved -> paid / pending -> rejected shape
func (s Status) CanTransition(to Status) bool {
	for _, next := range transitions[s] {
		if next == to {
			return true
		}
	}
	return false
}

type Benefit struct {
	ID              string
	Kind            Kind
	EmployeeID      string
	Amount          decimal.Decimal
	Status          Status
	Notes           *string
	CreatedBy       *string
	ApprovedBy      *string
	ApprovedAt      *time.Time
	RejectedBy      *string
	RejectedAt      *time.Time
	RejectionReason *string
	PaidInRunID     *string
	PaidAt          *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}
