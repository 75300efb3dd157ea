package refund

import (
	"context"
	"time"
)

type RefundRepository interface {
	Create(ctx context.Context, r Refund) (Refund, error)
	GetByID(ctx context.Context, id string) (Refund, error)
	// ListPayable returns pending and deferred refunds not yet paid in any run.
	ListPayable(ctx context.Context, employeeID string) ([]Refund, error)
	// MarkPaid sets the run marker. It fails with ErrRefundAlreadyPaid when
	// any refund already carries one.
	MarkPaid(ctx context.Context, ids []string, runID string, paidAt time.Time) error
	MarkDeferred(ctx context.Context, ids []string, runID string, reason string) error
	// RevertRun returns refunds paid or deferred in runID to pending.
	RevertRun(ctx context.Context, runID string) (int, error)
}
