package benefit

import "context"

type BenefitRepository interface {
	Create(ctx context.Context, b Benefit) (Benefit, error)
	GetByID(ctx context.Context, id string) (Benefit, error)
	ListByEmployee(ctx context.Context, employeeID string, status *Status) ([]Benefit, error)
	ExistsForEmployee(ctx context.Context, employeeID string, kind Kind) (bool, error)
	// Update writes b only while the stored status is still expected,
	// otherwise it fails with ErrInvalidTransition.
	Update(ctx context.Context, b Benefit, expected Status) error
	// MarkPaid flips approved benefits to paid for runID. It fails with
	// ErrAlreadyPaid when any of them already carries a run marker.
	MarkPaid(ctx context.Context, ids []string, runID string) error
	// RevertRun returns benefits paid in runID to approved.
	RevertRun(ctx context.Context, runID string) (int, error)
}
