package payroll

import (
	"context"

	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/user"
)

type PayrollService interface {
	// Runs
	CreateRun(ctx context.Context, actor user.Actor, req CreateRunRequest) (RunResponse, error)
	GetRun(ctx context.Context, actor user.Actor, runID string) (RunResponse, error)
	ListRuns(ctx context.Context, actor user.Actor, req ListRunsRequest) (ListRunsResponse, error)
	ExportRun(ctx context.Context, actor user.Actor, runID string) ([]byte, error)

	// Transitions
	SubmitForReview(ctx context.Context, actor user.Actor, req TransitionRequest) (RunResponse, error)
	ApproveReview(ctx context.Context, actor user.Actor, req TransitionRequest) (RunResponse, error)
	ApproveFinance(ctx context.Context, actor user.Actor, req TransitionRequest) (RunResponse, error)
	Lock(ctx context.Context, actor user.Actor, req TransitionRequest) (RunResponse, error)
	Unlock(ctx context.Context, actor user.Actor, req TransitionRequest) (RunResponse, error)
	Reject(ctx context.Context, actor user.Actor, req TransitionRequest) (RunResponse, error)
	EditRejected(ctx context.Context, actor user.Actor, req TransitionRequest) (RunResponse, error)

	// Details and payslips
	ListDetails(ctx context.Context, actor user.Actor, runID string) ([]DetailResponse, error)
	GetPayslip(ctx context.Context, actor user.Actor, runID string, employeeID string) (PayslipResponse, error)

	// Irregularities
	EscalateIrregularity(ctx context.Context, actor user.Actor, req EscalateIrregularityRequest) (DetailResponse, error)
	ResolveIrregularity(ctx context.Context, actor user.Actor, req ResolveIrregularityRequest) (DetailResponse, error)
}
