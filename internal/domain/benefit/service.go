package benefit

import (
	"context"

	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/user"
)

type BenefitService interface {
	Create(ctx context.Context, actor user.Actor, req CreateBenefitRequest) (BenefitResponse, error)
	Get(ctx context.Context, actor user.Actor, id string) (BenefitResponse, error)
	Approve(ctx context.Context, actor user.Actor, id string) (BenefitResponse, error)
	Reject(ctx context.Context, actor user.Actor, req RejectBenefitRequest) (BenefitResponse, error)
}
