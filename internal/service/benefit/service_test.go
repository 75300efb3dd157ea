package benefit

import (
	"context"
	"testing"

	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/benefit"
	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/employee"
	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/notification"
	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/user"
	"github.com/cmlabs-hris/payroll-backend-go/internal/pkg/rbac"
	"github.com/cmlabs-hris/payroll-backend-go/internal/repository/memory"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureNotifier struct {
	events []notification.Event
}

func (n *captureNotifier) Queue(_ context.Context, ev notification.Event) error {
	n.events = append(n.events, ev)
	return nil
}

func (n *captureNotifier) Stop() {}

var (
	specialist = user.Actor{EmployeeID: "specialist-1", Roles: []user.Role{user.RolePayrollSpecialist}}
	manager    = user.Actor{EmployeeID: "manager-1", Roles: []user.Role{user.RolePayrollManager}}
)

func setup(t *testing.T) (*BenefitServiceImpl, *memory.Store, *captureNotifier, string) {
	t.Helper()

	store := memory.NewStore()
	empID := uuid.Must(uuid.NewV7()).String()
	store.AddEmployee(employee.Employee{ID: empID, EmployeeCode: "E001", EmploymentStatus: employee.EmploymentStatusActive})

	enforcer, err := rbac.NewEnforcer(user.RolePermissions)
	require.NoError(t, err)

	notifier := &captureNotifier{}
	svc := NewBenefitService(memory.NewBenefitRepository(store), memory.NewEmployeeRepository(store), enforcer, notifier)
	return svc.(*BenefitServiceImpl), store, notifier, empID
}

func createBonus(t *testing.T, svc *BenefitServiceImpl, empID string) benefit.BenefitResponse {
	t.Helper()
	resp, err := svc.Create(context.Background(), specialist, benefit.CreateBenefitRequest{
		Kind:       string(benefit.KindSigningBonus),
		EmployeeID: empID,
		Amount:     decimal.RequireFromString("1500"),
	})
	require.NoError(t, err)
	return resp
}

func TestBenefitService_ApproveFlow(t *testing.T) {
	svc, _, notifier, empID := setup(t)

	created := createBonus(t, svc, empID)
	assert.Equal(t, string(benefit.StatusPending), created.Status)
	assert.Equal(t, "1500", created.Amount.String())

	approved, err := svc.Approve(context.Background(), manager, created.ID)
	require.NoError(t, err)
	assert.Equal(t, string(benefit.StatusApproved), approved.Status)
	require.NotNil(t, approved.ApprovedBy)
	assert.Equal(t, manager.EmployeeID, *approved.ApprovedBy)

	require.Len(t, notifier.events, 1)
	assert.Equal(t, notification.TypeBenefitApproved, notifier.events[0].Type)

	// Approved is not pending any more.
	_, err = svc.Approve(context.Background(), manager, created.ID)
	assert.ErrorIs(t, err, benefit.ErrInvalidTransition)

	_, err = svc.Reject(context.Background(), manager, benefit.RejectBenefitRequest{ID: created.ID, Reason: "late"})
	assert.ErrorIs(t, err, benefit.ErrInvalidTransition)
}

func TestBenefitService_Reject(t *testing.T) {
	svc, _, notifier, empID := setup(t)
	created := createBonus(t, svc, empID)

	_, err := svc.Reject(context.Background(), manager, benefit.RejectBenefitRequest{ID: created.ID})
	assert.ErrorIs(t, err, benefit.ErrReasonRequired)

	rejected, err := svc.Reject(context.Background(), manager, benefit.RejectBenefitRequest{ID: created.ID, Reason: "not in contract"})
	require.NoError(t, err)
	assert.Equal(t, string(benefit.StatusRejected), rejected.Status)
	require.NotNil(t, rejected.RejectionReason)
	assert.Equal(t, "not in contract", *rejected.RejectionReason)
	assert.Equal(t, notification.TypeBenefitRejected, notifier.events[0].Type)

	_, err = svc.Approve(context.Background(), manager, created.ID)
	assert.ErrorIs(t, err, benefit.ErrInvalidTransition)
}

func TestBenefitService_Authorization(t *testing.T) {
	svc, _, _, empID := setup(t)

	_, err := svc.Create(context.Background(), manager, benefit.CreateBenefitRequest{
		Kind:       string(benefit.KindSigningBonus),
		EmployeeID: empID,
		Amount:     decimal.RequireFromString("100"),
	})
	assert.ErrorIs(t, err, benefit.ErrMissingRole)

	created := createBonus(t, svc, empID)
	_, err = svc.Approve(context.Background(), specialist, created.ID)
	assert.ErrorIs(t, err, benefit.ErrMissingRole)
}

func TestBenefitService_CreatorCannotApprove(t *testing.T) {
	svc, _, _, empID := setup(t)
	both := user.Actor{EmployeeID: "lead-1", Roles: []user.Role{user.RolePayrollSpecialist, user.RolePayrollManager}}

	created, err := svc.Create(context.Background(), both, benefit.CreateBenefitRequest{
		Kind:       string(benefit.KindSigningBonus),
		EmployeeID: empID,
		Amount:     decimal.RequireFromString("100"),
	})
	require.NoError(t, err)

	_, err = svc.Approve(context.Background(), both, created.ID)
	assert.ErrorIs(t, err, benefit.ErrSelfApproval)
}

func TestBenefitService_OneTerminationBenefit(t *testing.T) {
	svc, _, _, empID := setup(t)
	req := benefit.CreateBenefitRequest{
		Kind:       string(benefit.KindTerminationBenefit),
		EmployeeID: empID,
		Amount:     decimal.RequireFromString("6000"),
	}

	_, err := svc.Create(context.Background(), specialist, req)
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), specialist, req)
	assert.ErrorIs(t, err, benefit.ErrTerminationExists)
}

func TestBenefitService_UnknownEmployee(t *testing.T) {
	svc, _, _, _ := setup(t)

	_, err := svc.Create(context.Background(), specialist, benefit.CreateBenefitRequest{
		Kind:       string(benefit.KindSigningBonus),
		EmployeeID: uuid.Must(uuid.NewV7()).String(),
		Amount:     decimal.RequireFromString("100"),
	})
	assert.ErrorIs(t, err, employee.ErrEmployeeNotFound)
}

func TestBenefitService_Get(t *testing.T) {
	svc, _, _, empID := setup(t)
	created := createBonus(t, svc, empID)

	got, err := svc.Get(context.Background(), manager, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.ID, got.ID)

	_, err = svc.Get(context.Background(), manager, uuid.Must(uuid.NewV7()).String())
	assert.ErrorIs(t, err, benefit.ErrBenefitNotFound)

	employeeActor := user.Actor{EmployeeID: empID, Roles: []user.Role{user.RoleEmployee}}
	_, err = svc.Get(context.Background(), employeeActor, created.ID)
	assert.ErrorIs(t, err, benefit.ErrMissingRole)
}

// racingRepository runs interleave once, right after the first read.
type racingRepository struct {
	benefit.BenefitRepository
	interleave func(b benefit.Benefit)
}

func (r *racingRepository) GetByID(ctx context.Context, id string) (benefit.Benefit, error) {
	b, err := r.BenefitRepository.GetByID(ctx, id)
	if err == nil && r.interleave != nil {
		fn := r.interleave
		r.interleave = nil
		fn(b)
	}
	return b, err
}

func TestBenefitService_RejectLosesToConcurrentPayment(t *testing.T) {
	svc, store, _, empID := setup(t)
	created := createBonus(t, svc, empID)

	inner := memory.NewBenefitRepository(store)
	repo := &racingRepository{BenefitRepository: inner}
	repo.interleave = func(b benefit.Benefit) {
		b.Status = benefit.StatusApproved
		require.NoError(t, inner.Update(context.Background(), b, benefit.StatusPending))
		require.NoError(t, inner.MarkPaid(context.Background(), []string{b.ID}, "run-1"))
	}
	enforcer, err := rbac.NewEnforcer(user.RolePermissions)
	require.NoError(t, err)
	racing := NewBenefitService(repo, memory.NewEmployeeRepository(store), enforcer, &captureNotifier{})

	_, err = racing.Reject(context.Background(), manager, benefit.RejectBenefitRequest{ID: created.ID, Reason: "duplicate"})
	assert.ErrorIs(t, err, benefit.ErrInvalidTransition)

	got, err := inner.GetByID(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, benefit.StatusPaid, got.Status)
	require.NotNil(t, got.PaidInRunID)
	assert.Equal(t, "run-1", *got.PaidInRunID)
}
