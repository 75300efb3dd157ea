package payroll

import (
	"context"
	"testing"

	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/employee"
	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/notification"
	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/payroll"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// flaggedDetail processes a run in which one employee has no bank account
// and returns that employee's detail.
func (e *testEnv) flaggedDetail(t *testing.T) payroll.EmployeePayrollDetail {
	t.Helper()
	e.addEmployee("emp-1", "E001", "6000", func(emp *employee.Employee) { emp.BankName = "" })
	run := e.seedRun(t, newID())

	_, err := e.orchestrator.ProcessRun(context.Background(), run.ID)
	require.NoError(t, err)

	details, err := e.details.ListByRun(context.Background(), run.ID)
	require.NoError(t, err)
	require.Len(t, details, 1)
	require.Len(t, details[0].Irregularities, 1)
	return details[0]
}

func TestResolveIrregularity(t *testing.T) {
	env := newTestEnv(t)
	detail := env.flaggedDetail(t)
	require.NotEmpty(t, detail.Exception)

	resp, err := env.service.ResolveIrregularity(context.Background(), manager, payroll.ResolveIrregularityRequest{
		DetailID:       detail.ID,
		IrregularityID: detail.Irregularities[0].ID,
		Action:         string(payroll.ResolutionApproved),
		Note:           "account added after cutoff",
	})
	require.NoError(t, err)

	assert.Empty(t, resp.Exception)
	require.Len(t, resp.Irregularities, 1)
	irr := resp.Irregularities[0]
	assert.Equal(t, string(payroll.IrregularityStatusResolved), irr.Status)
	require.NotNil(t, irr.Resolution)
	assert.Equal(t, string(payroll.ResolutionApproved), *irr.Resolution)
	require.NotNil(t, irr.ResolvedBy)
	assert.Equal(t, manager.EmployeeID, *irr.ResolvedBy)
	require.NotNil(t, irr.ResolutionNote)

	stored, err := env.details.GetByID(context.Background(), detail.ID)
	require.NoError(t, err)
	assert.Empty(t, stored.Exception)
	assert.False(t, stored.HasOpenIrregularities())

	_, err = env.service.ResolveIrregularity(context.Background(), manager, payroll.ResolveIrregularityRequest{
		DetailID:       detail.ID,
		IrregularityID: detail.Irregularities[0].ID,
		Action:         string(payroll.ResolutionExcluded),
	})
	assert.ErrorIs(t, err, payroll.ErrIrregularityResolved)
}

func TestResolveIrregularity_RequiresRole(t *testing.T) {
	env := newTestEnv(t)
	detail := env.flaggedDetail(t)

	_, err := env.service.ResolveIrregularity(context.Background(), specialist, payroll.ResolveIrregularityRequest{
		DetailID:       detail.ID,
		IrregularityID: detail.Irregularities[0].ID,
		Action:         string(payroll.ResolutionApproved),
	})
	assert.ErrorIs(t, err, payroll.ErrMissingRole)
}

func TestResolveIrregularity_UnknownIrregularity(t *testing.T) {
	env := newTestEnv(t)
	detail := env.flaggedDetail(t)

	_, err := env.service.ResolveIrregularity(context.Background(), finance, payroll.ResolveIrregularityRequest{
		DetailID:       detail.ID,
		IrregularityID: newID(),
		Action:         string(payroll.ResolutionAdjusted),
	})
	assert.ErrorIs(t, err, payroll.ErrIrregularityNotFound)
}

func TestEscalateIrregularity(t *testing.T) {
	env := newTestEnv(t)
	detail := env.flaggedDetail(t)
	req := payroll.EscalateIrregularityRequest{
		DetailID:       detail.ID,
		IrregularityID: detail.Irregularities[0].ID,
		Reason:         "needs HR confirmation",
	}

	resp, err := env.service.EscalateIrregularity(context.Background(), specialist, req)
	require.NoError(t, err)

	irr := resp.Irregularities[0]
	assert.Equal(t, string(payroll.IrregularityStatusEscalated), irr.Status)
	require.NotNil(t, irr.EscalationReason)
	assert.Equal(t, "needs HR confirmation", *irr.EscalationReason)
	// Escalation keeps the exception visible.
	assert.NotEmpty(t, resp.Exception)
	assert.Contains(t, env.notifier.types(), notification.TypeIrregularityRaised)

	_, err = env.service.EscalateIrregularity(context.Background(), specialist, req)
	assert.ErrorIs(t, err, payroll.ErrIrregularityNotOpen)

	// An escalated irregularity can still be resolved.
	_, err = env.service.ResolveIrregularity(context.Background(), manager, payroll.ResolveIrregularityRequest{
		DetailID:       detail.ID,
		IrregularityID: detail.Irregularities[0].ID,
		Action:         string(payroll.ResolutionRejected),
	})
	require.NoError(t, err)

	_, err = env.service.EscalateIrregularity(context.Background(), specialist, req)
	assert.ErrorIs(t, err, payroll.ErrIrregularityResolved)
}

func TestIrregularity_FinalizedRunIsReadOnly(t *testing.T) {
	for _, status := range []payroll.RunStatus{payroll.RunStatusApproved, payroll.RunStatusLocked} {
		t.Run(string(status), func(t *testing.T) {
			env := newTestEnv(t)
			detail := env.flaggedDetail(t)

			run, err := env.runs.GetByID(context.Background(), detail.RunID)
			require.NoError(t, err)
			run.Status = status
			_, err = env.runs.Update(context.Background(), run, run.Version)
			require.NoError(t, err)

			_, err = env.service.EscalateIrregularity(context.Background(), specialist, payroll.EscalateIrregularityRequest{
				DetailID:       detail.ID,
				IrregularityID: detail.Irregularities[0].ID,
				Reason:         "needs finance sign-off",
			})
			assert.ErrorIs(t, err, payroll.ErrRunFinalized)
			assert.Equal(t, payroll.ErrConflict, payroll.Kind(err))

			_, err = env.service.ResolveIrregularity(context.Background(), manager, payroll.ResolveIrregularityRequest{
				DetailID:       detail.ID,
				IrregularityID: detail.Irregularities[0].ID,
				Action:         string(payroll.ResolutionApproved),
			})
			assert.ErrorIs(t, err, payroll.ErrRunFinalized)

			stored, err := env.details.GetByID(context.Background(), detail.ID)
			require.NoError(t, err)
			assert.Equal(t, payroll.IrregularityStatusOpen, stored.Irregularities[0].Status)
			assert.NotEmpty(t, stored.Exception)
		})
	}
}
