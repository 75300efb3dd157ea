package payroll

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/payroll"
	"github.com/cmlabs-hris/payroll-backend-go/internal/pkg/lock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// flakyCalculator fails or panics for selected employees and delegates the rest.
type flakyCalculator struct {
	next    employeeCalculator
	fail    map[string]error
	panicOn string
}

func (f *flakyCalculator) Calculate(ctx context.Context, in CalcInput) (Outcome, error) {
	if in.Employee.ID == f.panicOn {
		panic("boom")
	}
	if err, ok := f.fail[in.Employee.ID]; ok {
		return Outcome{}, err
	}
	return f.next.Calculate(ctx, in)
}

func (f *flakyCalculator) RecordFailure(ctx context.Context, run payroll.PayrollRun, employeeID string, cause error) (payroll.EmployeePayrollDetail, error) {
	return f.next.RecordFailure(ctx, run, employeeID, cause)
}

func (e *testEnv) seedRun(t *testing.T, id string) payroll.PayrollRun {
	t.Helper()
	run := testRun(id)
	run.Totals = SumDetails(nil)
	created, err := e.runs.Create(context.Background(), run)
	require.NoError(t, err)
	return created
}

func TestOrchestrator_ProcessRun(t *testing.T) {
	env := newTestEnv(t)
	env.addTaxRule("10")
	env.addEmployee("emp-1", "E001", "6000")
	env.addEmployee("emp-2", "E002", "3000")
	run := env.seedRun(t, "run-1")

	processed, err := env.orchestrator.ProcessRun(context.Background(), run.ID)
	require.NoError(t, err)

	details, err := env.details.ListByRun(context.Background(), run.ID)
	require.NoError(t, err)
	require.Len(t, details, 2)

	net, tax := decimal.Zero, decimal.Zero
	for _, d := range details {
		net = net.Add(d.NetPay)
		tax = tax.Add(d.Tax.Amount)
	}

	assert.Equal(t, 2, processed.Totals.EmployeeCount)
	assert.True(t, net.Equal(processed.Totals.Net))
	assert.True(t, tax.Equal(processed.Totals.Tax))
	assert.Equal(t, "8100", processed.Totals.Net.String())
	assert.Equal(t, "9000", processed.Totals.Gross.String())
	assert.True(t, processed.PayslipsGenerated)
	assert.NotNil(t, processed.ProcessedAt)
	assert.Equal(t, run.Version+1, processed.Version)

	payslips, err := env.payslips.ListByRun(context.Background(), run.ID)
	require.NoError(t, err)
	assert.Len(t, payslips, 2)
}

func TestOrchestrator_ProcessRunTwice(t *testing.T) {
	env := newTestEnv(t)
	env.addEmployee("emp-1", "E001", "6000")
	run := env.seedRun(t, "run-1")

	_, err := env.orchestrator.ProcessRun(context.Background(), run.ID)
	require.NoError(t, err)

	_, err = env.orchestrator.ProcessRun(context.Background(), run.ID)
	assert.ErrorIs(t, err, payroll.ErrRunAlreadyProcessed)

	count, err := env.details.CountByRun(context.Background(), run.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestOrchestrator_EmptyRoster(t *testing.T) {
	env := newTestEnv(t)
	run := env.seedRun(t, "run-1")

	processed, err := env.orchestrator.ProcessRun(context.Background(), run.ID)
	require.NoError(t, err)

	assert.Equal(t, 0, processed.Totals.EmployeeCount)
	assert.True(t, processed.Totals.Net.IsZero())
	assert.NotNil(t, processed.Totals.Irregularities)
	assert.Empty(t, processed.Totals.Irregularities)
	assert.False(t, processed.PayslipsGenerated)
}

func TestOrchestrator_FiltersByEntity(t *testing.T) {
	env := newTestEnv(t)
	env.addEmployee("emp-1", "E001", "6000", inDepartment("finance"))
	env.addEmployee("emp-2", "E002", "6000", inDepartment("sales"))

	run := testRun("run-1")
	entity := "finance"
	run.EntityID = &entity
	run.Totals = SumDetails(nil)
	_, err := env.runs.Create(context.Background(), run)
	require.NoError(t, err)

	processed, err := env.orchestrator.ProcessRun(context.Background(), run.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, processed.Totals.EmployeeCount)
}

func TestOrchestrator_EmployeeFailureIsIsolated(t *testing.T) {
	env := newTestEnv(t)
	env.addEmployee("emp-1", "E001", "6000")
	env.addEmployee("emp-2", "E002", "6000")
	env.addEmployee("emp-3", "E003", "6000")
	run := env.seedRun(t, "run-1")

	flaky := &flakyCalculator{
		next:    env.calculator,
		fail:    map[string]error{"emp-2": errors.New("pay grade lookup timed out")},
		panicOn: "emp-3",
	}
	orch := NewOrchestrator(env.runs, env.details, env.employees, env.snapshots, flaky, lock.NewLocalLocker())

	processed, err := orch.ProcessRun(context.Background(), run.ID)
	require.NoError(t, err)

	assert.Equal(t, 3, processed.Totals.EmployeeCount)
	assert.Equal(t, 2, processed.Totals.ExceptionsCount)
	assert.Equal(t, "6000", processed.Totals.Net.String())
	require.Len(t, processed.Totals.Irregularities, 2)
	assert.Contains(t, processed.Totals.Irregularities[0]+processed.Totals.Irregularities[1], "pay grade lookup timed out")

	details, err := env.details.ListByRun(context.Background(), run.ID)
	require.NoError(t, err)
	failed := 0
	for _, d := range details {
		if d.EmployeeID == "emp-1" {
			continue
		}
		failed++
		assert.True(t, d.NetPay.IsZero())
		assert.Equal(t, payroll.BankStatusMissing, d.BankStatus)
		assert.Contains(t, d.Exception, "Processing error")
	}
	assert.Equal(t, 2, failed)
}

func TestOrchestrator_RunBusy(t *testing.T) {
	env := newTestEnv(t)
	run := env.seedRun(t, "run-1")

	locker := lock.NewLocalLocker()
	held, err := locker.Obtain(context.Background(), "payroll-run:"+run.ID, runLockTTL)
	require.NoError(t, err)
	defer held.Release(context.Background())

	orch := NewOrchestrator(env.runs, env.details, env.employees, env.snapshots, env.calculator, locker)
	_, err = orch.ProcessRun(context.Background(), run.ID)
	assert.ErrorIs(t, err, payroll.ErrRunBusy)
}

func TestOrchestrator_CancelledContext(t *testing.T) {
	env := newTestEnv(t)
	env.addEmployee("emp-1", "E001", "6000")
	run := env.seedRun(t, "run-1")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := env.orchestrator.ProcessRun(ctx, run.ID)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSumDetails(t *testing.T) {
	details := []payroll.EmployeePayrollDetail{
		{
			EmployeeID:    "emp-1",
			ProratedGross: d("5000"),
			NetPay:        d("4500"),
			Tax:           payroll.TaxLine{Amount: d("500")},
			Allowances:    d("200"),
			RefundTotal:   d("100"),
			BonusTotal:    d("300"),
			Penalties:     []payroll.PenaltyLine{{Amount: d("10")}, {Amount: d("5")}},
		},
		{
			EmployeeID:      "emp-2",
			ProratedGross:   d("3000"),
			NetPay:          d("3000"),
			RefundTotal:     d("50"),
			RefundsDeferred: true,
			BenefitTotal:    d("1000"),
			Exception:       "Bank account information is missing",
		},
	}

	totals := SumDetails(details)

	assert.Equal(t, 2, totals.EmployeeCount)
	assert.Equal(t, "8000", totals.Gross.String())
	assert.Equal(t, "7500", totals.Net.String())
	assert.Equal(t, "15", totals.Penalties.String())
	assert.Equal(t, "100", totals.Refunds.String())
	assert.Equal(t, "1300", totals.Bonuses.String())
	assert.Equal(t, []string{"emp-2: Bank account information is missing"}, totals.Irregularities)
}

func TestSumDetails_CapsIrregularities(t *testing.T) {
	details := make([]payroll.EmployeePayrollDetail, payroll.MaxRunIrregularities+20)
	for i := range details {
		details[i] = payroll.EmployeePayrollDetail{EmployeeID: fmt.Sprintf("emp-%d", i), Exception: "Net salary is zero"}
	}

	totals := SumDetails(details)

	assert.Len(t, totals.Irregularities, payroll.MaxRunIrregularities)
	assert.Equal(t, "emp-0: Net salary is zero", totals.Irregularities[0])
}

type countingLock struct {
	mu        sync.Mutex
	refreshes int
	err       error
}

func (l *countingLock) Refresh(context.Context, time.Duration) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.refreshes++
	return l.err
}

func (l *countingLock) Release(context.Context) error { return nil }

func (l *countingLock) count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.refreshes
}

func TestKeepLock_HoldsLockPastTTL(t *testing.T) {
	locker := lock.NewLocalLocker()
	held, err := locker.Obtain(context.Background(), "payroll-run:run-1", 30*time.Millisecond)
	require.NoError(t, err)

	stop := keepLock(context.Background(), held, 30*time.Millisecond, "run-1")
	time.Sleep(90 * time.Millisecond)

	_, err = locker.Obtain(context.Background(), "payroll-run:run-1", time.Minute)
	assert.ErrorIs(t, err, lock.ErrNotObtained)

	stop()
	require.NoError(t, held.Release(context.Background()))
}

func TestKeepLock_StopsOnLostLock(t *testing.T) {
	lk := &countingLock{err: lock.ErrNotObtained}

	stop := keepLock(context.Background(), lk, 15*time.Millisecond, "run-1")
	time.Sleep(60 * time.Millisecond)
	stop()

	assert.Equal(t, 1, lk.count())
}

func TestKeepLock_StopEndsRefresh(t *testing.T) {
	lk := &countingLock{}

	stop := keepLock(context.Background(), lk, 15*time.Millisecond, "run-1")
	time.Sleep(40 * time.Millisecond)
	stop()
	after := lk.count()
	time.Sleep(30 * time.Millisecond)

	assert.Positive(t, after)
	assert.Equal(t, after, lk.count())
}
