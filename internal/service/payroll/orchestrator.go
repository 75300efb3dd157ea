package payroll

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/employee"
	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/payroll"
	"github.com/cmlabs-hris/payroll-backend-go/internal/pkg/lock"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const runLockTTL = 10 * time.Minute

// employeeCalculator is the part of Calculator the orchestrator drives.
type employeeCalculator interface {
	Calculate(ctx context.Context, in CalcInput) (Outcome, error)
	RecordFailure(ctx context.Context, run payroll.PayrollRun, employeeID string, cause error) (payroll.EmployeePayrollDetail, error)
}

// Orchestrator processes every eligible employee of a run and writes the
// run totals from the persisted details.
type Orchestrator struct {
	runs       payroll.RunRepository
	details    payroll.DetailRepository
	employees  employee.EmployeeRepository
	snapshots  SnapshotSource
	calculator employeeCalculator
	locker     lock.Locker
	tracer     trace.Tracer
	now        func() time.Time
}

func NewOrchestrator(
	runs payroll.RunRepository,
	details payroll.DetailRepository,
	employees employee.EmployeeRepository,
	snapshots SnapshotSource,
	calculator employeeCalculator,
	locker lock.Locker,
) *Orchestrator {
	return &Orchestrator{
		runs:       runs,
		details:    details,
		employees:  employees,
		snapshots:  snapshots,
		calculator: calculator,
		locker:     locker,
		tracer:     otel.Tracer("payroll/orchestrator"),
		now:        time.Now,
	}
}

// ProcessRun computes every employee of the run once. A run that already has
// details is refused with ErrRunAlreadyProcessed.
func (o *Orchestrator) ProcessRun(ctx context.Context, runID string) (run payroll.PayrollRun, err error) {
	ctx, span := o.tracer.Start(ctx, "payroll.ProcessRun", trace.WithAttributes(attribute.String("payroll.run_id", runID)))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	lk, err := o.locker.Obtain(ctx, "payroll-run:"+runID, runLockTTL)
	if errors.Is(err, lock.ErrNotObtained) {
		return payroll.PayrollRun{}, payroll.ErrRunBusy
	} else if err != nil {
		return payroll.PayrollRun{}, err
	}
	stopRefresh := keepLock(ctx, lk, runLockTTL, runID)
	defer func() {
		stopRefresh()
		if rerr := lk.Release(context.WithoutCancel(ctx)); rerr != nil {
			slog.Warn("failed to release run lock", "run_id", runID, "error", rerr)
		}
	}()

	run, err = o.runs.GetByID(ctx, runID)
	if err != nil {
		return payroll.PayrollRun{}, err
	}

	existing, err := o.details.CountByRun(ctx, runID)
	if err != nil {
		return payroll.PayrollRun{}, fmt.Errorf("failed to count payroll details: %w", err)
	}
	if existing > 0 {
		return payroll.PayrollRun{}, payroll.ErrRunAlreadyProcessed
	}

	roster, err := o.employees.ListActive(ctx, run.EntityID)
	if err != nil {
		return payroll.PayrollRun{}, fmt.Errorf("failed to list employees: %w", err)
	}
	span.SetAttributes(attribute.Int("payroll.roster_size", len(roster)))

	if len(roster) == 0 {
		slog.Info("payroll run has no eligible employees", "run_id", run.ID, "period", run.Period.String())
		return o.writeTotals(ctx, run, nil, run.Totals.ExceptionsCount)
	}

	snap, err := o.snapshots.Load(ctx)
	if err != nil {
		return payroll.PayrollRun{}, fmt.Errorf("failed to resolve payroll configuration: %w", err)
	}

	failures := 0
	for _, emp := range roster {
		if err := ctx.Err(); err != nil {
			return payroll.PayrollRun{}, err
		}

		calcErr := o.calculateOne(ctx, CalcInput{Employee: emp, Run: run, Snapshot: snap})
		if calcErr == nil {
			continue
		}

		failures++
		slog.Warn("employee payroll calculation failed",
			"run_id", run.ID,
			"employee_id", emp.ID,
			"error", calcErr,
		)
		if _, err := o.calculator.RecordFailure(ctx, run, emp.ID, calcErr); err != nil {
			return payroll.PayrollRun{}, err
		}
	}

	details, err := o.details.ListByRun(ctx, run.ID)
	if err != nil {
		return payroll.PayrollRun{}, fmt.Errorf("failed to list payroll details: %w", err)
	}

	slog.Info("payroll run processed",
		"run_id", run.ID,
		"employees", len(roster),
		"failures", failures,
	)
	return o.writeTotals(ctx, run, details, run.Totals.ExceptionsCount+failures)
}

// calculateOne converts a panic in one employee's calculation into an error.
func (o *Orchestrator) calculateOne(ctx context.Context, in CalcInput) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	_, err = o.calculator.Calculate(ctx, in)
	return err
}

func (o *Orchestrator) writeTotals(ctx context.Context, run payroll.PayrollRun, details []payroll.EmployeePayrollDetail, exceptions int) (payroll.PayrollRun, error) {
	now := o.now()

	run.Totals = SumDetails(details)
	run.Totals.ExceptionsCount = exceptions
	run.ProcessedAt = &now
	run.PayslipsGenerated = len(details) > 0
	if run.PayslipsGenerated {
		run.PayslipsGeneratedAt = &now
	}
	run.UpdatedAt = now

	updated, err := o.runs.Update(ctx, run, run.Version)
	if err != nil {
		return payroll.PayrollRun{}, fmt.Errorf("failed to write run totals: %w", err)
	}
	return updated, nil
}

// SumDetails aggregates persisted details into run totals. The irregularity
// list keeps the first MaxRunIrregularities entries.
func SumDetails(details []payroll.EmployeePayrollDetail) payroll.Totals {
	t := payroll.Totals{
		EmployeeCount:  len(details),
		Gross:          decimal.Zero,
		Net:            decimal.Zero,
		Tax:            decimal.Zero,
		Insurance:      decimal.Zero,
		Penalties:      decimal.Zero,
		Allowances:     decimal.Zero,
		Overtime:       decimal.Zero,
		Refunds:        decimal.Zero,
		Bonuses:        decimal.Zero,
		Irregularities: []string{},
	}
	for _, d := range details {
		t.Gross = t.Gross.Add(d.ProratedGross)
		t.Net = t.Net.Add(d.NetPay)
		t.Tax = t.Tax.Add(d.Tax.Amount)
		t.Insurance = t.Insurance.Add(d.Insurance.Amount)
		t.Penalties = t.Penalties.Add(d.PenaltyTotal())
		t.Allowances = t.Allowances.Add(d.Allowances)
		t.Overtime = t.Overtime.Add(d.Overtime.Amount)
		if !d.RefundsDeferred {
			t.Refunds = t.Refunds.Add(d.RefundTotal)
		}
		t.Bonuses = t.Bonuses.Add(d.BonusTotal).Add(d.BenefitTotal)

		if d.Exception != "" && len(t.Irregularities) < payroll.MaxRunIrregularities {
			t.Irregularities = append(t.Irregularities, d.EmployeeID+": "+d.Exception)
		}
	}
	return t
}

// keepLock refreshes lk every third of ttl until the returned stop is called.
// A lost lock is logged; processing continues and the details count guard
// still refuses a second pass over the same run.
func keepLock(ctx context.Context, lk lock.Lock, ttl time.Duration, runID string) (stop func()) {
	ctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	done := make(chan struct{})

	go func() {
		defer close(done)
		ticker := time.NewTicker(ttl / 3)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := lk.Refresh(ctx, ttl); err != nil {
					if ctx.Err() != nil {
						return
					}
					slog.Error("failed to refresh run lock", "run_id", runID, "error", err)
					if errors.Is(err, lock.ErrNotObtained) {
						return
					}
				}
			}
		}
	}()

	return func() {
		cancel()
		<-done
	}
}
