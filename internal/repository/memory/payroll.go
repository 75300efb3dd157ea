package memory

import (
	"context"
	"maps"
	"slices"
	"sort"
	"time"

	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/payroll"
)

// ========== RUNS ==========

type runRepository struct {
	s *Store
}

func NewRunRepository(s *Store) payroll.RunRepository {
	return &runRepository{s: s}
}

// Create enforces the one-active-run-per-(entity, period) rule atomically.
func (r *runRepository) Create(_ context.Context, run payroll.PayrollRun) (payroll.PayrollRun, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if r.existsActiveLocked(run.EntityID, run.Period, "") {
		return payroll.PayrollRun{}, payroll.ErrDuplicatePeriod
	}
	if run.Version == 0 {
		run.Version = 1
	}
	run.Totals.Irregularities = slices.Clone(run.Totals.Irregularities)
	r.s.runs[run.ID] = run
	return run, nil
}

func (r *runRepository) GetByID(_ context.Context, id string) (payroll.PayrollRun, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	run, ok := r.s.runs[id]
	if !ok {
		return payroll.PayrollRun{}, payroll.ErrRunNotFound
	}
	return run, nil
}

func (r *runRepository) List(_ context.Context, filter payroll.RunFilter) ([]payroll.PayrollRun, int64, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var matched []payroll.PayrollRun
	for _, run := range r.s.runs {
		if filter.Period != nil && run.Period != *filter.Period {
			continue
		}
		if filter.EntityID != nil && !sameEntity(run.EntityID, filter.EntityID) {
			continue
		}
		if filter.Status != nil && run.Status != *filter.Status {
			continue
		}
		matched = append(matched, run)
	}

	sort.Slice(matched, func(i, j int) bool {
		return matched[i].CreatedAt.After(matched[j].CreatedAt)
	})

	total := int64(len(matched))
	if filter.Limit > 0 {
		page := filter.Page
		if page < 1 {
			page = 1
		}
		start := (page - 1) * filter.Limit
		if start >= len(matched) {
			return []payroll.PayrollRun{}, total, nil
		}
		end := min(start+filter.Limit, len(matched))
		matched = matched[start:end]
	}
	return matched, total, nil
}

func (r *runRepository) ExistsActive(_ context.Context, entityID *string, period payroll.Period, excludeID string) (bool, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.existsActiveLocked(entityID, period, excludeID), nil
}

func (r *runRepository) existsActiveLocked(entityID *string, period payroll.Period, excludeID string) bool {
	for _, run := range r.s.runs {
		if run.ID == excludeID || !run.Status.Active() {
			continue
		}
		if run.Period == period && sameEntity(run.EntityID, entityID) {
			return true
		}
	}
	return false
}

func (r *runRepository) Update(_ context.Context, run payroll.PayrollRun, expectedVersion int64) (payroll.PayrollRun, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	current, ok := r.s.runs[run.ID]
	if !ok {
		return payroll.PayrollRun{}, payroll.ErrRunNotFound
	}
	if current.Version != expectedVersion {
		return payroll.PayrollRun{}, payroll.ErrStaleVersion
	}

	run.Version = expectedVersion + 1
	run.Totals.Irregularities = slices.Clone(run.Totals.Irregularities)
	r.s.runs[run.ID] = run
	return run, nil
}

func sameEntity(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

// ========== DETAILS ==========

type detailRepository struct {
	s *Store
}

func NewDetailRepository(s *Store) payroll.DetailRepository {
	return &detailRepository{s: s}
}

func (r *detailRepository) Create(_ context.Context, d payroll.EmployeePayrollDetail) (payroll.EmployeePayrollDetail, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, existing := range r.s.details {
		if existing.RunID == d.RunID && existing.EmployeeID == d.EmployeeID {
			return payroll.EmployeePayrollDetail{}, payroll.ErrDetailAlreadyExists
		}
	}
	d = cloneDetail(d)
	r.s.details[d.ID] = d
	return cloneDetail(d), nil
}

func (r *detailRepository) GetByID(_ context.Context, id string) (payroll.EmployeePayrollDetail, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	d, ok := r.s.details[id]
	if !ok {
		return payroll.EmployeePayrollDetail{}, payroll.ErrDetailNotFound
	}
	return cloneDetail(d), nil
}

func (r *detailRepository) CountByRun(_ context.Context, runID string) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	count := 0
	for _, d := range r.s.details {
		if d.RunID == runID {
			count++
		}
	}
	return count, nil
}

func (r *detailRepository) ListByRun(_ context.Context, runID string) ([]payroll.EmployeePayrollDetail, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var result []payroll.EmployeePayrollDetail
	for _, d := range r.s.details {
		if d.RunID == runID {
			result = append(result, cloneDetail(d))
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].CreatedAt.Equal(result[j].CreatedAt) {
			return result[i].ID < result[j].ID
		}
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

func (r *detailRepository) PreviousForEmployee(_ context.Context, employeeID string, before payroll.Period) (payroll.EmployeePayrollDetail, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var (
		latest       payroll.EmployeePayrollDetail
		latestPeriod payroll.Period
		found        bool
	)
	for _, d := range r.s.details {
		if d.EmployeeID != employeeID || d.IsProcessingFailure() {
			continue
		}
		run, ok := r.s.runs[d.RunID]
		if !ok || run.Status == payroll.RunStatusRejected || !run.Period.Before(before) {
			continue
		}
		newer := !found || latestPeriod.Before(run.Period) ||
			(latestPeriod == run.Period && d.CreatedAt.After(latest.CreatedAt))
		if newer {
			latest, latestPeriod, found = d, run.Period, true
		}
	}
	if !found {
		return payroll.EmployeePayrollDetail{}, payroll.ErrDetailNotFound
	}
	return cloneDetail(latest), nil
}

func (r *detailRepository) Update(_ context.Context, d payroll.EmployeePayrollDetail) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.details[d.ID]; !ok {
		return payroll.ErrDetailNotFound
	}
	r.s.details[d.ID] = cloneDetail(d)
	return nil
}

func (r *detailRepository) MarkRunPaid(_ context.Context, runID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for id, d := range r.s.details {
		if d.RunID == runID {
			d.PaymentStatus = payroll.PaymentStatusPaid
			r.s.details[id] = d
		}
	}
	return nil
}

func (r *detailRepository) DeleteByRun(_ context.Context, runID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	maps.DeleteFunc(r.s.details, func(_ string, d payroll.EmployeePayrollDetail) bool {
		return d.RunID == runID
	})
	return nil
}

func cloneDetail(d payroll.EmployeePayrollDetail) payroll.EmployeePayrollDetail {
	d.AllowanceBreakdown = maps.Clone(d.AllowanceBreakdown)
	d.Penalties = slices.Clone(d.Penalties)
	d.Refunds = slices.Clone(d.Refunds)
	d.Benefits = slices.Clone(d.Benefits)
	d.Irregularities = slices.Clone(d.Irregularities)
	return d
}

// ========== PAYSLIPS ==========

type payslipRepository struct {
	s *Store
}

func NewPayslipRepository(s *Store) payroll.PayslipRepository {
	return &payslipRepository{s: s}
}

func (r *payslipRepository) Create(_ context.Context, p payroll.Payslip) (payroll.Payslip, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, existing := range r.s.payslips {
		if existing.RunID == p.RunID && existing.EmployeeID == p.EmployeeID {
			return payroll.Payslip{}, payroll.ErrDetailAlreadyExists
		}
	}
	p = clonePayslip(p)
	r.s.payslips[p.ID] = p
	return clonePayslip(p), nil
}

func (r *payslipRepository) GetByEmployeeRun(_ context.Context, employeeID string, runID string) (payroll.Payslip, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, p := range r.s.payslips {
		if p.RunID == runID && p.EmployeeID == employeeID {
			return clonePayslip(p), nil
		}
	}
	return payroll.Payslip{}, payroll.ErrPayslipNotFound
}

func (r *payslipRepository) ListByRun(_ context.Context, runID string) ([]payroll.Payslip, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var result []payroll.Payslip
	for _, p := range r.s.payslips {
		if p.RunID == runID {
			result = append(result, clonePayslip(p))
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].EmployeeID < result[j].EmployeeID })
	return result, nil
}

func (r *payslipRepository) MarkRunPaid(_ context.Context, runID string, paidAt time.Time) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	n := 0
	for id, p := range r.s.payslips {
		if p.RunID != runID || p.PaymentStatus == payroll.PaymentStatusPaid {
			continue
		}
		at := paidAt
		p.PaymentStatus = payroll.PaymentStatusPaid
		p.PaidAt = &at
		p.UpdatedAt = paidAt
		r.s.payslips[id] = p
		n++
	}
	return n, nil
}

func (r *payslipRepository) DeleteByRun(_ context.Context, runID string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	maps.DeleteFunc(r.s.payslips, func(_ string, p payroll.Payslip) bool {
		return p.RunID == runID
	})
	return nil
}

func clonePayslip(p payroll.Payslip) payroll.Payslip {
	p.Allowances = maps.Clone(p.Allowances)
	p.Refunds = slices.Clone(p.Refunds)
	p.Penalties = slices.Clone(p.Penalties)
	return p
}
