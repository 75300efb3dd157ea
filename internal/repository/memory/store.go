// Package memory holds in-process repository implementations used in
// development mode and by service tests.
package memory

import (
	"context"
	"maps"
	"sync"

	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/attendance"
	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/benefit"
	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/employee"
	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/leave"
	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/payconfig"
	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/payroll"
	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/refund"
	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/schedule"
)

// Store keeps every record in maps guarded by one mutex. Stored values are
// never mutated in place; writers replace them.
type Store struct {
	mu   sync.Mutex
	txMu sync.Mutex

	runs     map[string]payroll.PayrollRun
	details  map[string]payroll.EmployeePayrollDetail
	payslips map[string]payroll.Payslip
	benefits map[string]benefit.Benefit
	refunds  map[string]refund.Refund

	employees  map[string]employee.Employee
	grades     map[string]employee.PayGrade
	attendance map[string][]attendance.Attendance
	schedules  map[string]schedule.WorkSchedule // by employee id
	leaveTypes map[string]leave.LeaveType
	leaveReqs  map[string][]leave.LeaveRequest
	taxRules   []payconfig.TaxRule
	brackets   []payconfig.InsuranceBracket
	allowances []payconfig.AllowanceRule
	settings   *payconfig.Settings
}

func NewStore() *Store {
	return &Store{
		runs:       make(map[string]payroll.PayrollRun),
		details:    make(map[string]payroll.EmployeePayrollDetail),
		payslips:   make(map[string]payroll.Payslip),
		benefits:   make(map[string]benefit.Benefit),
		refunds:    make(map[string]refund.Refund),
		employees:  make(map[string]employee.Employee),
		grades:     make(map[string]employee.PayGrade),
		attendance: make(map[string][]attendance.Attendance),
		schedules:  make(map[string]schedule.WorkSchedule),
		leaveTypes: make(map[string]leave.LeaveType),
		leaveReqs:  make(map[string][]leave.LeaveRequest),
	}
}

type txKey struct{}

// WithinTx serializes transactions and restores the pre-transaction state
// when fn fails or panics. A nested call joins the outer transaction.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(txKey{}) != nil {
		return fn(ctx)
	}

	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.Lock()
	snap := s.snapshot()
	s.mu.Unlock()

	defer func() {
		if p := recover(); p != nil {
			s.mu.Lock()
			s.restore(snap)
			s.mu.Unlock()
			panic(p)
		}
	}()

	if err := fn(context.WithValue(ctx, txKey{}, true)); err != nil {
		s.mu.Lock()
		s.restore(snap)
		s.mu.Unlock()
		return err
	}
	return nil
}

type snapshot struct {
	runs     map[string]payroll.PayrollRun
	details  map[string]payroll.EmployeePayrollDetail
	payslips map[string]payroll.Payslip
	benefits map[string]benefit.Benefit
	refunds  map[string]refund.Refund
}

// snapshot copies only what payroll writes; collaborator data is read-only.
func (s *Store) snapshot() snapshot {
	return snapshot{
		runs:     maps.Clone(s.runs),
		details:  maps.Clone(s.details),
		payslips: maps.Clone(s.payslips),
		benefits: maps.Clone(s.benefits),
		refunds:  maps.Clone(s.refunds),
	}
}

func (s *Store) restore(snap snapshot) {
	s.runs = snap.runs
	s.details = snap.details
	s.payslips = snap.payslips
	s.benefits = snap.benefits
	s.refunds = snap.refunds
}

// ========== SEEDING ==========

func (s *Store) AddEmployee(e employee.Employee) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.employees[e.ID] = e
}

func (s *Store) AddPayGrade(g employee.PayGrade) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.grades[g.ID] = g
}

func (s *Store) AddAttendance(records ...attendance.Attendance) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range records {
		s.attendance[a.EmployeeID] = append(s.attendance[a.EmployeeID], a)
	}
}

func (s *Store) AssignSchedule(employeeID string, ws schedule.WorkSchedule) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.schedules[employeeID] = ws
}

func (s *Store) AddLeaveType(lt leave.LeaveType) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.leaveTypes[lt.ID] = lt
}

func (s *Store) AddLeaveRequest(r leave.LeaveRequest) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.leaveReqs[r.EmployeeID] = append(s.leaveReqs[r.EmployeeID], r)
}

func (s *Store) AddTaxRule(r payconfig.TaxRule) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.taxRules = append(s.taxRules, r)
}

func (s *Store) AddInsuranceBracket(b payconfig.InsuranceBracket) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.brackets = append(s.brackets, b)
}

func (s *Store) AddAllowanceRule(r payconfig.AllowanceRule) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.allowances = append(s.allowances, r)
}

func (s *Store) SetSettings(settings payconfig.Settings) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.settings = &settings
}

func (s *Store) AddRefund(r refund.Refund) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refunds[r.ID] = r
}

func (s *Store) AddBenefit(b benefit.Benefit) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.benefits[b.ID] = b
}
