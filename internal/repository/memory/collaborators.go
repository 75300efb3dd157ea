package memory

import (
	"context"
	"slices"
	"sort"
	"time"

	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/attendance"
	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/employee"
	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/leave"
	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/payconfig"
	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/schedule"
)

// ========== EMPLOYEES ==========

type employeeRepository struct {
	s *Store
}

func NewEmployeeRepository(s *Store) employee.EmployeeRepository {
	return &employeeRepository{s: s}
}

func (r *employeeRepository) GetByID(_ context.Context, id string) (employee.Employee, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	e, ok := r.s.employees[id]
	if !ok {
		return employee.Employee{}, employee.ErrEmployeeNotFound
	}
	return e, nil
}

func (r *employeeRepository) ListActive(_ context.Context, departmentID *string) ([]employee.Employee, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var result []employee.Employee
	for _, e := range r.s.employees {
		if !e.IsActive() {
			continue
		}
		if departmentID != nil && (e.DepartmentID == nil || *e.DepartmentID != *departmentID) {
			continue
		}
		result = append(result, e)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].EmployeeCode < result[j].EmployeeCode })
	return result, nil
}

type payGradeRepository struct {
	s *Store
}

func NewPayGradeRepository(s *Store) employee.PayGradeRepository {
	return &payGradeRepository{s: s}
}

func (r *payGradeRepository) GetByID(_ context.Context, id string) (employee.PayGrade, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	g, ok := r.s.grades[id]
	if !ok {
		return employee.PayGrade{}, employee.ErrPayGradeNotFound
	}
	return g, nil
}

// ========== ATTENDANCE & SCHEDULES ==========

type attendanceRepository struct {
	s *Store
}

func NewAttendanceRepository(s *Store) attendance.AttendanceRepository {
	return &attendanceRepository{s: s}
}

func (r *attendanceRepository) ListByEmployeeBetween(_ context.Context, employeeID string, from, to time.Time) ([]attendance.Attendance, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var result []attendance.Attendance
	for _, a := range r.s.attendance[employeeID] {
		if a.Date.Before(from) || a.Date.After(to) {
			continue
		}
		result = append(result, a)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Date.Before(result[j].Date) })
	return result, nil
}

type workScheduleRepository struct {
	s *Store
}

func NewWorkScheduleRepository(s *Store) schedule.WorkScheduleRepository {
	return &workScheduleRepository{s: s}
}

func (r *workScheduleRepository) GetForEmployeeOn(_ context.Context, employeeID string, _ time.Time) (schedule.WorkSchedule, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	ws, ok := r.s.schedules[employeeID]
	if !ok {
		return schedule.WorkSchedule{}, schedule.ErrWorkScheduleNotFound
	}
	return ws, nil
}

// ========== LEAVE ==========

type leaveTypeRepository struct {
	s *Store
}

func NewLeaveTypeRepository(s *Store) leave.LeaveTypeRepository {
	return &leaveTypeRepository{s: s}
}

func (r *leaveTypeRepository) ListUnpaid(_ context.Context) ([]leave.LeaveType, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var result []leave.LeaveType
	for _, lt := range r.s.leaveTypes {
		if lt.Unpaid() {
			result = append(result, lt)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].ID < result[j].ID })
	return result, nil
}

type leaveRequestRepository struct {
	s *Store
}

func NewLeaveRequestRepository(s *Store) leave.LeaveRequestRepository {
	return &leaveRequestRepository{s: s}
}

func (r *leaveRequestRepository) ListApprovedOverlapping(_ context.Context, employeeID string, leaveTypeIDs []string, from, to time.Time) ([]leave.LeaveRequest, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var result []leave.LeaveRequest
	for _, req := range r.s.leaveReqs[employeeID] {
		if req.Status != leave.LeaveRequestStatusApproved || !slices.Contains(leaveTypeIDs, req.LeaveTypeID) {
			continue
		}
		if req.EndDate.Before(from) || req.StartDate.After(to) {
			continue
		}
		result = append(result, req)
	}
	return result, nil
}

// ========== CONFIGURATION ==========

type payConfigRepository struct {
	s *Store
}

func NewPayConfigRepository(s *Store) payconfig.Repository {
	return &payConfigRepository{s: s}
}

func (r *payConfigRepository) ListTaxRules(_ context.Context, status payconfig.Status) ([]payconfig.TaxRule, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var result []payconfig.TaxRule
	for _, rule := range r.s.taxRules {
		if rule.Status == status {
			result = append(result, rule)
		}
	}
	return result, nil
}

func (r *payConfigRepository) ListInsuranceBrackets(_ context.Context, status payconfig.Status) ([]payconfig.InsuranceBracket, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var result []payconfig.InsuranceBracket
	for _, b := range r.s.brackets {
		if b.Status == status {
			result = append(result, b)
		}
	}
	return result, nil
}

func (r *payConfigRepository) ListAllowanceRules(_ context.Context, status payconfig.Status) ([]payconfig.AllowanceRule, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	var result []payconfig.AllowanceRule
	for _, a := range r.s.allowances {
		if a.Status == status {
			result = append(result, a)
		}
	}
	return result, nil
}

func (r *payConfigRepository) GetSettings(_ context.Context) (payconfig.Settings, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if r.s.settings == nil {
		return payconfig.Settings{}, payconfig.ErrSettingsNotFound
	}
	return *r.s.settings, nil
}
