package payroll

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/benefit"
	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/employee"
	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/notification"
	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/payconfig"
	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/payroll"
	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/refund"
	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/user"
	"github.com/cmlabs-hris/payroll-backend-go/internal/pkg/lock"
	"github.com/cmlabs-hris/payroll-backend-go/internal/pkg/rbac"
	"github.com/cmlabs-hris/payroll-backend-go/internal/repository/memory"
	"github.com/cmlabs-hris/payroll-backend-go/internal/service/leave"
	"github.com/stretchr/testify/require"
)

var april2024 = payroll.Period{Year: 2024, Month: time.April}

type recordingNotifier struct {
	mu     sync.Mutex
	events []notification.Event
}

func (n *recordingNotifier) Queue(_ context.Context, ev notification.Event) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, ev)
	return nil
}

func (n *recordingNotifier) Stop() {}

func (n *recordingNotifier) types() []notification.EventType {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]notification.EventType, 0, len(n.events))
	for _, ev := range n.events {
		out = append(out, ev.Type)
	}
	return out
}

// testEnv wires every payroll component over one in-memory store.
type testEnv struct {
	store     *memory.Store
	runs      payroll.RunRepository
	details   payroll.DetailRepository
	payslips  payroll.PayslipRepository
	refunds   refund.RefundRepository
	benefits  benefit.BenefitRepository
	employees employee.EmployeeRepository

	calculator   *Calculator
	orchestrator *Orchestrator
	snapshots    *SnapshotLoader
	service      *PayrollServiceImpl
	notifier     *recordingNotifier
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store := memory.NewStore()
	runs := memory.NewRunRepository(store)
	details := memory.NewDetailRepository(store)
	payslips := memory.NewPayslipRepository(store)
	refunds := memory.NewRefundRepository(store)
	benefits := memory.NewBenefitRepository(store)
	employees := memory.NewEmployeeRepository(store)

	aggregator := NewAttendanceAggregator(
		memory.NewAttendanceRepository(store),
		memory.NewWorkScheduleRepository(store),
		DefaultDailyMinutes,
	)
	unpaid := leave.NewUnpaidDayCounter(
		memory.NewLeaveTypeRepository(store),
		memory.NewLeaveRequestRepository(store),
	)
	calculator := NewCalculator(store, details, payslips, refunds, benefits,
		memory.NewPayGradeRepository(store), aggregator, unpaid, NewDetector(d("0.25")))

	snapshots := NewSnapshotLoader(memory.NewPayConfigRepository(store), SnapshotDefaults{
		FallbackBaseSalary:           d("6000"),
		OvertimeMultiplier:           d("1.5"),
		TerminationBenefitMultiplier: d("1"),
	})
	orchestrator := NewOrchestrator(runs, details, employees, snapshots, calculator, lock.NewLocalLocker())

	enforcer, err := rbac.NewEnforcer(user.RolePermissions)
	require.NoError(t, err)

	notifier := &recordingNotifier{}
	svc := NewPayrollService(store, runs, details, payslips, refunds, benefits, employees,
		orchestrator, enforcer, notifier).(*PayrollServiceImpl)

	return &testEnv{
		store:        store,
		runs:         runs,
		details:      details,
		payslips:     payslips,
		refunds:      refunds,
		benefits:     benefits,
		employees:    employees,
		calculator:   calculator,
		orchestrator: orchestrator,
		snapshots:    snapshots,
		service:      svc,
		notifier:     notifier,
	}
}

func (e *testEnv) snapshot(t *testing.T) payconfig.Snapshot {
	t.Helper()
	snap, err := e.snapshots.Load(context.Background())
	require.NoError(t, err)
	return snap
}

// addEmployee seeds an active employee with a bank account and a base
// salary override.
func (e *testEnv) addEmployee(id, code, salary string, opts ...func(*employee.Employee)) employee.Employee {
	base := d(salary)
	emp := employee.Employee{
		ID:                id,
		EmployeeCode:      code,
		FullName:          "Employee " + code,
		HireDate:          time.Date(2020, time.January, 6, 0, 0, 0, 0, time.UTC),
		EmploymentType:    employee.EmploymentTypePermanent,
		EmploymentStatus:  employee.EmploymentStatusActive,
		BankName:          "BCA",
		BankAccountNumber: "1234567890",
		BaseSalary:        &base,
	}
	for _, opt := range opts {
		opt(&emp)
	}
	e.store.AddEmployee(emp)
	return emp
}

func inDepartment(id string) func(*employee.Employee) {
	return func(emp *employee.Employee) { emp.DepartmentID = &id }
}

func testRun(id string) payroll.PayrollRun {
	return payroll.PayrollRun{
		ID:            id,
		Period:        april2024,
		Status:        payroll.RunStatusUnderReview,
		PaymentStatus: payroll.PaymentStatusPending,
		SpecialistID:  "specialist-1",
		Version:       1,
	}
}

var (
	specialist = user.Actor{EmployeeID: "specialist-1", Roles: []user.Role{user.RolePayrollSpecialist}}
	manager    = user.Actor{EmployeeID: "manager-1", Roles: []user.Role{user.RolePayrollManager}}
	finance    = user.Actor{EmployeeID: "finance-1", Roles: []user.Role{user.RoleFinance}}
)

// addApprovers seeds the active employees behind the test actors.
func (e *testEnv) addApprovers() {
	for _, a := range []user.Actor{specialist, manager, finance} {
		e.addEmployee(a.EmployeeID, a.EmployeeID, "9000", inDepartment("payroll-office"))
	}
}

func date(m time.Month, day int) time.Time {
	return time.Date(2024, m, day, 0, 0, 0, 0, time.UTC)
}
