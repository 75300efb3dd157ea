package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cmlabs-hris/payroll-backend-go/internal/config"
	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/attendance"
	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/benefit"
	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/employee"
	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/leave"
	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/notification"
	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/payconfig"
	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/payroll"
	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/refund"
	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/schedule"
	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/user"
	appHTTP "github.com/cmlabs-hris/payroll-backend-go/internal/handler/http"
	"github.com/cmlabs-hris/payroll-backend-go/internal/pkg/database"
	"github.com/cmlabs-hris/payroll-backend-go/internal/pkg/events"
	"github.com/cmlabs-hris/payroll-backend-go/internal/pkg/jwt"
	"github.com/cmlabs-hris/payroll-backend-go/internal/pkg/lock"
	"github.com/cmlabs-hris/payroll-backend-go/internal/pkg/rbac"
	"github.com/cmlabs-hris/payroll-backend-go/internal/repository/memory"
	"github.com/cmlabs-hris/payroll-backend-go/internal/repository/postgresql"
	benefitService "github.com/cmlabs-hris/payroll-backend-go/internal/service/benefit"
	leaveService "github.com/cmlabs-hris/payroll-backend-go/internal/service/leave"
	notificationService "github.com/cmlabs-hris/payroll-backend-go/internal/service/notification"
	payrollService "github.com/cmlabs-hris/payroll-backend-go/internal/service/payroll"
	"github.com/redis/go-redis/v9"
)

// repositories is the storage a payroll process runs against.
type repositories struct {
	tx            database.Transactor
	runs          payroll.RunRepository
	details       payroll.DetailRepository
	payslips      payroll.PayslipRepository
	refunds       refund.RefundRepository
	benefits      benefit.BenefitRepository
	employees     employee.EmployeeRepository
	payGrades     employee.PayGradeRepository
	attendance    attendance.AttendanceRepository
	workSchedules schedule.WorkScheduleRepository
	leaveTypes    leave.LeaveTypeRepository
	leaveRequests leave.LeaveRequestRepository
	payConfig     payconfig.Repository
	close         func()
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Println("Error loading config:", err)
		os.Exit(1)
	}

	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()})))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repos, err := openRepositories(ctx, cfg)
	if err != nil {
		slog.Error("failed to open storage", "store", cfg.App.Store, "error", err)
		os.Exit(1)
	}
	defer repos.close()

	locker, closeLocker := newLocker(ctx, cfg.Redis)
	defer closeLocker()

	var publisher notification.Publisher = events.LogPublisher{}
	if len(cfg.Kafka.Brokers) > 0 {
		publisher = events.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		slog.Info("publishing payroll events to kafka", "brokers", cfg.Kafka.Brokers, "topic", cfg.Kafka.Topic)
	}
	notifier := notificationService.NewNotificationService(publisher, notificationService.Config{})

	enforcer, err := rbac.NewEnforcer(user.RolePermissions)
	if err != nil {
		slog.Error("failed to build role policy", "error", err)
		os.Exit(1)
	}

	JWTService := jwt.NewJWTService(cfg.JWT.Secret, cfg.JWT.AccessExpiration)

	aggregator := payrollService.NewAttendanceAggregator(repos.attendance, repos.workSchedules, cfg.Payroll.DailyScheduledMinutes)
	unpaidDays := leaveService.NewUnpaidDayCounter(repos.leaveTypes, repos.leaveRequests)
	calculator := payrollService.NewCalculator(
		repos.tx,
		repos.details,
		repos.payslips,
		repos.refunds,
		repos.benefits,
		repos.payGrades,
		aggregator,
		unpaidDays,
		payrollService.NewDetector(cfg.Payroll.SalarySpikeThreshold),
	)
	snapshots := payrollService.NewSnapshotLoader(repos.payConfig, payrollService.SnapshotDefaults{
		FallbackBaseSalary:           cfg.Payroll.FallbackBaseSalary,
		OvertimeMultiplier:           cfg.Payroll.OvertimeMultiplier,
		TerminationBenefitMultiplier: cfg.Payroll.TerminationBenefitMultiplier,
	})
	orchestrator := payrollService.NewOrchestrator(repos.runs, repos.details, repos.employees, snapshots, calculator, locker)

	payrollSvc := payrollService.NewPayrollService(
		repos.tx,
		repos.runs,
		repos.details,
		repos.payslips,
		repos.refunds,
		repos.benefits,
		repos.employees,
		orchestrator,
		enforcer,
		notifier,
	)
	benefitSvc := benefitService.NewBenefitService(repos.benefits, repos.employees, enforcer, notifier)

	router := appHTTP.NewRouter(
		appHTTP.RouterOptions{
			Env:            cfg.App.Env,
			AllowedOrigins: cfg.App.AllowedOrigins,
			LogLevel:       cfg.SlogLevel(),
		},
		JWTService,
		appHTTP.NewPayrollHandler(payrollSvc),
		appHTTP.NewBenefitHandler(benefitSvc),
	)

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.App.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		slog.Info("server running", "addr", server.Addr, "store", cfg.App.Store, "env", cfg.App.Env)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("graceful shutdown failed", "error", err)
	}

	// Drain queued events before the publisher goes away.
	notifier.Stop()
	if err := publisher.Close(); err != nil {
		slog.Error("failed to close event publisher", "error", err)
	}
}

func openRepositories(ctx context.Context, cfg *config.Config) (*repositories, error) {
	if cfg.App.Store == config.StoreMemory {
		store := memory.NewStore()
		slog.Warn("using in-memory store, data is lost on restart")
		return &repositories{
			tx:            store,
			runs:          memory.NewRunRepository(store),
			details:       memory.NewDetailRepository(store),
			payslips:      memory.NewPayslipRepository(store),
			refunds:       memory.NewRefundRepository(store),
			benefits:      memory.NewBenefitRepository(store),
			employees:     memory.NewEmployeeRepository(store),
			payGrades:     memory.NewPayGradeRepository(store),
			attendance:    memory.NewAttendanceRepository(store),
			workSchedules: memory.NewWorkScheduleRepository(store),
			leaveTypes:    memory.NewLeaveTypeRepository(store),
			leaveRequests: memory.NewLeaveRequestRepository(store),
			payConfig:     memory.NewPayConfigRepository(store),
			close:         func() {},
		}, nil
	}

	db, err := database.NewPostgreSQLDB(ctx, cfg.DatabaseURL(), cfg.Database.MaxConns, cfg.Database.MinConns)
	if err != nil {
		return nil, err
	}
	return &repositories{
		tx:            postgresql.NewTxManager(db),
		runs:          postgresql.NewRunRepository(db),
		details:       postgresql.NewDetailRepository(db),
		payslips:      postgresql.NewPayslipRepository(db),
		refunds:       postgresql.NewRefundRepository(db),
		benefits:      postgresql.NewBenefitRepository(db),
		employees:     postgresql.NewEmployeeRepository(db),
		payGrades:     postgresql.NewPayGradeRepository(db),
		attendance:    postgresql.NewAttendanceRepository(db),
		workSchedules: postgresql.NewWorkScheduleRepository(db),
		leaveTypes:    postgresql.NewLeaveTypeRepository(db),
		leaveRequests: postgresql.NewLeaveRequestRepository(db),
		payConfig:     postgresql.NewPayConfigRepository(db),
		close:         db.Close,
	}, nil
}

// newLocker returns a Redis-backed run lock when Redis is configured and
// reachable, otherwise an in-process one.
func newLocker(ctx context.Context, cfg config.RedisConfig) (lock.Locker, func()) {
	if cfg.Addr == "" {
		return lock.NewLocalLocker(), func() {}
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		slog.Warn("redis unavailable, falling back to in-process run lock", "addr", cfg.Addr, "error", err)
		_ = rdb.Close()
		return lock.NewLocalLocker(), func() {}
	}

	return lock.NewRedisLocker(rdb), func() {
		if err := rdb.Close(); err != nil {
			slog.Error("failed to close redis client", "error", err)
		}
	}
}
