package payroll

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/payconfig"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// SnapshotDefaults fill in what configuration leaves unset.
type SnapshotDefaults struct {
	FallbackBaseSalary           decimal.Decimal
	OvertimeMultiplier           decimal.Decimal
	TerminationBenefitMultiplier decimal.Decimal
}

// SnapshotSource hands out the configuration a run computes against.
type SnapshotSource interface {
	Load(ctx context.Context) (payconfig.Snapshot, error)
}

// SnapshotLoader reads approved configuration in one concurrent pass.
// Concurrent callers share a single in-flight load.
type SnapshotLoader struct {
	repo     payconfig.Repository
	defaults SnapshotDefaults
	group    singleflight.Group
	now      func() time.Time
}

func NewSnapshotLoader(repo payconfig.Repository, defaults SnapshotDefaults) *SnapshotLoader {
	return &SnapshotLoader{repo: repo, defaults: defaults, now: time.Now}
}

func (l *SnapshotLoader) Load(ctx context.Context) (payconfig.Snapshot, error) {
	v, err, _ := l.group.Do("snapshot", func() (interface{}, error) {
		return l.load(ctx)
	})
	if err != nil {
		return payconfig.Snapshot{}, err
	}
	return v.(payconfig.Snapshot), nil
}

func (l *SnapshotLoader) load(ctx context.Context) (payconfig.Snapshot, error) {
	var (
		taxRules   []payconfig.TaxRule
		brackets   []payconfig.InsuranceBracket
		allowances []payconfig.AllowanceRule
		settings   payconfig.Settings
	)

	g, gCtx := errgroup.WithContext(ctx)

	g.Go(func() error {
		rules, err := l.repo.ListTaxRules(gCtx, payconfig.StatusApproved)
		if err != nil {
			return fmt.Errorf("failed to load tax rules: %w", err)
		}
		taxRules = rules
		return nil
	})

	g.Go(func() error {
		b, err := l.repo.ListInsuranceBrackets(gCtx, payconfig.StatusApproved)
		if err != nil {
			return fmt.Errorf("failed to load insurance brackets: %w", err)
		}
		brackets = b
		return nil
	})

	g.Go(func() error {
		a, err := l.repo.ListAllowanceRules(gCtx, payconfig.StatusApproved)
		if err != nil {
			return fmt.Errorf("failed to load allowance rules: %w", err)
		}
		allowances = a
		return nil
	})

	g.Go(func() error {
		s, err := l.repo.GetSettings(gCtx)
		if err != nil && !errors.Is(err, payconfig.ErrSettingsNotFound) {
			return fmt.Errorf("failed to load payroll settings: %w", err)
		}
		settings = s
		return nil
	})

	if err := g.Wait(); err != nil {
		return payconfig.Snapshot{}, err
	}

	snap := payconfig.Snapshot{
		TaxRules:                     taxRules,
		InsuranceBrackets:            brackets,
		Allowances:                   allowances,
		Penalties:                    settings.Penalties,
		FallbackBaseSalary:           l.defaults.FallbackBaseSalary,
		DefaultOvertimeMultiplier:    l.defaults.OvertimeMultiplier,
		TerminationBenefitMultiplier: l.defaults.TerminationBenefitMultiplier,
		ResolvedAt:                   l.now(),
	}
	if settings.MinimumWage != nil && settings.MinimumWage.IsPositive() {
		mw := *settings.MinimumWage
		snap.MinimumWage = &mw
	}
	return snap, nil
}
