package postgresql

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/benefit"
	"github.com/cmlabs-hris/payroll-backend-go/internal/domain/refund"
	"github.com/cmlabs-hris/payroll-backend-go/internal/pkg/database"
	"github.com/jackc/pgx/v5"
)

// ========== BENEFITS ==========

const benefitColumns = `
	id, kind, employee_id, amount, status, notes, created_by,
	approved_by, approved_at, rejected_by, rejected_at, rejection_reason,
	paid_in_run_id, paid_at, created_at, updated_at`

type benefitRepository struct {
	db *database.DB
}

func NewBenefitRepository(db *database.DB) benefit.BenefitRepository {
	return &benefitRepository{db: db}
}

func (r *benefitRepository) Create(ctx context.Context, b benefit.Benefit) (benefit.Benefit, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		INSERT INTO benefits (id, kind, employee_id, amount, status, notes, created_by, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING ` + benefitColumns

	created, err := scanBenefit(q.QueryRow(ctx, query,
		b.ID, b.Kind, b.EmployeeID, b.Amount, b.Status, b.Notes, b.CreatedBy, b.CreatedAt, b.UpdatedAt,
	))
	if err != nil {
		if isUniqueViolation(err, "uk_benefits_one_termination") {
			return benefit.Benefit{}, benefit.ErrTerminationExists
		}
		return benefit.Benefit{}, fmt.Errorf("failed to create benefit: %w", err)
	}
	return created, nil
}

func (r *benefitRepository) GetByID(ctx context.Context, id string) (benefit.Benefit, error) {
	q := GetQuerier(ctx, r.db)

	b, err := scanBenefit(q.QueryRow(ctx, `SELECT `+benefitColumns+` FROM benefits WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return benefit.Benefit{}, benefit.ErrBenefitNotFound
		}
		return benefit.Benefit{}, fmt.Errorf("failed to get benefit: %w", err)
	}
	return b, nil
}

func (r *benefitRepository) ListByEmployee(ctx context.Context, employeeID string, status *benefit.Status) ([]benefit.Benefit, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT ` + benefitColumns + `
		FROM benefits
		WHERE employee_id = $1 AND ($2::text IS NULL OR status = $2)
		ORDER BY created_at
	`

	rows, err := q.Query(ctx, query, employeeID, status)
	if err != nil {
		return nil, fmt.Errorf("failed to list benefits: %w", err)
	}
	defer rows.Close()

	benefits := []benefit.Benefit{}
	for rows.Next() {
		b, err := scanBenefit(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan benefit: %w", err)
		}
		benefits = append(benefits, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate benefits: %w", err)
	}
	return benefits, nil
}

func (r *benefitRepository) ExistsForEmployee(ctx context.Context, employeeID string, kind benefit.Kind) (bool, error) {
	q := GetQuerier(ctx, r.db)

	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM benefits WHERE employee_id = $1 AND kind = $2)`
	if err := q.QueryRow(ctx, query, employeeID, kind).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check benefit: %w", err)
	}
	return exists, nil
}

func (r *benefitRepository) Update(ctx context.Context, b benefit.Benefit, expected benefit.Status) error {
	q := GetQuerier(ctx, r.db)

	query := `
		UPDATE benefits SET
			amount = $2, status = $3, notes = $4,
			approved_by = $5, approved_at = $6,
			rejected_by = $7, rejected_at = $8, rejection_reason = $9,
			paid_in_run_id = $10, paid_at = $11, updated_at = $12
		WHERE id = $1 AND status = $13
	`

	tag, err := q.Exec(ctx, query,
		b.ID, b.Amount, b.Status, b.Notes,
		b.ApprovedBy, b.ApprovedAt,
		b.RejectedBy, b.RejectedAt, b.RejectionReason,
		b.PaidInRunID, b.PaidAt, b.UpdatedAt,
		expected,
	)
	if err != nil {
		return fmt.Errorf("failed to update benefit: %w", err)
	}
	if tag.RowsAffected() == 0 {
		var current benefit.Status
		err := q.QueryRow(ctx, `SELECT status FROM benefits WHERE id = $1`, b.ID).Scan(&current)
		if errors.Is(err, pgx.ErrNoRows) {
			return benefit.ErrBenefitNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to read benefit status: %w", err)
		}
		return fmt.Errorf("%w: expected %s, found %s", benefit.ErrInvalidTransition, expected, current)
	}
	return nil
}

func (r *benefitRepository) MarkPaid(ctx context.Context, ids []string, runID string) error {
	if len(ids) == 0 {
		return nil
	}
	q := GetQuerier(ctx, r.db)

	// Rows are locked before the state check so two runs cannot both pay them.
	rows, err := q.Query(ctx, `SELECT id, status, paid_in_run_id FROM benefits WHERE id = ANY($1) FOR UPDATE`, ids)
	if err != nil {
		return fmt.Errorf("failed to lock benefits: %w", err)
	}
	found := 0
	for rows.Next() {
		var (
			id     string
			status benefit.Status
			paidIn *string
		)
		if err := rows.Scan(&id, &status, &paidIn); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan benefit: %w", err)
		}
		found++
		if paidIn != nil {
			rows.Close()
			return benefit.ErrAlreadyPaid
		}
		if !status.CanTransition(benefit.StatusPaid) {
			rows.Close()
			return benefit.ErrInvalidTransition
		}
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to iterate benefits: %w", err)
	}
	if found != len(ids) {
		return benefit.ErrBenefitNotFound
	}

	query := `
		UPDATE benefits SET status = $2, paid_in_run_id = $3, paid_at = $4, updated_at = $4
		WHERE id = ANY($1)
	`
	if _, err := q.Exec(ctx, query, ids, benefit.StatusPaid, runID, time.Now()); err != nil {
		return fmt.Errorf("failed to mark benefits paid: %w", err)
	}
	return nil
}

func (r *benefitRepository) RevertRun(ctx context.Context, runID string) (int, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		UPDATE benefits SET status = $2, paid_in_run_id = NULL, paid_at = NULL, updated_at = NOW()
		WHERE paid_in_run_id = $1
	`
	tag, err := q.Exec(ctx, query, runID, benefit.StatusApproved)
	if err != nil {
		return 0, fmt.Errorf("failed to revert benefits: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

func scanBenefit(row pgx.Row) (benefit.Benefit, error) {
	var b benefit.Benefit
	err := row.Scan(
		&b.ID, &b.Kind, &b.EmployeeID, &b.Amount, &b.Status, &b.Notes, &b.CreatedBy,
		&b.ApprovedBy, &b.ApprovedAt, &b.RejectedBy, &b.RejectedAt, &b.RejectionReason,
		&b.PaidInRunID, &b.PaidAt, &b.CreatedAt, &b.UpdatedAt,
	)
	return b, err
}

// ========== REFUNDS ==========

const refundColumns = `
	id, employee_id, amount, description, dispute_id, claim_id, status,
	paid_in_run_id, paid_at, deferred_in_run_id, deferral_reason, created_at, updated_at`

type refundRepository struct {
	db *database.DB
}

func NewRefundRepository(db *database.DB) refund.RefundRepository {
	return &refundRepository{db: db}
}

func (r *refundRepository) Create(ctx context.Context, rf refund.Refund) (refund.Refund, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		INSERT INTO refunds (id, employee_id, amount, description, dispute_id, claim_id, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING ` + refundColumns

	created, err := scanRefund(q.QueryRow(ctx, query,
		rf.ID, rf.EmployeeID, rf.Amount, rf.Description, rf.DisputeID, rf.ClaimID, rf.Status, rf.CreatedAt, rf.UpdatedAt,
	))
	if err != nil {
		return refund.Refund{}, fmt.Errorf("failed to create refund: %w", err)
	}
	return created, nil
}

func (r *refundRepository) GetByID(ctx context.Context, id string) (refund.Refund, error) {
	q := GetQuerier(ctx, r.db)

	rf, err := scanRefund(q.QueryRow(ctx, `SELECT `+refundColumns+` FROM refunds WHERE id = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return refund.Refund{}, refund.ErrRefundNotFound
		}
		return refund.Refund{}, fmt.Errorf("failed to get refund: %w", err)
	}
	return rf, nil
}

func (r *refundRepository) ListPayable(ctx context.Context, employeeID string) ([]refund.Refund, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		SELECT ` + refundColumns + `
		FROM refunds
		WHERE employee_id = $1 AND paid_in_run_id IS NULL AND status IN ($2, $3)
		ORDER BY created_at
	`

	rows, err := q.Query(ctx, query, employeeID, refund.StatusPending, refund.StatusDeferred)
	if err != nil {
		return nil, fmt.Errorf("failed to list payable refunds: %w", err)
	}
	defer rows.Close()

	refunds := []refund.Refund{}
	for rows.Next() {
		rf, err := scanRefund(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan refund: %w", err)
		}
		refunds = append(refunds, rf)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate refunds: %w", err)
	}
	return refunds, nil
}

func (r *refundRepository) MarkPaid(ctx context.Context, ids []string, runID string, paidAt time.Time) error {
	if len(ids) == 0 {
		return nil
	}
	if err := r.checkUnpaid(ctx, ids); err != nil {
		return err
	}
	q := GetQuerier(ctx, r.db)

	query := `
		UPDATE refunds SET
			status = $2, paid_in_run_id = $3, paid_at = $4,
			deferred_in_run_id = NULL, deferral_reason = NULL, updated_at = $4
		WHERE id = ANY($1)
	`
	if _, err := q.Exec(ctx, query, ids, refund.StatusPaid, runID, paidAt); err != nil {
		return fmt.Errorf("failed to mark refunds paid: %w", err)
	}
	return nil
}

func (r *refundRepository) MarkDeferred(ctx context.Context, ids []string, runID string, reason string) error {
	if len(ids) == 0 {
		return nil
	}
	if err := r.checkUnpaid(ctx, ids); err != nil {
		return err
	}
	q := GetQuerier(ctx, r.db)

	query := `
		UPDATE refunds SET status = $2, deferred_in_run_id = $3, deferral_reason = $4, updated_at = NOW()
		WHERE id = ANY($1)
	`
	if _, err := q.Exec(ctx, query, ids, refund.StatusDeferred, runID, reason); err != nil {
		return fmt.Errorf("failed to defer refunds: %w", err)
	}
	return nil
}

func (r *refundRepository) RevertRun(ctx context.Context, runID string) (int, error) {
	q := GetQuerier(ctx, r.db)

	query := `
		UPDATE refunds SET
			status = $2, paid_in_run_id = NULL, paid_at = NULL,
			deferred_in_run_id = NULL, deferral_reason = NULL, updated_at = NOW()
		WHERE paid_in_run_id = $1 OR deferred_in_run_id = $1
	`
	tag, err := q.Exec(ctx, query, runID, refund.StatusPending)
	if err != nil {
		return 0, fmt.Errorf("failed to revert refunds: %w", err)
	}
	return int(tag.RowsAffected()), nil
}

// checkUnpaid locks the refunds and fails when one is missing or already paid.
func (r *refundRepository) checkUnpaid(ctx context.Context, ids []string) error {
	q := GetQuerier(ctx, r.db)

	var found, paid int
	query := `
		SELECT COUNT(*), COUNT(*) FILTER (WHERE paid_in_run_id IS NOT NULL)
		FROM (SELECT paid_in_run_id FROM refunds WHERE id = ANY($1) FOR UPDATE) locked
	`
	if err := q.QueryRow(ctx, query, ids).Scan(&found, &paid); err != nil {
		return fmt.Errorf("failed to lock refunds: %w", err)
	}
	if found != len(ids) {
		return refund.ErrRefundNotFound
	}
	if paid > 0 {
		return refund.ErrRefundAlreadyPaid
	}
	return nil
}

func scanRefund(row pgx.Row) (refund.Refund, error) {
	var rf refund.Refund
	err := row.Scan(
		&rf.ID, &rf.EmployeeID, &rf.Amount, &rf.Description, &rf.DisputeID, &rf.ClaimID, &rf.Status,
		&rf.PaidInRunID, &rf.PaidAt, &rf.DeferredInRunID, &rf.DeferralReason, &rf.CreatedAt, &rf.UpdatedAt,
	)
	return rf, err
}
