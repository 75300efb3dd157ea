package payroll

import "time"

// IrregularityCode enum
type IrregularityCode string

const (
	IrregularityBankMissing         IrregularityCode = "bank_missing"
	IrregularityNetNegative         IrregularityCode = "net_negative"
	IrregularityNetZero             IrregularityCode = "net_zero"
	IrregularityTaxExceedsGross     IrregularityCode = "tax_exceeds_gross"
	IrregularityOvertimeExcessive   IrregularityCode = "overtime_excessive"
	IrregularityDeductionsExcessive IrregularityCode = "deductions_excessive"
	IrregularitySalarySpike         IrregularityCode = "salary_spike"
	IrregularityFloorAdjusted       IrregularityCode = "floor_adjusted"
	IrregularityNegativeNetClamped  IrregularityCode = "negative_net_clamped"
	IrregularityProcessingError     IrregularityCode = "processing_error"
)

// Severity enum
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// IrregularityStatus enum
type IrregularityStatus string

const (
	IrregularityStatusOpen      IrregularityStatus = "open"
	IrregularityStatusEscalated IrregularityStatus = "escalated"
	IrregularityStatusResolved  IrregularityStatus = "resolved"
)

// Resolution enum
type Resolution string

const (
	ResolutionApproved     Resolution = "approved"
	ResolutionRejected     Resolution = "rejected"
	ResolutionExcluded     Resolution = "excluded"
	ResolutionAdjusted     Resolution = "adjusted"
	ResolutionAutoResolved Resolution = "auto_resolved"
)

// ManualResolutions are the actions a reviewer may pick.
var ManualResolutions = []Resolution{
	ResolutionApproved,
	ResolutionRejected,
	ResolutionExcluded,
	ResolutionAdjusted,
}

// Irregularity - a flagged anomaly on one detail
type Irregularity struct {
	ID       string
	Code     IrregularityCode
	Message  string
	Severity Severity
	Status   IrregularityStatus

	EscalatedBy      *string
	EscalatedAt      *time.Time
	EscalationReason *string

	ResolvedBy     *string
	ResolvedAt     *time.Time
	Resolution     *Resolution
	ResolutionNote *string

	DetectedAt time.Time
}
