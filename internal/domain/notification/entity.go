package notification

import (
	"time"
)

// EventType represents the kind of payroll event being announced
type EventType string

const (
	TypeRunCreated         EventType = "payroll_run.created"
	TypeRunSubmitted       EventType = "payroll_run.submitted"
	TypeRunProcessingError EventType = "payroll_run.processing_failed"
	TypeRunReviewApproved  EventType = "payroll_run.review_approved"
	TypeRunApproved        EventType = "payroll_run.approved"
	TypeRunRejected        EventType = "payroll_run.rejected"
	TypeRunReopened        EventType = "payroll_run.reopened"
	TypeRunLocked          EventType = "payroll_run.locked"
	TypeRunUnlocked        EventType = "payroll_run.unlocked"
	TypeIrregularityRaised EventType = "irregularity.escalated"
	TypeBenefitApproved    EventType = "benefit.approved"
	TypeBenefitRejected    EventType = "benefit.rejected"
)

// Event is one notification handed to the delivery collaborator.
type Event struct {
	ID         string
	Type       EventType
	SubjectID  string // run or benefit id
	ActorID    string
	Message    string
	Data       map[string]interface{}
	OccurredAt time.Time
}
