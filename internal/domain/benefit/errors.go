package benefit

import "errors"

var (
	ErrBenefitNotFound   = errors.New("benefit not found")
	ErrInvalidTransition = errors.New("benefit status transition not allowed")
	ErrAlreadyPaid       = errors.New("benefit already paid in a run")
	ErrReasonRequired    = errors.New("rejection reason is required")
	ErrTerminationExists = errors.New("employee already has a termination benefit")
	ErrMissingRole       = errors.New("caller lacks the role required for this action")
	ErrSelfApproval      = errors.New("benefit cannot be approved by its creator")
)
