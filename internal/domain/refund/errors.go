package refund

import "errors"

var (
	ErrRefundNotFound    = errors.New("refund not found")
	ErrRefundAlreadyPaid = errors.New("refund already paid in a run")
)
