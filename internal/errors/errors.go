package errors

import "errors"

var (
	ErrNotFound         = errors.New("resource not found")
	ErrConflict         = errors.New("slot is not available")
	ErrPolicyViolation  = errors.New("operation violates booking policy")
	ErrInvalidSignature = errors.New("invalid payment event signature")
	ErrMalformedEvent   = errors.New("payment event could not be decoded")
	ErrUpstream         = errors.New("payment provider request failed")
	ErrConfiguration    = errors.New("venue pricing is not configured")
	ErrBadRequest       = errors.New("bad request")

	// ErrInconsistency marks a multi-step mutation that stopped half way.
	// It always needs an operator and must never be swallowed.
	ErrInconsistency = errors.New("inconsistent state after partial update")
)
