package domain

import "errors"

var (
	ErrNotFound             = errors.New("not found")
	ErrUnauthorized         = errors.New("unauthorized")
	ErrRateLimited          = errors.New("rate limited")
	ErrSigningFailed        = errors.New("signing failed")
	ErrAuthRetryExhausted   = errors.New("authorization retries exhausted")
	ErrUnexpectedFillReason = errors.New("order done without being filled")
	ErrUnprofitableClose    = errors.New("sell closed without profit")
	ErrCancelMismatch       = errors.New("cancel acknowledgement mismatch")
	ErrLockHeld             = errors.New("lock already held")
)
