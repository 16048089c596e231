package domain

import "errors"

var (
	ErrNotFound         = errors.New("not found")
	ErrRateLimited      = errors.New("rate limited")
	ErrUnauthorized     = errors.New("unauthorized")
	ErrInvalidAddress   = errors.New("invalid user address")
	ErrInvalidInterval  = errors.New("polling interval must be positive")
	ErrInvalidSettings  = errors.New("invalid notification settings")
	ErrInvalidAlert     = errors.New("invalid price alert")
	ErrLockHeld         = errors.New("lock already held")
	ErrMalformedPayload = errors.New("malformed upstream payload")
)
