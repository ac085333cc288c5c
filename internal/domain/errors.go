package domain

import "errors"

var (
	ErrNotFound         = errors.New("not found")
	ErrInvalidInput     = errors.New("invalid input")
	ErrNotConfigured    = errors.New("provider not configured")
	ErrLimitExceeded    = errors.New("usage limit exceeded")
	ErrRecordingTooLong = errors.New("recording exceeds tier maximum length")
	ErrUnauthorized     = errors.New("unauthorized")
)

var ErrTooLarge = errors.New("payload too large")
