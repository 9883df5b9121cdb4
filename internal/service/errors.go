package service

import "errors"

// Domain errors shared by the candidate and admin flows.
var (
	ErrCodeNotFound         = errors.New("access code not found or already used")
	ErrCodeExpired          = errors.New("access code expired")
	ErrCodeAlreadyUsed      = errors.New("access code already used")
	ErrTestNotFound         = errors.New("test not found")
	ErrTestNotDeliverable   = errors.New("test has no questions or no duration")
	ErrCodeGenerationFailed = errors.New("could not generate a unique access code")
)
