package utils

import "errors"

var (
	ErrAccountNotFound    = errors.New("account not found")
	ErrEmailAlreadyExists = errors.New("email already registered")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrAccountLocked      = errors.New("account locked")
	ErrInvalidResetToken  = errors.New("invalid or expired reset token")
	ErrUnknownPlan        = errors.New("unknown plan")
	ErrUnknownField       = errors.New("unknown field")
	ErrDatabaseError      = errors.New("database error")
)
