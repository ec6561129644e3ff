package domain

import "errors"

// Sentinel errors for domain-level error discrimination.
// Services wrap these so handlers can map to HTTP status codes without leaking infrastructure details.
var (
	ErrBadRequest          = errors.New("bad request")
	ErrDuplicateIdentity   = errors.New("email or username already registered")
	ErrThrottled           = errors.New("a valid code was already issued")
	ErrNotificationFailure = errors.New("could not deliver verification code")
	ErrNotFound            = errors.New("not found")
	ErrExpired             = errors.New("verification code expired")
	ErrInvalidOTP          = errors.New("invalid verification code")
	ErrNotVerified         = errors.New("account not verified")
	ErrInvalidCredentials  = errors.New("invalid credentials")
	ErrAlreadyExists       = errors.New("already exists")
	ErrUnauthorized        = errors.New("unauthorized")
	ErrForbidden           = errors.New("forbidden")
)
