package domain

import "errors"

var (
	ErrNotFound          = errors.New("not found")
	ErrVenueUnavailable  = errors.New("venue unavailable")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrOrderRejected     = errors.New("order rejected")
	ErrRateLimited       = errors.New("rate limited")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrNotAuthenticated  = errors.New("venue has no trading credentials")
)
