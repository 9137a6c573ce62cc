// Package service holds the application use cases behind the HTTP API.
package service

import "errors"

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Warn(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

var (
	// ErrNotFound is returned when a requested record does not exist
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput is returned when a request fails validation
	ErrInvalidInput = errors.New("invalid input")

	// ErrPaymentAlreadyMatched is returned when matching a payment that is already reconciled
	ErrPaymentAlreadyMatched = errors.New("payment already matched")
)
