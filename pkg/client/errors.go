package client

import (
	"errors"
	"fmt"
)

// Common errors returned by the client.
var (
	// ErrRetryExhausted is returned when all retry attempts are exhausted.
	ErrRetryExhausted = errors.New("retry attempts exhausted")

	// ErrCancelled is returned when the caller's context is cancelled during
	// an attempt or a backoff sleep.
	ErrCancelled = errors.New("fetch cancelled")

	// ErrRateLimited is returned for an attempt blocked by the rate limit gate.
	ErrRateLimited = errors.New("blocked by rate limit")
)

// ErrorClass represents a classification of failed attempts.
type ErrorClass string

const (
	// ErrorClassClient represents 4xx client errors.
	ErrorClassClient ErrorClass = "client"

	// ErrorClassServer represents 5xx server errors.
	ErrorClassServer ErrorClass = "server"

	// ErrorClassStatus represents any other non-2xx status (1xx, 3xx).
	ErrorClassStatus ErrorClass = "status"

	// ErrorClassNetwork represents network/timeout errors.
	ErrorClassNetwork ErrorClass = "network"

	// ErrorClassDecode represents a 2xx response whose body is not valid JSON.
	ErrorClassDecode ErrorClass = "decode"

	// ErrorClassRateLimit represents attempts blocked by the rate limit gate.
	ErrorClassRateLimit ErrorClass = "rate_limit"
)

// classifyStatus maps a non-2xx HTTP status to an error class.
func classifyStatus(statusCode int) ErrorClass {
	switch {
	case statusCode >= 400 && statusCode < 500:
		return ErrorClassClient
	case statusCode >= 500:
		return ErrorClassServer
	default:
		return ErrorClassStatus
	}
}

// TransportError is a failed attempt: either the request did not complete
// (StatusCode 0) or the server answered with a non-2xx status.
type TransportError struct {
	Endpoint   string
	StatusCode int
	ErrorClass ErrorClass
	Err        error
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("%s %s error: %v", e.Endpoint, e.ErrorClass, e.Err)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s %s error (status %d): %v", e.Endpoint, e.ErrorClass, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s %s error (status %d)", e.Endpoint, e.ErrorClass, e.StatusCode)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *TransportError) Unwrap() error {
	return e.Err
}

// DecodeError is a 2xx response whose body could not be decoded as JSON.
type DecodeError struct {
	Endpoint string
	Err      error
}

// Error implements the error interface.
func (e *DecodeError) Error() string {
	return fmt.Sprintf("%s decode error: %v", e.Endpoint, e.Err)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *DecodeError) Unwrap() error {
	return e.Err
}

// ExhaustedError is the terminal failure of a fetch after every attempt failed.
// It matches ErrRetryExhausted and the last attempt's error.
type ExhaustedError struct {
	Endpoint string
	Attempts int
	Last     error
}

// Error implements the error interface.
func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("%s: %v after %d attempts: %v", e.Endpoint, ErrRetryExhausted, e.Attempts, e.Last)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *ExhaustedError) Unwrap() []error {
	return []error{ErrRetryExhausted, e.Last}
}

// classOf returns the error class of an attempt error, or "" if unknown.
func classOf(err error) ErrorClass {
	var te *TransportError
	if errors.As(err, &te) {
		return te.ErrorClass
	}
	var de *DecodeError
	if errors.As(err, &de) {
		return ErrorClassDecode
	}
	if errors.Is(err, ErrRateLimited) {
		return ErrorClassRateLimit
	}
	return ""
}

// cancelled wraps the context error of a cancelled fetch.
func cancelled(cause error) error {
	return fmt.Errorf("%w: %w", ErrCancelled, cause)
}
