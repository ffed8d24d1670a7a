package domain

import (
	"context"
	"errors"
	"fmt"
)

// Error taxonomy shared by the engine and its adapters.
var (
	ErrInvalidRequest      = errors.New("invalid request")
	ErrProviderUnavailable = errors.New("provider unavailable")
	ErrAnalyzer            = errors.New("analyzer error")
	ErrTimeout             = errors.New("timeout")
	ErrCancelled           = errors.New("cancelled")
	ErrInsufficientData    = errors.New("insufficient data")
	ErrInternal            = errors.New("internal error")

	// ErrTransient and ErrPermanent classify provider failures for the retry policy.
	ErrTransient = errors.New("transient")
	ErrPermanent = errors.New("permanent")
)

// Boundary codes reported by the API.
const (
	CodeOK               = "ok"
	CodeInvalidRequest   = "invalid_request"
	CodeInsufficientData = "insufficient_data"
	CodeTimeout          = "timeout"
	CodeInternal         = "internal"
)

type classified struct {
	class error
	err   error
}

func (c *classified) Error() string {
	return c.err.Error()
}

func (c *classified) Unwrap() []error {
	return []error{c.class, c.err}
}

// Transient marks err as retryable.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &classified{class: ErrTransient, err: err}
}

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &classified{class: ErrPermanent, err: err}
}

// InvalidRequestf builds an ErrInvalidRequest with a formatted detail.
func InvalidRequestf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidRequest, fmt.Sprintf(format, args...))
}

// IsCancellation reports whether err stems from a deadline or an explicit cancellation.
func IsCancellation(err error) bool {
	return errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, ErrCancelled) ||
		errors.Is(err, ErrTimeout)
}

// Code maps an error to the boundary error code.
func Code(err error) string {
	switch {
	case err == nil:
		return CodeOK
	case errors.Is(err, ErrInvalidRequest):
		return CodeInvalidRequest
	case errors.Is(err, ErrInsufficientData):
		return CodeInsufficientData
	case errors.Is(err, ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return CodeTimeout
	default:
		return CodeInternal
	}
}
