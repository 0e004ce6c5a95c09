package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	// Common domain errors
	ErrNotFound           = errors.New("entity not found")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrInvalidExecContext = errors.New("invalid execution context")
	ErrStoreUnavailable   = errors.New("durable store unavailable")
	ErrCacheMiss          = errors.New("cache miss")
	ErrCooldownActive     = errors.New("cooldown active")
	ErrUsernameNotLinked  = errors.New("external username not linked")

	// Status source failures. StatusError unwraps to one of these.
	ErrExternalNotFound = errors.New("external user not found")
	ErrRateLimited      = errors.New("external source rate limited")
	ErrTransient        = errors.New("external source unavailable")
)

// StatusKind classifies a failed query against the external status source.
type StatusKind string

const (
	StatusNotFound    StatusKind = "not_found"
	StatusRateLimited StatusKind = "rate_limited"
	StatusTransient   StatusKind = "transient"
)

// StatusError is returned by the status checker. NotFound is terminal,
// RateLimited and Transient are retried before they surface.
type StatusError struct {
	Kind       StatusKind
	Err        error
	RetryAfter time.Duration
}

func NewStatusError(kind StatusKind, err error) *StatusError {
	return &StatusError{Kind: kind, Err: err}
}

func (e *StatusError) Error() string {
	if e.Err == nil {
		return string(e.Kind)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *StatusError) Unwrap() error { return e.Err }

// Is lets errors.Is match the kind sentinels.
func (e *StatusError) Is(target error) bool {
	switch e.Kind {
	case StatusNotFound:
		return target == ErrExternalNotFound
	case StatusRateLimited:
		return target == ErrRateLimited
	case StatusTransient:
		return target == ErrTransient
	}
	return false
}

// KindOf returns the classification of err. Unclassified errors count as transient.
func KindOf(err error) StatusKind {
	var se *StatusError
	if errors.As(err, &se) {
		return se.Kind
	}
	return StatusTransient
}

func IsNotFound(err error) bool    { return errors.Is(err, ErrExternalNotFound) }
func IsRateLimited(err error) bool { return errors.Is(err, ErrRateLimited) }
func IsTransient(err error) bool   { return err != nil && KindOf(err) == StatusTransient }

// ValidationError rejects malformed configuration input before it reaches storage.
type ValidationError struct {
	Field  string
	Value  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Value, e.Reason)
}

func (e *ValidationError) Is(target error) bool { return target == ErrInvalidArgument }

func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// CooldownError reports a held cooldown slot and when it frees up.
type CooldownError struct {
	Remaining time.Duration
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("cooldown active for %s", e.Remaining)
}

func (e *CooldownError) Is(target error) bool { return target == ErrCooldownActive }
