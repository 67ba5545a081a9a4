package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("booking was modified concurrently, please retry")
	ErrForbidden    = errors.New("forbidden")
	ErrUnauthorized = errors.New("unauthorized")
	ErrDuplicate    = errors.New("already exists")
	ErrRateLimited  = errors.New("rate limit exceeded")
)

// NotFoundError names the missing entity and matches ErrNotFound.
type NotFoundError struct {
	Entity string
}

func NewNotFound(entity string) *NotFoundError {
	return &NotFoundError{Entity: entity}
}

func (e *NotFoundError) Error() string {
	return e.Entity + " not found."
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// ValidationError carries a human-readable reason for a rejected write.
type ValidationError struct {
	Reason string
	Cause  error
}

func NewValidation(reason string) *ValidationError {
	return &ValidationError{Reason: reason}
}

func (e *ValidationError) Error() string {
	return e.Reason
}

func (e *ValidationError) Unwrap() error {
	return e.Cause
}

// CapacityError reports a booking that does not fit the tour.
type CapacityError struct {
	Available int
	Requested int
}

func (e *CapacityError) Error() string {
	return fmt.Sprintf("Not enough capacity. Only %d slot(s) available.", e.Available)
}

// Unwrap exposes the capacity failure as a ValidationError.
func (e *CapacityError) Unwrap() error {
	return &ValidationError{Reason: e.Error()}
}

// ForbiddenError explains why an authenticated caller may not act.
type ForbiddenError struct {
	Reason string
}

func (e *ForbiddenError) Error() string {
	return e.Reason
}

func (e *ForbiddenError) Is(target error) bool {
	return target == ErrForbidden
}

func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// DuplicateError reports a collision on a unique field such as an email.
type DuplicateError struct {
	Reason string
}

func (e *DuplicateError) Error() string {
	return e.Reason
}

func (e *DuplicateError) Is(target error) bool {
	return target == ErrDuplicate
}

// UnauthorizedError reports failed authentication with a caller-facing reason.
type UnauthorizedError struct {
	Reason string
}

func (e *UnauthorizedError) Error() string {
	return e.Reason
}

func (e *UnauthorizedError) Is(target error) bool {
	return target == ErrUnauthorized
}
