package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrNotFound        = errors.New("project not found")
	ErrUnauthenticated = errors.New("authentication required")
)

// ValidationError is user-correctable input.
type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func NewValidationError(format string, args ...any) *ValidationError {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

type RateLimitError struct {
	RetryAfter time.Duration
	Limit      int
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limit exceeded, retry after %s", e.RetryAfter)
}

// SchemaValidationError means the model output did not satisfy the plan
// contract. Raw keeps the offending output for logs only.
type SchemaValidationError struct {
	Detail string
	Raw    string
}

func (e *SchemaValidationError) Error() string {
	return "generated plan failed schema validation: " + e.Detail
}

type TimeoutError struct {
	After time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("generation timed out after %s", e.After)
}

type DatabaseErrorKind string

const (
	DBConflict    DatabaseErrorKind = "conflict"
	DBUnavailable DatabaseErrorKind = "unavailable"
	DBInternal    DatabaseErrorKind = "internal"
)

type DatabaseError struct {
	Kind DatabaseErrorKind
	Op   string
	Err  error
}

func (e *DatabaseError) Error() string {
	return fmt.Sprintf("database %s (%s): %v", e.Op, e.Kind, e.Err)
}

func (e *DatabaseError) Unwrap() error { return e.Err }

// UpstreamError is a failure of the language model provider itself.
type UpstreamError struct {
	Err error
}

func (e *UpstreamError) Error() string { return "llm provider: " + e.Err.Error() }

func (e *UpstreamError) Unwrap() error { return e.Err }

type UnsupportedSchemaError struct {
	Version int
}

func (e *UnsupportedSchemaError) Error() string {
	return fmt.Sprintf("unsupported plan schema version %d", e.Version)
}
