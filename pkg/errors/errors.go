// Package errors provides custom error types for pewsync.
// Expected outcomes such as "record already exists" or "field not in schema"
// are not errors; the types here are reserved for failures a caller may want
// to inspect programmatically (transport, pagination, batch, entity, config).
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// New returns an error that formats as the given text.
// It's an alias for the standard library errors.New for convenience.
var New = errors.New

// Is and As mirror the standard library so callers need a single errors import.
var (
	Is = errors.Is
	As = errors.As
)

// Common sentinel errors.
var (
	// ErrNotFound indicates that a requested resource was not found
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates that provided input was invalid
	ErrInvalidInput = errors.New("invalid input")

	// ErrAuthentication indicates missing or rejected credentials
	ErrAuthentication = errors.New("authentication failed")

	// ErrRateLimited indicates that the remote rate limit has been exceeded
	ErrRateLimited = errors.New("rate limited")

	// ErrRemoteUnavailable indicates the remote system cannot be reached
	// or is failing server-side (5xx, open circuit breaker).
	ErrRemoteUnavailable = errors.New("remote unavailable")

	// ErrCanceled indicates that an operation was canceled
	ErrCanceled = errors.New("operation canceled")

	// ErrPaginatorConsumed indicates a paginator was iterated twice
	ErrPaginatorConsumed = errors.New("paginator already consumed")

	// ErrPaginationLoop indicates a remote returned the same continuation twice
	ErrPaginationLoop = errors.New("pagination loop detected")
)

// NotFoundError represents an error when a resource is not found
type NotFoundError struct {
	Resource string
	ID       string
}

// Error implements the error interface
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s with ID %s not found", e.Resource, e.ID)
}

// Is implements errors.Is support
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// NewNotFoundError creates a new NotFoundError
func NewNotFoundError(resource, id string) *NotFoundError {
	return &NotFoundError{Resource: resource, ID: id}
}

// ValidationError represents a validation failure
type ValidationError struct {
	Field   string
	Value   any
	Message string
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("validation failed for field %s: %s", e.Field, e.Message)
	}
	return fmt.Sprintf("validation failed: %s", e.Message)
}

// Is implements errors.Is support
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidInput
}

// NewValidationError creates a new ValidationError
func NewValidationError(field string, value any, message string) *ValidationError {
	return &ValidationError{Field: field, Value: value, Message: message}
}

// APIError represents a non-success response from a remote API.
type APIError struct {
	Collection string // remote collection, table, or service name
	StatusCode int
	Message    string
	Endpoint   string
	Err        error
}

// Error implements the error interface
func (e *APIError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("API error from %s (status %d): %s", e.Collection, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("API error from %s: %s", e.Collection, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *APIError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support
func (e *APIError) Is(target error) bool {
	switch {
	case e.StatusCode == http.StatusTooManyRequests:
		return target == ErrRateLimited
	case e.StatusCode == http.StatusUnauthorized, e.StatusCode == http.StatusForbidden:
		return target == ErrAuthentication
	case e.StatusCode == http.StatusNotFound:
		return target == ErrNotFound
	case e.StatusCode >= 500:
		return target == ErrRemoteUnavailable
	}
	return false
}

// NewAPIError creates a new APIError
func NewAPIError(collection string, statusCode int, message string) *APIError {
	return &APIError{
		Collection: collection,
		StatusCode: statusCode,
		Message:    message,
	}
}

// PaginationError aborts a paginated walk. Records yielded before it remain valid.
type PaginationError struct {
	Endpoint   string
	StatusCode int // zero when the failure happened below HTTP
	Page       int // 1-based page that failed
	Err        error
}

// Error implements the error interface
func (e *PaginationError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("pagination of %s failed on page %d (status %d): %v", e.Endpoint, e.Page, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("pagination of %s failed on page %d: %v", e.Endpoint, e.Page, e.Err)
}

// Unwrap implements errors.Unwrap
func (e *PaginationError) Unwrap() error {
	return e.Err
}

// BatchError marks every write of one failed bulk call.
type BatchError struct {
	Collection string
	Batch      int // 1-based batch number within the run
	Size       int
	Err        error
}

// Error implements the error interface
func (e *BatchError) Error() string {
	return fmt.Sprintf("batch %d (%d items) to %s failed: %v", e.Batch, e.Size, e.Collection, e.Err)
}

// Unwrap implements errors.Unwrap
func (e *BatchError) Unwrap() error {
	return e.Err
}

// EntityError represents a failure to resolve or create a referenced entity.
type EntityError struct {
	Store string
	Name  string
	Err   error
}

// Error implements the error interface
func (e *EntityError) Error() string {
	return fmt.Sprintf("resolve %s entity %q: %v", e.Store, e.Name, e.Err)
}

// Unwrap implements errors.Unwrap
func (e *EntityError) Unwrap() error {
	return e.Err
}

// ConfigError represents a configuration error
type ConfigError struct {
	Component string
	Message   string
	Err       error
}

// Error implements the error interface
func (e *ConfigError) Error() string {
	if e.Component != "" {
		return fmt.Sprintf("configuration error in %s: %s", e.Component, e.Message)
	}
	return fmt.Sprintf("configuration error: %s", e.Message)
}

// Unwrap implements errors.Unwrap
func (e *ConfigError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support
func (e *ConfigError) Is(target error) bool {
	return target == ErrInvalidInput
}

// NewConfigError creates a new ConfigError
func NewConfigError(component, message string, err error) *ConfigError {
	return &ConfigError{
		Component: component,
		Message:   message,
		Err:       err,
	}
}

// ParseError represents an error when parsing data formats
type ParseError struct {
	Format  string // "json", "yaml", ...
	Source  string
	Message string
	Err     error
}

// Error implements the error interface
func (e *ParseError) Error() string {
	if e.Source != "" {
		return fmt.Sprintf("parse error in %s %s: %s", e.Format, e.Source, e.Message)
	}
	return fmt.Sprintf("%s parse error: %s", e.Format, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *ParseError) Unwrap() error {
	return e.Err
}

// NewParseError creates a new ParseError
func NewParseError(format, source, message string, err error) *ParseError {
	return &ParseError{
		Format:  format,
		Source:  source,
		Message: message,
		Err:     err,
	}
}

// ResourceError represents an error during resource operations
type ResourceError struct {
	Operation string // "create", "update", "fetch", "load"
	Resource  string // "collection", "schema", "submission", ...
	ID        string
	Message   string
	Err       error
}

// Error implements the error interface
func (e *ResourceError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("failed to %s %s %s: %s", e.Operation, e.Resource, e.ID, e.Message)
	}
	return fmt.Sprintf("failed to %s %s: %s", e.Operation, e.Resource, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *ResourceError) Unwrap() error {
	return e.Err
}

// NewResourceError creates a new ResourceError
func NewResourceError(operation, resource, id string, err error) *ResourceError {
	message := ""
	if err != nil {
		message = err.Error()
	}
	return &ResourceError{
		Operation: operation,
		Resource:  resource,
		ID:        id,
		Message:   message,
		Err:       err,
	}
}

// AuthenticationError represents missing or rejected credentials
type AuthenticationError struct {
	Service string
	Method  string // "bearer", "basic", "header"
	Message string
	Err     error
}

// Error implements the error interface
func (e *AuthenticationError) Error() string {
	if e.Service != "" {
		return fmt.Sprintf("authentication error for %s (%s): %s", e.Service, e.Method, e.Message)
	}
	return fmt.Sprintf("authentication error (%s): %s", e.Method, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *AuthenticationError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support
func (e *AuthenticationError) Is(target error) bool {
	return target == ErrAuthentication
}

// Helper functions for error checking

// IsNotFound checks if an error is a not found error
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// IsRateLimited checks if an error is a rate limit error
func IsRateLimited(err error) bool {
	return errors.Is(err, ErrRateLimited)
}

// IsRemoteUnavailable checks if an error indicates the remote side is down
func IsRemoteUnavailable(err error) bool {
	return errors.Is(err, ErrRemoteUnavailable)
}

// IsCanceled checks if an error is a cancellation error
func IsCanceled(err error) bool {
	return errors.Is(err, ErrCanceled)
}

// IsAuthentication checks if an error is a credentials error
func IsAuthentication(err error) bool {
	return errors.Is(err, ErrAuthentication)
}

// StatusCode extracts the HTTP status carried by an APIError or PaginationError.
func StatusCode(err error) int {
	var pageErr *PaginationError
	if errors.As(err, &pageErr) && pageErr.StatusCode != 0 {
		return pageErr.StatusCode
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

// Helper wrapping functions for common patterns

// WrapResource wraps an error as a ResourceError
func WrapResource(operation, resource, id string, err error) error {
	if err == nil {
		return nil
	}
	return NewResourceError(operation, resource, id, err)
}

// WrapParse wraps an error as a ParseError
func WrapParse(format, source string, err error) error {
	if err == nil {
		return nil
	}
	return NewParseError(format, source, err.Error(), err)
}

// WrapAPI wraps an error as an APIError
func WrapAPI(collection string, statusCode int, err error) error {
	if err == nil {
		return nil
	}
	return &APIError{
		Collection: collection,
		StatusCode: statusCode,
		Message:    err.Error(),
		Err:        err,
	}
}
