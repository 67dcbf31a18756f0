// Package errors provides the error taxonomy for the sync engine.
// Every failure that leaves a reconciliation or the pipeline is one of the
// typed errors below, so callers can branch with errors.Is / errors.As
// instead of matching on message text.
package errors

import (
	"errors"
	"fmt"
	"strings"
)

// New returns an error that formats as the given text.
// It's an alias for the standard library errors.New for convenience.
var New = errors.New

// Re-exports so callers only need one errors import.
var (
	Is   = errors.Is
	As   = errors.As
	Join = errors.Join
)

// Sentinel errors matched by the typed errors' Is methods.
var (
	// ErrFetch indicates an external source or remote store read failed
	ErrFetch = errors.New("fetch failed")

	// ErrWrite indicates a remote store save or delete failed
	ErrWrite = errors.New("write failed")

	// ErrDataShape indicates an external item could not be mapped to a record
	ErrDataShape = errors.New("malformed item")

	// ErrInvalidInput indicates that provided input was invalid
	ErrInvalidInput = errors.New("invalid input")

	// ErrConflict indicates the remote store rejected a stale version token
	ErrConflict = errors.New("version conflict")

	// ErrAuthentication indicates the remote store session could not be established
	ErrAuthentication = errors.New("authentication failed")

	// ErrProviderUnavailable indicates that an upstream API is temporarily unavailable
	ErrProviderUnavailable = errors.New("provider unavailable")

	// ErrRateLimited indicates that the API rate limit has been exceeded
	ErrRateLimited = errors.New("rate limited")

	// ErrCanceled indicates that an operation was canceled
	ErrCanceled = errors.New("operation canceled")
)

// Side names the half of a reconciliation a fetch belongs to.
type Side string

const (
	// SideSource is the external source fetch.
	SideSource Side = "source"
	// SideStore is the remote store query.
	SideStore Side = "store"
)

// FetchError is a failed read from an external source or the remote store.
type FetchError struct {
	Side Side
	Type string // record type being fetched
	Err  error
}

// Error implements the error interface
func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s from %s: %v", e.Type, e.Side, e.Err)
}

// Unwrap implements errors.Unwrap
func (e *FetchError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support
func (e *FetchError) Is(target error) bool {
	return target == ErrFetch
}

// NewFetchError creates a new FetchError
func NewFetchError(side Side, recordType string, err error) *FetchError {
	return &FetchError{Side: side, Type: recordType, Err: err}
}

// RecordError is a per-record rejection reported by the remote store.
type RecordError struct {
	Name   string // record identity, empty for a rejected insert
	Code   string // store error code, e.g. CONFLICT
	Reason string
}

// Error implements the error interface
func (e *RecordError) Error() string {
	name := e.Name
	if name == "" {
		name = "<new>"
	}
	if e.Reason != "" {
		return fmt.Sprintf("record %s: %s (%s)", name, e.Code, e.Reason)
	}
	return fmt.Sprintf("record %s: %s", name, e.Code)
}

// Is implements errors.Is support
func (e *RecordError) Is(target error) bool {
	return target == ErrConflict && e.Code == CodeConflict
}

// Store error codes shared by the store implementations.
const (
	CodeConflict     = "CONFLICT"
	CodeNotFound     = "NOT_FOUND"
	CodeBadRequest   = "BAD_REQUEST"
	CodeUnknownError = "UNKNOWN_ERROR"
)

// WriteError is a failed save or delete. Either Err is set (the whole batch
// failed) or Failed lists the records the store rejected.
type WriteError struct {
	Operation string // "save" or "delete"
	Type      string
	Failed    []RecordError
	Err       error
}

// Error implements the error interface
func (e *WriteError) Error() string {
	if len(e.Failed) > 0 {
		parts := make([]string, 0, len(e.Failed))
		for i := range e.Failed {
			parts = append(parts, e.Failed[i].Error())
		}
		return fmt.Sprintf("%s %s: %d record(s) rejected: %s", e.Operation, e.Type, len(e.Failed), strings.Join(parts, "; "))
	}
	return fmt.Sprintf("%s %s: %v", e.Operation, e.Type, e.Err)
}

// Unwrap implements errors.Unwrap
func (e *WriteError) Unwrap() []error {
	errs := make([]error, 0, len(e.Failed)+1)
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	for i := range e.Failed {
		errs = append(errs, &e.Failed[i])
	}
	return errs
}

// Is implements errors.Is support
func (e *WriteError) Is(target error) bool {
	return target == ErrWrite
}

// DataShapeError is an external item that cannot be mapped to a record.
type DataShapeError struct {
	Type    string
	Field   string
	Message string
}

// Error implements the error interface
func (e *DataShapeError) Error() string {
	return fmt.Sprintf("malformed %s item: field %s: %s", e.Type, e.Field, e.Message)
}

// Is implements errors.Is support
func (e *DataShapeError) Is(target error) bool {
	return target == ErrDataShape
}

// NewDataShapeError creates a new DataShapeError
func NewDataShapeError(recordType, field, message string) *DataShapeError {
	return &DataShapeError{Type: recordType, Field: field, Message: message}
}

// StageError ties a pipeline failure to the stage that produced it.
type StageError struct {
	Stage string
	Err   error
}

// Error implements the error interface
func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s failed: %v", e.Stage, e.Err)
}

// Unwrap implements errors.Unwrap
func (e *StageError) Unwrap() error {
	return e.Err
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

// APIError represents a non-success response from an upstream HTTP API
type APIError struct {
	Provider   string
	StatusCode int
	Message    string
	Endpoint   string
	Err        error
}

// Error implements the error interface
func (e *APIError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("API error from %s (status %d): %s", e.Provider, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("API error from %s: %s", e.Provider, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *APIError) Unwrap() error {
	return e.Err
}

// Is implements errors.Is support
func (e *APIError) Is(target error) bool {
	if e.StatusCode == 429 {
		return target == ErrRateLimited
	}
	if e.StatusCode >= 500 {
		return target == ErrProviderUnavailable
	}
	if e.StatusCode == 401 || e.StatusCode == 403 {
		return target == ErrAuthentication
	}
	return false
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

// NewConfigError creates a new ConfigError
func NewConfigError(component, message string, err error) *ConfigError {
	return &ConfigError{Component: component, Message: message, Err: err}
}

// ParseError represents an error when decoding a payload
type ParseError struct {
	Format  string // "json", "xml", "pem"
	Source  string
	Message string
	Err     error
}

// Error implements the error interface
func (e *ParseError) Error() string {
	if e.Source != "" {
		return fmt.Sprintf("%s parse error in %s: %s", e.Format, e.Source, e.Message)
	}
	return fmt.Sprintf("%s parse error: %s", e.Format, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *ParseError) Unwrap() error {
	return e.Err
}

// AuthenticationError represents a failure to authenticate against the remote store
type AuthenticationError struct {
	Service string
	Method  string // "server_key", "token"
	Message string
	Err     error
}

// Error implements the error interface
func (e *AuthenticationError) Error() string {
	return fmt.Sprintf("authentication error for %s (%s): %s", e.Service, e.Method, e.Message)
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

// IsFetch reports whether err is a fetch failure.
func IsFetch(err error) bool {
	return errors.Is(err, ErrFetch)
}

// IsWrite reports whether err is a write failure.
func IsWrite(err error) bool {
	return errors.Is(err, ErrWrite)
}

// IsDataShape reports whether err is a malformed-item error.
func IsDataShape(err error) bool {
	return errors.Is(err, ErrDataShape)
}

// IsConflict reports whether err carries a version conflict.
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict)
}

// IsValidationError checks if an error is a validation error
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}

// StageOf returns the failing stage recorded in err, if any.
func StageOf(err error) (string, bool) {
	var se *StageError
	if errors.As(err, &se) {
		return se.Stage, true
	}
	return "", false
}

// Helper wrapping functions for common patterns

// WrapParse wraps an error as a ParseError
func WrapParse(format, source string, err error) error {
	if err == nil {
		return nil
	}
	return &ParseError{Format: format, Source: source, Message: err.Error(), Err: err}
}

// WrapAPI wraps an error as an APIError
func WrapAPI(provider, endpoint string, err error) error {
	if err == nil {
		return nil
	}
	return &APIError{
		Provider: provider,
		Endpoint: endpoint,
		Message:  err.Error(),
		Err:      err,
	}
}
