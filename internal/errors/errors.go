// Package errors provides structured error types for the Vivial ingestion
// engine. All errors include a category, code, message, and retryable flag
// for consistent error handling across components.
package errors

import (
	"errors"
	"fmt"
)

// ErrorCategory classifies errors by system component.
type ErrorCategory string

const (
	ErrCategoryValidation ErrorCategory = "VALIDATION"
	ErrCategoryWarehouse  ErrorCategory = "WAREHOUSE"
	ErrCategoryControl    ErrorCategory = "CONTROL"
	ErrCategoryRedaction  ErrorCategory = "REDACTION"
	ErrCategoryView       ErrorCategory = "VIEW"
	ErrCategoryInternal   ErrorCategory = "INTERNAL"
)

// Error codes for each category.
const (
	// Validation codes
	CodeInvalidPayload      = "INVALID_PAYLOAD"
	CodeMissingField        = "MISSING_FIELD"
	CodeMissingTeamID       = "MISSING_TEAM_ID"

	// Warehouse codes
	CodeDatasetCreateFailed   = "DATASET_CREATE_FAILED"
	CodeTableCreateFailed     = "TABLE_CREATE_FAILED"
	CodeSchemaUpdateRejected  = "SCHEMA_UPDATE_REJECTED"
	CodeAppendFailed          = "APPEND_FAILED"
	CodeQueryFailed           = "QUERY_FAILED"

	// Control codes
	CodeRecordConflict  = "RECORD_CONFLICT"
	CodeControlQuery    = "CONTROL_QUERY_FAILED"
	CodeControlWrite    = "CONTROL_WRITE_FAILED"
	CodeTenantViewLimit = "TENANT_VIEW_LIMIT"

	// Redaction codes
	CodeClassifierUnavailable = "CLASSIFIER_UNAVAILABLE"

	// View codes
	CodeViewSyncFailed = "VIEW_SYNC_FAILED"

	// Internal codes
	CodeUnexpected = "UNEXPECTED"
)

// VivialError is the structured error type used throughout the system.
type VivialError struct {
	Category  ErrorCategory
	Code      string
	Message   string
	Details   map[string]interface{}
	Cause     error
	Retryable bool
}

// Error returns a formatted error string.
func (e *VivialError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s:%s] %s: %v", e.Category, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s:%s] %s", e.Category, e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *VivialError) Unwrap() error {
	return e.Cause
}

// Is reports whether the target matches this error's category and code.
func (e *VivialError) Is(target error) bool {
	var t *VivialError
	if errors.As(target, &t) {
		return e.Category == t.Category && e.Code == t.Code
	}
	return false
}

// New creates a new VivialError.
func New(category ErrorCategory, code, message string) *VivialError {
	return &VivialError{
		Category:  category,
		Code:      code,
		Message:   message,
		Retryable: isRetryable(category, code),
	}
}

// Wrap creates a new VivialError wrapping an existing error.
func Wrap(category ErrorCategory, code, message string, cause error) *VivialError {
	return &VivialError{
		Category:  category,
		Code:      code,
		Message:   message,
		Cause:     cause,
		Retryable: isRetryable(category, code),
	}
}

// WithDetails returns a copy of the error with additional details.
func (e *VivialError) WithDetails(details map[string]interface{}) *VivialError {
	cp := *e
	cp.Details = details
	return &cp
}

// IsRetryable checks whether an error (or its chain) is retryable.
func IsRetryable(err error) bool {
	var ve *VivialError
	if errors.As(err, &ve) {
		return ve.Retryable
	}
	return false
}

// IsRecordConflict reports whether the error chain contains the benign
// control-table unique-constraint violation produced when a concurrent
// writer materialized the same view first.
func IsRecordConflict(err error) bool {
	var ve *VivialError
	if errors.As(err, &ve) {
		return ve.Category == ErrCategoryControl && ve.Code == CodeRecordConflict
	}
	return false
}

// IsTenantViewLimit reports whether the error chain contains the control-table
// refusal to register a virtual event for a tenant already at its ceiling.
func IsTenantViewLimit(err error) bool {
	var ve *VivialError
	if errors.As(err, &ve) {
		return ve.Category == ErrCategoryControl && ve.Code == CodeTenantViewLimit
	}
	return false
}

// GetCategory extracts the error category from an error chain.
// Returns empty string if the error is not a VivialError.
func GetCategory(err error) ErrorCategory {
	var ve *VivialError
	if errors.As(err, &ve) {
		return ve.Category
	}
	return ""
}

// GetCode extracts the error code from an error chain.
// Returns empty string if the error is not a VivialError.
func GetCode(err error) string {
	var ve *VivialError
	if errors.As(err, &ve) {
		return ve.Code
	}
	return ""
}

// isRetryable determines if an error code is retryable.
func isRetryable(category ErrorCategory, code string) bool {
	switch {
	case category == ErrCategoryWarehouse && code == CodeAppendFailed:
		return true
	case category == ErrCategoryWarehouse && code == CodeQueryFailed:
		return true
	case category == ErrCategoryRedaction && code == CodeClassifierUnavailable:
		return true
	case category == ErrCategoryView && code == CodeViewSyncFailed:
		return true
	default:
		return false
	}
}

// Convenience constructors for common errors.

func NewValidationError(code, message string) *VivialError {
	return New(ErrCategoryValidation, code, message)
}

func NewWarehouseError(code, message string, cause error) *VivialError {
	return Wrap(ErrCategoryWarehouse, code, message, cause)
}

func NewControlError(code, message string, cause error) *VivialError {
	return Wrap(ErrCategoryControl, code, message, cause)
}

func NewRedactionError(message string, cause error) *VivialError {
	return Wrap(ErrCategoryRedaction, CodeClassifierUnavailable, message, cause)
}

func NewViewError(message string, cause error) *VivialError {
	return Wrap(ErrCategoryView, CodeViewSyncFailed, message, cause)
}

func NewInternalError(message string, cause error) *VivialError {
	return Wrap(ErrCategoryInternal, CodeUnexpected, message, cause)
}
