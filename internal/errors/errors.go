// Package errors provides structured error types for the Arkilian metastore
// and its information schema. Every error carries a category, a code, a
// message and a retryable flag so callers can map failures consistently.
package errors

import (
	"errors"
	"fmt"
)

// ErrorCategory classifies errors by the component that raised them.
type ErrorCategory string

const (
	ErrCategoryValidation ErrorCategory = "VALIDATION"
	ErrCategoryMetastore  ErrorCategory = "METASTORE"
	ErrCategoryInfoSchema ErrorCategory = "INFOSCHEMA"
	ErrCategoryStorage    ErrorCategory = "STORAGE"
	ErrCategoryExport     ErrorCategory = "EXPORT"
	ErrCategoryInternal   ErrorCategory = "INTERNAL"
)

// Error codes for each category.
const (
	// Validation codes
	CodeInvalidKey       = "INVALID_KEY"
	CodeInvalidTimestamp = "INVALID_TIMESTAMP"
	CodeDuplicateKey     = "DUPLICATE_KEY"

	// Metastore codes
	CodeNotFound           = "NOT_FOUND"
	CodeUnavailable        = "UNAVAILABLE"
	CodeCorruptionDetected = "CORRUPTION_DETECTED"

	// Information schema codes
	CodeUnknownTable   = "UNKNOWN_TABLE"
	CodeDuplicateTable = "DUPLICATE_TABLE"

	// Storage codes
	CodeUploadFailed   = "UPLOAD_FAILED"
	CodeDownloadFailed = "DOWNLOAD_FAILED"

	// Export codes
	CodeEncodeFailed = "ENCODE_FAILED"

	// Internal codes
	CodeUnexpected = "UNEXPECTED"
)

// MetaError is the structured error type used throughout the system.
type MetaError struct {
	Category  ErrorCategory
	Code      string
	Message   string
	Details   map[string]interface{}
	Cause     error
	Retryable bool
}

// Error returns a formatted error string.
func (e *MetaError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s:%s] %s: %v", e.Category, e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s:%s] %s", e.Category, e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *MetaError) Unwrap() error {
	return e.Cause
}

// Is reports whether the target carries the same category and code.
func (e *MetaError) Is(target error) bool {
	var t *MetaError
	if errors.As(target, &t) {
		return e.Category == t.Category && e.Code == t.Code
	}
	return false
}

// New creates a new MetaError.
func New(category ErrorCategory, code, message string) *MetaError {
	return &MetaError{
		Category:  category,
		Code:      code,
		Message:   message,
		Retryable: isRetryable(category, code),
	}
}

// Wrap creates a new MetaError wrapping an existing error.
func Wrap(category ErrorCategory, code, message string, cause error) *MetaError {
	return &MetaError{
		Category:  category,
		Code:      code,
		Message:   message,
		Cause:     cause,
		Retryable: isRetryable(category, code),
	}
}

// WithDetails returns a copy of the error with additional details.
func (e *MetaError) WithDetails(details map[string]interface{}) *MetaError {
	cp := *e
	cp.Details = details
	return &cp
}

// IsRetryable checks whether an error (or its chain) is retryable.
func IsRetryable(err error) bool {
	var me *MetaError
	if errors.As(err, &me) {
		return me.Retryable
	}
	return false
}

// GetCategory extracts the error category from an error chain.
// Returns empty string if the error is not a MetaError.
func GetCategory(err error) ErrorCategory {
	var me *MetaError
	if errors.As(err, &me) {
		return me.Category
	}
	return ""
}

// GetCode extracts the error code from an error chain.
// Returns empty string if the error is not a MetaError.
func GetCode(err error) string {
	var me *MetaError
	if errors.As(err, &me) {
		return me.Code
	}
	return ""
}

// isRetryable reports whether a failure is transient. Metastore
// unavailability and object storage transfers are; everything else is not.
func isRetryable(category ErrorCategory, code string) bool {
	switch {
	case category == ErrCategoryMetastore && code == CodeUnavailable:
		return true
	case category == ErrCategoryStorage && code == CodeUploadFailed:
		return true
	case category == ErrCategoryStorage && code == CodeDownloadFailed:
		return true
	default:
		return false
	}
}

// Convenience constructors for common errors.

func NewValidationError(code, message string) *MetaError {
	return New(ErrCategoryValidation, code, message)
}

func NewMetastoreError(code, message string, cause error) *MetaError {
	return Wrap(ErrCategoryMetastore, code, message, cause)
}

func NewInfoSchemaError(code, message string) *MetaError {
	return New(ErrCategoryInfoSchema, code, message)
}

func NewStorageError(code, message string, cause error) *MetaError {
	return Wrap(ErrCategoryStorage, code, message, cause)
}

func NewExportError(code, message string, cause error) *MetaError {
	return Wrap(ErrCategoryExport, code, message, cause)
}

func NewInternalError(message string, cause error) *MetaError {
	return Wrap(ErrCategoryInternal, CodeUnexpected, message, cause)
}
