package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestMetaError_Error(t *testing.T) {
	err := New(ErrCategoryMetastore, CodeNotFound, "queue item job-1 not found")
	expected := "[METASTORE:NOT_FOUND] queue item job-1 not found"
	if err.Error() != expected {
		t.Errorf("got %q, want %q", err.Error(), expected)
	}
}

func TestMetaError_ErrorWithCause(t *testing.T) {
	cause := fmt.Errorf("database is locked")
	err := Wrap(ErrCategoryMetastore, CodeUnavailable, "list queue", cause)
	expected := "[METASTORE:UNAVAILABLE] list queue: database is locked"
	if err.Error() != expected {
		t.Errorf("got %q, want %q", err.Error(), expected)
	}
}

func TestMetaError_Unwrap(t *testing.T) {
	cause := fmt.Errorf("root cause")
	err := Wrap(ErrCategoryStorage, CodeUploadFailed, "put", cause)
	if !errors.Is(err, cause) {
		t.Error("Unwrap should allow errors.Is to find the cause")
	}
}

func TestMetaError_Is(t *testing.T) {
	err1 := New(ErrCategoryValidation, CodeDuplicateKey, "first")
	err2 := New(ErrCategoryValidation, CodeDuplicateKey, "second")
	err3 := New(ErrCategoryValidation, CodeInvalidKey, "different code")

	if !errors.Is(err1, err2) {
		t.Error("errors with same category+code should match via Is")
	}
	if errors.Is(err1, err3) {
		t.Error("errors with different codes should not match via Is")
	}

	wrapped := fmt.Errorf("metastore: %w", err1)
	if !errors.Is(wrapped, err2) {
		t.Error("Is should see through fmt.Errorf wrapping")
	}
}

func TestIsRetryable(t *testing.T) {
	tests := []struct {
		category  ErrorCategory
		code      string
		retryable bool
	}{
		{ErrCategoryMetastore, CodeUnavailable, true},
		{ErrCategoryMetastore, CodeCorruptionDetected, false},
		{ErrCategoryMetastore, CodeNotFound, false},
		{ErrCategoryStorage, CodeUploadFailed, true},
		{ErrCategoryStorage, CodeDownloadFailed, true},
		{ErrCategoryValidation, CodeDuplicateKey, false},
		{ErrCategoryInfoSchema, CodeUnknownTable, false},
		{ErrCategoryExport, CodeEncodeFailed, false},
		{ErrCategoryInternal, CodeUnexpected, false},
	}

	for _, tt := range tests {
		err := New(tt.category, tt.code, "test")
		if IsRetryable(err) != tt.retryable {
			t.Errorf("%s:%s retryable=%v, want %v", tt.category, tt.code, IsRetryable(err), tt.retryable)
		}
	}
	if IsRetryable(fmt.Errorf("plain")) {
		t.Error("plain errors are never retryable")
	}
}

func TestGetCategoryAndCode(t *testing.T) {
	err := NewInfoSchemaError(CodeUnknownTable, "system.nope")
	if GetCategory(err) != ErrCategoryInfoSchema {
		t.Errorf("got %q, want %q", GetCategory(err), ErrCategoryInfoSchema)
	}
	if GetCode(err) != CodeUnknownTable {
		t.Errorf("got %q, want %q", GetCode(err), CodeUnknownTable)
	}
	if GetCategory(fmt.Errorf("plain error")) != "" {
		t.Error("non-MetaError should return empty category")
	}
	if GetCode(fmt.Errorf("plain error")) != "" {
		t.Error("non-MetaError should return empty code")
	}
}

func TestWithDetails(t *testing.T) {
	err := NewValidationError(CodeDuplicateKey, "duplicate")
	detailed := err.WithDetails(map[string]interface{}{"key": "job-1"})

	if detailed.Details["key"] != "job-1" {
		t.Error("WithDetails should set details")
	}
	if err.Details != nil {
		t.Error("WithDetails should not modify original")
	}
}

func TestConvenienceConstructors(t *testing.T) {
	cause := fmt.Errorf("io error")

	m := NewMetastoreError(CodeCorruptionDetected, "bad payload", cause)
	if m.Category != ErrCategoryMetastore || !errors.Is(m, cause) {
		t.Error("NewMetastoreError mismatch")
	}

	s := NewStorageError(CodeDownloadFailed, "s3 down", cause)
	if s.Category != ErrCategoryStorage || !s.Retryable {
		t.Error("NewStorageError mismatch")
	}

	x := NewExportError(CodeEncodeFailed, "ipc", cause)
	if x.Category != ErrCategoryExport {
		t.Error("NewExportError mismatch")
	}

	i := NewInternalError("unexpected", cause)
	if i.Category != ErrCategoryInternal || i.Code != CodeUnexpected {
		t.Error("NewInternalError mismatch")
	}
}
