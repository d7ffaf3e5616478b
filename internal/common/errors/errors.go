// Package errors provides standardized error handling for the mapping pipeline.
package errors

import (
	"errors"
	"fmt"
	"time"
)

// ErrorCode represents standardized internal error codes.
type ErrorCode string

const (
	ErrCodeRecordInvalid        ErrorCode = "RECORD_INVALID"
	ErrCodeDictionaryLoadFailed ErrorCode = "DICTIONARY_LOAD_FAILED"

	ErrCodeLLMTimeout          ErrorCode = "LLM_TIMEOUT"
	ErrCodeLLMAnalysisFailed   ErrorCode = "LLM_ANALYSIS_FAILED"
	ErrCodeResponseParseFailed ErrorCode = "RESPONSE_PARSE_FAILED"

	ErrCodeDatabaseInsertFailed ErrorCode = "DATABASE_INSERT_FAILED"
	ErrCodeCacheUnavailable     ErrorCode = "CACHE_UNAVAILABLE"

	ErrCodeInputReadFailed   ErrorCode = "INPUT_READ_FAILED"
	ErrCodeOutputWriteFailed ErrorCode = "OUTPUT_WRITE_FAILED"
)

// StandardError represents a structured application error.
type StandardError struct {
	Code      ErrorCode              `json:"code"`
	Message   string                 `json:"message"`
	Details   string                 `json:"details,omitempty"`
	Retryable bool                   `json:"retryable"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

func (e *StandardError) Error() string {
	return fmt.Sprintf("StandardError[%s]: %s", e.Code, e.Message)
}

// NewRecordInvalidError marks a raw record that cannot be normalized.
// Per-record failures are absorbed by the batch, never propagated.
func NewRecordInvalidError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeRecordInvalid,
		Message:   "Raw job record could not be normalized",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewDictionaryLoadError marks a missing or malformed programs dictionary.
// The pipeline fails open to an empty dictionary.
func NewDictionaryLoadError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeDictionaryLoadFailed,
		Message:   "Programs dictionary could not be loaded",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewLLMTimeoutError marks a completion request that exceeded its deadline.
func NewLLMTimeoutError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeLLMTimeout,
		Message:   "Completion service did not respond in time",
		Details:   details,
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewLLMAnalysisError marks a failed completion call.
func NewLLMAnalysisError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeLLMAnalysisFailed,
		Message:   "Completion service call failed",
		Details:   details,
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewResponseParseError marks a completion response with no usable payload.
func NewResponseParseError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeResponseParseFailed,
		Message:   "Completion response contained no parseable JSON object",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewDatabaseInsertError marks a failed persistence write.
func NewDatabaseInsertError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeDatabaseInsertFailed,
		Message:   "Database insert failed",
		Details:   details,
		Retryable: true,
		Timestamp: time.Now().UTC(),
	}
}

// NewInputReadError marks a fatal batch-level input failure.
func NewInputReadError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeInputReadFailed,
		Message:   "Batch input could not be read",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// NewOutputWriteError marks a fatal batch-level output failure.
func NewOutputWriteError(details string) *StandardError {
	return &StandardError{
		Code:      ErrCodeOutputWriteFailed,
		Message:   "Batch output could not be written",
		Details:   details,
		Retryable: false,
		Timestamp: time.Now().UTC(),
	}
}

// CodeOf extracts the ErrorCode from an error chain, or UNKNOWN_ERROR.
func CodeOf(err error) ErrorCode {
	var std *StandardError
	if errors.As(err, &std) {
		return std.Code
	}
	return "UNKNOWN_ERROR"
}
