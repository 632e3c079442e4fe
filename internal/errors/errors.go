// Package errors defines stable error codes for IKB failure modes.
package errors

import (
	"fmt"
)

// ErrorCode represents stable error codes for all failure modes
type ErrorCode string

const (
	// FormatNotRecognized indicates no coverage parser claimed the payload
	FormatNotRecognized ErrorCode = "FORMAT_NOT_RECOGNIZED"
	// ParseFailed indicates a recognized payload could not be decoded
	ParseFailed ErrorCode = "PARSE_FAILED"
	// StoreUnavailable indicates the SQLite store could not be opened
	StoreUnavailable ErrorCode = "STORE_UNAVAILABLE"
	// ReportNotFound indicates no coverage report matches the requested id
	ReportNotFound ErrorCode = "REPORT_NOT_FOUND"
	// InvalidRecords indicates a records bundle failed validation on import
	InvalidRecords ErrorCode = "INVALID_RECORDS"
	// ScheduleInvalid indicates a snapshot schedule expression could not be parsed
	ScheduleInvalid ErrorCode = "SCHEDULE_INVALID"
	// InternalError indicates unexpected error
	InternalError ErrorCode = "INTERNAL_ERROR"
)

// FixActionType represents the type of fix action
type FixActionType string

const (
	// RunCommand suggests running a command
	RunCommand FixActionType = "run-command"
	// OpenDocs suggests opening documentation
	OpenDocs FixActionType = "open-docs"
)

// FixAction represents a suggested fix for an error
type FixAction struct {
	Type        FixActionType `json:"type"`
	Command     string        `json:"command,omitempty"`
	Safe        bool          `json:"safe,omitempty"`
	Description string        `json:"description,omitempty"`
	URL         string        `json:"url,omitempty"`
}

// IkbError represents an IKB error with code, message, and suggestions
type IkbError struct {
	Code           ErrorCode   `json:"code"`
	Message        string      `json:"message"`
	Details        interface{} `json:"details,omitempty"`
	SuggestedFixes []FixAction `json:"suggestedFixes,omitempty"`
	cause          error       // Underlying error (not exported to JSON)
}

// NewIkbError creates a new IkbError
func NewIkbError(code ErrorCode, message string, cause error, suggestedFixes []FixAction) *IkbError {
	if suggestedFixes == nil {
		suggestedFixes = GetSuggestedFixes(code)
	}
	return &IkbError{
		Code:           code,
		Message:        message,
		cause:          cause,
		SuggestedFixes: suggestedFixes,
	}
}

// Error implements the error interface
func (e *IkbError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *IkbError) Unwrap() error {
	return e.cause
}

// WithDetails adds details to the error
func (e *IkbError) WithDetails(details interface{}) *IkbError {
	e.Details = details
	return e
}

// ErrorActions maps error codes to suggested fix actions
var ErrorActions = map[ErrorCode][]FixAction{
	FormatNotRecognized: {
		{
			Type:        RunCommand,
			Command:     "head -5 <file>",
			Safe:        true,
			Description: "Inspect the payload; supported formats are lcov, istanbul JSON, cobertura XML",
		},
	},
	StoreUnavailable: {
		{
			Type:        RunCommand,
			Command:     "ikb init",
			Safe:        true,
			Description: "Initialize the .ikb directory and store",
		},
	},
	ReportNotFound: {
		{
			Type:        RunCommand,
			Command:     "ikb coverage --history",
			Safe:        true,
			Description: "List persisted coverage reports",
		},
	},
}

// GetSuggestedFixes returns suggested fixes for an error code
func GetSuggestedFixes(code ErrorCode) []FixAction {
	if fixes, ok := ErrorActions[code]; ok {
		return fixes
	}
	return nil
}
