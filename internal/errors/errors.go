package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents a trawl error code.
type ErrorCode string

const (
	// Tick outcomes. None of these stop the scheduler.
	ErrExtractionEmpty  ErrorCode = "EXTRACTION_EMPTY"
	ErrContentTooShort  ErrorCode = "CONTENT_TOO_SHORT"
	ErrDuplicateContent ErrorCode = "DUPLICATE_CONTENT"
	ErrDispatchFailure  ErrorCode = "DISPATCH_FAILURE"

	ErrInvalidRequest ErrorCode = "INVALID_REQUEST" // 400
	ErrNotFound       ErrorCode = "NOT_FOUND"       // 404
	ErrUnknownSource  ErrorCode = "UNKNOWN_SOURCE"  // 404
	ErrFileNotFound   ErrorCode = "FILE_NOT_FOUND"  // 404
	ErrRecordInvalid  ErrorCode = "RECORD_INVALID"  // 422
	ErrCancelled      ErrorCode = "CANCELLED"       // 499
	ErrInternal       ErrorCode = "INTERNAL"        // 500
)

// CaptureError represents a structured error with code, status, and details.
type CaptureError struct {
	Code    ErrorCode
	Status  int
	Message string
	Details map[string]any
}

// Error implements the error interface.
func (e *CaptureError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewExtractionEmpty reports that every strategy in the chain came back empty.
func NewExtractionEmpty(source string) *CaptureError {
	return &CaptureError{
		Code:    ErrExtractionEmpty,
		Status:  204,
		Message: fmt.Sprintf("no messages extracted from %s page", source),
		Details: map[string]any{"source": source},
	}
}

// NewContentTooShort reports that extraction produced text but nothing survived
// the minimum length filter.
func NewContentTooShort(minLength int) *CaptureError {
	return &CaptureError{
		Code:    ErrContentTooShort,
		Status:  204,
		Message: fmt.Sprintf("all messages shorter than %d chars", minLength),
		Details: map[string]any{"min_length": minLength},
	}
}

// NewDuplicateContent reports that the content hash has not changed since the last capture.
func NewDuplicateContent(hash string) *CaptureError {
	return &CaptureError{
		Code:    ErrDuplicateContent,
		Status:  204,
		Message: "content unchanged since last capture",
		Details: map[string]any{"content_hash": hash},
	}
}

// NewDispatchFailure wraps an error returned by the sink.
func NewDispatchFailure(err error) *CaptureError {
	msg := "dispatch failed"
	if err != nil {
		msg = err.Error()
	}
	return &CaptureError{
		Code:    ErrDispatchFailure,
		Status:  502,
		Message: msg,
	}
}

// NewInvalidRequest creates a 400 error for invalid request parameters.
func NewInvalidRequest(msg string) *CaptureError {
	return &CaptureError{
		Code:    ErrInvalidRequest,
		Status:  400,
		Message: msg,
	}
}

// NewNotFound creates a 404 error for when a capture cannot be found.
func NewNotFound(identifier string) *CaptureError {
	return &CaptureError{
		Code:    ErrNotFound,
		Status:  404,
		Message: fmt.Sprintf("capture not found: %s", identifier),
		Details: map[string]any{"identifier": identifier},
	}
}

// NewUnknownSource creates a 404 error when no adapter handles a source name or URL.
func NewUnknownSource(source string) *CaptureError {
	return &CaptureError{
		Code:    ErrUnknownSource,
		Status:  404,
		Message: fmt.Sprintf("no adapter for source: %s", source),
		Details: map[string]any{"source": source},
	}
}

// NewRecordInvalid creates a 422 error for capture records that cannot be stored.
func NewRecordInvalid(msg string) *CaptureError {
	return &CaptureError{
		Code:    ErrRecordInvalid,
		Status:  422,
		Message: msg,
	}
}

// NewFileNotFound creates a 404 error for a missing snapshot or export file.
func NewFileNotFound(path string) *CaptureError {
	return &CaptureError{
		Code:    ErrFileNotFound,
		Status:  404,
		Message: fmt.Sprintf("file not found: %s", path),
		Details: map[string]any{"path": path},
	}
}

// NewCancelled creates a 499 error when an operation stops because its
// context was cancelled.
func NewCancelled(operation string) *CaptureError {
	return &CaptureError{
		Code:    ErrCancelled,
		Status:  499,
		Message: fmt.Sprintf("%s cancelled", operation),
		Details: map[string]any{"operation": operation},
	}
}

// NewInternal creates a 500 error for unexpected internal errors.
func NewInternal(err error) *CaptureError {
	msg := "internal error"
	if err != nil {
		msg = err.Error()
	}
	return &CaptureError{
		Code:    ErrInternal,
		Status:  500,
		Message: msg,
	}
}

// Is checks if an error is (or wraps) a CaptureError with the given code.
func Is(err error, code ErrorCode) bool {
	var cErr *CaptureError
	if stderrors.As(err, &cErr) {
		return cErr.Code == code
	}
	return false
}

// IsSkip reports whether err is one of the expected tick outcomes that mean
// "nothing to dispatch" rather than a failure.
func IsSkip(err error) bool {
	return Is(err, ErrExtractionEmpty) || Is(err, ErrContentTooShort) || Is(err, ErrDuplicateContent)
}
