package common

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// AppError represents application-specific errors
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// Common application errors
var (
	ErrNotFound         = errors.New("resource not found")
	ErrInvalidInput     = errors.New("invalid input")
	ErrDatabase         = errors.New("database error")
	ErrValidation       = errors.New("validation failed")
	ErrUnsupportedMedia = errors.New("unsupported media type")
	ErrQueueClosed      = errors.New("queue is shutting down")

	// Extraction taxonomy.
	ErrQuotaExceeded     = errors.New("model quota exceeded")
	ErrMalformedResponse = errors.New("malformed model response")
	ErrProcessingFailed  = errors.New("document processing failed")
)

// Stable error codes surfaced to API clients.
const (
	CodeQuotaExceeded    = "QUOTA_EXCEEDED"
	CodeProcessingFailed = "PROCESSING_FAILED"
	CodeInvalidInput     = "INVALID_INPUT"
	CodeUnsupportedMedia = "UNSUPPORTED_MEDIA"
	CodeNotFound         = "NOT_FOUND"
	CodeUnavailable      = "UNAVAILABLE"
	CodeInternal         = "INTERNAL"
	CodeConfig           = "CONFIG_ERROR"
)

// User-facing banner texts.
const (
	MsgQuotaExceeded    = "The shared API quota is exhausted. Please select your own (personal) API key and try again."
	MsgProcessingFailed = "Failed to process the document. Make sure the file is a readable PBB-P2 document and try again."
	MsgInternal         = "An internal error occurred. Please try again."
)

// Error constructors
func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// IsQuotaError reports whether err carries a 429 from the model endpoint.
func IsQuotaError(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrQuotaExceeded) || strings.Contains(err.Error(), "429")
}

// ClassifyExtractionError maps an extraction failure onto the two user-facing
// categories: quota exceeded or generic processing failure.
func ClassifyExtractionError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrQuotaExceeded), errors.Is(err, ErrProcessingFailed):
		return err
	case IsQuotaError(err):
		return fmt.Errorf("%w: %w", ErrQuotaExceeded, err)
	default:
		return fmt.Errorf("%w: %w", ErrProcessingFailed, err)
	}
}

// ErrorCode returns the stable API code for err.
func ErrorCode(err error) string {
	var appErr *AppError
	switch {
	case errors.As(err, &appErr):
		return appErr.Code
	case errors.Is(err, ErrQuotaExceeded):
		return CodeQuotaExceeded
	case errors.Is(err, ErrProcessingFailed), errors.Is(err, ErrMalformedResponse):
		return CodeProcessingFailed
	case errors.Is(err, ErrUnsupportedMedia):
		return CodeUnsupportedMedia
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrValidation):
		return CodeInvalidInput
	case errors.Is(err, ErrNotFound):
		return CodeNotFound
	case errors.Is(err, ErrQueueClosed):
		return CodeUnavailable
	default:
		return CodeInternal
	}
}

// HTTPStatus maps err onto a response status.
func HTTPStatus(err error) int {
	switch ErrorCode(err) {
	case CodeQuotaExceeded:
		return http.StatusTooManyRequests
	case CodeProcessingFailed:
		return http.StatusBadGateway
	case CodeUnsupportedMedia:
		return http.StatusUnsupportedMediaType
	case CodeInvalidInput:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// UserMessage is the single banner text shown for err.
func UserMessage(err error) string {
	var appErr *AppError
	switch {
	case errors.Is(err, ErrQuotaExceeded):
		return MsgQuotaExceeded
	case errors.Is(err, ErrProcessingFailed), errors.Is(err, ErrMalformedResponse):
		return MsgProcessingFailed
	case errors.As(err, &appErr):
		return appErr.Message
	case ErrorCode(err) == CodeInternal:
		return MsgInternal
	default:
		return err.Error()
	}
}
