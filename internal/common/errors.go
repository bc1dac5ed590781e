package common

import (
	"errors"
	"fmt"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
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

// Is matches on the error code so errors.Is(err, &AppError{Code: CodeAnalysis}) works.
func (e *AppError) Is(target error) bool {
	var t *AppError
	if errors.As(target, &t) {
		return t.Code != "" && t.Code == e.Code
	}
	return false
}

// Error codes
const (
	CodeConfig      = "CONFIG_ERROR"
	CodeAnalysis    = "ANALYSIS_ERROR"
	CodeCompletion  = "COMPLETION_ERROR"
	CodeExtraction  = "EXTRACTION_ERROR"
	CodeUnsupported = "UNSUPPORTED_INPUT"
	CodeStore       = "STORE_ERROR"
	CodeInvalid     = "INVALID_INPUT"
)

// Common application errors
var (
	ErrNotFound     = errors.New("resource not found")
	ErrInvalidInput = errors.New("invalid input")
	ErrInternal     = errors.New("internal error")
	ErrDatabase     = errors.New("database error")
	ErrAnalysis     = errors.New("document analysis failed")
	ErrCompletion   = errors.New("completion failed")
	ErrExtraction   = errors.New("field extraction failed")
	ErrUnsupported  = errors.New("unsupported document")
)

// Error constructors
func NewAppError(code, message string, cause error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Cause:   cause,
	}
}

// NewAnalysisError wraps an OCR/layout collaborator failure.
func NewAnalysisError(message string, cause error) *AppError {
	return NewAppError(CodeAnalysis, message, joinCause(ErrAnalysis, cause))
}

// NewCompletionError wraps a completion-service failure (network, auth, rate limit).
func NewCompletionError(message string, cause error) *AppError {
	return NewAppError(CodeCompletion, message, joinCause(ErrCompletion, cause))
}

// NewExtractionError wraps an unusable model response.
func NewExtractionError(message string, cause error) *AppError {
	return NewAppError(CodeExtraction, message, joinCause(ErrExtraction, cause))
}

// NewUnsupportedError reports input the pipeline refuses before analysis.
func NewUnsupportedError(message string, cause error) *AppError {
	return NewAppError(CodeUnsupported, message, joinCause(ErrUnsupported, cause))
}

func joinCause(sentinel, cause error) error {
	if cause == nil {
		return sentinel
	}
	return fmt.Errorf("%w: %w", sentinel, cause)
}

// UserMessage is the caller-facing text for err: the AppError message plus its
// root cause, without codes or internal wrapping.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	var ae *AppError
	if errors.As(err, &ae) {
		if ae.Cause != nil {
			return fmt.Sprintf("%s: %v", ae.Message, ae.Cause)
		}
		return ae.Message
	}
	return err.Error()
}

func WrapError(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// gRPC error helpers
func InvalidArgumentError(message string) error {
	return status.Error(codes.InvalidArgument, message)
}

func NotFoundError(message string) error {
	return status.Error(codes.NotFound, message)
}

func InternalError(message string) error {
	return status.Error(codes.Internal, message)
}

func InvalidArgumentErrorf(format string, args ...any) error {
	return InvalidArgumentError(fmt.Sprintf(format, args...))
}

func InternalErrorf(format string, args ...any) error {
	return InternalError(fmt.Sprintf(format, args...))
}

// GRPCError maps pipeline errors onto status codes.
func GRPCError(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrUnsupported):
		return InvalidArgumentError(UserMessage(err))
	case errors.Is(err, ErrNotFound):
		return NotFoundError(UserMessage(err))
	case errors.Is(err, ErrAnalysis), errors.Is(err, ErrCompletion):
		return status.Error(codes.Unavailable, UserMessage(err))
	default:
		return InternalError(UserMessage(err))
	}
}
