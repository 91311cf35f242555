package errors

import (
	"fmt"

	"fmcd/pkg/logger"

	"go.uber.org/zap"
)

// AppError is the error type returned across every core operation boundary.
// It carries enough structure to render the user-visible error envelope
// and to log at the right level without the caller having to classify
// anything itself.
type AppError struct {
	Category        Category
	Message         string
	Details         map[string]any
	CorrelationID   string
	RequestID       string
	cause           error
}

// Error satisfies the error interface.
func (e *AppError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Category.Code(), e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Category.Code(), e.Message)
}

// Unwrap exposes the wrapped cause for errors.Is / errors.As.
func (e *AppError) Unwrap() error {
	return e.cause
}

// WithDetails attaches a structured details object, returned to the caller
// alongside the message.
func (e *AppError) WithDetails(details map[string]any) *AppError {
	e.Details = details
	return e
}

// WithCause records the underlying error without changing the category.
func (e *AppError) WithCause(cause error) *AppError {
	e.cause = cause
	return e
}

// WithCorrelation attaches the request/correlation identifiers so they are
// echoed back in the error envelope and in the log line.
func (e *AppError) WithCorrelation(correlationID, requestID string) *AppError {
	e.CorrelationID = correlationID
	e.RequestID = requestID
	return e
}

// New constructs an AppError with the given category and message.
func New(category Category, message string) *AppError {
	return &AppError{Category: category, Message: message}
}

// Newf is New with fmt.Sprintf-style formatting.
func Newf(category Category, format string, args ...any) *AppError {
	return New(category, fmt.Sprintf(format, args...))
}

// Wrap builds an AppError around an existing error, preserving it as the
// cause for errors.Is/As and for logging.
func Wrap(category Category, cause error, message string) *AppError {
	return New(category, message).WithCause(cause)
}

func ValidationErrorf(format string, args ...any) *AppError {
	return Newf(ValidationError, format, args...)
}

func NotFoundf(format string, args ...any) *AppError {
	return Newf(NotFound, format, args...)
}

func FederationNotFoundf(format string, args ...any) *AppError {
	return Newf(FederationNotFound, format, args...)
}

func InsufficientFundsf(format string, args ...any) *AppError {
	return Newf(InsufficientFunds, format, args...)
}

func GatewayErrorf(format string, args ...any) *AppError {
	return Newf(GatewayError, format, args...)
}

func RateLimitedf(format string, args ...any) *AppError {
	return Newf(RateLimited, format, args...)
}

func InternalErrorf(format string, args ...any) *AppError {
	return Newf(InternalError, format, args...)
}

// Log writes the error at error level for server categories and warn level
// for client categories, with the cause and correlation identifiers
// attached as structured fields. It never logs more than the category,
// message, cause, and identifiers already on the error.
func (e *AppError) Log() {
	fields := []zap.Field{
		zap.String("category", e.Category.Code()),
		zap.String("message", e.Message),
	}
	if e.cause != nil {
		fields = append(fields, zap.Error(e.cause))
	}
	if e.CorrelationID != "" {
		fields = append(fields, zap.String("correlation_id", e.CorrelationID))
	}
	if e.RequestID != "" {
		fields = append(fields, zap.String("request_id", e.RequestID))
	}

	if e.Category.IsServerError() {
		logger.Error("request failed", fields...)
	} else {
		logger.Warn("request rejected", fields...)
	}
}

// Envelope is the JSON shape returned to callers: {error: {code, message,
// details?, correlation_id?, request_id?}}.
type Envelope struct {
	Error EnvelopeBody `json:"error"`
}

type EnvelopeBody struct {
	Code          string         `json:"code"`
	Message       string         `json:"message"`
	Details       map[string]any `json:"details,omitempty"`
	CorrelationID string         `json:"correlation_id,omitempty"`
	RequestID     string         `json:"request_id,omitempty"`
}

// ToEnvelope renders the user-visible failure format. Nothing about the
// wrapped cause is leaked; only the category code and the message attached
// at the point of construction are exposed.
func (e *AppError) ToEnvelope() Envelope {
	return Envelope{Error: EnvelopeBody{
		Code:          e.Category.Code(),
		Message:       e.Message,
		Details:       e.Details,
		CorrelationID: e.CorrelationID,
		RequestID:     e.RequestID,
	}}
}

// StatusCode returns the transport status this error maps to.
func (e *AppError) StatusCode() int {
	return e.Category.StatusCode()
}
