package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCategory classifies failures so callers can branch on the kind of
// problem instead of matching messages.
type ErrorCategory string

const (
	// Remote or network failures: non-2xx responses, refused connections,
	// timeouts. Signature and timestamp rejections arrive as non-2xx and land here too.
	ErrorCategoryTransport ErrorCategory = "TRANSPORT"
	// A 2xx response whose body could not be decoded into the expected shape
	ErrorCategoryDecode ErrorCategory = "DECODE"

	// Local failures caught before anything reaches the network
	ErrorCategoryValidation    ErrorCategory = "VALIDATION"
	ErrorCategoryConfiguration ErrorCategory = "CONFIG"

	// Logical conditions observed while trading
	ErrorCategoryPosition ErrorCategory = "POSITION"
)

// BotError represents a categorized error with context
type BotError struct {
	Category   ErrorCategory
	Component  string
	Operation  string
	Message    string
	Underlying error
	Context    map[string]interface{}
	Retryable  bool
}

// Error implements the error interface
func (e *BotError) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("[%s:%s] %s: %s: %v", e.Category, e.Component, e.Operation, e.Message, e.Underlying)
	}
	return fmt.Sprintf("[%s:%s] %s: %s", e.Category, e.Component, e.Operation, e.Message)
}

// Unwrap returns the underlying error for error unwrapping
func (e *BotError) Unwrap() error {
	return e.Underlying
}

// IsRetryable returns whether repeating the same call could succeed
func (e *BotError) IsRetryable() bool {
	return e.Retryable
}

// NewBotError creates a new categorized bot error
func NewBotError(category ErrorCategory, component, operation, message string) *BotError {
	return &BotError{
		Category:  category,
		Component: component,
		Operation: operation,
		Message:   message,
		Context:   make(map[string]interface{}),
		Retryable: isRetryableCategory(category),
	}
}

// WrapError wraps an existing error with bot error context
func WrapError(err error, category ErrorCategory, component, operation string) *BotError {
	if err == nil {
		return nil
	}

	return &BotError{
		Category:   category,
		Component:  component,
		Operation:  operation,
		Message:    "operation failed",
		Underlying: err,
		Context:    make(map[string]interface{}),
		Retryable:  isRetryableCategory(category),
	}
}

// WithContext adds context information to the error
func (e *BotError) WithContext(key string, value interface{}) *BotError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// WithMessage replaces the default message
func (e *BotError) WithMessage(message string) *BotError {
	e.Message = message
	return e
}

func isRetryableCategory(category ErrorCategory) bool {
	switch category {
	case ErrorCategoryTransport:
		return true
	default:
		return false
	}
}

// CategoryOf returns the category of the first BotError in err's chain, or
// an empty category when there is none.
func CategoryOf(err error) ErrorCategory {
	var botErr *BotError
	if stderrors.As(err, &botErr) {
		return botErr.Category
	}
	return ""
}

// IsCategory reports whether err carries a BotError of one of the given categories
func IsCategory(err error, categories ...ErrorCategory) bool {
	category := CategoryOf(err)
	if category == "" {
		return false
	}
	for _, c := range categories {
		if c == category {
			return true
		}
	}
	return false
}

// IsTransport reports whether err is a transport failure
func IsTransport(err error) bool {
	return IsCategory(err, ErrorCategoryTransport)
}

// Common error constructors
func NewTransportError(component, operation string, err error) *BotError {
	return WrapError(err, ErrorCategoryTransport, component, operation).WithMessage("request failed")
}

func NewDecodeError(component, operation string, err error) *BotError {
	return WrapError(err, ErrorCategoryDecode, component, operation).WithMessage("decode response")
}

func NewValidationError(component, operation, message string) *BotError {
	return NewBotError(ErrorCategoryValidation, component, operation, message)
}

func NewConfigurationError(component, operation, message string) *BotError {
	return NewBotError(ErrorCategoryConfiguration, component, operation, message)
}

func NewPositionError(component, operation, message string) *BotError {
	return NewBotError(ErrorCategoryPosition, component, operation, message)
}
