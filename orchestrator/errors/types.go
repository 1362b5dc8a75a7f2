package errors

import (
	"fmt"
)

// ErrorCode represents different categories of errors
type ErrorCode string

const (
	// ErrCodeValidation indicates malformed input (address, amount, ABI mismatch)
	ErrCodeValidation ErrorCode = "VALIDATION"

	// ErrCodeUnsupported indicates the adapter lacks the capability entirely
	ErrCodeUnsupported ErrorCode = "UNSUPPORTED_OPERATION"

	// ErrCodeNotImplemented indicates a known gap in an adapter
	ErrCodeNotImplemented ErrorCode = "NOT_IMPLEMENTED"

	// ErrCodeInsufficientFunds indicates a failed balance check
	ErrCodeInsufficientFunds ErrorCode = "INSUFFICIENT_FUNDS"

	// ErrCodeNetwork indicates network-related errors
	ErrCodeNetwork ErrorCode = "NETWORK"

	// ErrCodeDatabase indicates database operation errors
	ErrCodeDatabase ErrorCode = "DATABASE"

	// ErrCodeTransaction indicates transaction-related errors
	ErrCodeTransaction ErrorCode = "TRANSACTION"

	// ErrCodeConfig indicates configuration or wiring errors
	ErrCodeConfig ErrorCode = "CONFIG"

	// ErrCodeRPC indicates RPC-related errors
	ErrCodeRPC ErrorCode = "RPC"

	// ErrCodeCryptoUnavailable indicates a missing cryptographic primitive
	ErrCodeCryptoUnavailable ErrorCode = "CRYPTO_UNAVAILABLE"

	// ErrCodeRateLimited indicates a throttled request
	ErrCodeRateLimited ErrorCode = "RATE_LIMITED"

	// ErrCodeForbidden indicates an ownership or authorization failure
	ErrCodeForbidden ErrorCode = "FORBIDDEN"

	// ErrCodeTimeout indicates timeout errors
	ErrCodeTimeout ErrorCode = "TIMEOUT"

	// ErrCodeInternal indicates internal system errors
	ErrCodeInternal ErrorCode = "INTERNAL"
)

// Severity represents the severity level of an error
type Severity string

const (
	SeverityCritical Severity = "CRITICAL"
	SeverityHigh     Severity = "HIGH"
	SeverityMedium   Severity = "MEDIUM"
	SeverityLow      Severity = "LOW"
	SeverityInfo     Severity = "INFO"
)

// Sentinels for errors.Is comparisons. A sentinel matches any ChainError
// carrying the same code.
var (
	ErrValidation           = &ChainError{Code: ErrCodeValidation}
	ErrUnsupported          = &ChainError{Code: ErrCodeUnsupported}
	ErrUnsupportedOperation = ErrUnsupported
	ErrNotImplemented       = &ChainError{Code: ErrCodeNotImplemented}
	ErrInsufficientFunds    = &ChainError{Code: ErrCodeInsufficientFunds}
	ErrRPC                  = &ChainError{Code: ErrCodeRPC}
	ErrCryptoUnavailable    = &ChainError{Code: ErrCodeCryptoUnavailable}
	ErrRateLimited          = &ChainError{Code: ErrCodeRateLimited}
	ErrForbidden            = &ChainError{Code: ErrCodeForbidden}
	ErrConfig               = &ChainError{Code: ErrCodeConfig}
)

// ChainError represents an error raised while operating on a protocol
type ChainError struct {
	Code     ErrorCode      `json:"code"`
	Message  string         `json:"message"`
	Chain    string         `json:"chain,omitempty"`
	Severity Severity       `json:"severity"`
	Cause    error          `json:"-"`
	Context  map[string]any `json:"context,omitempty"`
}

// NewChainError creates a new ChainError
func NewChainError(code ErrorCode, chain, message string, cause error) *ChainError {
	return &ChainError{
		Code:     code,
		Message:  message,
		Chain:    chain,
		Severity: determineSeverity(code),
		Cause:    cause,
		Context:  make(map[string]any),
	}
}

// Error implements the error interface
func (e *ChainError) Error() string {
	msg := e.Message
	if e.Cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Cause)
	}
	if e.Chain != "" {
		return fmt.Sprintf("[%s:%s] %s", e.Chain, e.Code, msg)
	}
	return fmt.Sprintf("[%s] %s", e.Code, msg)
}

// Unwrap returns the underlying cause
func (e *ChainError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is a ChainError with the same code.
func (e *ChainError) Is(target error) bool {
	t, ok := target.(*ChainError)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// WithContext adds context to the error
func (e *ChainError) WithContext(key string, value any) *ChainError {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// IsRetryable returns true if the error is retryable
func (e *ChainError) IsRetryable() bool {
	switch e.Code {
	case ErrCodeNetwork, ErrCodeTimeout:
		return true
	case ErrCodeRPC:
		// transport failures carry a cause, JSON-RPC error objects do not
		return e.Context["retryable"] == true
	case ErrCodeDatabase:
		return e.Severity != SeverityCritical
	default:
		return false
	}
}

func determineSeverity(code ErrorCode) Severity {
	switch code {
	case ErrCodeInternal, ErrCodeCryptoUnavailable:
		return SeverityCritical
	case ErrCodeDatabase:
		return SeverityHigh
	case ErrCodeTransaction, ErrCodeInsufficientFunds:
		return SeverityMedium
	case ErrCodeNetwork, ErrCodeRPC, ErrCodeTimeout:
		return SeverityMedium
	case ErrCodeValidation, ErrCodeConfig, ErrCodeUnsupported, ErrCodeNotImplemented,
		ErrCodeRateLimited, ErrCodeForbidden:
		return SeverityLow
	default:
		return SeverityInfo
	}
}

// ErrorGroup represents a collection of errors
type ErrorGroup struct {
	Errors []error
}

// NewErrorGroup creates a new error group
func NewErrorGroup() *ErrorGroup {
	return &ErrorGroup{Errors: make([]error, 0)}
}

// Add adds an error to the group
func (eg *ErrorGroup) Add(err error) {
	if err != nil {
		eg.Errors = append(eg.Errors, err)
	}
}

// HasErrors returns true if there are any errors
func (eg *ErrorGroup) HasErrors() bool {
	return len(eg.Errors) > 0
}

// ErrorOrNil returns the group as an error, or nil when it is empty
func (eg *ErrorGroup) ErrorOrNil() error {
	if !eg.HasErrors() {
		return nil
	}
	return eg
}

// Unwrap exposes the collected errors to errors.Is and errors.As
func (eg *ErrorGroup) Unwrap() []error {
	return eg.Errors
}

// Error implements the error interface
func (eg *ErrorGroup) Error() string {
	if len(eg.Errors) == 0 {
		return ""
	}
	if len(eg.Errors) == 1 {
		return eg.Errors[0].Error()
	}
	return fmt.Sprintf("%d errors occurred: %v", len(eg.Errors), eg.Errors[0])
}

// Common error constructors

// NewValidationError creates a validation error
func NewValidationError(chain, message string) *ChainError {
	return NewChainError(ErrCodeValidation, chain, message, nil)
}

// NewValidationErrorf creates a validation error with a formatted message
func NewValidationErrorf(chain, format string, args ...any) *ChainError {
	return NewChainError(ErrCodeValidation, chain, fmt.Sprintf(format, args...), nil)
}

// NewUnsupportedError reports an operation the protocol has no notion of
func NewUnsupportedError(chain, operation string) *ChainError {
	return NewChainError(ErrCodeUnsupported, chain, operation+" is not supported", nil)
}

// NewNotImplementedError reports an operation this adapter does not implement yet
func NewNotImplementedError(chain, operation string) *ChainError {
	return NewChainError(ErrCodeNotImplemented, chain, operation+" is not implemented", nil)
}

// NewInsufficientFundsError creates an insufficient funds error
func NewInsufficientFundsError(chain, required, available string) *ChainError {
	return NewChainError(ErrCodeInsufficientFunds, chain, "insufficient_funds", nil).
		WithContext("required", required).
		WithContext("available", available)
}

// NewCryptoUnavailableError reports a missing signing primitive
func NewCryptoUnavailableError(chain, primitive string) *ChainError {
	return NewChainError(ErrCodeCryptoUnavailable, chain, primitive+" is unavailable", nil)
}

// NewNetworkError creates a network error
func NewNetworkError(chain, message string, cause error) *ChainError {
	return NewChainError(ErrCodeNetwork, chain, message, cause)
}

// NewDatabaseError creates a database error
func NewDatabaseError(chain, message string, cause error) *ChainError {
	return NewChainError(ErrCodeDatabase, chain, message, cause)
}

// NewTransactionError creates a transaction error
func NewTransactionError(chain, message string, cause error) *ChainError {
	return NewChainError(ErrCodeTransaction, chain, message, cause)
}

// NewConfigError creates a configuration error
func NewConfigError(chain, message string) *ChainError {
	return NewChainError(ErrCodeConfig, chain, message, nil)
}

// NewRPCError creates an RPC error
func NewRPCError(chain, message string, cause error) *ChainError {
	return NewChainError(ErrCodeRPC, chain, message, cause)
}

// NewRateLimitedError creates a rate limit error
func NewRateLimitedError(message string) *ChainError {
	return NewChainError(ErrCodeRateLimited, "", message, nil)
}

// NewForbiddenError creates an authorization error
func NewForbiddenError(message string) *ChainError {
	return NewChainError(ErrCodeForbidden, "", message, nil)
}

// NewTimeoutError creates a timeout error
func NewTimeoutError(chain, message string) *ChainError {
	return NewChainError(ErrCodeTimeout, chain, message, nil)
}

// NewInternalError creates an internal error
func NewInternalError(chain, message string, cause error) *ChainError {
	return NewChainError(ErrCodeInternal, chain, message, cause)
}
