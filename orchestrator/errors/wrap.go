package errors

import (
	"errors"
	"strings"
)

// Is checks if an error is of a specific type
func Is(err error, target error) bool {
	return errors.Is(err, target)
}

// As checks if an error can be assigned to a target type
func As(err error, target any) bool {
	return errors.As(err, target)
}

// IsChainError checks if an error is a ChainError with specific code
func IsChainError(err error, code ErrorCode) bool {
	var chainErr *ChainError
	if errors.As(err, &chainErr) {
		return chainErr.Code == code
	}
	return false
}

// CodeOf returns the code of the outermost ChainError in err's chain
func CodeOf(err error) ErrorCode {
	var chainErr *ChainError
	if errors.As(err, &chainErr) {
		return chainErr.Code
	}
	return ErrCodeInternal
}

var retryablePatterns = []string{
	"connection refused",
	"connection reset",
	"timeout",
	"temporary failure",
	"too many requests",
	"rate limit",
	"eof",
}

// IsRetryable checks if an error is retryable
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}

	var chainErr *ChainError
	if errors.As(err, &chainErr) {
		return chainErr.IsRetryable()
	}

	errStr := strings.ToLower(err.Error())
	for _, pattern := range retryablePatterns {
		if strings.Contains(errStr, pattern) {
			return true
		}
	}
	return false
}
