package apperrors

import (
	"errors"
	"fmt"
)

// Failure classes seen by the trading loop
var (
	ErrConfig             = errors.New("config error")
	ErrConnectivity       = errors.New("connectivity error")
	ErrNetwork            = errors.New("network error")
	ErrDecode             = errors.New("decode error")
	ErrExchangeRejected   = errors.New("exchange rejected")
	ErrInvariantViolation = errors.New("invariant violation")
)

// Standardized Exchange Errors
var (
	ErrInsufficientFunds     = errors.New("insufficient funds")
	ErrRateLimitExceeded     = errors.New("rate limit exceeded")
	ErrInvalidSymbol         = errors.New("invalid symbol")
	ErrAuthenticationFailed  = errors.New("authentication failed")
	ErrInvalidOrderParameter = errors.New("invalid order parameter")
	ErrTimestampOutOfBounds  = errors.New("timestamp out of bounds")
)

// ExchangeRejectedError is returned when the exchange answered with an error payload.
// Kind is one of the standardized exchange errors above when the code is known.
type ExchangeRejectedError struct {
	Code    int
	Message string
	Kind    error
}

func (e *ExchangeRejectedError) Error() string {
	return fmt.Sprintf("exchange rejected (code %d): %s", e.Code, e.Message)
}

func (e *ExchangeRejectedError) Unwrap() []error {
	if e.Kind == nil {
		return []error{ErrExchangeRejected}
	}
	return []error{ErrExchangeRejected, e.Kind}
}

// NewExchangeRejected builds an ExchangeRejectedError, resolving Kind from the code.
func NewExchangeRejected(code int, message string, kinds map[int]error) *ExchangeRejectedError {
	return &ExchangeRejectedError{
		Code:    code,
		Message: message,
		Kind:    kinds[code],
	}
}

// Network wraps err as a transport failure.
func Network(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrNetwork, err)
}

// Decode wraps err as a response decoding failure.
func Decode(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrDecode, err)
}

// Invariant reports a broken internal invariant.
func Invariant(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvariantViolation, fmt.Sprintf(format, args...))
}

// Kind returns a short label for err, used in log fields and metric attributes.
func Kind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvariantViolation):
		return "invariant"
	case errors.Is(err, ErrExchangeRejected):
		return "rejected"
	case errors.Is(err, ErrDecode):
		return "decode"
	case errors.Is(err, ErrConnectivity):
		return "connectivity"
	case errors.Is(err, ErrConfig):
		return "config"
	default:
		return "network"
	}
}

// IsFatal reports whether err must stop the symbol loop.
func IsFatal(err error) bool {
	return errors.Is(err, ErrInvariantViolation)
}
