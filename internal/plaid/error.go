package plaid

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"
)

// errorEnvelope is the error body Plaid returns on non-200 responses.
type errorEnvelope struct {
	ErrorType    string `json:"error_type"`
	ErrorCode    string `json:"error_code"`
	ErrorMessage string `json:"error_message"`
	RequestID    string `json:"request_id"`
}

// Error is the single failure kind surfaced by this package. Bad credentials,
// expired tokens, rate limits, network failures and malformed responses all
// arrive as *Error; callers that need the cause can inspect the fields or
// unwrap the underlying error.
type Error struct {
	StatusCode int
	ErrorType  string
	ErrorCode  string
	Message    string
	RequestID  string
	Err        error
}

func (e *Error) Error() string {
	if e.ErrorCode != "" {
		return fmt.Sprintf("plaid: %s (%s)", e.Message, e.ErrorCode)
	}
	return "plaid: " + e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// decimalFromNumber converts a JSON number to a decimal without a float64
// round trip, preserving the provider's exact digits.
func decimalFromNumber(n json.Number) (decimal.Decimal, error) {
	if n == "" {
		return decimal.Decimal{}, fmt.Errorf("missing amount")
	}
	return decimal.NewFromString(n.String())
}
