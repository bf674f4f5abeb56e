package binance

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"strings"
)

// APIError is a non-2xx response from the exchange
type APIError struct {
	StatusCode int    `json:"-"`
	Code       int    `json:"code"`
	Message    string `json:"msg"`
}

func (e *APIError) Error() string {
	if e.Code != 0 {
		return fmt.Sprintf("binance API error %d (HTTP %d): %s", e.Code, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("binance API error (HTTP %d): %s", e.StatusCode, e.Message)
}

// Common Binance error codes
const (
	ErrCodeUnknown          = -1000
	ErrCodeDisconnected     = -1001
	ErrCodeTooManyRequests  = -1003
	ErrCodeInvalidTimestamp = -1021
	ErrCodeInvalidSignature = -1022
	ErrCodeCancelRejected   = -2011
	ErrCodeNoSuchOrder      = -2013
	ErrCodeBadAPIKeyFormat  = -2014
	ErrCodeRejectedAPIKey   = -2015
	ErrCodeReduceOnlyReject = -2022
)

// parseAPIError extracts {"code","msg"} from an error body, falling back to
// the raw body text when it is not JSON.
func parseAPIError(statusCode int, body []byte) *APIError {
	apiErr := &APIError{StatusCode: statusCode}
	if err := json.Unmarshal(body, apiErr); err != nil || (apiErr.Code == 0 && apiErr.Message == "") {
		apiErr.Code = 0
		apiErr.Message = strings.TrimSpace(string(body))
	}
	if apiErr.Message == "" {
		apiErr.Message = "empty response body"
	}
	return apiErr
}

// AsAPIError finds an APIError in err's chain
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if stderrors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// IsAuthenticationError checks if the exchange rejected the key, signature or timestamp
func IsAuthenticationError(err error) bool {
	apiErr, ok := AsAPIError(err)
	if !ok {
		return false
	}
	switch apiErr.Code {
	case ErrCodeInvalidTimestamp, ErrCodeInvalidSignature, ErrCodeBadAPIKeyFormat, ErrCodeRejectedAPIKey:
		return true
	}
	return false
}

// IsOrderNotFoundError checks if the order does not exist
func IsOrderNotFoundError(err error) bool {
	apiErr, ok := AsAPIError(err)
	if !ok {
		return false
	}
	return apiErr.Code == ErrCodeNoSuchOrder || apiErr.Code == ErrCodeCancelRejected
}

// IsRateLimitError checks if the error is due to rate limiting
func IsRateLimitError(err error) bool {
	apiErr, ok := AsAPIError(err)
	if !ok {
		return false
	}
	return apiErr.Code == ErrCodeTooManyRequests || apiErr.StatusCode == 429 || apiErr.StatusCode == 418
}
