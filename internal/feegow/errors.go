package feegow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
)

// ErrMalformedPayload wraps responses that do not match the documented envelope.
var ErrMalformedPayload = errors.New("feegow: malformed payload")

// APIError is a non-2xx response, or a 2xx response whose envelope reports failure.
type APIError struct {
	StatusCode int    `json:"-"`
	Message    string `json:"message,omitempty"`
	Body       string `json:"-"`
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("feegow: %s (status=%d)", e.Message, e.StatusCode)
	}
	return fmt.Sprintf("feegow: http status %d", e.StatusCode)
}

func decodeAPIError(status int, body []byte) error {
	var parsed struct {
		Message string          `json:"message"`
		Error   json.RawMessage `json:"error"`
		Content json.RawMessage `json:"content"`
	}
	apiErr := &APIError{StatusCode: status, Body: string(body)}
	if err := json.Unmarshal(body, &parsed); err != nil {
		apiErr.Message = strings.TrimSpace(string(body))
		return apiErr
	}
	switch {
	case parsed.Message != "":
		apiErr.Message = parsed.Message
	case len(parsed.Error) > 0:
		apiErr.Message = strings.Trim(string(parsed.Error), `"`)
	case len(parsed.Content) > 0:
		apiErr.Message = strings.Trim(string(parsed.Content), `"`)
	}
	return apiErr
}

// IsTransient reports whether err is a retryable upstream condition that survived the
// client's own retries: rate limiting, 5xx, or a timeout.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusTooManyRequests || apiErr.StatusCode >= 500
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// IsValidation reports whether err is a non-retryable rejection or an unparseable payload.
func IsValidation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrMalformedPayload) {
		return true
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode < 500 && apiErr.StatusCode != http.StatusTooManyRequests
	}
	return false
}
