package chat

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	// ErrRateLimited is returned when the provider answers 429.
	ErrRateLimited = errors.New("provider rate limit exceeded")
	// ErrBadRequest is returned for a rejected request (400).
	ErrBadRequest = errors.New("provider rejected the request")
	// ErrUnauthorized is returned when the API key is refused (401, 403).
	ErrUnauthorized = errors.New("provider authentication failed")
	// ErrUnavailable is returned for 5xx responses.
	ErrUnavailable = errors.New("provider temporarily unavailable")
	// ErrContentFiltered is returned when the provider's content policy
	// blocked the request or the completion.
	ErrContentFiltered = errors.New("content filtered by provider")
	// ErrEmptyResponse is returned when the provider returns no choices.
	ErrEmptyResponse = errors.New("provider returned no choices")
)

// APIError is a non-2xx provider response.
type APIError struct {
	StatusCode int
	Type       string
	Code       string
	Message    string
}

func (e *APIError) Error() string {
	msg := strings.TrimSpace(e.Message)
	if msg == "" {
		msg = http.StatusText(e.StatusCode)
	}
	if e.Type != "" {
		return fmt.Sprintf("openai: HTTP %d (%s): %s", e.StatusCode, e.Type, msg)
	}
	return fmt.Sprintf("openai: HTTP %d: %s", e.StatusCode, msg)
}

// Unwrap maps the status code onto the package sentinels.
func (e *APIError) Unwrap() error {
	if e.Code == "content_filter" || strings.Contains(e.Message, "content_filter") {
		return ErrContentFiltered
	}
	switch {
	case e.StatusCode == http.StatusTooManyRequests:
		return ErrRateLimited
	case e.StatusCode == http.StatusBadRequest:
		return ErrBadRequest
	case e.StatusCode == http.StatusUnauthorized, e.StatusCode == http.StatusForbidden:
		return ErrUnauthorized
	case e.StatusCode >= 500:
		return ErrUnavailable
	}
	return nil
}

// Retryable reports whether err is worth another attempt.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusTooManyRequests || apiErr.StatusCode >= 500
	}
	return !errors.Is(err, ErrEmptyResponse) && !errors.Is(err, ErrContentFiltered)
}
