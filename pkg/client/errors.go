package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// HTTPError represents a non-2xx HTTP response from the API.
// Detail holds the server-provided message when the body carried one.
type HTTPError struct {
	StatusCode int
	Message    string
	Detail     string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

// RequestError wraps any failure of a request with the X-Request-ID it was
// sent with, so log lines can be matched against the backend's.
type RequestError struct {
	ID  string
	Err error
}

func (e *RequestError) Error() string { return e.Err.Error() }

func (e *RequestError) Unwrap() error { return e.Err }

// RequestID returns the X-Request-ID carried by err, or "".
func RequestID(err error) string {
	var reqErr *RequestError
	if errors.As(err, &reqErr) {
		return reqErr.ID
	}
	return ""
}

// newHTTPError extracts a message from a FastAPI {"detail": ...} body,
// falling back to {"error": ...} and then the raw body.
func newHTTPError(code int, body []byte) *HTTPError {
	var apiErr struct {
		Detail json.RawMessage `json:"detail"`
		Error  string          `json:"error"`
	}
	if json.Unmarshal(body, &apiErr) == nil {
		if detail := detailText(apiErr.Detail); detail != "" {
			return &HTTPError{StatusCode: code, Message: detail, Detail: detail}
		}
		if apiErr.Error != "" {
			return &HTTPError{StatusCode: code, Message: apiErr.Error, Detail: apiErr.Error}
		}
	}
	return &HTTPError{StatusCode: code, Message: strings.TrimSpace(string(body))}
}

// detailText accepts a plain string detail. Validation errors arrive as a
// list of objects; their "msg" fields are joined.
func detailText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if json.Unmarshal(raw, &s) == nil {
		return s
	}
	var items []struct {
		Msg string `json:"msg"`
	}
	if json.Unmarshal(raw, &items) == nil {
		msgs := make([]string, 0, len(items))
		for _, it := range items {
			if it.Msg != "" {
				msgs = append(msgs, it.Msg)
			}
		}
		return strings.Join(msgs, "; ")
	}
	return ""
}

// IsStatus returns true if err (or any wrapped error) is an HTTPError with the given status code.
func IsStatus(err error, code int) bool {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.StatusCode == code
	}
	return false
}

// Detail returns the server-provided message carried by err, if any.
func Detail(err error) string {
	var httpErr *HTTPError
	if errors.As(err, &httpErr) {
		return httpErr.Detail
	}
	return ""
}

// IsTransport reports whether err happened before any HTTP response arrived.
func IsTransport(err error) bool {
	if err == nil {
		return false
	}
	var httpErr *HTTPError
	return !errors.As(err, &httpErr)
}
