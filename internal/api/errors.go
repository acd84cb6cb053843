package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// Transport failures are normalized to these fixed, user-facing errors.
var (
	ErrConnectivity = errors.New("unable to connect to server; check your connection and that the backend is running")
	ErrTimeout      = errors.New("request timed out; please try again")
)

// transportError carries a normalized kind alongside the underlying cause.
// Its message is always the kind's fixed message.
type transportError struct {
	kind  error
	cause error
}

func (e *transportError) Error() string   { return e.kind.Error() }
func (e *transportError) Unwrap() []error { return []error{e.kind, e.cause} }

// HTTPError is returned for non-2xx responses. Message is the backend's
// detail when present, otherwise the status text.
type HTTPError struct {
	StatusCode int
	Message    string
}

func (e *HTTPError) Error() string { return e.Message }

// IsNotFound reports whether err is an HTTP 404 from the backend.
func IsNotFound(err error) bool {
	var httpErr *HTTPError
	return errors.As(err, &httpErr) && httpErr.StatusCode == http.StatusNotFound
}

func newHTTPError(resp *http.Response, body []byte) *HTTPError {
	e := &HTTPError{StatusCode: resp.StatusCode}

	var payload struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && len(payload.Detail) > 0 {
		var detail string
		if err := json.Unmarshal(payload.Detail, &detail); err == nil && detail != "" {
			e.Message = detail
			return e
		}
	}

	if text := http.StatusText(resp.StatusCode); text != "" {
		e.Message = text
		return e
	}
	e.Message = fmt.Sprintf("http error: status %d", resp.StatusCode)
	return e
}

// retryable reports whether a failed GET may be attempted again.
func retryable(err error) bool {
	if errors.Is(err, ErrConnectivity) || errors.Is(err, ErrTimeout) {
		return true
	}
	var httpErr *HTTPError
	return errors.As(err, &httpErr) && httpErr.StatusCode >= 500
}
