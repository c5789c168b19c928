package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Common errors returned by the client.
var (
	// ErrRateLimitExceeded is returned when Blockfrost keeps answering 429
	// after the configured number of retries.
	ErrRateLimitExceeded = errors.New("rate limit exceeded")

	// ErrContextCancelled is returned when the context is cancelled during a
	// request or a retry backoff.
	ErrContextCancelled = errors.New("context cancelled")

	// ErrCredentialScope is returned when a URL does not belong to the
	// network the credentials were resolved for.
	ErrCredentialScope = errors.New("url outside credential scope")

	// ErrInvalidJSON is returned when a 2xx body is not valid JSON.
	ErrInvalidJSON = errors.New("invalid json response")
)

// RemoteError is a non-2xx, non-429 answer from Blockfrost. It is never
// retried.
type RemoteError struct {
	StatusCode int
	ErrorClass ErrorClass
	Message    string
	Body       []byte
}

// Error implements the error interface.
func (e *RemoteError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("blockfrost %s error (status %d): %s",
			e.ErrorClass, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("blockfrost %s error (status %d)", e.ErrorClass, e.StatusCode)
}

// newRemoteError builds a RemoteError, pulling the message out of Blockfrost's
// {"status_code","error","message"} error body when present.
func newRemoteError(status int, class ErrorClass, body []byte) *RemoteError {
	var bfError struct {
		Err     string `json:"error"`
		Message string `json:"message"`
	}

	msg := http.StatusText(status)
	if json.Unmarshal(body, &bfError) == nil && bfError.Message != "" {
		msg = strings.TrimSpace(bfError.Err + ": " + bfError.Message)
		msg = strings.TrimPrefix(msg, ": ")
	}

	return &RemoteError{
		StatusCode: status,
		ErrorClass: class,
		Message:    msg,
		Body:       body,
	}
}

// TransportError is a network-level failure (timeout, reset, refused) that
// persisted through all transport retries.
type TransportError struct {
	URL      string
	Attempts int
	Err      error
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	return fmt.Sprintf("blockfrost transport error after %d attempts: %v", e.Attempts, e.Err)
}

// Unwrap implements error unwrapping for errors.Is/As.
func (e *TransportError) Unwrap() error {
	return e.Err
}

// IsNotFound reports whether err is a 404 RemoteError.
func IsNotFound(err error) bool {
	var remote *RemoteError
	return errors.As(err, &remote) && remote.StatusCode == http.StatusNotFound
}

// shouldRetry determines if an error should be retried based on its classification.
func shouldRetry(errorClass ErrorClass) bool {
	switch errorClass {
	case ErrorClassRateLimit:
		return true
	case ErrorClassNetwork:
		return true
	case ErrorClassClient, ErrorClassServer:
		// Only the caller knows whether a missing resource or a server
		// error is meaningful.
		return false
	default:
		return false
	}
}
