// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package verify

import (
	"errors"
	"fmt"
	"net/http"
)

// Errors returned by Lookup. Verify folds them into a Result.
var (
	// ErrNotFound means the registry answered 404 for the identifier.
	ErrNotFound = errors.New("DOI not found in CrossRef")

	// ErrRateLimited means the registry kept answering 429 after retries.
	ErrRateLimited = errors.New("CrossRef rate limit exceeded")

	// ErrTransport wraps network failures and timeouts.
	ErrTransport = errors.New("network error communicating with CrossRef")

	// ErrMalformed means a 200 response carried an unreadable body.
	ErrMalformed = errors.New("malformed CrossRef response")
)

// HTTPError is an unexpected registry status code.
type HTTPError struct {
	StatusCode int
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("HTTP %d", e.StatusCode)
}

// statusError maps a non-200 status to the matching error.
func statusError(code int) error {
	switch code {
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: %w", ErrRateLimited, &HTTPError{StatusCode: code})
	default:
		return &HTTPError{StatusCode: code}
	}
}

// IsNotFound reports whether err is an affirmative not-found answer.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
