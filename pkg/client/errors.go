package client

import (
	"errors"
	"fmt"
)

// ErrCancelled is returned when the request context is cancelled. It never
// carries results and is never shown to the user.
var ErrCancelled = errors.New("request cancelled")

// HTTPError is a non-2xx upstream response.
type HTTPError struct {
	Status int
	Body   string
}

func (e *HTTPError) Error() string {
	body := e.Body
	if len(body) > 200 {
		body = body[:200] + "..."
	}
	return fmt.Sprintf("upstream returned HTTP %d: %s", e.Status, body)
}

// ParseError is malformed JSON, from a response body or from data embedded
// in the page.
type ParseError struct {
	Source string
	Err    error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parsing %s: %v", e.Source, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// IsCancelled reports whether err is a cancellation.
func IsCancelled(err error) bool {
	return errors.Is(err, ErrCancelled)
}
