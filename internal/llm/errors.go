// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package llm

import (
	"errors"
	"fmt"
)

// ErrNoCompletion is returned when a well-formed response carries no
// completion text. It is not retried.
var ErrNoCompletion = errors.New("response has no completion content")

// UpstreamError reports a call that failed after all attempts, or a response
// missing its completion. StatusCode and Body are set when the last attempt
// received an HTTP response.
type UpstreamError struct {
	Attempts   int
	StatusCode int
	Body       string
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("upstream error after %d attempt(s): HTTP %d: %s", e.Attempts, e.StatusCode, e.Body)
	}
	return fmt.Sprintf("upstream error after %d attempt(s): %v", e.Attempts, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

// ResponseParseError reports a response body that is not valid JSON. It is
// returned on the first occurrence without retrying.
type ResponseParseError struct {
	Body string
	Err  error
}

func (e *ResponseParseError) Error() string {
	return fmt.Sprintf("parsing response JSON: %v", e.Err)
}

func (e *ResponseParseError) Unwrap() error { return e.Err }
