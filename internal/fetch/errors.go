// Filingsync - Regulatory Filing Index Synchronization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/filingsync

package fetch

import (
	"errors"
	"fmt"
	"slices"
	"time"
)

var (
	// ErrFetchFailed is wrapped by every *FetchError.
	ErrFetchFailed = errors.New("fetch failed")

	// ErrBodyTooLarge is an attempt error for a body over archive.max_body_bytes.
	ErrBodyTooLarge = errors.New("response body exceeds size limit")
)

// Attempt is the outcome of one HTTP attempt. StatusCode is 0 when no
// response was received.
type Attempt struct {
	Number     int
	StatusCode int
	Err        error
	Duration   time.Duration
}

// StatusError is returned for a non-2xx response.
type StatusError struct {
	StatusCode int
	Status     string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected HTTP status %s", e.Status)
}

// FetchError is the terminal failure of a Fetch after all attempts were used.
// errors.Is(err, ErrFetchFailed) holds, and errors.As reaches the last
// attempt's cause (for example a *StatusError).
type FetchError struct {
	URL      string
	attempts []Attempt
}

func newFetchError(url string, attempts []Attempt) *FetchError {
	return &FetchError{URL: url, attempts: slices.Clone(attempts)}
}

// Attempts returns a copy of the attempt history, oldest first.
func (e *FetchError) Attempts() []Attempt {
	return slices.Clone(e.attempts)
}

// Last returns the final attempt.
func (e *FetchError) Last() Attempt {
	if len(e.attempts) == 0 {
		return Attempt{}
	}
	return e.attempts[len(e.attempts)-1]
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch %s failed after %d attempts: %v", e.URL, len(e.attempts), e.Last().Err)
}

func (e *FetchError) Unwrap() []error {
	if last := e.Last().Err; last != nil {
		return []error{ErrFetchFailed, last}
	}
	return []error{ErrFetchFailed}
}
