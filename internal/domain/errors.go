package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedPayload signals an unparseable or incomplete incoming event
	// or request. Undecodable remote responses are ErrTransport.
	ErrMalformedPayload = errors.New("malformed payload")
	// ErrTransport signals a connection failure or timeout talking to a remote store.
	ErrTransport = errors.New("transport failure")
	// ErrUnexpectedStatus signals a non-2xx response from a remote store.
	ErrUnexpectedStatus = errors.New("unexpected status")
	// ErrNamingConvention signals a filename outside the hierarchical naming convention.
	ErrNamingConvention = errors.New("naming convention violation")
	// ErrNotFound signals a missing or deleted resource.
	ErrNotFound = errors.New("not found")
	// ErrSkipped signals an input deliberately ignored by a stage.
	ErrSkipped = errors.New("skipped")
)

// StatusError records a non-2xx response from a remote endpoint.
type StatusError struct {
	Op     string
	URL    string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("%s %s: %s: %d", e.Op, e.URL, ErrUnexpectedStatus.Error(), e.Status)
	}
	return fmt.Sprintf("%s %s: %s: %d: %s", e.Op, e.URL, ErrUnexpectedStatus.Error(), e.Status, e.Body)
}

// Unwrap exposes ErrUnexpectedStatus, plus ErrNotFound for 404 and 410.
func (e *StatusError) Unwrap() []error {
	if e.Status == 404 || e.Status == 410 {
		return []error{ErrUnexpectedStatus, ErrNotFound}
	}
	return []error{ErrUnexpectedStatus}
}

// Retryable reports whether the response could succeed on a later attempt.
func (e *StatusError) Retryable() bool {
	return e.Status >= 500 || e.Status == 429 || e.Status == 408
}

// IsPermanent reports whether err can never succeed on redelivery.
func IsPermanent(err error) bool {
	if errors.Is(err, ErrMalformedPayload) || errors.Is(err, ErrNamingConvention) {
		return true
	}
	var se *StatusError
	if errors.As(err, &se) {
		return !se.Retryable()
	}
	return false
}
