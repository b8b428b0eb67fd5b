package backend

import (
	"errors"
	"fmt"
	"strconv"
)

// ErrUnauthorized is returned when the backend rejects the bearer token.
var ErrUnauthorized = errors.New("backend: unauthorized")

// APIError is a non-success answer to a well-formed request.
type APIError struct {
	Status   int
	Endpoint string
	// Message is the backend's own explanation, if it sent one.
	Message string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("backend: %s: status %d: %s", e.Endpoint, e.Status, e.Message)
	}
	return fmt.Sprintf("backend: %s: status %d", e.Endpoint, e.Status)
}

// Code labels the error for handler summaries.
func (e *APIError) Code() string { return "backend_" + strconv.Itoa(e.Status) }

// TransportError wraps network failures and timeouts.
type TransportError struct {
	Endpoint string
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("backend: %s: %v", e.Endpoint, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Code labels the error for handler summaries.
func (e *TransportError) Code() string { return "backend_transport" }

// IsTransport reports whether err came from the network rather than the backend.
func IsTransport(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// RejectionMessage returns the backend's message for a business rejection.
func RejectionMessage(err error) (string, bool) {
	var ae *APIError
	if errors.As(err, &ae) && ae.Message != "" {
		return ae.Message, true
	}
	return "", false
}
