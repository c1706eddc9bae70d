package mailtm

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	// ErrUnavailable covers transport failures, timeouts and 5xx answers.
	ErrUnavailable = errors.New("mailtm: provider unavailable")
	// ErrUnauthorized is returned when the bearer token was rejected.
	ErrUnauthorized = errors.New("mailtm: unauthorized")
	// ErrNotFound is returned for 404 answers.
	ErrNotFound = errors.New("mailtm: not found")
	// ErrRejected is returned for the remaining 4xx answers (validation, conflicts).
	ErrRejected = errors.New("mailtm: request rejected")
)

// APIError describes a failed provider call.
type APIError struct {
	Op     string
	Status int
	Detail string
	Err    error
}

func (e *APIError) Error() string {
	var b strings.Builder
	b.WriteString("mailtm ")
	b.WriteString(e.Op)
	if e.Status != 0 {
		fmt.Fprintf(&b, ": status %d", e.Status)
	}
	if e.Detail != "" {
		b.WriteString(": ")
		b.WriteString(e.Detail)
	}
	if e.Err != nil && e.Status == 0 {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return b.String()
}

func (e *APIError) Unwrap() error { return e.Err }

// Code is picked up by the handler summary as err_code.
func (e *APIError) Code() string {
	switch {
	case errors.Is(e.Err, ErrUnauthorized):
		return "provider_unauthorized"
	case errors.Is(e.Err, ErrNotFound):
		return "provider_not_found"
	case errors.Is(e.Err, ErrRejected):
		return "provider_rejected"
	default:
		return "provider_unavailable"
	}
}

func statusError(status int) error {
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return ErrUnauthorized
	case status == http.StatusNotFound:
		return ErrNotFound
	case status == http.StatusTooManyRequests || status >= 500:
		return ErrUnavailable
	default:
		return ErrRejected
	}
}
