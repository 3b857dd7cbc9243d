// Package callout categorises failures of external service calls so
// handlers can branch on the kind of failure instead of on error text.
package callout

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

type Kind string

const (
	// Unavailable: network failure or a 5xx response.
	Unavailable Kind = "unavailable"
	// Rejected: the service refused the request (4xx other than 429).
	Rejected Kind = "rejected"
	// RateLimited: 429 from the service.
	RateLimited Kind = "rate_limited"
	// Empty: a successful response without usable content.
	Empty Kind = "empty"
	// Canceled: the caller's context ended first.
	Canceled Kind = "canceled"
)

// Failure is the error type returned by every service client.
type Failure struct {
	Service string
	Kind    Kind
	Status  int
	Err     error
}

func (f *Failure) Error() string {
	if f.Status != 0 {
		return fmt.Sprintf("%s: %s (http %d): %v", f.Service, f.Kind, f.Status, f.Err)
	}
	return fmt.Sprintf("%s: %s: %v", f.Service, f.Kind, f.Err)
}

func (f *Failure) Unwrap() error { return f.Err }

// KindOf returns the category of err. Uncategorised errors are Unavailable.
func KindOf(err error) Kind {
	var f *Failure
	if errors.As(err, &f) {
		return f.Kind
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return Canceled
	}
	return Unavailable
}

// Transport wraps an error from http.Client.Do.
func Transport(ctx context.Context, service string, err error) *Failure {
	if ctx.Err() != nil {
		return &Failure{Service: service, Kind: Canceled, Err: err}
	}
	return &Failure{Service: service, Kind: Unavailable, Err: err}
}

// Status wraps a non-2xx response. detail is the service's own message.
func Status(service string, code int, detail string) *Failure {
	kind := Unavailable
	switch {
	case code == http.StatusTooManyRequests:
		kind = RateLimited
	case code >= 400 && code < 500:
		kind = Rejected
	}
	if detail == "" {
		detail = http.StatusText(code)
	}
	return &Failure{Service: service, Kind: kind, Status: code, Err: errors.New(detail)}
}

func EmptyResult(service, what string) *Failure {
	return &Failure{Service: service, Kind: Empty, Err: errors.New(what)}
}
