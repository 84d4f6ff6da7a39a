package provider

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// FetchErrorKind classifies a failed provider call.
type FetchErrorKind int

const (
	FetchNotFound FetchErrorKind = iota
	FetchRateLimited
	FetchNetwork
	FetchTimeout
)

func (k FetchErrorKind) String() string {
	switch k {
	case FetchNotFound:
		return "not_found"
	case FetchRateLimited:
		return "rate_limited"
	case FetchNetwork:
		return "network"
	case FetchTimeout:
		return "timeout"
	}
	return "unknown"
}

// FetchError is the typed failure returned by every provider adapter.
type FetchError struct {
	Provider string
	Kind     FetchErrorKind
	Err      error
}

func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s fetch failed (%s): %v", e.Provider, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s fetch failed (%s)", e.Provider, e.Kind)
}

func (e *FetchError) Unwrap() error { return e.Err }

// Retryable reports whether the failure is network-class and worth another
// attempt. Not-found is final and never retried.
func (e *FetchError) Retryable() bool {
	return e.Kind == FetchRateLimited || e.Kind == FetchNetwork || e.Kind == FetchTimeout
}

// IsNotFound reports whether err is a provider not-found failure.
func IsNotFound(err error) bool {
	var fe *FetchError
	return errors.As(err, &fe) && fe.Kind == FetchNotFound
}

// classifyStatus maps an HTTP status code onto the fetch error taxonomy.
func classifyStatus(provider string, status int) *FetchError {
	switch {
	case status == 404 || status == 410:
		return &FetchError{Provider: provider, Kind: FetchNotFound, Err: fmt.Errorf("status %d", status)}
	case status == 429:
		return &FetchError{Provider: provider, Kind: FetchRateLimited, Err: fmt.Errorf("status %d", status)}
	case status >= 500:
		return &FetchError{Provider: provider, Kind: FetchNetwork, Err: fmt.Errorf("status %d", status)}
	default:
		return &FetchError{Provider: provider, Kind: FetchNetwork, Err: fmt.Errorf("unexpected status %d", status)}
	}
}

// classifyTransport maps a transport-level error (DNS, dial, deadline) onto
// the taxonomy. Context cancellation passes through untouched so callers can
// tell a superseded request apart from a failed one.
func classifyTransport(provider string, err error) error {
	if errors.Is(err, context.Canceled) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &FetchError{Provider: provider, Kind: FetchTimeout, Err: err}
	}
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return &FetchError{Provider: provider, Kind: FetchTimeout, Err: err}
	}
	return &FetchError{Provider: provider, Kind: FetchNetwork, Err: err}
}
