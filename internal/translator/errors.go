package translator

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// ErrorKind classifies an upstream failure.
type ErrorKind string

const (
	KindHTTP      ErrorKind = "http"
	KindTimeout   ErrorKind = "timeout"
	KindNetwork   ErrorKind = "network"
	KindMalformed ErrorKind = "malformed"
	KindEmpty     ErrorKind = "empty"
	KindCanceled  ErrorKind = "canceled"
	KindConfig    ErrorKind = "config"
	KindSkipped   ErrorKind = "skipped"

	// KindUnreachable is a dial or DNS failure: no connection was made.
	KindUnreachable ErrorKind = "unreachable"
)

const maxErrorBody = 2000

// UpstreamError is the single failure type returned by every backend.
type UpstreamError struct {
	Provider   string
	Model      string
	Kind       ErrorKind
	StatusCode int
	Body       string
	Err        error
}

func (e *UpstreamError) Error() string {
	who := e.Provider
	if e.Model != "" {
		who = fmt.Sprintf("%s (%s)", e.Provider, e.Model)
	}
	switch {
	case e.StatusCode != 0:
		return fmt.Sprintf("%s: %s error: status %d: %s", who, e.Kind, e.StatusCode, e.Body)
	case e.Err != nil:
		return fmt.Sprintf("%s: %s error: %v", who, e.Kind, e.Err)
	default:
		return fmt.Sprintf("%s: %s error", who, e.Kind)
	}
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// AsUpstream extracts an *UpstreamError from err.
func AsUpstream(err error) (*UpstreamError, bool) {
	var ue *UpstreamError
	if errors.As(err, &ue) {
		return ue, true
	}
	return nil, false
}

var (
	errNoChoices    = errors.New("no choices returned")
	errEmptyContent = errors.New("empty message content")
	errUnreachable  = errors.New("upstream host unreachable earlier in this request")
)

// transportError classifies an error returned before any HTTP response was read.
func transportError(provider, model string, err error) *UpstreamError {
	ue := &UpstreamError{Provider: provider, Model: model, Kind: KindNetwork, Err: err}

	var netErr net.Error
	switch {
	case errors.Is(err, context.Canceled):
		ue.Kind = KindCanceled
	case errors.Is(err, context.DeadlineExceeded):
		ue.Kind = KindTimeout
	case errors.As(err, &netErr) && netErr.Timeout():
		ue.Kind = KindTimeout
	case isDialFailure(err):
		ue.Kind = KindUnreachable
	}
	return ue
}

// isDialFailure reports whether err happened before a connection existed.
// Resets and EOFs on an established connection are not dial failures.
func isDialFailure(err error) bool {
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	var opErr *net.OpError
	return errors.As(err, &opErr) && opErr.Op == "dial"
}

func httpError(provider, model string, status int, body []byte) *UpstreamError {
	return &UpstreamError{
		Provider:   provider,
		Model:      model,
		Kind:       KindHTTP,
		StatusCode: status,
		Body:       abbreviate(string(body), maxErrorBody),
	}
}

func abbreviate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	if n <= 3 {
		return s[:n]
	}
	return s[:n-3] + "..."
}
