package httpclient

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nexelor/media-collector/internal/services"
)

// Kind classifies a request failure.
type Kind string

const (
	KindTransport        Kind = "transport"
	KindNotFound         Kind = "not_found"
	KindRateLimited      Kind = "rate_limited"
	KindDecode           Kind = "decode"
	KindUnexpectedStatus Kind = "unexpected_status"
)

var (
	ErrTransport        = errors.New("transport failure")
	ErrNotFound         = errors.New("resource not found")
	ErrRateLimited      = errors.New("rate limited")
	ErrDecode           = errors.New("decode failure")
	ErrUnexpectedStatus = errors.New("unexpected status")
)

// Error describes a terminal request failure. It matches both its kind
// sentinel (ErrNotFound, ...) and the services marker for that kind under
// errors.Is.
// RetryAfter is only set when the server sent a Retry-After header.
type Error struct {
	Kind       Kind
	Client     string
	Method     string
	URL        string
	Status     int
	Body       string
	RetryAfter time.Duration
	Attempts   int
	Err        error
}

func (e *Error) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s %s", e.Client, e.Method, e.URL)
	switch e.Kind {
	case KindNotFound:
		b.WriteString(": not found")
	case KindRateLimited:
		fmt.Fprintf(&b, ": rate limited after %d attempts", e.Attempts)
		if e.RetryAfter > 0 {
			fmt.Fprintf(&b, " (retry after %s)", e.RetryAfter)
		}
	case KindUnexpectedStatus:
		fmt.Fprintf(&b, ": unexpected status %d", e.Status)
		if body := strings.TrimSpace(e.Body); body != "" {
			fmt.Fprintf(&b, ": %s", body)
		}
	case KindDecode:
		b.WriteString(": decode response")
	default:
		b.WriteString(": request failed")
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

// Unwrap exposes the kind sentinel, the services marker, and the cause.
func (e *Error) Unwrap() []error {
	errs := []error{kindSentinel(e.Kind), serviceMarker(e.Kind)}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

// ErrorKind returns the Kind of err when it is (or wraps) an *Error.
func ErrorKind(err error) (Kind, bool) {
	var reqErr *Error
	if errors.As(err, &reqErr) {
		return reqErr.Kind, true
	}
	return "", false
}

func kindSentinel(kind Kind) error {
	switch kind {
	case KindNotFound:
		return ErrNotFound
	case KindRateLimited:
		return ErrRateLimited
	case KindDecode:
		return ErrDecode
	case KindUnexpectedStatus:
		return ErrUnexpectedStatus
	default:
		return ErrTransport
	}
}

func serviceMarker(kind Kind) error {
	switch kind {
	case KindNotFound:
		return services.ErrNotFound
	case KindRateLimited, KindTransport:
		return services.ErrTransient
	case KindDecode:
		return services.ErrValidation
	default:
		return services.ErrExternalTool
	}
}
