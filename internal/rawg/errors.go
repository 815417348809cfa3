package rawg

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies a FetchError.
type Kind uint8

const (
	// KindBadRequestURL means the request URL could not be built. It points at
	// a programming or configuration error and is not retriable.
	KindBadRequestURL Kind = iota + 1
	// KindTransport covers network failures, timeouts and cancellation.
	KindTransport
	// KindDecode means the body did not match the expected schema.
	KindDecode
	// KindStatus means RAWG answered with a non-2xx status.
	KindStatus
)

func (k Kind) String() string {
	switch k {
	case KindBadRequestURL:
		return "bad_request_url"
	case KindTransport:
		return "transport"
	case KindDecode:
		return "decode"
	case KindStatus:
		return "status"
	default:
		return "unknown"
	}
}

// FetchError is returned by every Client call that fails.
type FetchError struct {
	Kind     Kind
	Endpoint string
	Status   int
	Detail   string
	Err      error
}

func (e *FetchError) Error() string {
	switch {
	case e.Kind == KindStatus && e.Detail != "":
		return fmt.Sprintf("rawg %s: status %d: %s", e.Endpoint, e.Status, e.Detail)
	case e.Kind == KindStatus:
		return fmt.Sprintf("rawg %s: status %d", e.Endpoint, e.Status)
	case e.Err != nil:
		return fmt.Sprintf("rawg %s: %s: %v", e.Endpoint, e.Kind, e.Err)
	default:
		return fmt.Sprintf("rawg %s: %s", e.Endpoint, e.Kind)
	}
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Retriable reports whether repeating the request may succeed.
func (e *FetchError) Retriable() bool {
	switch e.Kind {
	case KindTransport, KindDecode:
		return true
	case KindStatus:
		return e.Status == http.StatusTooManyRequests || e.Status >= 500
	default:
		return false
	}
}

// KindOf returns the kind of err, or 0 when err is not a FetchError.
func KindOf(err error) Kind {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return 0
}

// UserMessage turns a fetch error into text that can be shown to a user.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}

	var fe *FetchError
	if !errors.As(err, &fe) {
		if errors.Is(err, context.DeadlineExceeded) {
			return "The request timed out. Please try again."
		}
		return "Something went wrong. Please try again."
	}

	switch fe.Kind {
	case KindTransport:
		if errors.Is(fe.Err, context.DeadlineExceeded) {
			return "The request timed out. Please try again."
		}
		return "Network error. Check your connection and try again."
	case KindDecode:
		return "RAWG sent a response we could not read. Please try again."
	case KindStatus:
		switch {
		case fe.Status == http.StatusUnauthorized || fe.Status == http.StatusForbidden:
			return "RAWG rejected the API key."
		case fe.Status == http.StatusNotFound:
			return "Not found."
		case fe.Status == http.StatusTooManyRequests:
			return "Too many requests to RAWG. Please wait a moment."
		default:
			return fmt.Sprintf("RAWG is unavailable right now (status %d).", fe.Status)
		}
	default:
		return "Something went wrong. Please try again later."
	}
}
