package dispatch

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrNotAuthenticated = errors.New("not authenticated")
	ErrNotArmed         = errors.New("controls are disarmed")
)

// Kind classifies a failed dispatch attempt.
type Kind int

const (
	Unauthenticated Kind = iota + 1
	RateLimited
	BadRequest
	TransportUnavailable
	DownstreamFailure
	NetworkError
)

func (k Kind) String() string {
	switch k {
	case Unauthenticated:
		return "unauthenticated"
	case RateLimited:
		return "rate_limited"
	case BadRequest:
		return "bad_request"
	case TransportUnavailable:
		return "transport_unavailable"
	case DownstreamFailure:
		return "downstream_failure"
	case NetworkError:
		return "network_error"
	default:
		return "unknown"
	}
}

// GuardError is a failed guard call.
type GuardError struct {
	Kind       Kind
	StatusCode int
	Message    string
	RetryAfter time.Duration
	Err        error
}

func (e *GuardError) Error() string {
	switch {
	case e.Message != "":
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	case e.StatusCode != 0:
		return fmt.Sprintf("%s: HTTP %d", e.Kind, e.StatusCode)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	default:
		return e.Kind.String()
	}
}

func (e *GuardError) Unwrap() error {
	return e.Err
}

// KindOf returns the Kind carried by err, or 0.
func KindOf(err error) Kind {
	var ge *GuardError
	if errors.As(err, &ge) {
		return ge.Kind
	}
	return 0
}
