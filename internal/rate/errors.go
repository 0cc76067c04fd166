package rate

import (
	"errors"
	"time"
)

var (
	// ErrRateLimited is matched by every *LimitedError.
	ErrRateLimited = errors.New("rate limited")
	// ErrUnavailable means the counter store could not be reached. Callers must
	// treat it as a rejection.
	ErrUnavailable = errors.New("rate limit store unavailable")
)

// LimitedError reports a quota overrun for one action and caller.
type LimitedError struct {
	Action     string
	RetryAfter time.Duration
	Message    string
}

func (e *LimitedError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return ErrRateLimited.Error()
}

func (e *LimitedError) Is(target error) bool {
	return target == ErrRateLimited
}
