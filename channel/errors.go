package channel

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrTimeout is returned by Receive when no message arrived within the timeout.
var ErrTimeout = errors.New("channel receive timed out")

// IsTimeout reports whether err is a receive timeout.
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout)
}

// UnavailableError is returned when a channel cannot be opened or used. It is always
// recoverable: callers may retry, see OpenWithRetry.
type UnavailableError struct {
	Name   string
	Reason string
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("channel %q unavailable: %s", e.Name, e.Reason)
}

// NewUnavailableError returns an UnavailableError for the named channel.
func NewUnavailableError(name, reason string) error {
	return &UnavailableError{Name: name, Reason: reason}
}

// IsChannelUnavailable reports whether err, or anything it wraps, is an UnavailableError.
func IsChannelUnavailable(err error) bool {
	var target *UnavailableError
	return errors.As(err, &target)
}
