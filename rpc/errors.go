package rpc

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"go.viam.com/rhsrobot/message"
)

// ErrRequestTimeout is returned when no correlated reply arrives in time.
var ErrRequestTimeout = errors.New("request timed out")

// IsRequestTimeout reports whether err is a request timeout.
func IsRequestTimeout(err error) bool {
	return errors.Is(err, ErrRequestTimeout)
}

// RemoteError reports that the receiver of a synchronous request answered with a failure.
type RemoteError struct {
	Target    string
	Command   message.Command
	RequestID uuid.UUID
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("%s on %s failed remotely (request %s)", e.Command, e.Target, e.RequestID)
}

// IsRemoteError reports whether err, or anything it wraps, is a RemoteError.
func IsRemoteError(err error) bool {
	var target *RemoteError
	return errors.As(err, &target)
}
