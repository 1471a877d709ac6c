package exchange

import (
	"errors"
	"fmt"
)

// RemoteError signals a failed, throttled-out or malformed response from
// the exchange. Status is zero when the request never produced a response.
type RemoteError struct {
	Location string
	Status   int
	Message  string
}

func (e *RemoteError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: remote error (status %d): %s", e.Location, e.Status, e.Message)
	}
	return fmt.Sprintf("%s: remote error: %s", e.Location, e.Message)
}

// PermissionError signals rejected credentials or missing API key scope.
type PermissionError struct {
	Location string
	Message  string
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("%s: permission denied: %s", e.Location, e.Message)
}

// UnprocessablePairError signals a product code that does not split into
// a base and a quote asset.
type UnprocessablePairError struct {
	Location string
	Pair     string
}

func (e *UnprocessablePairError) Error() string {
	return fmt.Sprintf("%s: unprocessable pair %q", e.Location, e.Pair)
}

// IsRemoteError reports whether err wraps a RemoteError.
func IsRemoteError(err error) bool {
	var remote *RemoteError
	return errors.As(err, &remote)
}

// IsPermissionError reports whether err wraps a PermissionError.
func IsPermissionError(err error) bool {
	var perm *PermissionError
	return errors.As(err, &perm)
}
