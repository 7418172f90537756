package rtcdc

import (
	"errors"
	"fmt"
	"io"

	"github.com/pion/webrtc/v4"
)

// The closed set of error kinds surfaced by this package. Every failure
// coming out of the engine is folded into one of these, so callers can
// match with errors.Is without depending on engine internals.
var (
	// ErrInvalidArg indicates a malformed or out-of-range argument.
	ErrInvalidArg = errors.New("invalid argument")

	// ErrRuntime indicates a transient engine failure.
	ErrRuntime = errors.New("runtime error")

	// ErrNotAvailable indicates the requested value does not exist yet,
	// e.g. polling an empty receive queue or reading the selected
	// candidate pair before connectivity checks finished.
	ErrNotAvailable = errors.New("not available")

	// ErrTooSmall indicates the caller-provided buffer cannot hold the
	// pending message.
	ErrTooSmall = errors.New("buffer too small")

	// ErrUnknown indicates a failure that could not be classified.
	ErrUnknown = errors.New("unknown error")

	// ErrConnectionClosed indicates the operation ran against an already
	// closed peer connection, channel or track.
	ErrConnectionClosed = errors.New("connection closed")
)

// wrapEngine folds an engine error into the closed error-kind set.
func wrapEngine(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, webrtc.ErrConnectionClosed), errors.Is(err, io.ErrClosedPipe), errors.Is(err, io.EOF):
		return fmt.Errorf("%w: %s", ErrConnectionClosed, err)
	default:
		return fmt.Errorf("%w: %s", ErrRuntime, err)
	}
}

func invalidArg(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidArg, fmt.Sprintf(format, args...))
}
