package ports

import (
	"context"
	"errors"
	"fmt"

	"carlog/internal/domain"
)

// ErrInvalidState rejects a command issued in a forbidden state. The command
// has no side effects when this is returned.
var ErrInvalidState = errors.New("invalid state")

// CommError reports a broken or unreachable transport. The caller must treat
// the connection as dead; recovery is a reconnect on the next tick.
type CommError struct {
	Op  string
	Err error
}

func (e *CommError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("transport %s failed", e.Op)
	}
	return fmt.Sprintf("transport %s: %v", e.Op, e.Err)
}

func (e *CommError) Unwrap() error { return e.Err }

// IsCommError reports whether err is (or wraps) a transport failure.
func IsCommError(err error) bool {
	var ce *CommError
	return errors.As(err, &ce)
}

// Transport owns the stream connection to the diagnostic adapter's network
// bridge. Implementations do not retry internally; retry policy belongs to
// the poller. A Query returning an invalid Reading means "unsupported/no
// data" and is not an error.
type Transport interface {
	Connect(ctx context.Context) error
	IsLive() bool
	State() domain.ConnState
	Query(id domain.ParamID) (domain.Reading, error)
	Close() error
}
