package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
)

var (
	// ErrEndpointUnavailable covers a failed probe, a refused connection,
	// an open breaker and any non-2xx answer.
	ErrEndpointUnavailable = errors.New("llm endpoint unavailable")
	// ErrRequestTimeout is returned when a call outlives its deadline.
	ErrRequestTimeout = errors.New("llm request timed out")
)

// classify maps a transport error onto the package sentinels. A caller
// cancellation is passed through untouched.
func classify(ctx context.Context, op string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrEndpointUnavailable) || errors.Is(err, ErrRequestTimeout) {
		return err
	}
	if ctx.Err() == context.Canceled {
		return ctx.Err()
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) || isTimeout(err) {
		return fmt.Errorf("%w: %s: %v", ErrRequestTimeout, op, err)
	}
	return fmt.Errorf("%w: %s: %v", ErrEndpointUnavailable, op, err)
}

func isTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// countsAsFailure tells the breaker which errors reflect endpoint health.
func countsAsFailure(err error) bool {
	return errors.Is(err, ErrEndpointUnavailable) || errors.Is(err, ErrRequestTimeout)
}

func statusLabel(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrRequestTimeout):
		return "timeout"
	case errors.Is(err, ErrEndpointUnavailable):
		return "unavailable"
	default:
		return "cancelled"
	}
}
