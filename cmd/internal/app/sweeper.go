package app

import (
	"context"
	"time"
)

// expirySweeper is satisfied by *session.Service.
type expirySweeper interface {
	CleanupExpired(ctx context.Context, now time.Time) (int64, error)
}

// runSweeper calls CleanupExpired every interval until ctx is done. Failures
// are logged by the session service and retried on the next tick.
func runSweeper(ctx context.Context, s expirySweeper, interval time.Duration, now func() time.Time) {
	if interval <= 0 {
		return
	}
	t := time.NewTicker(interval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			_, _ = s.CleanupExpired(ctx, now())
		}
	}
}
