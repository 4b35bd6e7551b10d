package punchout

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// RunExpirySweep periodically reclaims storage for sessions whose TTL has
// passed. Correctness never depends on it: every access path checks expiry
// lazily. Blocks until ctx is cancelled.
func (c *Controller) RunExpirySweep(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := c.store.DeleteExpired(ctx, time.Now())
			if err != nil {
				c.logger.Warn("expiry sweep", zap.Error(err))
				continue
			}
			if n > 0 {
				c.logger.Info("expired sessions reclaimed", zap.Int64("count", n))
			}
		}
	}
}
