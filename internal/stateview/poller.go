package stateview

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/iliyamo/pos-gateway/internal/config"
)

// Run restores the last snapshot, refreshes immediately and then keeps
// refreshing every cfg.Interval plus jitter, or sooner when Trigger is
// called.  It returns when ctx is cancelled.
func (v *View) Run(ctx context.Context, cfg config.PollConfig) {
	v.Restore(ctx)
	v.logResult(v.Refresh(ctx))

	timer := time.NewTimer(nextWait(cfg))
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		case <-v.trigger:
			if !timer.Stop() {
				select {
				case <-timer.C:
				default:
				}
			}
		}
		v.logResult(v.Refresh(ctx))
		timer.Reset(nextWait(cfg))
	}
}

func nextWait(cfg config.PollConfig) time.Duration {
	if cfg.Jitter <= 0 {
		return cfg.Interval
	}
	return cfg.Interval + rand.N(cfg.Jitter)
}

func (v *View) logResult(res RefreshResult) {
	if res.OK() {
		v.log.Debug("refresh complete")
		return
	}
	v.log.WithField("failed", res.Failed).Warn("refresh incomplete; keeping last-known slices")
}
