// ABOUTME: Context-aware polling with a growing, capped interval
// ABOUTME: Used to wait for OpenAI runs to leave the queued/in_progress states
package util

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrPollTimeout is returned when PollConfig.Timeout elapses before the check reports done
var ErrPollTimeout = errors.New("poll timed out")

// PollConfig controls Poll's pacing
type PollConfig struct {
	Interval    time.Duration // first wait between checks
	MaxInterval time.Duration // cap for the growing interval; <= Interval keeps it fixed
	Timeout     time.Duration // 0 means no local deadline
}

// Poll calls check until it reports done, returns an error, or the context ends.
// The first check runs immediately. Between checks the wait grows by half up to MaxInterval.
func Poll(ctx context.Context, cfg PollConfig, check func(ctx context.Context) (bool, error)) error {
	if cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, cfg.Timeout)
		defer cancel()
	}

	wait := cfg.Interval
	for attempt := 1; ; attempt++ {
		done, err := check(ctx)
		if err != nil {
			return err
		}
		if done {
			return nil
		}

		if err := Sleep(ctx, wait); err != nil {
			if errors.Is(err, context.DeadlineExceeded) && cfg.Timeout > 0 {
				return fmt.Errorf("%w after %d checks", ErrPollTimeout, attempt)
			}
			return err
		}

		if cfg.MaxInterval > wait {
			wait += wait / 2
			if wait > cfg.MaxInterval {
				wait = cfg.MaxInterval
			}
		}
	}
}
