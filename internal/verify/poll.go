package verify

import (
	"context"
	"time"
)

// Zero PollOptions fields fall back to these. The editor's toast stays up for
// about 3.3s, so the timeout must comfortably exceed that.
const (
	DefaultPollTimeout  = 5 * time.Second
	DefaultPollInterval = 100 * time.Millisecond
)

// PollOptions bounds a wait-and-recheck loop.
type PollOptions struct {
	Timeout  time.Duration
	Interval time.Duration
}

func (o PollOptions) withDefaults() PollOptions {
	if o.Timeout <= 0 {
		o.Timeout = DefaultPollTimeout
	}
	if o.Interval <= 0 {
		o.Interval = DefaultPollInterval
	}
	return o
}

// Until evaluates check every opts.Interval until it reports done or opts.Timeout elapses.
//
// The error check returns on a miss is kept as the latest observation and ends
// up in the *TimeoutError. Cancelling ctx stops the loop with ctx.Err().
func Until(ctx context.Context, opts PollOptions, op, target string, check func(ctx context.Context) (bool, error)) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	opts = opts.withDefaults()

	pollCtx, cancel := context.WithTimeout(ctx, opts.Timeout)
	defer cancel()

	ticker := time.NewTicker(opts.Interval)
	defer ticker.Stop()

	var last error
	for {
		done, err := check(pollCtx)
		if done {
			return nil
		}
		// a check cut short by our own deadline says nothing about the page
		if err != nil && pollCtx.Err() == nil {
			last = err
		}

		select {
		case <-pollCtx.Done():
			if err := ctx.Err(); err != nil {
				return err
			}
			return &TimeoutError{Op: op, Target: target, Timeout: opts.Timeout, Last: last}
		case <-ticker.C:
		}
	}
}
