// Package poller provides the single polling loop used to observe
// payment completion: poll at a fixed interval until a terminal state or
// an attempt cap, with an explicit cancellation handle.
package poller

import (
	"context"
	"time"
)

// Outcome classifies how a poll loop ended. Timeout is distinct from
// Failed: the provider never reported a terminal state.
type Outcome string

const (
	Success   Outcome = "SUCCESS"
	Failed    Outcome = "FAILED"
	Timeout   Outcome = "TIMEOUT"
	Cancelled Outcome = "CANCELLED"
)

// Result is the final outcome of a poll loop.
type Result struct {
	Outcome    Outcome
	ResultDesc string
	Attempts   int
}

// CheckFunc performs one status check. It returns the observed status
// ("SUCCESS", "FAILED" or anything else for still-pending) and an
// optional result description. An error is inconclusive; the loop
// continues.
type CheckFunc func(ctx context.Context) (status string, resultDesc string, err error)

// Config parameterizes the loop.
type Config struct {
	Interval    time.Duration
	MaxAttempts int
}

// DefaultConfig matches the observed client behavior: 3s interval,
// 60 attempts (3 minutes).
func DefaultConfig() Config {
	return Config{Interval: 3 * time.Second, MaxAttempts: 60}
}

// Poll runs the loop until a terminal status, the attempt cap, or
// context cancellation. It blocks; use Start for a cancellable handle.
func Poll(ctx context.Context, cfg Config, check CheckFunc) Result {
	if cfg.Interval <= 0 {
		cfg.Interval = 3 * time.Second
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 60
	}

	ticker := time.NewTicker(cfg.Interval)
	defer ticker.Stop()

	for attempt := 1; attempt <= cfg.MaxAttempts; attempt++ {
		status, desc, err := check(ctx)
		if err == nil {
			switch status {
			case "SUCCESS":
				return Result{Outcome: Success, ResultDesc: desc, Attempts: attempt}
			case "FAILED":
				return Result{Outcome: Failed, ResultDesc: desc, Attempts: attempt}
			}
		}

		if attempt == cfg.MaxAttempts {
			break
		}

		select {
		case <-ctx.Done():
			return Result{Outcome: Cancelled, Attempts: attempt}
		case <-ticker.C:
		}
	}

	return Result{Outcome: Timeout, ResultDesc: "Payment confirmation timed out, please retry", Attempts: cfg.MaxAttempts}
}

// Handle is a running poll loop.
type Handle struct {
	done   chan Result
	cancel context.CancelFunc
}

// Start launches the loop and returns a handle. Cancel stops polling
// early with no server-side effects.
func Start(ctx context.Context, cfg Config, check CheckFunc) *Handle {
	ctx, cancel := context.WithCancel(ctx)
	h := &Handle{
		done:   make(chan Result, 1),
		cancel: cancel,
	}

	go func() {
		defer cancel()
		h.done <- Poll(ctx, cfg, check)
	}()

	return h
}

// Done yields the final result exactly once.
func (h *Handle) Done() <-chan Result {
	return h.done
}

// Cancel stops the loop. The pending result is delivered as Cancelled.
func (h *Handle) Cancel() {
	h.cancel()
}
