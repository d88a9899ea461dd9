// CLAUDE:SUMMARY Bounded retry loop: re-runs an operation every Delay until it yields a usable value or Retries attempts are spent.
// Package poll implements the bounded-retry primitive behind every
// asynchronous lookup.
package poll

import (
	"log/slog"
	"time"
)

// Params bound a poll. Retries counts every attempt, the first included.
type Params struct {
	Retries int
	Delay   time.Duration
	Logger  *slog.Logger
}

func (p Params) attempts() int {
	if p.Retries < 1 {
		return 1
	}
	return p.Retries
}

// Poll calls op until ok accepts its result, sleeping p.Delay between
// attempts. After the last attempt it returns empty with a nil error: running
// out of attempts is not a failure. An error from op ends the poll at once.
func Poll[T any](op func() (T, error), ok func(T) bool, empty T, p Params) (T, error) {
	logger := p.Logger
	if logger == nil {
		logger = slog.Default()
	}
	n := p.attempts()

	var timer *time.Timer
	for attempt := 1; ; attempt++ {
		v, err := op()
		if err != nil {
			return empty, err
		}
		if ok(v) {
			if attempt > 1 {
				logger.Debug("poll: resolved", "attempt", attempt)
			}
			return v, nil
		}
		if attempt >= n {
			logger.Debug("poll: exhausted", "attempts", n, "delay", p.Delay)
			return empty, nil
		}
		if p.Delay > 0 {
			if timer == nil {
				timer = time.NewTimer(p.Delay)
			} else {
				timer.Reset(p.Delay)
			}
			<-timer.C
		}
	}
}

// NonNil accepts any value other than the zero value, such as a non-nil node.
func NonNil[T comparable](v T) bool {
	var zero T
	return v != zero
}

// NonEmpty accepts a non-empty slice.
func NonEmpty[S ~[]E, E any](v S) bool { return len(v) > 0 }
