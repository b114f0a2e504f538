package integrity

import (
	"errors"
	"fmt"
	"log/slog"
	"time"
)

var ErrTimerNotElapsed = errors.New("task timer has not elapsed")

// TimerError carries how far a completion was ahead of its timer.
type TimerError struct {
	Remaining time.Duration
}

func (e *TimerError) Error() string {
	return fmt.Sprintf("task timer has not elapsed: %.1fs remaining", e.Remaining.Seconds())
}

func (e *TimerError) Is(target error) bool {
	return target == ErrTimerNotElapsed
}

// TimerPolicy validates task completion against its start time and duration.
type TimerPolicy struct {
	// Tolerance absorbs network latency on early completions.
	Tolerance time.Duration
	// LateAfter is how long past the deadline a completion is still accepted
	// silently; later completions are logged.
	LateAfter time.Duration
	Logger    *slog.Logger
}

func DefaultTimerPolicy() TimerPolicy {
	return TimerPolicy{Tolerance: time.Second, LateAfter: 600 * time.Second}
}

// ValidateTimer applies DefaultTimerPolicy.
func ValidateTimer(start time.Time, duration time.Duration, now time.Time) (bool, error) {
	return DefaultTimerPolicy().Validate(start, duration, now)
}

// Validate rejects a completion that arrives more than Tolerance before the
// deadline. Once valid for some now, it stays valid for every later now.
func (p TimerPolicy) Validate(start time.Time, duration time.Duration, now time.Time) (bool, error) {
	elapsed := now.Sub(start)
	if elapsed < duration-p.Tolerance {
		return false, &TimerError{Remaining: duration - elapsed}
	}
	if elapsed > duration+p.LateAfter {
		p.logger().Warn("late task completion",
			"elapsed_seconds", elapsed.Seconds(),
			"duration_seconds", duration.Seconds(),
		)
	}
	return true, nil
}

func (p TimerPolicy) logger() *slog.Logger {
	if p.Logger != nil {
		return p.Logger
	}
	return slog.Default()
}
