package resilience

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"time"

	"github.com/specialistvlad/flowgridgo/internal/ctxlog"
)

// BackoffKind selects the growth curve for the delay between retry attempts.
type BackoffKind int

const (
	// BackoffNone retries immediately with no delay.
	BackoffNone BackoffKind = iota
	// BackoffLinear grows the delay as base * attempt.
	BackoffLinear
	// BackoffExponential grows the delay as base * 2^attempt.
	BackoffExponential
)

// String returns the canonical lower-case name of the backoff kind.
func (b BackoffKind) String() string {
	switch b {
	case BackoffLinear:
		return "linear"
	case BackoffExponential:
		return "exponential"
	default:
		return "none"
	}
}

// ParseBackoffKind resolves a configuration string into a BackoffKind. The
// string is matched once here so the hot path dispatches on the tag, never on
// repeated string comparison.
func ParseBackoffKind(s string) (BackoffKind, error) {
	switch strings.ToLower(s) {
	case "", "none":
		return BackoffNone, nil
	case "linear":
		return BackoffLinear, nil
	case "exponential":
		return BackoffExponential, nil
	default:
		return BackoffNone, fmt.Errorf("unknown backoff kind %q", s)
	}
}

// JitterKind selects how randomness is applied to a computed backoff delay.
type JitterKind int

const (
	// JitterNone applies the computed delay unchanged.
	JitterNone JitterKind = iota
	// JitterFull sleeps a uniformly random duration in [0, delay).
	JitterFull
	// JitterEqual sleeps delay/2 plus a random duration in [0, delay/2).
	JitterEqual
)

// String returns the canonical lower-case name of the jitter kind.
func (j JitterKind) String() string {
	switch j {
	case JitterFull:
		return "full"
	case JitterEqual:
		return "equal"
	default:
		return "none"
	}
}

// ParseJitterKind resolves a configuration string into a JitterKind.
func ParseJitterKind(s string) (JitterKind, error) {
	switch strings.ToLower(s) {
	case "", "none":
		return JitterNone, nil
	case "full":
		return JitterFull, nil
	case "equal":
		return JitterEqual, nil
	default:
		return JitterNone, fmt.Errorf("unknown jitter kind %q", s)
	}
}

// RetryConfig describes how many times a failing operation is attempted and
// how long to wait between attempts.
type RetryConfig struct {
	// MaxAttempts is the total number of invocations, including the first.
	// Values below 1 are treated as 1.
	MaxAttempts int
	Backoff     BackoffKind
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Jitter      JitterKind
}

// DefaultRetryConfig is the retry policy applied when a run uses the RETRY
// error strategy and the asset declares no policy of its own.
var DefaultRetryConfig = RetryConfig{
	MaxAttempts: 3,
	Backoff:     BackoffExponential,
	BaseDelay:   100 * time.Millisecond,
	MaxDelay:    5 * time.Second,
	Jitter:      JitterEqual,
}

// attempts normalizes MaxAttempts so a zero-value config still runs once.
func (c RetryConfig) attempts() int {
	if c.MaxAttempts < 1 {
		return 1
	}
	return c.MaxAttempts
}

// delay computes the sleep before retry number attempt (1-based: the delay
// after the attempt'th failure), capped at MaxDelay, before jitter.
func (c RetryConfig) delay(attempt int) time.Duration {
	var d time.Duration
	switch c.Backoff {
	case BackoffLinear:
		d = c.BaseDelay * time.Duration(attempt)
	case BackoffExponential:
		d = c.BaseDelay << uint(attempt)
	default:
		return 0
	}
	if c.MaxDelay > 0 && d > c.MaxDelay {
		d = c.MaxDelay
	}
	return d
}

// jittered applies the configured jitter to a computed delay.
func (c RetryConfig) jittered(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	switch c.Jitter {
	case JitterFull:
		return time.Duration(rand.Int63n(int64(d)))
	case JitterEqual:
		half := d / 2
		return half + time.Duration(rand.Int63n(int64(half)+1))
	default:
		return d
	}
}

// ExhaustedError is the terminal failure returned once every configured retry
// attempt has failed. It carries the structured context the caller needs to
// surface the failure without re-deriving it.
type ExhaustedError struct {
	Attempts  int
	StartedAt time.Time
	EndedAt   time.Time
	LastErr   error
}

// Error implements the error interface.
func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("retries exhausted after %d attempt(s): %v", e.Attempts, e.LastErr)
}

// Unwrap exposes the last underlying error to errors.Is/As.
func (e *ExhaustedError) Unwrap() error {
	return e.LastErr
}

// Do invokes fn until it succeeds or the configured attempts are exhausted,
// sleeping the computed backoff between attempts. The sleep is a plain blocking
// wait on the calling goroutine; callers are expected to run retries on
// dedicated workers. Context cancellation interrupts the wait and is returned
// as the terminal error.
func Do(ctx context.Context, cfg RetryConfig, fn func(ctx context.Context) error) error {
	logger := ctxlog.FromContext(ctx)
	started := time.Now()

	var lastErr error
	max := cfg.attempts()
	for attempt := 1; attempt <= max; attempt++ {
		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}
		if attempt == max {
			break
		}

		wait := cfg.jittered(cfg.delay(attempt))
		logger.Debug("Attempt failed, backing off before retry.",
			"attempt", attempt, "max_attempts", max, "wait", wait, "error", lastErr)

		if wait > 0 {
			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				return &ExhaustedError{Attempts: attempt, StartedAt: started, EndedAt: time.Now(), LastErr: ctx.Err()}
			case <-timer.C:
			}
		} else if ctx.Err() != nil {
			return &ExhaustedError{Attempts: attempt, StartedAt: started, EndedAt: time.Now(), LastErr: ctx.Err()}
		}
	}

	return &ExhaustedError{Attempts: max, StartedAt: started, EndedAt: time.Now(), LastErr: lastErr}
}
