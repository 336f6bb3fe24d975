// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package httputil provides HTTP helpers shared across stages.
package httputil

import (
	"context"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

const (
	defaultMaxAttempts = 3
	defaultRetryDelay  = 2 * time.Second
)

// RetryPolicy bounds the throttling retry loop. Only HTTP 429 is retried;
// every other status is returned to the caller on the first attempt.
type RetryPolicy struct {
	// MaxAttempts is the total number of attempts, including the first (default 3).
	MaxAttempts int

	// Delay is the fixed wait between attempts (default 2s).
	Delay time.Duration

	// OnRetry, when set, is called before each wait.
	OnRetry func(attempt int, wait time.Duration)
}

func (p RetryPolicy) withDefaults() RetryPolicy {
	if p.MaxAttempts <= 0 {
		p.MaxAttempts = defaultMaxAttempts
	}
	if p.Delay <= 0 {
		p.Delay = defaultRetryDelay
	}
	return p
}

// DoWithRetry executes req and, while the server answers HTTP 429 (Too Many
// Requests), waits policy.Delay and tries again until policy.MaxAttempts
// attempts have been made. The body of each throttled response is drained
// and closed before waiting. After the last attempt the 429 response is
// returned as-is so the caller can report it. If ctx is cancelled during a
// wait, DoWithRetry returns ctx.Err().
func DoWithRetry(ctx context.Context, client *http.Client, req *http.Request, policy RetryPolicy) (*http.Response, error) {
	policy = policy.withDefaults()

	for attempt := 1; ; attempt++ {
		resp, err := client.Do(req.Clone(ctx))
		if err != nil {
			return nil, err
		}

		if resp.StatusCode != http.StatusTooManyRequests || attempt >= policy.MaxAttempts {
			return resp, nil
		}

		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()

		if policy.OnRetry != nil {
			policy.OnRetry(attempt, policy.Delay)
		}

		timer := time.NewTimer(policy.Delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}

// NewPacer returns a limiter that admits one request per interval with no
// burst beyond a single request. A non-positive interval disables pacing.
func NewPacer(interval time.Duration) *rate.Limiter {
	if interval <= 0 {
		return rate.NewLimiter(rate.Inf, 1)
	}
	return rate.NewLimiter(rate.Every(interval), 1)
}

// PerSecond converts a requests-per-second rate into a pacing interval.
func PerSecond(rps float64) time.Duration {
	if rps <= 0 {
		return 0
	}
	return time.Duration(float64(time.Second) / rps)
}
