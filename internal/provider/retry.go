package provider

import (
	"math/rand"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// retryableSubstrings and notRetryableSubstrings implement the classification
// table from spec §4.1. Definitely-not-retryable is checked first since it
// is the narrower, more authoritative signal: an explicit
// "insufficient_quota" body is never retried, even on a 429 that also
// mentions "rate_limit". When neither table matches, the status code decides.
var notRetryableSubstrings = []string{
	"invalid_request_error",
	"authentication_error",
	"invalid api key",
	"insufficient_quota",
	"billing",
}

var retryableSubstrings = []string{
	"overloaded",
	"too_many_requests",
	"rate_limit",
	"temporarily unavailable",
	"service unavailable",
	"server_error",
	"exhausted",
	"unavailable",
	"no_kv_space",
}

// classify determines whether a failed attempt should be retried, per
// spec §4.1. status is 0 for network-layer errors (no response at all).
func classify(status int, body string) bool {
	lower := strings.ToLower(body)
	for _, s := range notRetryableSubstrings {
		if strings.Contains(lower, s) {
			return false
		}
	}
	for _, s := range retryableSubstrings {
		if strings.Contains(lower, s) {
			return true
		}
	}
	if status == 0 {
		// network-layer error: no status to fall back on, definitely retryable
		return true
	}
	if status == http.StatusTooManyRequests || status >= 500 {
		return true
	}
	switch status {
	case http.StatusUnauthorized, http.StatusPaymentRequired, http.StatusForbidden:
		return false
	}
	return status == 429 || status >= 500
}

// retryAfterDelay picks the delay before the next attempt, per spec §4.1:
// retry-after-ms header (exact), else Retry-After (seconds or HTTP-date),
// else exponential backoff with jitter.
func retryAfterDelay(header http.Header, attempt int, base time.Duration, rng *rand.Rand) time.Duration {
	if ms := header.Get("retry-after-ms"); ms != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(ms)); err == nil && n >= 0 {
			return time.Duration(n) * time.Millisecond
		}
	}
	if ra := header.Get("Retry-After"); ra != "" {
		if secs, err := strconv.Atoi(strings.TrimSpace(ra)); err == nil && secs >= 0 {
			return time.Duration(secs) * time.Second
		}
		if t, err := http.ParseTime(ra); err == nil {
			if d := time.Until(t); d > 0 {
				return d
			}
		}
	}
	return backoffWithJitter(attempt, base, rng)
}

// backoffWithJitter is base*2^attempt with 0-30% additive jitter, capped at 30s.
func backoffWithJitter(attempt int, base time.Duration, rng *rand.Rand) time.Duration {
	if base <= 0 {
		base = 500 * time.Millisecond
	}
	d := base << attempt
	const cap = 30 * time.Second
	if d > cap || d <= 0 {
		d = cap
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	jitter := time.Duration(rng.Float64() * 0.30 * float64(d))
	total := d + jitter
	if total > cap {
		total = cap
	}
	return total
}

// sleepOrCancel waits for d or returns early (with ok=false) if done fires,
// satisfying the "cancellation must interrupt backoff sleeps promptly" rule.
func sleepOrCancel(d time.Duration, done <-chan struct{}) (ok bool) {
	if d <= 0 {
		select {
		case <-done:
			return false
		default:
			return true
		}
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-done:
		return false
	}
}
