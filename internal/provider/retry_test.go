package provider

import (
	"math/rand"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestClassify_NotRetryableWinsOverRetryableSubstring(t *testing.T) {
	// "rate_limit" appears but so does "insufficient_quota"; not-retryable
	// must win even though both substrings match.
	assert.False(t, classify(429, "insufficient_quota: rate_limit exceeded for this key"))
}

func TestClassify_RetryableSubstrings(t *testing.T) {
	assert.True(t, classify(503, "the model is currently overloaded"))
	assert.True(t, classify(500, "internal server_error, please retry"))
	assert.True(t, classify(0, "dial tcp: connection refused"), "network-layer errors with no status are retryable")
}

func TestClassify_NotRetryableSubstrings(t *testing.T) {
	assert.False(t, classify(400, "invalid_request_error: missing field"))
	assert.False(t, classify(401, "authentication_error: invalid api key"))
}

func TestClassify_StatusCodeFallback(t *testing.T) {
	assert.True(t, classify(429, "too many requests"))
	assert.True(t, classify(502, "bad gateway"))
	assert.False(t, classify(401, "unauthorized"))
	assert.False(t, classify(402, "payment required"))
	assert.False(t, classify(403, "forbidden"))
	assert.False(t, classify(404, "not found"))
}

func TestRetryAfterDelay_RetryAfterMsTakesPrecedence(t *testing.T) {
	h := http.Header{}
	h.Set("retry-after-ms", "250")
	h.Set("Retry-After", "10")
	d := retryAfterDelay(h, 0, 500*time.Millisecond, rand.New(rand.NewSource(1)))
	assert.Equal(t, 250*time.Millisecond, d)
}

func TestRetryAfterDelay_RetryAfterSecondsFallback(t *testing.T) {
	h := http.Header{}
	h.Set("Retry-After", "3")
	d := retryAfterDelay(h, 0, 500*time.Millisecond, rand.New(rand.NewSource(1)))
	assert.Equal(t, 3*time.Second, d)
}

func TestRetryAfterDelay_FallsBackToBackoffWithoutHeaders(t *testing.T) {
	h := http.Header{}
	d := retryAfterDelay(h, 2, 500*time.Millisecond, rand.New(rand.NewSource(1)))
	// base<<2 = 2s, plus up to 30% jitter.
	assert.GreaterOrEqual(t, d, 2*time.Second)
	assert.LessOrEqual(t, d, 3*time.Second)
}

func TestBackoffWithJitter_CapsAtThirtySeconds(t *testing.T) {
	d := backoffWithJitter(10, 500*time.Millisecond, rand.New(rand.NewSource(1)))
	assert.LessOrEqual(t, d, 30*time.Second)
}

func TestBackoffWithJitter_GrowsExponentially(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	d0 := backoffWithJitter(0, 500*time.Millisecond, rng)
	d1 := backoffWithJitter(1, 500*time.Millisecond, rng)
	assert.GreaterOrEqual(t, d0, 500*time.Millisecond)
	assert.GreaterOrEqual(t, d1, time.Second)
}

func TestSleepOrCancel_ReturnsFalseWhenCancelled(t *testing.T) {
	done := make(chan struct{})
	close(done)
	ok := sleepOrCancel(time.Hour, done)
	assert.False(t, ok)
}

func TestSleepOrCancel_ReturnsTrueAfterElapsed(t *testing.T) {
	ok := sleepOrCancel(time.Millisecond, make(chan struct{}))
	assert.True(t, ok)
}
