package retry

import (
	"context"
	"math/rand"
	"sync"
	"time"
)

// Backoff retries an operation with exponential delays and jitter.
type Backoff struct {
	maxAttempts int
	baseDelay   time.Duration
	maxDelay    time.Duration

	mu  sync.Mutex
	rnd *rand.Rand
}

func NewBackoff(maxAttempts int, baseDelay, maxDelay time.Duration) *Backoff {
	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	if maxDelay <= 0 {
		maxDelay = baseDelay * 16 // Maximum 16x base delay
	}
	return &Backoff{
		maxAttempts: maxAttempts,
		baseDelay:   baseDelay,
		maxDelay:    maxDelay,
		rnd:         rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (b *Backoff) MaxAttempts() int {
	return b.maxAttempts
}

// Delay returns the wait before the next try after the given failed attempt (1-based)
func (b *Backoff) Delay(attempt int) time.Duration {
	if b.baseDelay <= 0 {
		return 0
	}
	if attempt < 1 {
		attempt = 1
	}

	// Exponential backoff: base * 2^(attempt-1)
	backoff := b.baseDelay
	for i := 1; i < attempt && backoff < b.maxDelay; i++ {
		backoff *= 2
	}
	if backoff > b.maxDelay {
		backoff = b.maxDelay
	}

	// Apply jitter (±25%)
	if quarter := int64(backoff / 4); quarter > 0 {
		b.mu.Lock()
		jitter := time.Duration(b.rnd.Int63n(2*quarter+1) - quarter)
		b.mu.Unlock()
		backoff += jitter
	}

	return backoff
}

// Do calls fn until it succeeds, returns an error retryable rejects, or the
// attempts run out. The last error is returned as is.
func (b *Backoff) Do(ctx context.Context, retryable func(error) bool, fn func(attempt int) error) error {
	var err error
	for attempt := 1; attempt <= b.maxAttempts; attempt++ {
		err = fn(attempt)
		if err == nil || !retryable(err) || attempt == b.maxAttempts {
			return err
		}

		timer := time.NewTimer(b.Delay(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return err
		case <-timer.C:
		}
	}
	return err
}
