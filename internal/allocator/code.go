package allocator

import (
	"context"
	"crypto/rand"
	"fmt"
	"io"
	"strings"

	"github.com/ds124wfegd/tablebooker/internal/entity"
)

const (
	codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	DefaultCodeLength      = 8
	DefaultCodeMaxAttempts = 16
)

// CodeChecker answers whether a code is held by a pending booking.
type CodeChecker interface {
	CodeExistsAmongPending(ctx context.Context, code string) (bool, error)
}

// CodeAllocator hands out short booking codes unique among pending bookings.
type CodeAllocator struct {
	length      int
	maxAttempts int
	random      io.Reader
}

func NewCodeAllocator(length, maxAttempts int) *CodeAllocator {
	if length <= 0 {
		length = DefaultCodeLength
	}
	if maxAttempts <= 0 {
		maxAttempts = DefaultCodeMaxAttempts
	}
	return &CodeAllocator{
		length:      length,
		maxAttempts: maxAttempts,
		random:      rand.Reader,
	}
}

// WithRandom swaps the entropy source, tests use it to force collisions.
func (a *CodeAllocator) WithRandom(r io.Reader) *CodeAllocator {
	a.random = r
	return a
}

// Generate returns a random uppercase alphanumeric code.
func (a *CodeAllocator) Generate() (string, error) {
	// 252 is the largest multiple of len(codeAlphabet) below 256
	const cutoff = 256 - 256%len(codeAlphabet)

	code := make([]byte, 0, a.length)
	buf := make([]byte, a.length)
	for len(code) < a.length {
		if _, err := io.ReadFull(a.random, buf); err != nil {
			return "", fmt.Errorf("failed to read random bytes: %w", err)
		}
		for _, b := range buf {
			if int(b) >= cutoff {
				continue
			}
			code = append(code, codeAlphabet[int(b)%len(codeAlphabet)])
			if len(code) == a.length {
				break
			}
		}
	}
	return string(code), nil
}

// Allocate retries generation until the checker reports a free code.
func (a *CodeAllocator) Allocate(ctx context.Context, checker CodeChecker) (string, error) {
	for attempt := 1; attempt <= a.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}

		code, err := a.Generate()
		if err != nil {
			return "", err
		}

		taken, err := checker.CodeExistsAmongPending(ctx, code)
		if err != nil {
			return "", err
		}
		if !taken {
			return code, nil
		}
	}

	return "", fmt.Errorf("%w: %d attempts", entity.ErrCodeAllocationExhausted, a.maxAttempts)
}

// NormalizeCode makes user-typed codes comparable with stored ones.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}
