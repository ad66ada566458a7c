package allocator

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/ds124wfegd/tablebooker/internal/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pendingCodes map[string]struct{}

func (p pendingCodes) CodeExistsAmongPending(_ context.Context, code string) (bool, error) {
	_, ok := p[code]
	return ok, nil
}

type takenChecker struct{ calls int }

func (c *takenChecker) CodeExistsAmongPending(context.Context, string) (bool, error) {
	c.calls++
	return true, nil
}

type failingChecker struct{}

func (failingChecker) CodeExistsAmongPending(context.Context, string) (bool, error) {
	return false, errors.New("connection reset")
}

// TestAllocateUniqueCodes выдаёт 10 000 кодов подряд, каждый новый код попадает в ожидающие
func TestAllocateUniqueCodes(t *testing.T) {
	allocator := NewCodeAllocator(DefaultCodeLength, DefaultCodeMaxAttempts)
	pending := pendingCodes{}
	ctx := context.Background()

	for i := 0; i < 10000; i++ {
		code, err := allocator.Allocate(ctx, pending)
		require.NoError(t, err)
		require.Len(t, code, DefaultCodeLength)
		require.NotContains(t, pending, code)
		pending[code] = struct{}{}
	}

	assert.Len(t, pending, 10000)
}

func TestGenerateAlphabet(t *testing.T) {
	allocator := NewCodeAllocator(12, 1)

	for i := 0; i < 200; i++ {
		code, err := allocator.Generate()
		require.NoError(t, err)
		require.Len(t, code, 12)
		for _, r := range code {
			assert.True(t, strings.ContainsRune(codeAlphabet, r), "unexpected rune %q", r)
		}
	}
}

func TestGenerateSkipsBiasedBytes(t *testing.T) {
	// 0xFF is rejected, 0 maps to 'A', 26 maps to '0'
	random := bytes.NewReader([]byte{0xFF, 0, 0xFC, 26, 0, 26, 0, 0})
	allocator := NewCodeAllocator(4, 1).WithRandom(random)

	code, err := allocator.Generate()

	require.NoError(t, err)
	assert.Equal(t, "A0A0", code)
}

func TestAllocateExhausted(t *testing.T) {
	checker := &takenChecker{}
	allocator := NewCodeAllocator(6, 5)

	_, err := allocator.Allocate(context.Background(), checker)

	assert.ErrorIs(t, err, entity.ErrCodeAllocationExhausted)
	assert.Equal(t, 5, checker.calls)
}

func TestAllocateCollisionThenFree(t *testing.T) {
	// first draw repeats a pending code, the second one is free
	random := bytes.NewReader([]byte{0, 0, 0, 0, 1, 1, 1, 1})
	allocator := NewCodeAllocator(4, 2).WithRandom(random)
	pending := pendingCodes{"AAAA": {}}

	code, err := allocator.Allocate(context.Background(), pending)

	require.NoError(t, err)
	assert.Equal(t, "BBBB", code)
}

func TestAllocateCheckerError(t *testing.T) {
	allocator := NewCodeAllocator(DefaultCodeLength, DefaultCodeMaxAttempts)

	_, err := allocator.Allocate(context.Background(), failingChecker{})

	require.Error(t, err)
	assert.NotErrorIs(t, err, entity.ErrCodeAllocationExhausted)
}

func TestAllocateCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewCodeAllocator(0, 0).Allocate(ctx, pendingCodes{})

	assert.ErrorIs(t, err, context.Canceled)
}

func TestNormalizeCode(t *testing.T) {
	assert.Equal(t, "AB12CD34", NormalizeCode("  ab12cd34\n"))
}
