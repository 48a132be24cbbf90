package governor

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func TestGovernorCompletes(t *testing.T) {
	g := Budget{Timeout: time.Minute, MaxDepth: 10, MaxChunks: 3}.Start(context.Background())

	for depth := 0; depth <= 10; depth++ {
		require.NoError(t, g.Step(depth))
	}
	for i := 0; i < 3; i++ {
		require.NoError(t, g.AddChunk())
	}

	assert.Equal(t, StateRunning, g.State())
	assert.Equal(t, StateCompleted, g.Finish())
	assert.Equal(t, 10, g.MaxDepthSeen())
	assert.Equal(t, 3, g.Chunks())
	assert.NoError(t, g.Err())
}

func TestGovernorDepthExceeded(t *testing.T) {
	g := Budget{Timeout: time.Minute, MaxDepth: 5, MaxChunks: 10}.Start(context.Background())

	require.NoError(t, g.Step(5))
	err := g.Step(6)

	var depthErr *DepthExceededError
	require.ErrorAs(t, err, &depthErr)
	assert.Equal(t, 5, depthErr.Limit)
	assert.Equal(t, 6, depthErr.Depth)
	assert.ErrorIs(t, err, ErrBudgetExceeded)
	assert.Equal(t, StateDepthExceeded, g.State())

	// The breach is sticky and Finish does not hide it.
	assert.ErrorIs(t, g.Step(1), ErrBudgetExceeded)
	assert.Equal(t, StateDepthExceeded, g.Finish())
}

func TestGovernorChunkLimit(t *testing.T) {
	g := Budget{Timeout: time.Minute, MaxDepth: 5, MaxChunks: 2}.Start(context.Background())

	require.NoError(t, g.AddChunk())
	require.NoError(t, g.AddChunk())

	err := g.AddChunk()
	var limitErr *ChunkLimitExceededError
	require.ErrorAs(t, err, &limitErr)
	assert.Equal(t, 2, limitErr.Limit)
	assert.Equal(t, 2, g.Chunks())
	assert.Equal(t, StateChunkLimitExceeded, g.State())
}

func TestGovernorTimeoutCheckedAtEveryStep(t *testing.T) {
	clock := &fakeClock{now: time.Unix(1000, 0)}
	g := Budget{Timeout: time.Second, MaxDepth: 100, MaxChunks: 100}.start(context.Background(), clock.Now)

	require.NoError(t, g.Step(1))
	clock.Advance(999 * time.Millisecond)
	require.NoError(t, g.Step(50))
	clock.Advance(time.Millisecond)

	err := g.Step(51)
	var timeoutErr *ResourceTimeoutError
	require.ErrorAs(t, err, &timeoutErr)
	assert.Equal(t, time.Second, timeoutErr.Limit)
	assert.Equal(t, StateTimeoutExceeded, g.State())
	assert.ErrorIs(t, g.CheckTime(), ErrBudgetExceeded)
	assert.ErrorIs(t, g.AddChunk(), ErrBudgetExceeded)
}

func TestGovernorParentCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	g := Budget{Timeout: time.Hour}.Start(ctx)
	cancel()

	err := g.Step(0)
	assert.True(t, errors.As(err, new(*ResourceTimeoutError)))
	assert.Error(t, g.Context().Err())
}

func TestBudgetDefaultsAndDisabledLimits(t *testing.T) {
	g := Budget{}.Start(context.Background())
	assert.Equal(t, DefaultBudget(), g.Budget())

	unlimited := Budget{Timeout: -1, MaxDepth: -1, MaxChunks: -1}.Start(context.Background())
	require.NoError(t, unlimited.Step(100000))
	for i := 0; i < 5000; i++ {
		require.NoError(t, unlimited.AddChunk())
	}
	_, hasDeadline := unlimited.Context().Deadline()
	assert.False(t, hasDeadline)
}

func TestFinishCancelsContext(t *testing.T) {
	g := DefaultBudget().Start(context.Background())
	g.Finish()
	assert.Error(t, g.Context().Err())
}
