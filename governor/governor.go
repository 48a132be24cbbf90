// Package governor bounds the time, tree depth and chunk count spent on a
// single file.
package governor

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"
)

// ErrBudgetExceeded matches every breach error via errors.Is.
var ErrBudgetExceeded = errors.New("resource budget exceeded")

const (
	DefaultTimeout   = 30 * time.Second
	DefaultMaxDepth  = 200
	DefaultMaxChunks = 1000
)

// State is the lifecycle of one governed chunking call.
type State string

const (
	StateRunning            State = "running"
	StateTimeoutExceeded    State = "timeout_exceeded"
	StateDepthExceeded      State = "depth_exceeded"
	StateChunkLimitExceeded State = "chunk_limit_exceeded"
	StateCompleted          State = "completed"
)

// ResourceTimeoutError reports that a file ran past its time budget.
type ResourceTimeoutError struct {
	Limit   time.Duration
	Elapsed time.Duration
}

func (e *ResourceTimeoutError) Error() string {
	return fmt.Sprintf("chunking timed out after %s (limit %s)", e.Elapsed.Round(time.Millisecond), e.Limit)
}

func (e *ResourceTimeoutError) Is(target error) bool { return target == ErrBudgetExceeded }

// DepthExceededError reports a traversal deeper than the budget allows.
type DepthExceededError struct {
	Limit int
	Depth int
}

func (e *DepthExceededError) Error() string {
	return fmt.Sprintf("tree depth %d exceeds limit %d", e.Depth, e.Limit)
}

func (e *DepthExceededError) Is(target error) bool { return target == ErrBudgetExceeded }

// ChunkLimitExceededError reports that a file produced more chunks than allowed.
type ChunkLimitExceededError struct {
	Limit int
}

func (e *ChunkLimitExceededError) Error() string {
	return fmt.Sprintf("chunk count exceeds limit %d", e.Limit)
}

func (e *ChunkLimitExceededError) Is(target error) bool { return target == ErrBudgetExceeded }

// Budget holds the per-file limits. Zero fields fall back to the defaults;
// negative fields disable the limit.
type Budget struct {
	Timeout   time.Duration `json:"timeout" yaml:"timeout"`
	MaxDepth  int           `json:"max_depth" yaml:"max_depth"`
	MaxChunks int           `json:"max_chunks" yaml:"max_chunks"`
}

// DefaultBudget returns the default limits.
func DefaultBudget() Budget {
	return Budget{Timeout: DefaultTimeout, MaxDepth: DefaultMaxDepth, MaxChunks: DefaultMaxChunks}
}

// Normalized fills zero fields with the defaults.
func (b Budget) Normalized() Budget {
	if b.Timeout == 0 {
		b.Timeout = DefaultTimeout
	}
	if b.MaxDepth == 0 {
		b.MaxDepth = DefaultMaxDepth
	}
	if b.MaxChunks == 0 {
		b.MaxChunks = DefaultMaxChunks
	}
	return b
}

// Governor enforces a Budget for one file. It must not be shared between files.
type Governor struct {
	budget   Budget
	ctx      context.Context
	cancel   context.CancelFunc
	start    time.Time
	deadline time.Time
	now      func() time.Time

	mu       sync.Mutex
	state    State
	chunks   int
	maxDepth int
	err      error
}

// Start begins governing a file. The returned context is cancelled when the
// time budget runs out or Finish is called, so blocking work such as parsing
// can observe it.
func (b Budget) Start(ctx context.Context) *Governor {
	return b.start(ctx, time.Now)
}

func (b Budget) start(ctx context.Context, now func() time.Time) *Governor {
	b = b.Normalized()
	g := &Governor{budget: b, start: now(), now: now, state: StateRunning}
	if b.Timeout > 0 {
		g.deadline = g.start.Add(b.Timeout)
		g.ctx, g.cancel = context.WithTimeout(ctx, b.Timeout)
	} else {
		g.ctx, g.cancel = context.WithCancel(ctx)
	}
	return g
}

// Context returns the governed context.
func (g *Governor) Context() context.Context { return g.ctx }

// Budget returns the effective limits.
func (g *Governor) Budget() Budget { return g.budget }

// Step is called at every traversal step with the current tree depth.
func (g *Governor) Step(depth int) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.err != nil {
		return g.err
	}
	if err := g.checkTimeLocked(); err != nil {
		return err
	}
	if depth > g.maxDepth {
		g.maxDepth = depth
	}
	if g.budget.MaxDepth > 0 && depth > g.budget.MaxDepth {
		return g.failLocked(StateDepthExceeded, &DepthExceededError{Limit: g.budget.MaxDepth, Depth: depth})
	}
	return nil
}

// CheckTime only checks the time budget. Linear chunkers call it between units.
func (g *Governor) CheckTime() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.err != nil {
		return g.err
	}
	return g.checkTimeLocked()
}

// AddChunk reserves room for one more chunk.
func (g *Governor) AddChunk() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.err != nil {
		return g.err
	}
	if g.budget.MaxChunks > 0 && g.chunks >= g.budget.MaxChunks {
		return g.failLocked(StateChunkLimitExceeded, &ChunkLimitExceededError{Limit: g.budget.MaxChunks})
	}
	g.chunks++
	return nil
}

// Finish marks the call completed unless a limit was already breached and
// releases the governed context.
func (g *Governor) Finish() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.state == StateRunning {
		g.state = StateCompleted
	}
	g.cancel()
	return g.state
}

// State returns the current lifecycle state.
func (g *Governor) State() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.state
}

// Err returns the breach error, if any.
func (g *Governor) Err() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.err
}

// Chunks returns the number of chunks reserved so far.
func (g *Governor) Chunks() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.chunks
}

// MaxDepthSeen returns the deepest depth passed to Step.
func (g *Governor) MaxDepthSeen() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.maxDepth
}

// Elapsed returns the time since Start.
func (g *Governor) Elapsed() time.Duration {
	return g.now().Sub(g.start)
}

func (g *Governor) checkTimeLocked() error {
	now := g.now()
	expired := !g.deadline.IsZero() && !now.Before(g.deadline)
	if !expired && g.ctx.Err() != nil && g.state == StateRunning {
		// The parent context was cancelled; treat it as running out of time.
		expired = true
	}
	if expired {
		return g.failLocked(StateTimeoutExceeded, &ResourceTimeoutError{Limit: g.budget.Timeout, Elapsed: now.Sub(g.start)})
	}
	return nil
}

func (g *Governor) failLocked(state State, err error) error {
	g.state = state
	g.err = err
	return err
}
