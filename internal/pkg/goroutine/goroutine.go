package goroutine

import (
	"context"
	"errors"
	"log/slog"
	"runtime"
	"sync"

	"github.com/shandysiswandi/gettoken/internal/pkg/stacktrace"
	"go.uber.org/atomic"
)

// DefaultMaxGoroutine is multiplied by the CPU count when NewManager receives
// a non-positive limit.
const DefaultMaxGoroutine int = 100

// Manager runs fire-and-forget work, such as audit publishing, under a
// concurrency limit. Errors returned by tasks are collected for Wait.
type Manager struct {
	wg   sync.WaitGroup
	sema chan struct{}

	// mu guards closed against a concurrent Wait while a task is being added.
	mu     sync.RWMutex
	closed bool

	errMu sync.Mutex
	errs  []error

	dropped *atomic.Int64
}

// NewManager creates a Manager running at most maxGoroutine tasks at once.
func NewManager(maxGoroutine int) *Manager {
	if maxGoroutine < 1 {
		maxGoroutine = runtime.NumCPU() * DefaultMaxGoroutine
	}

	return &Manager{
		sema:    make(chan struct{}, maxGoroutine),
		dropped: atomic.NewInt64(0),
	}
}

// Go runs f in a goroutine if a slot is free. When every slot is busy, or
// after Wait has been called, f is dropped and a warning is logged.
func (g *Manager) Go(ctx context.Context, f func(ctx context.Context) error) {
	if g == nil {
		return
	}

	g.mu.RLock()
	defer g.mu.RUnlock()

	if g.closed {
		g.dropped.Inc()
		slog.WarnContext(ctx, "goroutine manager is closed, task dropped")
		return
	}

	select {
	case g.sema <- struct{}{}:
	default:
		g.dropped.Inc()
		slog.WarnContext(ctx, "goroutine limit reached, task dropped", "limit", cap(g.sema))
		return
	}

	g.wg.Add(1)
	go g.run(ctx, f)
}

func (g *Manager) run(ctx context.Context, f func(ctx context.Context) error) {
	defer g.wg.Done()
	defer func() { <-g.sema }()
	defer func() {
		if rvr := recover(); rvr != nil {
			slog.ErrorContext(ctx, "panic in background task", "because", rvr, "stack", stacktrace.Internal(0))
		}
	}()

	if err := ctx.Err(); err != nil {
		slog.WarnContext(ctx, "background task canceled before start", "because", err)
		return
	}

	if err := f(ctx); err != nil {
		g.errMu.Lock()
		g.errs = append(g.errs, err)
		g.errMu.Unlock()
	}
}

// Dropped reports how many tasks were rejected so far.
func (g *Manager) Dropped() int64 {
	if g == nil {
		return 0
	}

	return g.dropped.Load()
}

// Wait stops accepting tasks, blocks until the scheduled ones finish and
// returns their joined errors.
func (g *Manager) Wait() error {
	if g == nil {
		return nil
	}

	g.mu.Lock()
	g.closed = true
	g.mu.Unlock()

	g.wg.Wait()

	g.errMu.Lock()
	defer g.errMu.Unlock()

	return errors.Join(g.errs...)
}
