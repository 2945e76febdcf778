package pgxcasbin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/casbin/casbin/v3/persist"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sethvargo/go-retry"
)

const defaultChannel = "gettoken_casbin_watcher"

var _ persist.Watcher = (*Watcher)(nil)

// WatcherOption configures a Watcher.
type WatcherOption struct {
	// Channel is the LISTEN/NOTIFY channel. It must be a plain identifier.
	Channel string
	// LocalID identifies this instance; its own notifications are ignored.
	LocalID string
}

type notification struct {
	ID string `json:"id"`
	At int64  `json:"at"`
}

// Watcher broadcasts "policy changed" over pg_notify and invokes the update
// callback when another instance changes policies.
type Watcher struct {
	mu       sync.RWMutex
	opt      WatcherOption
	pool     *pgxpool.Pool
	callback func(string)
	cancel   context.CancelFunc
	done     chan struct{}
}

// NewWatcher starts listening on the channel. The listener reconnects with
// a capped Fibonacci backoff until Close is called.
func NewWatcher(ctx context.Context, pool *pgxpool.Pool, opt WatcherOption) (*Watcher, error) {
	if err := pool.Ping(ctx); err != nil {
		return nil, err
	}

	if opt.Channel == "" {
		opt.Channel = defaultChannel
	}
	if opt.LocalID == "" {
		opt.LocalID = uuid.NewString()
	}

	listenCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	w := &Watcher{opt: opt, pool: pool, cancel: cancel, done: make(chan struct{})}

	go func() {
		defer close(w.done)

		b := retry.WithCappedDuration(5*time.Second, retry.NewFibonacci(200*time.Millisecond))
		err := retry.Do(listenCtx, b, func(ctx context.Context) error {
			err := w.listen(ctx)
			if err == nil || errors.Is(err, context.Canceled) {
				return nil
			}
			slog.Error("casbin watcher listen failed", "channel", opt.Channel, "error", err)
			return retry.RetryableError(err)
		})
		if err != nil && !errors.Is(err, context.Canceled) {
			slog.Error("casbin watcher stopped", "error", err)
		}
	}()

	return w, nil
}

// SetUpdateCallback registers the function called with the raw notification payload.
func (w *Watcher) SetUpdateCallback(callback func(string)) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.callback = callback
	return nil
}

// Update notifies other instances that policies changed.
func (w *Watcher) Update() error {
	b, err := json.Marshal(notification{ID: w.opt.LocalID, At: time.Now().Unix()})
	if err != nil {
		return err
	}

	if _, err := w.pool.Exec(context.Background(), "select pg_notify($1, $2)", w.opt.Channel, string(b)); err != nil {
		return fmt.Errorf("pgxcasbin: notify: %w", err)
	}
	return nil
}

// Close stops the listener and waits for it to exit.
func (w *Watcher) Close() {
	w.cancel()
	<-w.done
}

func (w *Watcher) listen(ctx context.Context) error {
	conn, err := w.pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "listen "+w.opt.Channel); err != nil {
		return err
	}

	for {
		n, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			return err
		}

		var msg notification
		if err := json.Unmarshal([]byte(n.Payload), &msg); err != nil {
			slog.Warn("casbin watcher ignored malformed payload", "payload", n.Payload, "error", err)
			continue
		}
		if msg.ID == w.opt.LocalID {
			continue
		}

		w.mu.RLock()
		cb := w.callback
		w.mu.RUnlock()
		if cb != nil {
			cb(n.Payload)
		}
	}
}
