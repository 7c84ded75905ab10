// Package delivery periodically re-derives which messages have become ready
// and notifies subscribers. It never mutates messages: readiness is a pure
// function of the delivery date, so the checker only observes and reports.
package delivery

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/ameline/sealbox/internal/vault"
)

// DefaultInterval is how often the checker re-derives counts when the caller
// does not override it.
const DefaultInterval = time.Hour

// Snapshot is one observation of the vault.
type Snapshot struct {
	At     time.Time    `json:"at"`
	Counts vault.Counts `json:"counts"`
}

// CountsSource supplies the tallies. *vault.Vault satisfies it.
type CountsSource interface {
	Counts(at time.Time) (vault.Counts, error)
}

// Checker polls the vault on an interval and pushes snapshots to subscribers.
// A Kick forces an immediate re-check, used after saves so counts never lag
// a full interval behind a write.
type Checker struct {
	source   CountsSource
	interval time.Duration
	logger   *slog.Logger
	now      func() time.Time
	kick     chan struct{}

	mu   sync.Mutex
	subs []chan Snapshot
	last *Snapshot
}

// Option configures a Checker.
type Option func(*Checker)

// WithClock overrides the checker's time source. Used by tests.
func WithClock(now func() time.Time) Option {
	return func(c *Checker) { c.now = now }
}

// NewChecker returns a checker polling source every interval. A non-positive
// interval falls back to DefaultInterval.
func NewChecker(source CountsSource, interval time.Duration, logger *slog.Logger) *Checker {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Checker{
		source:   source,
		interval: interval,
		logger:   logger,
		now:      time.Now,
		kick:     make(chan struct{}, 1),
	}
}

// Subscribe returns a channel receiving every snapshot the checker takes.
// Slow subscribers drop snapshots rather than blocking the check loop.
func (c *Checker) Subscribe() <-chan Snapshot {
	ch := make(chan Snapshot, 4)
	c.mu.Lock()
	c.subs = append(c.subs, ch)
	c.mu.Unlock()
	return ch
}

// Kick requests an immediate re-check. Non-blocking; a kick while one is
// already queued is a no-op.
func (c *Checker) Kick() {
	select {
	case c.kick <- struct{}{}:
	default:
	}
}

// Last returns the most recent snapshot, if any check has run yet.
func (c *Checker) Last() (Snapshot, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.last == nil {
		return Snapshot{}, false
	}
	return *c.last, true
}

// RunOnce takes a single snapshot and distributes it.
func (c *Checker) RunOnce() (Snapshot, error) {
	at := c.now()
	counts, err := c.source.Counts(at)
	if err != nil {
		c.logger.Error("delivery check failed", "error", err)
		return Snapshot{}, err
	}
	snap := Snapshot{At: at, Counts: counts}

	c.mu.Lock()
	c.last = &snap
	subs := make([]chan Snapshot, len(c.subs))
	copy(subs, c.subs)
	c.mu.Unlock()

	for _, ch := range subs {
		select {
		case ch <- snap:
		default:
		}
	}

	if counts.Ready > 0 {
		c.logger.Info("messages ready for delivery",
			"ready", counts.Ready, "pending", counts.Pending, "total", counts.Total)
	} else {
		c.logger.Debug("delivery check",
			"ready", counts.Ready, "pending", counts.Pending, "total", counts.Total)
	}
	return snap, nil
}

// Run checks immediately, then on every interval tick or kick, until ctx is
// canceled. Check failures are logged and do not stop the loop.
func (c *Checker) Run(ctx context.Context) error {
	c.RunOnce()

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			c.RunOnce()
		case <-c.kick:
			c.RunOnce()
		}
	}
}
