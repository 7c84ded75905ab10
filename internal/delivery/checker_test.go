package delivery

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/ameline/sealbox/internal/vault"
)

// fakeSource scripts the counts the checker observes.
type fakeSource struct {
	counts vault.Counts
	err    error
	calls  int
}

func (f *fakeSource) Counts(at time.Time) (vault.Counts, error) {
	f.calls++
	return f.counts, f.err
}

func TestRunOnce(t *testing.T) {
	src := &fakeSource{counts: vault.Counts{Total: 3, Pending: 2, Ready: 1}}
	c := NewChecker(src, time.Hour, slog.Default())

	snap, err := c.RunOnce()
	if err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if snap.Counts.Ready != 1 {
		t.Errorf("Ready = %d, want 1", snap.Counts.Ready)
	}
	if snap.At.IsZero() {
		t.Error("snapshot has zero timestamp")
	}

	last, ok := c.Last()
	if !ok {
		t.Fatal("Last returned nothing after a check")
	}
	if last.Counts != snap.Counts {
		t.Errorf("Last = %+v, want %+v", last.Counts, snap.Counts)
	}
}

func TestRunOnceError(t *testing.T) {
	src := &fakeSource{err: errors.New("db gone")}
	c := NewChecker(src, time.Hour, slog.Default())

	if _, err := c.RunOnce(); err == nil {
		t.Error("expected error from failing source")
	}
	if _, ok := c.Last(); ok {
		t.Error("Last set despite failed check")
	}
}

func TestSubscribeReceivesSnapshots(t *testing.T) {
	src := &fakeSource{counts: vault.Counts{Total: 1, Ready: 1}}
	c := NewChecker(src, time.Hour, slog.Default())

	ch := c.Subscribe()
	if _, err := c.RunOnce(); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}

	select {
	case snap := <-ch:
		if snap.Counts.Ready != 1 {
			t.Errorf("Ready = %d, want 1", snap.Counts.Ready)
		}
	default:
		t.Fatal("no snapshot delivered to subscriber")
	}
}

func TestSlowSubscriberDoesNotBlock(t *testing.T) {
	src := &fakeSource{}
	c := NewChecker(src, time.Hour, slog.Default())

	c.Subscribe() // never drained
	for i := 0; i < 20; i++ {
		if _, err := c.RunOnce(); err != nil {
			t.Fatalf("RunOnce %d: %v", i, err)
		}
	}
}

func TestRunRespondsToKick(t *testing.T) {
	src := &fakeSource{counts: vault.Counts{Total: 1}}
	c := NewChecker(src, time.Hour, slog.Default())
	ch := c.Subscribe()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		c.Run(ctx)
		close(done)
	}()

	// Initial check on startup.
	waitSnapshot(t, ch)

	c.Kick()
	waitSnapshot(t, ch)

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop on cancel")
	}
}

func TestKickIsNonBlocking(t *testing.T) {
	c := NewChecker(&fakeSource{}, time.Hour, slog.Default())
	// No loop running; repeated kicks must not block.
	for i := 0; i < 5; i++ {
		c.Kick()
	}
}

func TestDefaultInterval(t *testing.T) {
	c := NewChecker(&fakeSource{}, 0, nil)
	if c.interval != DefaultInterval {
		t.Errorf("interval = %v, want %v", c.interval, DefaultInterval)
	}
}

func waitSnapshot(t *testing.T, ch <-chan Snapshot) Snapshot {
	t.Helper()
	select {
	case snap := <-ch:
		return snap
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for snapshot")
		return Snapshot{}
	}
}
