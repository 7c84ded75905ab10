// Package vault implements the sealed-message lifecycle: messages are saved
// with a fixed delivery delay, stay sealed until the delay elapses, and can
// only be opened afterwards. Readiness is derived from the delivery date at
// read time and never stored.
package vault

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ameline/sealbox/internal/capture"
	"github.com/ameline/sealbox/internal/storage"
)

// DefaultDeliveryDelay is how far into the future a message is sealed when
// the caller does not override it.
const DefaultDeliveryDelay = 90 * 24 * time.Hour

// Errors surfaced by the vault. ErrNotFound and ErrNotReady are re-exported
// so callers don't need to import storage.
var (
	ErrNotFound = storage.ErrNotFound
	ErrNotReady = storage.ErrNotReady

	ErrEmptyArtifact = errors.New("artifact has no payload")
	ErrBadType       = errors.New("unknown artifact type")
)

// Counts is the vault tally at a given instant. Viewed messages past their
// delivery date contribute to Total only.
type Counts struct {
	Total   int `json:"total"`
	Pending int `json:"pending"`
	Ready   int `json:"ready"`
}

// SaveOptions tweak a single save.
type SaveOptions struct {
	// Delay overrides the vault's delivery delay when positive.
	Delay time.Duration
	// PrepContext is an optional JSON snapshot of the preparation answers
	// recorded before capturing.
	PrepContext string
}

// Vault seals capture artifacts into the store and gates their retrieval.
type Vault struct {
	store *storage.Store
	delay time.Duration
	now   func() time.Time
}

// Option configures a Vault.
type Option func(*Vault)

// WithClock overrides the vault's time source. Used by tests.
func WithClock(now func() time.Time) Option {
	return func(v *Vault) { v.now = now }
}

// New returns a Vault writing to store. A non-positive delay falls back to
// DefaultDeliveryDelay.
func New(store *storage.Store, delay time.Duration, opts ...Option) *Vault {
	if delay <= 0 {
		delay = DefaultDeliveryDelay
	}
	v := &Vault{
		store: store,
		delay: delay,
		now:   time.Now,
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

// Delay returns the vault's configured delivery delay.
func (v *Vault) Delay() time.Duration { return v.delay }

// Save seals a captured artifact with an optional note. The delivery date is
// fixed at save time and never changes afterwards.
func (v *Vault) Save(a capture.Artifact, note string, opts SaveOptions) (storage.Message, error) {
	if a.Type != storage.TypeVoice && a.Type != storage.TypePhoto {
		return storage.Message{}, fmt.Errorf("%w: %q", ErrBadType, a.Type)
	}
	if len(a.Blob) == 0 {
		return storage.Message{}, ErrEmptyArtifact
	}
	if a.MimeType == "" {
		return storage.Message{}, fmt.Errorf("%w: missing mime type", ErrEmptyArtifact)
	}

	delay := v.delay
	if opts.Delay > 0 {
		delay = opts.Delay
	}

	now := v.now()
	m := storage.Message{
		ID:          uuid.New().String(),
		Type:        a.Type,
		Payload:     a.Blob,
		MimeType:    a.MimeType,
		Note:        note,
		Size:        int64(len(a.Blob)),
		CreatedAt:   now,
		DeliveryAt:  now.Add(delay),
		Status:      storage.StatusPending,
		PrepContext: opts.PrepContext,
	}
	if a.Type == storage.TypeVoice {
		m.Duration = capture.FormatClock(a.Duration)
	}

	if err := v.store.SaveMessage(m); err != nil {
		return storage.Message{}, fmt.Errorf("saving message: %w", err)
	}
	return m, nil
}

// List returns all messages, newest first.
func (v *Vault) List() ([]storage.Message, error) {
	return v.store.ListMessages()
}

// Get returns a single message without touching its status. The payload of a
// still-sealed message is included; gating open access is View's job.
func (v *Vault) Get(id string) (storage.Message, error) {
	return v.store.GetMessage(id)
}

// Counts tallies the vault at the given instant.
func (v *Vault) Counts(at time.Time) (Counts, error) {
	if at.IsZero() {
		at = v.now()
	}
	total, pending, ready, err := v.store.CountMessages(at)
	if err != nil {
		return Counts{}, err
	}
	return Counts{Total: total, Pending: pending, Ready: ready}, nil
}

// View opens a message: it fails with ErrNotReady while the delivery date is
// in the future, and otherwise returns the message and marks it viewed.
// Re-viewing a viewed message succeeds.
func (v *Vault) View(id string) (storage.Message, error) {
	return v.store.ViewMessage(id, v.now())
}

// Delete removes a message in any state.
func (v *Vault) Delete(id string) error {
	return v.store.DeleteMessage(id)
}

// Remaining returns how long until m becomes ready, zero if it already is.
func (v *Vault) Remaining(m storage.Message) time.Duration {
	d := m.DeliveryAt.Sub(v.now())
	if d < 0 {
		return 0
	}
	return d
}

// FormatRemaining renders a wait as "N days, M hours" (or just hours under a
// day), and "Available now!" once the wait is over.
func FormatRemaining(d time.Duration) string {
	if d <= 0 {
		return "Available now!"
	}
	days := int(d / (24 * time.Hour))
	hours := int(d/time.Hour) % 24
	if days == 0 {
		return fmt.Sprintf("%d hours", hours)
	}
	return fmt.Sprintf("%d days, %d hours", days, hours)
}
