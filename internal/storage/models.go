package storage

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a requested message does not exist.
var ErrNotFound = errors.New("not found")

// ErrNotReady is returned when a message's delivery date is still in the
// future at view time.
var ErrNotReady = errors.New("not ready for viewing")

// Message statuses persisted in the store. Readiness is never persisted;
// it is derived from delivery_at on every read.
const (
	StatusPending = "pending"
	StatusViewed  = "viewed"
)

// Message types.
const (
	TypeVoice = "voice"
	TypePhoto = "photo"
)

// Message is a sealed message awaiting delivery to the author's future self.
type Message struct {
	ID          string
	Type        string // "voice" or "photo"
	Payload     []byte
	MimeType    string
	Note        string
	Duration    string // clock-formatted recording length, voice only
	Size        int64
	CreatedAt   time.Time
	DeliveryAt  time.Time
	Status      string // "pending" or "viewed"
	PrepContext string // optional JSON snapshot of the preparation answers
}

// Ready reports whether the message's delivery date has elapsed at now.
func (m Message) Ready(now time.Time) bool {
	return !m.DeliveryAt.After(now)
}
