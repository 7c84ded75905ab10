package capture

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Artifact is the hand-off contract between a capture provider and the vault:
// exactly one binary payload plus its metadata.
type Artifact struct {
	Type      string // "voice" or "photo"
	Blob      []byte
	MimeType  string
	Timestamp time.Time
	Duration  time.Duration // voice only
	Size      int64
}

// DeviceError wraps a hardware acquisition or read failure (permission
// denied, device busy, missing file behind a file-backed device). It is
// retryable by re-invoking the provider's start operation.
type DeviceError struct {
	Device string // "microphone" or "camera"
	Err    error
}

func (e *DeviceError) Error() string {
	return fmt.Sprintf("%s device: %v", e.Device, e.Err)
}

func (e *DeviceError) Unwrap() error { return e.Err }

// State-machine errors shared by the providers.
var (
	ErrAlreadyCapturing = errors.New("capture already in progress")
	ErrNotCapturing     = errors.New("no capture in progress")
	ErrNoArtifact       = errors.New("no captured artifact")
)

// Microphone is an exclusive audio input. Open acquires the hardware, Chunk
// drains audio buffered since the previous call, Close releases the device.
// Implementations must be safe to Close more than once.
type Microphone interface {
	Open(ctx context.Context) error
	Chunk() ([]byte, error)
	MimeType() string
	Close() error
}

// Camera is an exclusive video input. Frame snapshots the current feed into
// an encoded still image.
type Camera interface {
	Open(ctx context.Context) error
	Frame() (blob []byte, mimeType string, err error)
	Close() error
}

// FormatClock renders a duration as mm:ss for display and persistence,
// matching the recorder timer format.
func FormatClock(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int(d / time.Second)
	return fmt.Sprintf("%02d:%02d", total/60, total%60)
}
