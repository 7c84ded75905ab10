package capture

import (
	"context"
	"sync"
	"time"
)

// RecorderState is the voice recorder lifecycle.
type RecorderState string

const (
	RecorderIdle      RecorderState = "idle"
	RecorderCapturing RecorderState = "capturing"
	RecorderPaused    RecorderState = "paused"
	RecorderCaptured  RecorderState = "captured"
)

// Recorder drives a Microphone through a start/pause/resume/stop cycle and
// assembles the captured audio into an Artifact. Elapsed paused time is
// excluded from the recorded duration.
type Recorder struct {
	mu  sync.Mutex
	mic Microphone
	now func() time.Time

	state     RecorderState
	chunks    [][]byte
	startedAt time.Time
	pausedAt  time.Time
	paused    time.Duration
	artifact  *Artifact
}

// NewRecorder returns an idle recorder bound to mic.
func NewRecorder(mic Microphone) *Recorder {
	return &Recorder{
		mic:   mic,
		now:   time.Now,
		state: RecorderIdle,
	}
}

// State returns the current lifecycle state.
func (r *Recorder) State() RecorderState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Start acquires the microphone and begins capturing. A device failure is
// reported as *DeviceError and leaves the recorder idle so Start can be
// retried.
func (r *Recorder) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state == RecorderCapturing || r.state == RecorderPaused {
		return ErrAlreadyCapturing
	}

	if err := r.mic.Open(ctx); err != nil {
		return &DeviceError{Device: "microphone", Err: err}
	}

	r.state = RecorderCapturing
	r.chunks = nil
	r.startedAt = r.now()
	r.paused = 0
	r.artifact = nil
	return nil
}

// Pause suspends the capture. The hardware stays acquired; the elapsed timer
// stops.
func (r *Recorder) Pause() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != RecorderCapturing {
		return ErrNotCapturing
	}
	if err := r.drainLocked(); err != nil {
		return err
	}
	r.state = RecorderPaused
	r.pausedAt = r.now()
	return nil
}

// Resume continues a paused capture, appending to the same take.
func (r *Recorder) Resume() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != RecorderPaused {
		return ErrNotCapturing
	}
	r.paused += r.now().Sub(r.pausedAt)
	r.state = RecorderCapturing
	return nil
}

// Stop ends the capture, releases the microphone and produces the artifact.
// The microphone is released even when draining the final chunk fails.
func (r *Recorder) Stop() (Artifact, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != RecorderCapturing && r.state != RecorderPaused {
		return Artifact{}, ErrNotCapturing
	}

	stoppedAt := r.now()
	drainErr := error(nil)
	if r.state == RecorderCapturing {
		drainErr = r.drainLocked()
	} else {
		r.paused += stoppedAt.Sub(r.pausedAt)
	}
	closeErr := r.mic.Close()
	r.state = RecorderIdle

	if drainErr != nil {
		return Artifact{}, drainErr
	}
	if closeErr != nil {
		return Artifact{}, &DeviceError{Device: "microphone", Err: closeErr}
	}

	var blob []byte
	for _, c := range r.chunks {
		blob = append(blob, c...)
	}
	if len(blob) == 0 {
		return Artifact{}, ErrNoArtifact
	}

	a := Artifact{
		Type:      "voice",
		Blob:      blob,
		MimeType:  r.mic.MimeType(),
		Timestamp: stoppedAt,
		Duration:  stoppedAt.Sub(r.startedAt) - r.paused,
		Size:      int64(len(blob)),
	}
	r.artifact = &a
	r.state = RecorderCaptured
	return a, nil
}

// Artifact returns the last captured take.
func (r *Recorder) Artifact() (Artifact, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.artifact == nil {
		return Artifact{}, ErrNoArtifact
	}
	return *r.artifact, nil
}

// Discard drops the captured take and returns the recorder to idle. If a
// capture is still running the microphone is released first.
func (r *Recorder) Discard() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var closeErr error
	if r.state == RecorderCapturing || r.state == RecorderPaused {
		closeErr = r.mic.Close()
	}
	r.state = RecorderIdle
	r.chunks = nil
	r.artifact = nil
	if closeErr != nil {
		return &DeviceError{Device: "microphone", Err: closeErr}
	}
	return nil
}

// Elapsed returns the recorded time so far, excluding paused stretches.
func (r *Recorder) Elapsed() time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()

	switch r.state {
	case RecorderCapturing:
		return r.now().Sub(r.startedAt) - r.paused
	case RecorderPaused:
		return r.pausedAt.Sub(r.startedAt) - r.paused
	case RecorderCaptured:
		return r.artifact.Duration
	default:
		return 0
	}
}

func (r *Recorder) drainLocked() error {
	chunk, err := r.mic.Chunk()
	if err != nil {
		r.mic.Close()
		r.state = RecorderIdle
		return &DeviceError{Device: "microphone", Err: err}
	}
	if len(chunk) > 0 {
		r.chunks = append(r.chunks, chunk)
	}
	return nil
}
