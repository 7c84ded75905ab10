package capture

import (
	"context"
	"errors"
	"testing"
	"time"
)

// fakeMic scripts a Microphone for tests.
type fakeMic struct {
	openErr  error
	chunkErr error
	chunks   [][]byte
	next     int

	opens  int
	closes int
}

func (f *fakeMic) Open(ctx context.Context) error {
	if f.openErr != nil {
		return f.openErr
	}
	f.opens++
	return nil
}

func (f *fakeMic) Chunk() ([]byte, error) {
	if f.chunkErr != nil {
		return nil, f.chunkErr
	}
	if f.next >= len(f.chunks) {
		return nil, nil
	}
	c := f.chunks[f.next]
	f.next++
	return c, nil
}

func (f *fakeMic) MimeType() string { return "audio/webm" }

func (f *fakeMic) Close() error {
	f.closes++
	return nil
}

// fakeClock advances only when told to.
type fakeClock struct {
	t time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) now() time.Time          { return c.t }
func (c *fakeClock) advance(d time.Duration) { c.t = c.t.Add(d) }

func TestRecorderFullCycle(t *testing.T) {
	mic := &fakeMic{chunks: [][]byte{[]byte("aaa"), []byte("bbb")}}
	clock := newFakeClock()
	r := NewRecorder(mic)
	r.now = clock.now

	if err := r.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if r.State() != RecorderCapturing {
		t.Errorf("state = %q, want capturing", r.State())
	}

	clock.advance(10 * time.Second)
	a, err := r.Stop()
	if err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if a.Type != "voice" {
		t.Errorf("Type = %q, want voice", a.Type)
	}
	if string(a.Blob) != "aaa" {
		t.Errorf("Blob = %q, want aaa", a.Blob)
	}
	if a.Duration != 10*time.Second {
		t.Errorf("Duration = %v, want 10s", a.Duration)
	}
	if a.MimeType != "audio/webm" {
		t.Errorf("MimeType = %q", a.MimeType)
	}
	if mic.closes != 1 {
		t.Errorf("mic closed %d times, want 1", mic.closes)
	}
	if r.State() != RecorderCaptured {
		t.Errorf("state = %q, want captured", r.State())
	}
}

func TestRecorderPauseExcludesTime(t *testing.T) {
	mic := &fakeMic{chunks: [][]byte{[]byte("part1"), []byte("part2")}}
	clock := newFakeClock()
	r := NewRecorder(mic)
	r.now = clock.now

	if err := r.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	clock.advance(5 * time.Second)

	if err := r.Pause(); err != nil {
		t.Fatalf("Pause: %v", err)
	}
	clock.advance(30 * time.Second) // paused stretch, must not count
	if got := r.Elapsed(); got != 5*time.Second {
		t.Errorf("Elapsed while paused = %v, want 5s", got)
	}

	if err := r.Resume(); err != nil {
		t.Fatalf("Resume: %v", err)
	}
	clock.advance(3 * time.Second)

	a, err := r.Stop()
	if err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if a.Duration != 8*time.Second {
		t.Errorf("Duration = %v, want 8s (5s + 3s, pause excluded)", a.Duration)
	}
	if string(a.Blob) != "part1part2" {
		t.Errorf("Blob = %q, want both segments", a.Blob)
	}
}

func TestRecorderStopWhilePaused(t *testing.T) {
	mic := &fakeMic{chunks: [][]byte{[]byte("take")}}
	clock := newFakeClock()
	r := NewRecorder(mic)
	r.now = clock.now

	if err := r.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	clock.advance(4 * time.Second)
	if err := r.Pause(); err != nil {
		t.Fatalf("Pause: %v", err)
	}
	clock.advance(time.Minute)

	a, err := r.Stop()
	if err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if a.Duration != 4*time.Second {
		t.Errorf("Duration = %v, want 4s", a.Duration)
	}
	if mic.closes != 1 {
		t.Errorf("mic closed %d times, want 1", mic.closes)
	}
}

func TestRecorderStartDeviceError(t *testing.T) {
	mic := &fakeMic{openErr: errors.New("permission denied")}
	r := NewRecorder(mic)

	err := r.Start(context.Background())
	var devErr *DeviceError
	if !errors.As(err, &devErr) {
		t.Fatalf("err = %v, want *DeviceError", err)
	}
	if devErr.Device != "microphone" {
		t.Errorf("Device = %q, want microphone", devErr.Device)
	}
	if r.State() != RecorderIdle {
		t.Errorf("state = %q, want idle after failed start", r.State())
	}

	// Retry succeeds once the device cooperates.
	mic.openErr = nil
	mic.chunks = [][]byte{[]byte("ok")}
	if err := r.Start(context.Background()); err != nil {
		t.Fatalf("retry Start: %v", err)
	}
}

func TestRecorderChunkErrorReleasesDevice(t *testing.T) {
	mic := &fakeMic{chunkErr: errors.New("stream gone")}
	r := NewRecorder(mic)

	if err := r.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	_, err := r.Stop()
	var devErr *DeviceError
	if !errors.As(err, &devErr) {
		t.Fatalf("err = %v, want *DeviceError", err)
	}
	if mic.closes == 0 {
		t.Error("mic not released after chunk failure")
	}
	if r.State() != RecorderIdle {
		t.Errorf("state = %q, want idle", r.State())
	}
}

func TestRecorderDoubleStart(t *testing.T) {
	mic := &fakeMic{chunks: [][]byte{[]byte("x")}}
	r := NewRecorder(mic)

	if err := r.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := r.Start(context.Background()); !errors.Is(err, ErrAlreadyCapturing) {
		t.Errorf("second Start err = %v, want ErrAlreadyCapturing", err)
	}
}

func TestRecorderStopWithoutStart(t *testing.T) {
	r := NewRecorder(&fakeMic{})
	if _, err := r.Stop(); !errors.Is(err, ErrNotCapturing) {
		t.Errorf("err = %v, want ErrNotCapturing", err)
	}
}

func TestRecorderDiscardReleasesDevice(t *testing.T) {
	mic := &fakeMic{chunks: [][]byte{[]byte("x")}}
	r := NewRecorder(mic)

	if err := r.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := r.Discard(); err != nil {
		t.Fatalf("Discard: %v", err)
	}
	if mic.closes != 1 {
		t.Errorf("mic closed %d times, want 1", mic.closes)
	}
	if r.State() != RecorderIdle {
		t.Errorf("state = %q, want idle", r.State())
	}
	if _, err := r.Artifact(); !errors.Is(err, ErrNoArtifact) {
		t.Errorf("Artifact err = %v, want ErrNoArtifact", err)
	}
}

func TestFormatClock(t *testing.T) {
	cases := []struct {
		d    time.Duration
		want string
	}{
		{0, "00:00"},
		{9 * time.Second, "00:09"},
		{83 * time.Second, "01:23"},
		{10 * time.Minute, "10:00"},
		{-time.Second, "00:00"},
	}
	for _, tc := range cases {
		if got := FormatClock(tc.d); got != tc.want {
			t.Errorf("FormatClock(%v) = %q, want %q", tc.d, got, tc.want)
		}
	}
}
