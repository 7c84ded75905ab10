package capture

import (
	"bytes"
	"context"
	"fmt"
	"image/jpeg"
	"sync"
	"time"

	"github.com/disintegration/imaging"
)

// PhotoBooth lifecycle.
type CameraState string

const (
	CameraIdle      CameraState = "idle"
	CameraStreaming CameraState = "streaming"
	CameraCaptured  CameraState = "captured"
)

// PhotoBooth drives a Camera through preview, capture and retake. Capturing
// stops the live feed so the frozen frame can be reviewed; Retake reopens
// the device.
type PhotoBooth struct {
	mu  sync.Mutex
	cam Camera
	now func() time.Time

	state    CameraState
	artifact *Artifact
}

// NewPhotoBooth returns an idle booth bound to cam.
func NewPhotoBooth(cam Camera) *PhotoBooth {
	return &PhotoBooth{
		cam:   cam,
		now:   time.Now,
		state: CameraIdle,
	}
}

// State returns the current lifecycle state.
func (p *PhotoBooth) State() CameraState {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Start acquires the camera and begins the live preview. A device failure is
// reported as *DeviceError and leaves the booth idle so Start can be retried.
func (p *PhotoBooth) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state == CameraStreaming {
		return ErrAlreadyCapturing
	}

	if err := p.cam.Open(ctx); err != nil {
		return &DeviceError{Device: "camera", Err: err}
	}
	p.state = CameraStreaming
	p.artifact = nil
	return nil
}

// Capture freezes the current frame and releases the camera. The device is
// released even when grabbing the frame fails.
func (p *PhotoBooth) Capture() (Artifact, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state != CameraStreaming {
		return Artifact{}, ErrNotCapturing
	}

	blob, mimeType, frameErr := p.cam.Frame()
	closeErr := p.cam.Close()
	p.state = CameraIdle

	if frameErr != nil {
		return Artifact{}, &DeviceError{Device: "camera", Err: frameErr}
	}
	if closeErr != nil {
		return Artifact{}, &DeviceError{Device: "camera", Err: closeErr}
	}
	if len(blob) == 0 {
		return Artifact{}, ErrNoArtifact
	}

	a := Artifact{
		Type:      "photo",
		Blob:      blob,
		MimeType:  mimeType,
		Timestamp: p.now(),
		Size:      int64(len(blob)),
	}
	p.artifact = &a
	p.state = CameraCaptured
	return a, nil
}

// Retake discards the frozen frame and restarts the preview.
func (p *PhotoBooth) Retake(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.state != CameraCaptured {
		return ErrNoArtifact
	}
	if err := p.cam.Open(ctx); err != nil {
		return &DeviceError{Device: "camera", Err: err}
	}
	p.artifact = nil
	p.state = CameraStreaming
	return nil
}

// TakePhoto runs the full Start/Capture cycle in one call.
func (p *PhotoBooth) TakePhoto(ctx context.Context) (Artifact, error) {
	if err := p.Start(ctx); err != nil {
		return Artifact{}, err
	}
	return p.Capture()
}

// Artifact returns the last captured frame.
func (p *PhotoBooth) Artifact() (Artifact, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.artifact == nil {
		return Artifact{}, ErrNoArtifact
	}
	return *p.artifact, nil
}

// Discard drops the captured frame and returns the booth to idle, releasing
// the camera if the preview is still running.
func (p *PhotoBooth) Discard() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var closeErr error
	if p.state == CameraStreaming {
		closeErr = p.cam.Close()
	}
	p.state = CameraIdle
	p.artifact = nil
	if closeErr != nil {
		return &DeviceError{Device: "camera", Err: closeErr}
	}
	return nil
}

// EnhanceDocument boosts the contrast of a captured photo so printed or
// handwritten text reads better, re-encoding as JPEG. The original artifact
// is not modified.
func EnhanceDocument(a Artifact) (Artifact, error) {
	if a.Type != "photo" {
		return Artifact{}, fmt.Errorf("enhance: artifact is %q, want photo", a.Type)
	}

	img, err := imaging.Decode(bytes.NewReader(a.Blob))
	if err != nil {
		return Artifact{}, fmt.Errorf("decoding photo: %w", err)
	}
	enhanced := imaging.AdjustContrast(img, 20)

	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, enhanced, &jpeg.Options{Quality: 95}); err != nil {
		return Artifact{}, fmt.Errorf("encoding enhanced photo: %w", err)
	}

	out := a
	out.Blob = buf.Bytes()
	out.MimeType = "image/jpeg"
	out.Size = int64(buf.Len())
	return out, nil
}
