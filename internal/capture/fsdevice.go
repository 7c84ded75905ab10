package capture

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FileMicrophone plays the role of a microphone backed by an audio file on
// disk. Opening reads the file; the whole content is returned as a single
// chunk. Used by the CLI, which has no direct hardware access.
type FileMicrophone struct {
	Path string

	data  []byte
	spent bool
}

func (f *FileMicrophone) Open(ctx context.Context) error {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return err
	}
	f.data = data
	f.spent = false
	return nil
}

func (f *FileMicrophone) Chunk() ([]byte, error) {
	if f.spent {
		return nil, nil
	}
	f.spent = true
	return f.data, nil
}

func (f *FileMicrophone) MimeType() string {
	return mimeForExtension(f.Path, "audio/webm")
}

func (f *FileMicrophone) Close() error {
	f.data = nil
	return nil
}

// FileCamera plays the role of a camera backed by an image file on disk.
type FileCamera struct {
	Path string

	data []byte
}

func (f *FileCamera) Open(ctx context.Context) error {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return err
	}
	f.data = data
	return nil
}

func (f *FileCamera) Frame() ([]byte, string, error) {
	if f.data == nil {
		return nil, "", fmt.Errorf("camera not open")
	}
	return f.data, mimeForExtension(f.Path, "image/jpeg"), nil
}

func (f *FileCamera) Close() error {
	f.data = nil
	return nil
}

func mimeForExtension(path, fallback string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".webm":
		return "audio/webm"
	case ".ogg", ".oga":
		return "audio/ogg"
	case ".mp3":
		return "audio/mpeg"
	case ".wav":
		return "audio/wav"
	case ".m4a":
		return "audio/mp4"
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".webp":
		return "image/webp"
	case ".gif":
		return "image/gif"
	default:
		return fallback
	}
}
