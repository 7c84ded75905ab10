// Package letter imports written letters from PDF files so they can be
// sealed in the vault alongside recorded messages.
package letter

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/ledongthuc/pdf"
)

// excerptLimit caps how much extracted text becomes the message note.
const excerptLimit = 200

// FromPDF reads a letter from a PDF file and wraps it as a photo-type
// artifact carrying the original document bytes. The returned excerpt is the
// beginning of the letter's text, suitable as the message note.
func FromPDF(path string) (blob []byte, mimeType, excerpt string, err error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, "", "", fmt.Errorf("opening pdf: %w", err)
	}
	defer f.Close()

	var text strings.Builder
	plain, err := r.GetPlainText()
	if err == nil {
		io.Copy(&text, plain)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, "", "", fmt.Errorf("reading pdf: %w", err)
	}

	return data, "application/pdf", Excerpt(text.String()), nil
}

// Excerpt collapses whitespace and truncates to a note-sized snippet.
func Excerpt(text string) string {
	collapsed := strings.Join(strings.Fields(text), " ")
	runes := []rune(collapsed)
	if len(runes) <= excerptLimit {
		return collapsed
	}
	return strings.TrimSpace(string(runes[:excerptLimit])) + "…"
}

// Timestamped names an imported letter for display when it carries no note.
func Timestamped(at time.Time) string {
	return "Letter imported " + at.Format("2006-01-02")
}
