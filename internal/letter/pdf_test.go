package letter

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestExcerpt(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"short", "Dear future me", "Dear future me"},
		{"collapses whitespace", "Dear\n\n  future\tme", "Dear future me"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Excerpt(tc.in); got != tc.want {
				t.Errorf("Excerpt(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestExcerptTruncates(t *testing.T) {
	long := strings.Repeat("word ", 100)
	got := Excerpt(long)
	if len([]rune(got)) > excerptLimit+1 {
		t.Errorf("excerpt too long: %d runes", len([]rune(got)))
	}
	if !strings.HasSuffix(got, "…") {
		t.Errorf("truncated excerpt missing ellipsis: %q", got)
	}
}

func TestFromPDFRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "not-a-letter.pdf")
	if err := os.WriteFile(path, []byte("plain text pretending"), 0o644); err != nil {
		t.Fatalf("writing fixture: %v", err)
	}
	if _, _, _, err := FromPDF(path); err == nil {
		t.Error("expected error for non-PDF input")
	}
}

func TestFromPDFMissingFile(t *testing.T) {
	if _, _, _, err := FromPDF(filepath.Join(t.TempDir(), "absent.pdf")); err == nil {
		t.Error("expected error for missing file")
	}
}

func TestTimestamped(t *testing.T) {
	at := time.Date(2026, 3, 15, 10, 0, 0, 0, time.UTC)
	if got := Timestamped(at); got != "Letter imported 2026-03-15" {
		t.Errorf("Timestamped = %q", got)
	}
}
