//go:build !darwin

package config

import (
	"testing"
)

func TestGetAPITokenGeneratesAndPersists(t *testing.T) {
	t.Setenv("SEALBOX_API_TOKEN", "")
	t.Setenv("XDG_DATA_HOME", t.TempDir())

	first, err := GetAPIToken()
	if err != nil {
		t.Fatalf("GetAPIToken: %v", err)
	}
	if len(first) != 64 {
		t.Errorf("token length = %d, want 64 hex chars", len(first))
	}

	second, err := GetAPIToken()
	if err != nil {
		t.Fatalf("second GetAPIToken: %v", err)
	}
	if second != first {
		t.Error("token not stable across calls")
	}
}
