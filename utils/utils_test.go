package utils

import (
	"path/filepath"
	"testing"

	"github.com/mitchellh/go-homedir"
)

func TestExpandPath(t *testing.T) {
	home, err := homedir.Dir()
	if err != nil {
		t.Skip("no home directory")
	}
	t.Setenv("RECITE_TEST_DIR", "/srv/recite")

	tests := []struct {
		in   string
		want string
	}{
		{"", ""},
		{"/tmp/audio", "/tmp/audio"},
		{"~/recite", filepath.Join(home, "recite")},
		{"$RECITE_TEST_DIR/cache", "/srv/recite/cache"},
	}

	for _, tt := range tests {
		if got := ExpandPath(tt.in); got != tt.want {
			t.Errorf("ExpandPath(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		n    int
		want string
	}{
		{"short", 10, "short"},
		{"exactly", 7, "exactly"},
		{"a longer line", 6, "a lon…"},
		{"قُلْ هُوَ", 3, "قُلْ…"},
		{"one", 1, "…"},
		{"x", 0, "x"},
	}

	for _, tt := range tests {
		if got := Truncate(tt.in, tt.n); got != tt.want {
			t.Errorf("Truncate(%q, %d) = %q, want %q", tt.in, tt.n, got, tt.want)
		}
	}
}
