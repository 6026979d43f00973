package archive

import (
	"errors"
	"path/filepath"
	"testing"
)

func TestResolvePath(t *testing.T) {
	root := t.TempDir()

	tests := []struct {
		name     string
		userPath string
		want     string // relative to root; "" means root itself
		escapes  bool
	}{
		{"empty path is the root", "", "", false},
		{"dot is the root", ".", "", false},
		{"simple file", "a.jsonl", "a.jsonl", false},
		{"nested path", "logs/2024/a.jsonl", "logs/2024/a.jsonl", false},
		{"internal dotdot that stays inside", "logs/../a.jsonl", "a.jsonl", false},
		{"parent escape", "..", "", true},
		{"classic traversal", "../../etc/passwd", "", true},
		{"leading traversal after segment", "logs/../../x", "", true},
		{"nonexistent path resolves fine", "never/created.jsonl", "never/created.jsonl", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ResolvePath(root, tt.userPath)
			if tt.escapes {
				var secErr *SecurityError
				if !errors.As(err, &secErr) {
					t.Fatalf("got (%q, %v), want SecurityError",
						got, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			want := filepath.Join(root, filepath.FromSlash(tt.want))
			if got != want {
				t.Errorf("got %q, want %q", got, want)
			}
		})
	}
}

func TestResolvePathSiblingPrefix(t *testing.T) {
	// A sibling directory sharing the root's name prefix must not
	// pass a naive substring check.
	root := filepath.Join(t.TempDir(), "archive")
	if _, err := ResolvePath(root, "../archive-evil/x"); err == nil {
		t.Fatal("expected SecurityError for sibling prefix escape")
	}
}

func TestHasDotDot(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"a/b.jsonl", false},
		{"..", true},
		{"a/../b", true},
		{`a\..\b`, true},
		{"a..b/c.jsonl", false}, // ".." inside a segment is fine
		{"...", false},
	}
	for _, tt := range tests {
		if got := hasDotDot(tt.name); got != tt.want {
			t.Errorf("hasDotDot(%q) = %v, want %v",
				tt.name, got, tt.want)
		}
	}
}
