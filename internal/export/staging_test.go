package export

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestStagingAreaLifecycle(t *testing.T) {
	s, err := NewStagingArea("test-run")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(s.Root); err != nil {
		t.Fatalf("staging root missing: %v", err)
	}
	s.Cleanup()
	if _, err := os.Stat(s.Root); !os.IsNotExist(err) {
		t.Fatal("staging root survived cleanup")
	}
	s.Cleanup() // second call is a no-op
}

func TestValidateArtifact(t *testing.T) {
	dir := t.TempDir()

	full := filepath.Join(dir, "full.html")
	if err := os.WriteFile(full, []byte("<html></html>"), 0o644); err != nil {
		t.Fatal(err)
	}
	empty := filepath.Join(dir, "empty.html")
	if err := os.WriteFile(empty, nil, 0o644); err != nil {
		t.Fatal(err)
	}
	emptyDir := filepath.Join(dir, "empty-dir")
	hiddenOnly := filepath.Join(dir, "hidden-only")
	goodDir := filepath.Join(dir, "good-dir", "nested")
	for _, d := range []string{emptyDir, hiddenOnly, goodDir} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.WriteFile(filepath.Join(hiddenOnly, ".DS_Store"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(goodDir, "a.jpg"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name   string
		path   string
		wantOK bool
	}{
		{"non-empty file", full, true},
		{"empty file", empty, false},
		{"empty directory", emptyDir, false},
		{"directory with only hidden files", hiddenOnly, false},
		{"directory with nested file", filepath.Join(dir, "good-dir"), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateArtifact("probe", tt.path)
			if tt.wantOK && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if !tt.wantOK {
				var ea *EmptyArtifactError
				if !errors.As(err, &ea) {
					t.Fatalf("expected EmptyArtifactError, got %v", err)
				}
			}
		})
	}
}

func TestValidateArtifactMissingPath(t *testing.T) {
	err := ValidateArtifact("probe", filepath.Join(t.TempDir(), "nope"))
	if err == nil {
		t.Fatal("expected an error for a missing artifact")
	}
	var ea *EmptyArtifactError
	if errors.As(err, &ea) {
		t.Fatal("missing path should not classify as empty artifact")
	}
}
