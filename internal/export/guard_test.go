package export

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func buildSidecar(t *testing.T) (assets, source string) {
	t.Helper()
	assets = filepath.Join(t.TempDir(), "CHAT-sdc")
	source = t.TempDir()
	if err := os.MkdirAll(assets, 0o755); err != nil {
		t.Fatal(err)
	}
	mtime := time.Now().Add(-48 * time.Hour)
	for _, dir := range []string{assets, source} {
		path := filepath.Join(dir, "IMG-1.jpg")
		if err := os.WriteFile(path, []byte("jpg"), 0o644); err != nil {
			t.Fatal(err)
		}
		if err := os.Chtimes(path, mtime, mtime); err != nil {
			t.Fatal(err)
		}
	}
	return assets, source
}

func TestGuardNoDrift(t *testing.T) {
	assets, source := buildSidecar(t)
	g := NewSidecarGuard(assets, source, 2*time.Second, 64)
	if err := g.Snapshot(); err != nil {
		t.Fatal(err)
	}
	if drifts := g.Check(); drifts != nil {
		t.Fatalf("unexpected drift: %v", drifts)
	}
}

func TestGuardDetectsAndRepairsDrift(t *testing.T) {
	assets, source := buildSidecar(t)
	g := NewSidecarGuard(assets, source, 2*time.Second, 64)
	if err := g.Snapshot(); err != nil {
		t.Fatal(err)
	}

	target := filepath.Join(assets, "IMG-1.jpg")
	if err := os.Chtimes(target, time.Now(), time.Now()); err != nil {
		t.Fatal(err)
	}

	drifts := g.Check()
	if len(drifts) != 1 || drifts[0].RelPath != "IMG-1.jpg" {
		t.Fatalf("expected one drift for IMG-1.jpg, got %v", drifts)
	}

	// Repair restored the source timestamp.
	srcInfo, err := os.Stat(filepath.Join(source, "IMG-1.jpg"))
	if err != nil {
		t.Fatal(err)
	}
	gotInfo, err := os.Stat(target)
	if err != nil {
		t.Fatal(err)
	}
	if delta := gotInfo.ModTime().Sub(srcInfo.ModTime()); delta > 2*time.Second || delta < -2*time.Second {
		t.Fatalf("timestamp not repaired, delta %v", delta)
	}

	// Re-snapshot happened, so the repaired state is quiet.
	if drifts := g.Check(); drifts != nil {
		t.Fatalf("drift reported twice: %v", drifts)
	}
}

func TestGuardWithinTolerance(t *testing.T) {
	assets, source := buildSidecar(t)
	g := NewSidecarGuard(assets, source, 10*time.Second, 64)
	if err := g.Snapshot(); err != nil {
		t.Fatal(err)
	}

	target := filepath.Join(assets, "IMG-1.jpg")
	info, err := os.Stat(target)
	if err != nil {
		t.Fatal(err)
	}
	nudged := info.ModTime().Add(3 * time.Second)
	if err := os.Chtimes(target, nudged, nudged); err != nil {
		t.Fatal(err)
	}
	if drifts := g.Check(); drifts != nil {
		t.Fatalf("drift inside tolerance reported: %v", drifts)
	}
}

func TestGuardSampleLimit(t *testing.T) {
	assets := filepath.Join(t.TempDir(), "CHAT-sdc")
	if err := os.MkdirAll(assets, 0o755); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 10; i++ {
		name := filepath.Join(assets, string(rune('a'+i))+".jpg")
		if err := os.WriteFile(name, []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	g := NewSidecarGuard(assets, t.TempDir(), time.Second, 3)
	if err := g.Snapshot(); err != nil {
		t.Fatal(err)
	}
	if len(g.snapshot) != 3 {
		t.Fatalf("sample limit ignored: %d entries", len(g.snapshot))
	}
}
