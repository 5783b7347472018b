package buildinfo

import (
	"runtime"
	"runtime/debug"
	"strings"
	"testing"
)

func TestBinaryVersion(t *testing.T) {
	if BinaryVersion == "" {
		t.Error("BinaryVersion should not be empty")
	}

	if BinaryVersion != "dev" {
		t.Errorf("Expected BinaryVersion to be 'dev', got '%s'", BinaryVersion)
	}
}

func TestModuleVersion(t *testing.T) {
	expected := ""
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		expected = info.Main.Version
	}

	if actual := ModuleVersion(); actual != expected {
		t.Errorf("ModuleVersion() = '%s', expected '%s'", actual, expected)
	}
}

func TestRevision(t *testing.T) {
	// Empty outside a VCS checkout, otherwise a short hex revision
	rev := Revision()
	if len(rev) > 12 {
		t.Errorf("Revision() should be shortened to 12 chars, got %q", rev)
	}
}

func TestGoVersion(t *testing.T) {
	v := GoVersion()
	if v != runtime.Version() {
		t.Errorf("GoVersion() = %q, expected %q", v, runtime.Version())
	}
	if !strings.HasPrefix(v, "go") {
		t.Errorf("GoVersion() looks wrong: %q", v)
	}
}

func TestPlatform(t *testing.T) {
	want := runtime.GOOS + "/" + runtime.GOARCH
	if got := Platform(); got != want {
		t.Errorf("Platform() = %q, expected %q", got, want)
	}
}
