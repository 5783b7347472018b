package export

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// StagedArtifact is a fully rendered artifact sitting in the staging
// area, ready to publish.
type StagedArtifact struct {
	Kind string
	Path string
	Name string // final basename at the destination
}

// StagingArea is the per-run scratch directory. Every artifact is built
// here and only moves to the destination through the publisher.
type StagingArea struct {
	Root string

	once sync.Once
}

// NewStagingArea creates a uniquely named staging directory under the
// system temp dir.
func NewStagingArea(runID string) (*StagingArea, error) {
	if runID == "" {
		runID = uuid.NewString()
	}
	root, err := os.MkdirTemp("", "chatporter-run-"+runID+"-")
	if err != nil {
		return nil, fmt.Errorf("create staging area: %w", err)
	}
	return &StagingArea{Root: root}, nil
}

// Cleanup removes the staging directory. Safe to call more than once;
// cleanup failures are non-fatal because the area lives under the
// system temp dir.
func (s *StagingArea) Cleanup() {
	s.once.Do(func() {
		_ = os.RemoveAll(s.Root)
	})
}

// ValidateArtifact rejects empty staged artifacts: a file must be
// non-empty, a directory must contain at least one non-hidden file
// somewhere beneath it.
func ValidateArtifact(kind, path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("stat staged artifact %s: %w", kind, err)
	}
	if !info.IsDir() {
		if info.Size() == 0 {
			return &EmptyArtifactError{Kind: kind, Path: path}
		}
		return nil
	}
	found := false
	err = filepath.WalkDir(path, func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			return nil
		}
		if strings.HasPrefix(d.Name(), ".") {
			return nil
		}
		found = true
		return filepath.SkipAll
	})
	if err != nil {
		return fmt.Errorf("scan staged artifact %s: %w", kind, err)
	}
	if !found {
		return &EmptyArtifactError{Kind: kind, Path: path}
	}
	return nil
}
