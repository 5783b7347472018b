// Package work plans and executes the bounded-concurrency file work that
// runs inside pipeline steps: tree copies (IO-bound) and content digests
// (CPU-bound). Cross-step ordering is owned by the caller; this package
// only parallelizes within one step.
package work

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"

	"github.com/fulmenhq/chatporter/pkg/ignore"
)

// CopyItem represents a single file to be copied
type CopyItem struct {
	ID      string `json:"id"`
	Src     string `json:"src"`
	Dst     string `json:"dst"`
	RelPath string `json:"rel_path"`
	Size    int64  `json:"size"`
}

// CopyPlan represents the complete copy work for one tree
type CopyPlan struct {
	SourceRoot string     `json:"source_root"`
	DestRoot   string     `json:"dest_root"`
	Dirs       []string   `json:"dirs"`
	Items      []CopyItem `json:"items"`
	TotalFiles int        `json:"total_files"`
	TotalBytes int64      `json:"total_bytes"`
	Skipped    []string   `json:"skipped,omitempty"`
}

// PlannerConfig configures copy planning
type PlannerConfig struct {
	Matcher *ignore.Matcher // nil disables ignore filtering
	Verbose bool
}

// PlanCopy walks srcRoot and produces a deterministic copy plan targeting
// dstRoot. Ignored files and directories are recorded in Skipped rather
// than silently dropped.
func PlanCopy(srcRoot, dstRoot string, cfg PlannerConfig) (*CopyPlan, error) {
	srcAbs, err := filepath.Abs(srcRoot)
	if err != nil {
		return nil, fmt.Errorf("resolve source root: %w", err)
	}
	info, err := os.Stat(srcAbs)
	if err != nil {
		return nil, fmt.Errorf("stat source root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("source root %s is not a directory", srcAbs)
	}

	plan := &CopyPlan{
		SourceRoot: srcAbs,
		DestRoot:   dstRoot,
	}

	err = filepath.WalkDir(srcAbs, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		rel, err := filepath.Rel(srcAbs, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}

		if d.IsDir() {
			if cfg.Matcher != nil && cfg.Matcher.IsIgnoredDir(path) {
				plan.Skipped = append(plan.Skipped, rel+string(filepath.Separator))
				return filepath.SkipDir
			}
			plan.Dirs = append(plan.Dirs, rel)
			return nil
		}
		if !d.Type().IsRegular() {
			plan.Skipped = append(plan.Skipped, rel)
			return nil
		}
		if cfg.Matcher != nil && cfg.Matcher.IsIgnored(path) {
			plan.Skipped = append(plan.Skipped, rel)
			return nil
		}

		fi, err := d.Info()
		if err != nil {
			return err
		}
		plan.Items = append(plan.Items, CopyItem{
			ID:      rel,
			Src:     path,
			Dst:     filepath.Join(dstRoot, rel),
			RelPath: rel,
			Size:    fi.Size(),
		})
		plan.TotalBytes += fi.Size()
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", srcAbs, err)
	}

	// WalkDir order is already lexical, but keep the guarantee explicit:
	// downstream manifests and tests rely on deterministic plans.
	sort.Strings(plan.Dirs)
	sort.Slice(plan.Items, func(i, j int) bool { return plan.Items[i].RelPath < plan.Items[j].RelPath })
	plan.TotalFiles = len(plan.Items)

	return plan, nil
}
