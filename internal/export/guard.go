package export

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/fulmenhq/chatporter/pkg/logger"
)

// sampleEntry is one observed path in a sidecar snapshot.
type sampleEntry struct {
	RelPath string
	ModTime time.Time
}

// SidecarGuard watches the published sidecar assets directory between
// steps. Later steps only read from the sidecar; any timestamp drift is
// unexpected, but it never fails the run because the artifacts stay
// correct by content. Drift is warned about, then repaired best-effort
// from the canonical source attachments.
type SidecarGuard struct {
	assetsDir   string
	sourceDir   string
	tolerance   time.Duration
	sampleLimit int

	snapshot []sampleEntry
}

// NewSidecarGuard builds a guard for a published assets directory.
// sourceDir is where the canonical attachment files live.
func NewSidecarGuard(assetsDir, sourceDir string, tolerance time.Duration, sampleLimit int) *SidecarGuard {
	if tolerance <= 0 {
		tolerance = 2 * time.Second
	}
	if sampleLimit <= 0 {
		sampleLimit = 64
	}
	return &SidecarGuard{
		assetsDir:   assetsDir,
		sourceDir:   sourceDir,
		tolerance:   tolerance,
		sampleLimit: sampleLimit,
	}
}

// Snapshot records timestamps for a bounded sample of sidecar entries:
// every first-level subdirectory plus up to the sample limit of files in
// walk order.
func (g *SidecarGuard) Snapshot() error {
	sample, err := g.collect()
	if err != nil {
		return err
	}
	g.snapshot = sample
	return nil
}

func (g *SidecarGuard) collect() ([]sampleEntry, error) {
	var sample []sampleEntry
	files := 0
	err := filepath.WalkDir(g.assetsDir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if path == g.assetsDir {
			return nil
		}
		rel, relErr := filepath.Rel(g.assetsDir, path)
		if relErr != nil {
			return relErr
		}
		if d.IsDir() {
			if filepath.Dir(rel) != "." {
				return filepath.SkipDir
			}
		} else {
			if files >= g.sampleLimit {
				return nil
			}
			files++
		}
		info, infoErr := d.Info()
		if infoErr != nil {
			return infoErr
		}
		sample = append(sample, sampleEntry{RelPath: rel, ModTime: info.ModTime()})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("sample sidecar %s: %w", g.assetsDir, err)
	}
	sort.Slice(sample, func(i, j int) bool { return sample[i].RelPath < sample[j].RelPath })
	return sample, nil
}

// Drift is one sampled entry whose timestamp moved beyond tolerance.
type Drift struct {
	RelPath  string
	Expected time.Time
	Observed time.Time
}

// Check re-samples the sidecar and compares against the snapshot. On
// drift it warns, restores timestamps from the source attachments where
// possible, and re-snapshots so the same drift is not reported twice.
// Check never returns a run-fatal condition.
func (g *SidecarGuard) Check() []Drift {
	if g.snapshot == nil {
		return nil
	}
	current, err := g.collect()
	if err != nil {
		logger.Warn("sidecar re-sample failed", logger.Err(err))
		return nil
	}
	byPath := make(map[string]time.Time, len(current))
	for _, e := range current {
		byPath[e.RelPath] = e.ModTime
	}

	var drifts []Drift
	for _, want := range g.snapshot {
		got, ok := byPath[want.RelPath]
		if !ok {
			drifts = append(drifts, Drift{RelPath: want.RelPath, Expected: want.ModTime})
			continue
		}
		if delta := got.Sub(want.ModTime); delta > g.tolerance || delta < -g.tolerance {
			drifts = append(drifts, Drift{RelPath: want.RelPath, Expected: want.ModTime, Observed: got})
		}
	}
	if len(drifts) == 0 {
		return nil
	}

	for _, d := range drifts {
		logger.Warn("sidecar timestamp drift detected",
			logger.String("path", d.RelPath),
			logger.String("expected", d.Expected.Format(time.RFC3339)),
			logger.String("observed", d.Observed.Format(time.RFC3339)))
	}
	g.renormalize(drifts)
	if err := g.Snapshot(); err != nil {
		logger.Warn("sidecar re-snapshot failed", logger.Err(err))
	}
	return drifts
}

// renormalize restores drifted timestamps from the same-named source
// attachment when one exists. Best effort only.
func (g *SidecarGuard) renormalize(drifts []Drift) {
	for _, d := range drifts {
		src := filepath.Join(g.sourceDir, d.RelPath)
		info, err := os.Stat(src)
		if err != nil {
			continue
		}
		target := filepath.Join(g.assetsDir, d.RelPath)
		if err := os.Chtimes(target, time.Now(), info.ModTime()); err != nil {
			logger.Warn("sidecar timestamp repair failed",
				logger.String("path", d.RelPath), logger.Err(err))
		}
	}
}
