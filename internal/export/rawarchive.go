package export

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/fulmenhq/chatporter/pkg/ignore"
	"github.com/fulmenhq/chatporter/pkg/logger"
	"github.com/fulmenhq/chatporter/pkg/safeio"
	"github.com/fulmenhq/chatporter/pkg/work"
)

// StageRawArchive copies the whole source directory into the staging
// area under the run's raw-archive name. VCS litter and user-ignored
// paths are excluded; file timestamps are preserved.
func StageRawArchive(ctx context.Context, sourceDir, stagingDir, base string, ioWorkers int) (StagedArtifact, error) {
	matcher, err := ignore.NewMatcher(sourceDir)
	if err != nil {
		return StagedArtifact{}, fmt.Errorf("build ignore rules: %w", err)
	}
	name := RawArchiveDirName(base)
	target := filepath.Join(stagingDir, name)
	plan, err := work.PlanCopy(sourceDir, target, work.PlannerConfig{Matcher: matcher})
	if err != nil {
		return StagedArtifact{}, fmt.Errorf("plan raw archive: %w", err)
	}
	copier := work.NewCopier(work.CopierConfig{IOWorkers: ioWorkers})
	summary, err := copier.Execute(ctx, plan)
	if err != nil {
		return StagedArtifact{}, fmt.Errorf("copy raw archive: %w", err)
	}
	logger.Info("raw archive staged",
		logger.Int("files", summary.Successful),
		logger.String("bytes", fmt.Sprintf("%d", summary.BytesCopied)))
	return StagedArtifact{Kind: string(StepRawArchive), Path: target, Name: name}, nil
}

// VerifyResult is the outcome of comparing the originals against the
// published raw copy.
type VerifyResult struct {
	Deletable  []string // relative paths whose copy matches by content
	Mismatched []string // content differs between original and copy
	Missing    []string // original has no counterpart in the copy
	Drifted    []string // content matches but mtime is outside tolerance
}

// OK reports whether every original has a byte-identical copy.
func (v *VerifyResult) OK() bool {
	return len(v.Mismatched) == 0 && len(v.Missing) == 0
}

// VerifyRawCopy re-reads both trees and compares file-by-file. Only
// files whose copies match by content become deletion candidates.
// Timestamp drift is reported separately and does not block deletion.
func VerifyRawCopy(ctx context.Context, sourceDir, archiveDir string, cpuWorkers int, tolerance time.Duration) (*VerifyResult, error) {
	matcher, err := ignore.NewMatcher(sourceDir)
	if err != nil {
		return nil, fmt.Errorf("build ignore rules: %w", err)
	}
	plan, err := work.PlanCopy(sourceDir, archiveDir, work.PlannerConfig{Matcher: matcher})
	if err != nil {
		return nil, fmt.Errorf("enumerate originals: %w", err)
	}

	srcSums, err := work.HashTree(ctx, sourceDir, cpuWorkers)
	if err != nil {
		return nil, fmt.Errorf("hash originals: %w", err)
	}
	copySums, err := work.HashTree(ctx, archiveDir, cpuWorkers)
	if err != nil {
		return nil, fmt.Errorf("hash raw copy: %w", err)
	}

	result := &VerifyResult{}
	for _, item := range plan.Items {
		rel := filepath.ToSlash(item.RelPath)
		want, ok := srcSums[rel]
		if !ok {
			result.Missing = append(result.Missing, rel)
			continue
		}
		got, ok := copySums[rel]
		if !ok {
			result.Missing = append(result.Missing, rel)
			continue
		}
		if want != got {
			result.Mismatched = append(result.Mismatched, rel)
			continue
		}
		result.Deletable = append(result.Deletable, rel)

		srcInfo, serr := os.Stat(filepath.Join(sourceDir, filepath.FromSlash(rel)))
		dstInfo, derr := os.Stat(filepath.Join(archiveDir, filepath.FromSlash(rel)))
		if serr == nil && derr == nil {
			if delta := dstInfo.ModTime().Sub(srcInfo.ModTime()); delta > tolerance || delta < -tolerance {
				result.Drifted = append(result.Drifted, rel)
			}
		}
	}
	sort.Strings(result.Deletable)
	sort.Strings(result.Mismatched)
	sort.Strings(result.Missing)
	sort.Strings(result.Drifted)
	return result, nil
}

// ConfirmFunc asks the user to approve deleting the listed originals.
// Returning false aborts without deleting anything.
type ConfirmFunc func(candidates []string) bool

// DeleteOriginals removes verified originals from sourceDir. It refuses
// to act without a fully clean verification and an explicit
// confirmation, and each file is compared against its archived copy
// once more at delete time so an original touched after verification
// survives. Returns the relative paths actually deleted.
func DeleteOriginals(sourceDir, archiveDir string, verified *VerifyResult, confirm ConfirmFunc) ([]string, error) {
	if verified == nil {
		return nil, errors.New("delete-originals requires a verification result")
	}
	if !verified.OK() {
		return nil, fmt.Errorf("raw copy verification not clean: %d mismatched, %d missing",
			len(verified.Mismatched), len(verified.Missing))
	}
	if len(verified.Deletable) == 0 {
		return nil, nil
	}
	if confirm == nil || !confirm(verified.Deletable) {
		logger.Info("delete-originals declined, sources untouched")
		return nil, nil
	}

	var deleted []string
	for _, rel := range verified.Deletable {
		path := filepath.Join(sourceDir, filepath.FromSlash(rel))
		same, err := safeio.SameContent(path, filepath.Join(archiveDir, filepath.FromSlash(rel)))
		if err != nil {
			return deleted, fmt.Errorf("recheck original %s: %w", rel, err)
		}
		if !same {
			logger.Warn("original changed since verification, keeping it",
				logger.String("path", rel))
			continue
		}
		if err := os.Remove(path); err != nil {
			return deleted, fmt.Errorf("delete original %s: %w", rel, err)
		}
		deleted = append(deleted, rel)
	}
	logger.Info("originals deleted after verification", logger.Int("count", len(deleted)))
	return deleted, nil
}
