package export

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/fulmenhq/chatporter/pkg/logger"
	"github.com/fulmenhq/chatporter/pkg/safeio"
)

// PublishRecord is the ledger entry for one destination the run touched.
type PublishRecord struct {
	Destination string
	BackupPath  string // non-empty when an existing path was displaced
}

// Publisher moves staged artifacts into the destination, enforcing
// at-most-once publish per path and keeping enough state to restore the
// pre-run destination on rollback.
//
// Replacement is backup-then-swap: the existing path is renamed to a
// hidden backup in the same directory, the staged artifact moves in, and
// the backup survives until Finalize so rollback can restore it.
type Publisher struct {
	destRoot  string
	runID     string
	overwrite bool

	attempted map[string]bool
	records   []PublishRecord
}

// NewPublisher returns a publisher rooted at destRoot. overwrite must be
// true for any publish that displaces an existing path.
func NewPublisher(destRoot, runID string, overwrite bool) *Publisher {
	return &Publisher{
		destRoot:  destRoot,
		runID:     runID,
		overwrite: overwrite,
		attempted: make(map[string]bool),
	}
}

// Publish moves a staged artifact to destRoot under its final name.
// Duplicate destinations within one run are rejected and the staged copy
// discarded. An occupied destination without overwrite authorization
// returns OutputExistsError without touching anything.
func (p *Publisher) Publish(a StagedArtifact) error {
	dest := filepath.Join(p.destRoot, a.Name)
	if p.attempted[dest] {
		_ = os.RemoveAll(a.Path)
		logger.Error("duplicate publish rejected", logger.String("destination", dest))
		return &PublishCollisionError{Destination: dest}
	}
	if err := os.MkdirAll(p.destRoot, 0o750); err != nil {
		return fmt.Errorf("create destination root: %w", err)
	}

	rec := PublishRecord{Destination: dest}
	if _, err := os.Lstat(dest); err == nil {
		if !p.overwrite {
			return &OutputExistsError{Collisions: []Collision{{Name: a.Name}}}
		}
		backup := filepath.Join(p.destRoot, fmt.Sprintf(".%s.bak-%s", a.Name, p.runID))
		logger.Trace("backing up occupied destination",
			logger.String("destination", dest), logger.String("backup", backup))
		if err := os.Rename(dest, backup); err != nil {
			return fmt.Errorf("back up existing %s: %w", a.Name, err)
		}
		rec.BackupPath = backup
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("inspect destination %s: %w", dest, err)
	}

	logger.Trace("moving staged artifact",
		logger.String("staged", a.Path), logger.String("destination", dest))
	if err := p.move(a.Path, dest); err != nil {
		if rec.BackupPath != "" {
			if rerr := os.Rename(rec.BackupPath, dest); rerr != nil {
				logger.Error("failed to restore backup after aborted swap",
					logger.String("backup", rec.BackupPath), logger.Err(rerr))
			}
		}
		return fmt.Errorf("publish %s: %w", a.Name, err)
	}

	p.attempted[dest] = true
	p.records = append(p.records, rec)
	logger.Debug("published artifact",
		logger.String("kind", a.Kind),
		logger.String("destination", dest),
		logger.Bool("replaced", rec.BackupPath != ""))
	return nil
}

func (p *Publisher) move(src, dest string) error {
	info, err := os.Stat(src)
	if err != nil {
		return err
	}
	if info.IsDir() {
		// Rename works across the common case; fall back to a tree copy
		// when staging and destination sit on different devices.
		if err := os.Rename(src, dest); err == nil {
			return nil
		}
		if err := safeio.CopyTree(src, dest); err != nil {
			_ = os.RemoveAll(dest)
			return err
		}
		return os.RemoveAll(src)
	}
	return safeio.MoveFile(src, dest)
}

// Records returns the publish ledger in publish order.
func (p *Publisher) Records() []PublishRecord {
	return p.records
}

// PublishedNames returns the destination basenames in publish order.
func (p *Publisher) PublishedNames() []string {
	names := make([]string, len(p.records))
	for i, r := range p.records {
		names[i] = filepath.Base(r.Destination)
	}
	return names
}

// Rollback restores the destination to its pre-run state: published
// paths are removed in reverse publish order and displaced originals
// restored from their backups. Errors are collected, not short-circuited,
// so as much as possible gets restored.
func (p *Publisher) Rollback() []error {
	var errs []error
	for i := len(p.records) - 1; i >= 0; i-- {
		rec := p.records[i]
		logger.Trace("rolling back published artifact",
			logger.String("destination", rec.Destination),
			logger.Bool("restore_backup", rec.BackupPath != ""))
		if err := os.RemoveAll(rec.Destination); err != nil {
			errs = append(errs, fmt.Errorf("remove %s: %w", rec.Destination, err))
			continue
		}
		if rec.BackupPath != "" {
			if err := os.Rename(rec.BackupPath, rec.Destination); err != nil {
				errs = append(errs, fmt.Errorf("restore %s: %w", rec.Destination, err))
			}
		}
	}
	p.records = nil
	return errs
}

// Finalize deletes the backups of displaced paths. Called only after the
// whole run succeeded; from here on rollback is no longer possible.
func (p *Publisher) Finalize() {
	for _, rec := range p.records {
		if rec.BackupPath == "" {
			continue
		}
		if err := os.RemoveAll(rec.BackupPath); err != nil {
			logger.Warn("could not remove backup",
				logger.String("backup", rec.BackupPath), logger.Err(err))
		}
	}
}
