package export

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/fulmenhq/chatporter/internal/chatlog"
	"github.com/fulmenhq/chatporter/internal/render"
	"github.com/fulmenhq/chatporter/pkg/config"
	"github.com/fulmenhq/chatporter/pkg/logger"
)

// ProgressFunc receives step lifecycle updates during a run.
type ProgressFunc func(StepProgress)

// Result is the record of a completed run.
type Result struct {
	RunID     string
	BaseName  string
	DestRoot  string
	Published []string
	Steps     []StepProgress
	Manifest  *Manifest
	Cancelled bool
}

// Controller serializes export runs. At most one run is active per
// controller; a second start is rejected, not queued.
type Controller struct {
	cfg      *config.Config
	progress ProgressFunc

	mu    sync.Mutex
	token string
}

// NewController builds a controller. progress may be nil.
func NewController(cfg *config.Config, progress ProgressFunc) *Controller {
	if cfg == nil {
		def := config.Default()
		cfg = &def
	}
	return &Controller{cfg: cfg, progress: progress}
}

func (c *Controller) acquire() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token != "" {
		return "", ErrRunActive
	}
	c.token = uuid.NewString()
	return c.token, nil
}

func (c *Controller) release(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token == token {
		c.token = ""
	}
}

func (c *Controller) report(p StepProgress) {
	if c.progress != nil {
		c.progress(p)
	}
}

// Run executes the export pipeline for ectx. On an unresolved collision
// it returns an OutputExistsError with ectx.Prepared and ectx.Preflight
// populated, so the caller can decide and retry on the same context
// without re-parsing or re-scanning.
//
// Any failure after the first publish rolls the destination back to its
// pre-run state for everything this run touched.
func (c *Controller) Run(ctx context.Context, ectx *ExportContext) (*Result, error) {
	token, err := c.acquire()
	if err != nil {
		return nil, err
	}
	defer c.release(token)

	if err := ectx.Validate(); err != nil {
		return nil, err
	}
	if ectx.Prepared == nil {
		prepared, err := chatlog.PrepareExport(ectx.SourcePath, ectx.MeOverride, ectx.SwapNames)
		if err != nil {
			return nil, fmt.Errorf("prepare conversation: %w", err)
		}
		ectx.Prepared = prepared
	}

	base, overwrite, err := c.resolveBaseName(ectx)
	if err != nil {
		return nil, err
	}
	logger.Info("export run starting",
		logger.String("run_id", ectx.RunID),
		logger.String("base", base),
		logger.String("dest", ectx.DestRoot))

	staging, err := NewStagingArea(ectx.RunID)
	if err != nil {
		return nil, err
	}
	defer staging.Cleanup()

	sel := ectx.Selection
	if sel.Sidecar && len(ectx.Prepared.Attachments) == 0 {
		logger.Info("conversation has no attachments, skipping sidecar")
		sel.Sidecar = false
	}
	plan := BuildRunPlan(sel)
	publisher := NewPublisher(ectx.DestRoot, ectx.RunID, overwrite)
	result := &Result{RunID: ectx.RunID, BaseName: base, DestRoot: ectx.DestRoot}

	// Announce the whole plan before any step starts
	for _, step := range plan.Steps {
		c.report(StepProgress{Kind: step.Kind, State: StatePending})
	}

	var guard *SidecarGuard
	renderOpts := render.Options{
		BaseName:       base,
		EnablePreviews: ectx.EnablePreviews,
		IOWorkers:      c.cfg.Workers.IO,
	}
	if sel.Sidecar {
		// Attachment references in the mid variant and Markdown point
		// into the published assets dir.
		renderOpts.SidecarDirName = base + suffixAssets
	}
	if ectx.EnablePreviews {
		renderOpts.Previews = render.StaticPreviews{}
	}

	for _, step := range plan.Steps {
		prog := StepProgress{Kind: step.Kind, State: StateRunning, StartedAt: time.Now()}
		c.report(prog)

		if err := ctx.Err(); err != nil {
			return c.abort(result, publisher, prog, err)
		}
		if err := c.runStep(ctx, step, ectx, base, staging, publisher, renderOpts); err != nil {
			return c.abort(result, publisher, prog, err)
		}

		if step.Kind == StepSidecar {
			guard = NewSidecarGuard(
				filepath.Join(ectx.DestRoot, base+suffixAssets),
				ectx.Prepared.SourceDir,
				c.cfg.Guard.Tolerance,
				c.cfg.Guard.SampleLimit)
			if err := guard.Snapshot(); err != nil {
				logger.Warn("sidecar snapshot failed", logger.Err(err))
				guard = nil
			}
		} else if guard != nil {
			guard.Check()
		}

		prog.State = StateDone
		prog.Duration = time.Since(prog.StartedAt)
		result.Steps = append(result.Steps, prog)
		c.report(prog)
		logger.Debug("step complete",
			logger.String("step", string(step.Kind)),
			logger.Duration("took", prog.Duration))
	}

	final := StepProgress{Kind: "finalize", State: StateRunning, StartedAt: time.Now()}
	c.report(final)
	if err := c.finalize(ctx, ectx, base, plan, staging, publisher, result); err != nil {
		return c.abort(result, publisher, final, err)
	}
	if guard != nil {
		// Manifest and checksum writes land next to the assets; check
		// once more before the backups go away.
		guard.Check()
	}
	final.State = StateDone
	final.Duration = time.Since(final.StartedAt)
	result.Steps = append(result.Steps, final)
	c.report(final)

	publisher.Finalize()
	result.Published = publisher.PublishedNames()
	logger.Info("export run complete",
		logger.String("run_id", ectx.RunID),
		logger.Int("artifacts", len(result.Published)))
	return result, nil
}

// resolveBaseName applies the collision policy against a fresh or cached
// preflight and returns the base name to publish under plus whether
// overwriting is authorized.
func (c *Controller) resolveBaseName(ectx *ExportContext) (string, bool, error) {
	base := ectx.EffectiveBaseName()
	if ectx.Preflight == nil || ectx.Preflight.BaseName != base {
		pf, err := RunPreflight(ectx.DestRoot, base)
		if err != nil {
			return "", false, err
		}
		ectx.Preflight = pf
	}
	pf := ectx.Preflight

	if len(pf.SuffixArtifacts) > 0 && ectx.Policy != CollisionKeepBoth {
		return "", false, &SuffixArtifactsError{Names: pf.SuffixArtifacts}
	}
	if !pf.HasCollisions() && len(pf.SuffixArtifacts) == 0 {
		return base, false, nil
	}

	switch ectx.Policy {
	case CollisionReplace:
		return base, true, nil
	case CollisionKeepBoth:
		alt, altPf, err := ResolveKeepBoth(ectx.DestRoot, base)
		if err != nil {
			return "", false, err
		}
		ectx.BaseName = alt
		ectx.Preflight = altPf
		logger.Info("keeping both, publishing under alternate name", logger.String("base", alt))
		return alt, false, nil
	case CollisionFail:
		return "", false, fmt.Errorf("destination occupied: %w", &OutputExistsError{Collisions: pf.Collisions})
	default:
		return "", false, &OutputExistsError{Collisions: pf.Collisions}
	}
}

func (c *Controller) runStep(ctx context.Context, step Step, ectx *ExportContext, base string, staging *StagingArea, publisher *Publisher, opts render.Options) error {
	if step.Kind == StepRawArchive {
		staged, err := StageRawArchive(ctx, ectx.Prepared.SourceDir, staging.Root, base, c.cfg.Workers.IO)
		if err != nil {
			return err
		}
		if err := ValidateArtifact(staged.Kind, staged.Path); err != nil {
			return err
		}
		return publisher.Publish(staged)
	}

	for _, kind := range step.Artifacts {
		if err := ctx.Err(); err != nil {
			return err
		}
		r, err := render.ForKind(kind)
		if err != nil {
			return err
		}
		path, err := r.Render(ctx, ectx.Prepared, opts, staging.Root)
		if err != nil {
			return fmt.Errorf("render %s: %w", kind, err)
		}
		if err := ValidateArtifact(string(kind), path); err != nil {
			return err
		}
		staged := StagedArtifact{Kind: string(kind), Path: path, Name: filepath.Base(path)}
		if err := publisher.Publish(staged); err != nil {
			return err
		}
	}
	return nil
}

// finalize writes the manifest and checksum summary. A run without a
// valid manifest is not complete, so failure here rolls back like any
// step failure.
func (c *Controller) finalize(ctx context.Context, ectx *ExportContext, base string, plan *RunPlan, staging *StagingArea, publisher *Publisher, result *Result) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	manifest := BuildManifest(ectx, base, plan)
	staged, err := StageManifest(manifest, staging.Root)
	if err != nil {
		return err
	}
	if err := publisher.Publish(staged); err != nil {
		return err
	}
	sums, err := StageChecksums(base, ectx.DestRoot, staging.Root, publisher.Records())
	if err != nil {
		return err
	}
	if err := publisher.Publish(sums); err != nil {
		return err
	}
	result.Manifest = manifest
	return nil
}

// abort rolls back everything the run published and finishes the step
// record as failed or cancelled.
func (c *Controller) abort(result *Result, publisher *Publisher, prog StepProgress, cause error) (*Result, error) {
	cancelled := errors.Is(cause, context.Canceled) || errors.Is(cause, context.DeadlineExceeded)
	if cancelled {
		prog.State = StateCancelled
		result.Cancelled = true
		logger.Info("export run cancelled, rolling back", logger.String("step", string(prog.Kind)))
	} else {
		prog.State = StateFailed
		prog.Err = cause.Error()
		logger.Error("export step failed, rolling back",
			logger.String("step", string(prog.Kind)), logger.Err(cause))
	}
	prog.Duration = time.Since(prog.StartedAt)
	result.Steps = append(result.Steps, prog)
	c.report(prog)

	for _, rerr := range publisher.Rollback() {
		logger.Error("rollback incomplete", logger.Err(rerr))
	}
	return result, cause
}
