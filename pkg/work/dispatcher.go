package work

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/fulmenhq/chatporter/pkg/logger"
	"github.com/fulmenhq/chatporter/pkg/safeio"
)

// CopyResult represents the result of copying one item
type CopyResult struct {
	ItemID   string        `json:"item_id"`
	Success  bool          `json:"success"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration"`
}

// CopySummary provides a summary of a copy run
type CopySummary struct {
	TotalItems    int           `json:"total_items"`
	Successful    int           `json:"successful"`
	Failed        int           `json:"failed"`
	BytesCopied   int64         `json:"bytes_copied"`
	TotalDuration time.Duration `json:"total_duration"`
	Workers       int           `json:"workers"`
}

// CopierConfig configures the copier
type CopierConfig struct {
	IOWorkers        int
	ProgressCallback func(result CopyResult)
}

// Copier executes copy plans with bounded IO concurrency
type Copier struct {
	config CopierConfig
}

// NewCopier creates a copier. A non-positive IO cap defaults to twice the
// CPU count, the usual sweet spot for disk-bound fan-out.
func NewCopier(config CopierConfig) *Copier {
	if config.IOWorkers <= 0 {
		config.IOWorkers = runtime.NumCPU() * 2
	}
	return &Copier{config: config}
}

// Execute copies every item in the plan, creating the directory skeleton
// first. The context is honored per item: cancellation stops new copies and
// returns context.Canceled once in-flight copies drain.
func (c *Copier) Execute(ctx context.Context, plan *CopyPlan) (*CopySummary, error) {
	start := time.Now()
	logger.Debug("Starting copy execution",
		logger.Int("items", len(plan.Items)),
		logger.Int("workers", c.config.IOWorkers))

	for _, dir := range plan.Dirs {
		if err := os.MkdirAll(filepath.Join(plan.DestRoot, dir), 0o750); err != nil {
			return nil, fmt.Errorf("create directory %s: %w", dir, err)
		}
	}

	var mu sync.Mutex
	summary := &CopySummary{
		TotalItems: len(plan.Items),
		Workers:    c.config.IOWorkers,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.config.IOWorkers)

	for _, item := range plan.Items {
		item := item
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			itemStart := time.Now()
			err := safeio.CopyFilePreserveTimes(item.Src, item.Dst)
			result := CopyResult{
				ItemID:   item.ID,
				Success:  err == nil,
				Duration: time.Since(itemStart),
			}
			if err != nil {
				result.Error = err.Error()
			}

			mu.Lock()
			if err == nil {
				summary.Successful++
				summary.BytesCopied += item.Size
			} else {
				summary.Failed++
			}
			mu.Unlock()

			if c.config.ProgressCallback != nil {
				c.config.ProgressCallback(result)
			}
			return err
		})
	}

	err := g.Wait()
	summary.TotalDuration = time.Since(start)

	if err != nil {
		return summary, err
	}
	logger.Debug("Copy execution completed",
		logger.Int("successful", summary.Successful),
		logger.String("duration", summary.TotalDuration.String()))
	return summary, nil
}

// HashTree digests every regular file under root with bounded CPU
// concurrency and returns a map of slash-separated relative paths to
// hex SHA-256 sums.
func HashTree(ctx context.Context, root string, cpuWorkers int) (map[string]string, error) {
	if cpuWorkers <= 0 {
		cpuWorkers = runtime.NumCPU()
	}

	plan, err := PlanCopy(root, root, PlannerConfig{})
	if err != nil {
		return nil, err
	}

	var mu sync.Mutex
	sums := make(map[string]string, len(plan.Items))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(cpuWorkers)

	for _, item := range plan.Items {
		item := item
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			sum, err := safeio.FileSHA256(item.Src)
			if err != nil {
				return fmt.Errorf("hash %s: %w", item.RelPath, err)
			}
			mu.Lock()
			sums[filepath.ToSlash(item.RelPath)] = sum
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return sums, nil
}
