package render

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fulmenhq/chatporter/internal/chatlog"
	"github.com/fulmenhq/chatporter/pkg/work"
)

// SidecarAssetsRenderer stages the sidecar assets directory: a copy of
// every attachment referenced by the chat, with source modification times
// preserved so the immutability guard has canonical timestamps to verify
// against.
type SidecarAssetsRenderer struct{}

// Kind implements Renderer.
func (*SidecarAssetsRenderer) Kind() Kind { return KindSidecarAssets }

// Render implements Renderer.
func (*SidecarAssetsRenderer) Render(ctx context.Context, prepared *chatlog.Prepared, opts Options, stagingDir string) (string, error) {
	dir := filepath.Join(stagingDir, opts.BaseName+"-sdc")
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return "", fmt.Errorf("create sidecar staging dir: %w", err)
	}

	plan := &work.CopyPlan{SourceRoot: prepared.SourceDir, DestRoot: dir}
	for _, name := range prepared.Attachments {
		src := filepath.Join(prepared.SourceDir, name)
		info, err := os.Stat(src)
		if err != nil {
			// Exports routinely reference attachments the user pruned;
			// missing files are skipped, not fatal.
			continue
		}
		plan.Items = append(plan.Items, work.CopyItem{
			ID:      name,
			Src:     src,
			Dst:     filepath.Join(dir, name),
			RelPath: name,
			Size:    info.Size(),
		})
		plan.TotalBytes += info.Size()
	}
	plan.TotalFiles = len(plan.Items)

	copier := work.NewCopier(work.CopierConfig{IOWorkers: opts.IOWorkers})
	if _, err := copier.Execute(ctx, plan); err != nil {
		return "", fmt.Errorf("stage sidecar assets: %w", err)
	}
	return dir, nil
}

// SidecarIndexRenderer renders the lightweight HTML index listing the
// sidecar's attachment files.
type SidecarIndexRenderer struct{}

// Kind implements Renderer.
func (*SidecarIndexRenderer) Kind() Kind { return KindSidecarHTML }

type sidecarView struct {
	Title           string
	AttachmentCount int
	Attachments     []sidecarEntry
}

type sidecarEntry struct {
	Name string
	Href string
}

// Render implements Renderer.
func (*SidecarIndexRenderer) Render(ctx context.Context, prepared *chatlog.Prepared, opts Options, stagingDir string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	view := sidecarView{
		Title:           "Anhänge: " + prepared.Names.TitleNames(),
		AttachmentCount: len(prepared.Attachments),
	}
	dirName := opts.SidecarDirName
	if dirName == "" {
		dirName = opts.BaseName + "-sdc"
	}
	for _, name := range prepared.Attachments {
		view.Attachments = append(view.Attachments, sidecarEntry{
			Name: name,
			Href: dirName + "/" + name,
		})
	}

	out, err := sidecarIndexTpl.Exec(view)
	if err != nil {
		return "", fmt.Errorf("render sidecar index: %w", err)
	}
	return writeStaged(stagingDir, opts.BaseName+"-sdc.html", out)
}
