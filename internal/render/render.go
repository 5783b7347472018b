// Package render produces export artifacts (HTML variants, sidecar index,
// Markdown) into a caller-supplied staging directory. Renderers know
// nothing about the destination, collisions, or other artifacts; the
// pipeline owns all of that.
package render

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fulmenhq/chatporter/internal/chatlog"
)

// Kind tags the logical artifact type of a staged path.
type Kind string

const (
	KindHTMLMax       Kind = "html-max"
	KindHTMLMid       Kind = "html-mid"
	KindHTMLMin       Kind = "html-min"
	KindSidecarHTML   Kind = "sidecar-html"
	KindSidecarAssets Kind = "sidecar-assets-dir"
	KindMarkdown      Kind = "markdown"
)

// Options carries per-run rendering parameters.
type Options struct {
	BaseName       string
	SidecarDirName string // relative assets dir name the mid variant links into
	EnablePreviews bool
	Previews       PreviewFetcher
	IOWorkers      int
}

// Renderer produces exactly one artifact into stagingDir and returns the
// staged path. An empty artifact is a renderer bug; the pipeline treats it
// as fatal rather than retrying.
type Renderer interface {
	Kind() Kind
	Render(ctx context.Context, prepared *chatlog.Prepared, opts Options, stagingDir string) (string, error)
}

// ForKind returns the renderer for an artifact kind.
func ForKind(kind Kind) (Renderer, error) {
	switch kind {
	case KindHTMLMax:
		return &HTMLRenderer{variant: variantMax}, nil
	case KindHTMLMid:
		return &HTMLRenderer{variant: variantMid}, nil
	case KindHTMLMin:
		return &HTMLRenderer{variant: variantMin}, nil
	case KindSidecarHTML:
		return &SidecarIndexRenderer{}, nil
	case KindSidecarAssets:
		return &SidecarAssetsRenderer{}, nil
	case KindMarkdown:
		return &MarkdownRenderer{}, nil
	default:
		return nil, fmt.Errorf("no renderer for artifact kind %q", kind)
	}
}

func writeStaged(stagingDir, name, content string) (string, error) {
	path := filepath.Join(stagingDir, name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil { // #nosec G306 -- published artifacts are world-readable
		return "", fmt.Errorf("write staged artifact %s: %w", name, err)
	}
	return path, nil
}
