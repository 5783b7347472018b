package render

import (
	"context"
	"fmt"

	"github.com/fulmenhq/chatporter/internal/chatlog"
)

// HTMLRenderer renders one of the three HTML chat variants.
type HTMLRenderer struct {
	variant htmlVariant
}

// Kind implements Renderer.
func (r *HTMLRenderer) Kind() Kind {
	switch r.variant {
	case variantMax:
		return KindHTMLMax
	case variantMid:
		return KindHTMLMid
	default:
		return KindHTMLMin
	}
}

func (r *HTMLRenderer) suffix() string {
	switch r.variant {
	case variantMax:
		return "-max.html"
	case variantMid:
		return "-mid.html"
	default:
		return "-min.html"
	}
}

// Render implements Renderer.
func (r *HTMLRenderer) Render(ctx context.Context, prepared *chatlog.Prepared, opts Options, stagingDir string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	page := buildPageView(prepared, opts, r.variant)
	out, err := chatPageTpl.Exec(page)
	if err != nil {
		return "", fmt.Errorf("render %s: %w", r.Kind(), err)
	}
	return writeStaged(stagingDir, opts.BaseName+r.suffix(), out)
}
