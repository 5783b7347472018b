package render

import (
	"context"
	"strconv"
	"strings"

	"github.com/fulmenhq/chatporter/internal/chatlog"
)

// MarkdownRenderer renders the Markdown summary. Markdown is built
// directly rather than through the template engine: handlebars escaping is
// HTML-centric and would entity-encode message text.
type MarkdownRenderer struct{}

// Kind implements Renderer.
func (*MarkdownRenderer) Kind() Kind { return KindMarkdown }

// Render implements Renderer.
func (*MarkdownRenderer) Render(ctx context.Context, prepared *chatlog.Prepared, opts Options, stagingDir string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString("# WhatsApp Chat: " + prepared.Names.TitleNames() + "\n\n")
	b.WriteString("- Quelle: " + prepared.SourcePath + "\n")
	b.WriteString("- Zeitraum: " + fmtDateFull(prepared.FirstDate) + " bis " + fmtDateFull(prepared.LastDate) + "\n")
	b.WriteString("- Nachrichten: " + strconv.Itoa(len(prepared.Messages)) + "\n\n")

	var currentDay string
	for _, m := range prepared.Messages {
		label := dayLabel(m.Timestamp)
		if label != currentDay {
			b.WriteString("## " + label + "\n\n")
			currentDay = label
		}

		author := chatlog.DisplayName(m.Author)
		text := chatlog.StripAttachmentMarkers(m.Text)

		b.WriteString("**" + author + "**  \n")
		b.WriteString("*" + fmtTime(m.Timestamp) + " / " + fmtDateFull(m.Timestamp) + "*  \n")
		if strings.TrimSpace(text) != "" {
			b.WriteString(strings.TrimSpace(text) + "\n")
		}
		for _, u := range chatlog.ExtractURLs(text) {
			b.WriteString("- " + u + "\n")
		}
		// Attachments stay as relative file references; the sidecar (when
		// selected) holds the actual files next to this document.
		for _, name := range chatlog.FindAttachments(m.Text) {
			ref := name
			if opts.SidecarDirName != "" {
				ref = opts.SidecarDirName + "/" + name
			}
			b.WriteString("![Anhang](" + ref + ")\n")
		}
		b.WriteString("\n")
	}

	return writeStaged(stagingDir, opts.BaseName+".md", b.String())
}
