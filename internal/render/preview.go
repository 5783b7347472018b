package render

import "github.com/fulmenhq/chatporter/internal/chatlog"

// Preview is the link-preview card rendered under a message bubble.
type Preview struct {
	URL         string
	Title       string
	Description string
	ImageSrc    string
}

// PreviewFetcher resolves a URL to a preview card, or nil when no preview
// is available. Implementations that reach the network live outside this
// package; the pipeline itself never fetches anything.
type PreviewFetcher interface {
	Fetch(url string) *Preview
}

// StaticPreviews is the offline fetcher: it recognizes YouTube links and
// builds a thumbnail-referencing card without any network access.
type StaticPreviews struct{}

// Fetch implements PreviewFetcher.
func (StaticPreviews) Fetch(url string) *Preview {
	if vid := chatlog.YouTubeVideoID(url); vid != "" {
		return &Preview{
			URL:      url,
			Title:    "YouTube",
			ImageSrc: chatlog.YouTubeThumbnailURL(vid),
		}
	}
	return nil
}

// NoPreviews disables preview cards entirely.
type NoPreviews struct{}

// Fetch implements PreviewFetcher.
func (NoPreviews) Fetch(string) *Preview { return nil }
