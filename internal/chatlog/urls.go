package chatlog

import (
	"net/url"
	"regexp"
	"strings"
)

var urlRe = regexp.MustCompile(`(?i)(https?://[^\s<>\]]+)`)

// ExtractURLs returns the URLs found in text, trimmed of trailing
// punctuation, de-duplicated with stable ordering.
func ExtractURLs(text string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, m := range urlRe.FindAllString(text, -1) {
		u := strings.TrimRight(m, `).,;:!?]"'`)
		if u == "" || seen[u] {
			continue
		}
		seen[u] = true
		out = append(out, u)
	}
	return out
}

// YouTubeVideoID returns the video id if the URL points at YouTube,
// otherwise the empty string.
func YouTubeVideoID(raw string) string {
	pu, err := url.Parse(raw)
	if err != nil {
		return ""
	}
	host := strings.ToLower(pu.Hostname())
	path := pu.Path

	// youtu.be/<id>
	if strings.HasSuffix(host, "youtu.be") {
		parts := strings.Split(strings.Trim(path, "/"), "/")
		if len(parts) > 0 {
			return parts[0]
		}
		return ""
	}

	if strings.Contains(host, "youtube.com") {
		// youtube.com/watch?v=<id>
		if v := pu.Query().Get("v"); v != "" {
			return v
		}
		// /shorts/<id>
		if strings.HasPrefix(path, "/shorts/") {
			parts := strings.Split(path, "/")
			if len(parts) >= 3 {
				return parts[2]
			}
		}
	}

	return ""
}

// YouTubeThumbnailURL returns the standard thumbnail URL for a video id.
func YouTubeThumbnailURL(videoID string) string {
	return "https://img.youtube.com/vi/" + videoID + "/hqdefault.jpg"
}
