package chatlog

import (
	"regexp"
	"strings"
)

// Attachment markers as emitted by German and English exports:
// "<Anhang: IMG-0001.jpg>" / "<attached: IMG-0001.jpg>".
var attachRe = regexp.MustCompile(`(?i)<\s*(?:Anhang|attached):\s*([^>]+?)\s*>`)

// FindAttachments returns the attachment file names referenced in text.
func FindAttachments(text string) []string {
	var names []string
	for _, m := range attachRe.FindAllStringSubmatch(text, -1) {
		names = append(names, strings.TrimSpace(m[1]))
	}
	return names
}

// StripAttachmentMarkers removes attachment markers from message text.
func StripAttachmentMarkers(text string) string {
	return strings.TrimSpace(attachRe.ReplaceAllString(text, ""))
}

// GuessMIME maps an attachment file name to a MIME type by extension.
// Unknown extensions fall back to application/octet-stream.
func GuessMIME(name string) string {
	n := strings.ToLower(name)
	switch {
	case strings.HasSuffix(n, ".jpg"), strings.HasSuffix(n, ".jpeg"):
		return "image/jpeg"
	case strings.HasSuffix(n, ".png"):
		return "image/png"
	case strings.HasSuffix(n, ".gif"):
		return "image/gif"
	case strings.HasSuffix(n, ".webp"):
		return "image/webp"
	default:
		return "application/octet-stream"
	}
}

// IsImage reports whether an attachment name looks like an embeddable image.
func IsImage(name string) bool {
	return strings.HasPrefix(GuessMIME(name), "image/")
}
