package chatlog

import "testing"

func TestExtractURLs(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		expected []string
	}{
		{
			name:     "plain url",
			text:     "schau: https://example.com/page",
			expected: []string{"https://example.com/page"},
		},
		{
			name:     "trailing punctuation trimmed",
			text:     "(https://example.com/page).",
			expected: []string{"https://example.com/page"},
		},
		{
			name:     "duplicates collapsed stable",
			text:     "https://a.example https://b.example https://a.example",
			expected: []string{"https://a.example", "https://b.example"},
		},
		{
			name:     "no urls",
			text:     "kein Link hier",
			expected: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExtractURLs(tt.text)
			if len(got) != len(tt.expected) {
				t.Fatalf("ExtractURLs = %v, expected %v", got, tt.expected)
			}
			for i := range got {
				if got[i] != tt.expected[i] {
					t.Errorf("url[%d] = %q, expected %q", i, got[i], tt.expected[i])
				}
			}
		})
	}
}

func TestYouTubeVideoID(t *testing.T) {
	tests := []struct {
		url      string
		expected string
	}{
		{"https://youtu.be/dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"https://www.youtube.com/watch?v=dQw4w9WgXcQ", "dQw4w9WgXcQ"},
		{"https://m.youtube.com/watch?v=abc123", "abc123"},
		{"https://www.youtube.com/shorts/xyz789", "xyz789"},
		{"https://example.com/watch?v=nope", ""},
		{"not a url", ""},
	}
	for _, tt := range tests {
		if got := YouTubeVideoID(tt.url); got != tt.expected {
			t.Errorf("YouTubeVideoID(%q) = %q, expected %q", tt.url, got, tt.expected)
		}
	}
}

func TestYouTubeThumbnailURL(t *testing.T) {
	got := YouTubeThumbnailURL("abc")
	expected := "https://img.youtube.com/vi/abc/hqdefault.jpg"
	if got != expected {
		t.Errorf("thumbnail = %q, expected %q", got, expected)
	}
}
