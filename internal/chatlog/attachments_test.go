package chatlog

import "testing"

func TestFindAttachments(t *testing.T) {
	tests := []struct {
		name     string
		text     string
		expected []string
	}{
		{"german marker", "<Anhang: IMG-0001.jpg>", []string{"IMG-0001.jpg"}},
		{"english marker", "<attached: IMG-0001.jpg>", []string{"IMG-0001.jpg"}},
		{"marker with spacing", "< Anhang:  VID-1.mp4 >", []string{"VID-1.mp4"}},
		{"mixed text", "schau mal <Anhang: a.png> und <Anhang: b.gif>", []string{"a.png", "b.gif"}},
		{"no marker", "nur Text", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FindAttachments(tt.text)
			if len(got) != len(tt.expected) {
				t.Fatalf("FindAttachments(%q) = %v, expected %v", tt.text, got, tt.expected)
			}
			for i := range got {
				if got[i] != tt.expected[i] {
					t.Errorf("attachment[%d] = %q, expected %q", i, got[i], tt.expected[i])
				}
			}
		})
	}
}

func TestStripAttachmentMarkers(t *testing.T) {
	got := StripAttachmentMarkers("vorher <Anhang: IMG.jpg> nachher")
	if got != "vorher  nachher" {
		t.Errorf("StripAttachmentMarkers = %q", got)
	}
	if StripAttachmentMarkers("<Anhang: IMG.jpg>") != "" {
		t.Error("marker-only text should strip to empty")
	}
}

func TestGuessMIME(t *testing.T) {
	tests := []struct {
		name     string
		expected string
	}{
		{"photo.jpg", "image/jpeg"},
		{"PHOTO.JPEG", "image/jpeg"},
		{"icon.png", "image/png"},
		{"anim.gif", "image/gif"},
		{"modern.webp", "image/webp"},
		{"clip.mp4", "application/octet-stream"},
		{"voice.opus", "application/octet-stream"},
	}
	for _, tt := range tests {
		if got := GuessMIME(tt.name); got != tt.expected {
			t.Errorf("GuessMIME(%q) = %q, expected %q", tt.name, got, tt.expected)
		}
	}
}

func TestIsImage(t *testing.T) {
	if !IsImage("a.png") {
		t.Error("png should be an image")
	}
	if IsImage("a.mp4") {
		t.Error("mp4 should not be an image")
	}
}
