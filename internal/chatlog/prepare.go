package chatlog

import (
	"fmt"
	"path/filepath"
	"time"
)

// Prepared is the parsed, participant-resolved view of one chat export.
// The pipeline computes it once per run and reuses it across retries.
type Prepared struct {
	SourcePath  string
	SourceDir   string
	Messages    []Message
	Names       DetectionResult
	Attachments []string
	FirstDate   time.Time
	LastDate    time.Time
}

// PrepareExport parses the chat file and resolves participant names.
// meOverride forces the "me" perspective; swap flips me with the first
// partner (retry path after a wrong auto-detection).
func PrepareExport(sourcePath, meOverride string, swap bool) (*Prepared, error) {
	msgs, err := ParseFile(sourcePath)
	if err != nil {
		return nil, err
	}
	if len(msgs) == 0 {
		return nil, fmt.Errorf("no messages parsed from %s", filepath.Base(sourcePath))
	}

	p := &Prepared{
		SourcePath: sourcePath,
		SourceDir:  filepath.Dir(sourcePath),
		Messages:   msgs,
		Names:      ResolveNames(msgs, meOverride, swap),
	}

	seen := make(map[string]bool)
	for _, m := range msgs {
		for _, name := range FindAttachments(m.Text) {
			if !seen[name] {
				seen[name] = true
				p.Attachments = append(p.Attachments, name)
			}
		}
		if p.FirstDate.IsZero() || m.Timestamp.Before(p.FirstDate) {
			p.FirstDate = m.Timestamp
		}
		if m.Timestamp.After(p.LastDate) {
			p.LastDate = m.Timestamp
		}
	}

	return p, nil
}
