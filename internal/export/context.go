package export

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"

	"github.com/fulmenhq/chatporter/internal/chatlog"
)

// CollisionPolicy decides what happens when the destination already
// contains files a run would produce.
type CollisionPolicy string

const (
	// CollisionAsk surfaces an OutputExistsError for the caller to resolve.
	CollisionAsk CollisionPolicy = "ask"
	// CollisionReplace authorizes overwriting existing destinations.
	CollisionReplace CollisionPolicy = "replace"
	// CollisionKeepBoth derives an alternate base name and keeps both sets.
	CollisionKeepBoth CollisionPolicy = "keep-both"
	// CollisionFail aborts the run without touching the destination.
	CollisionFail CollisionPolicy = "fail"
)

// ParseCollisionPolicy validates a policy string from config or flags.
func ParseCollisionPolicy(s string) (CollisionPolicy, error) {
	switch CollisionPolicy(s) {
	case CollisionAsk, CollisionReplace, CollisionKeepBoth, CollisionFail:
		return CollisionPolicy(s), nil
	case "":
		return CollisionAsk, nil
	}
	return "", &ValidationError{Msg: fmt.Sprintf("unknown collision policy %q", s)}
}

// ArtifactSelection names the artifact families a run should produce.
type ArtifactSelection struct {
	HTMLMax    bool
	HTMLMid    bool
	HTMLMin    bool
	Markdown   bool
	Sidecar    bool
	RawArchive bool
}

// FullSelection selects every artifact family.
func FullSelection() ArtifactSelection {
	return ArtifactSelection{
		HTMLMax:    true,
		HTMLMid:    true,
		HTMLMin:    true,
		Markdown:   true,
		Sidecar:    true,
		RawArchive: true,
	}
}

// Any reports whether at least one family is selected.
func (s ArtifactSelection) Any() bool {
	return s.HTMLMax || s.HTMLMid || s.HTMLMin || s.Markdown || s.Sidecar || s.RawArchive
}

// ExportContext carries the validated inputs of a single export run.
// A retried run after a collision decision reuses the same context so
// parsing and preflight work is not repeated.
type ExportContext struct {
	SourcePath string
	DestRoot   string

	// BaseName overrides the derived artifact base name when non-empty.
	BaseName string

	Selection ArtifactSelection
	Policy    CollisionPolicy

	MeOverride string
	SwapNames  bool

	// DeleteOriginals requests removal of source files after a verified
	// raw-archive copy. It is a request only; deletion still needs
	// per-run verification and explicit confirmation.
	DeleteOriginals bool

	// EnablePreviews renders offline link preview cards in the full
	// HTML variant.
	EnablePreviews bool

	RunID     string
	CreatedAt time.Time

	// Cached across collision retries.
	Prepared  *chatlog.Prepared
	Preflight *OutputPreflight
}

// NewExportContext builds a context with a fresh run ID and timestamp.
func NewExportContext(sourcePath, destRoot string, sel ArtifactSelection) *ExportContext {
	return &ExportContext{
		SourcePath: sourcePath,
		DestRoot:   destRoot,
		Selection:  sel,
		Policy:     CollisionAsk,
		RunID:      uuid.NewString(),
		CreatedAt:  time.Now(),
	}
}

// Validate rejects impossible option combinations before any filesystem
// work happens.
func (c *ExportContext) Validate() error {
	if c.SourcePath == "" {
		return &ValidationError{Msg: "source path is required"}
	}
	if c.DestRoot == "" {
		return &ValidationError{Msg: "destination root is required"}
	}
	if !c.Selection.Any() {
		return &ValidationError{Msg: "no artifacts selected"}
	}
	if c.DeleteOriginals && !c.Selection.RawArchive {
		return &ValidationError{Msg: "delete-originals requires the raw archive copy"}
	}
	if c.Selection.HTMLMid && !c.Selection.Sidecar {
		return &ValidationError{Msg: "the thumbnail HTML variant requires the attachment sidecar"}
	}
	if _, err := ParseCollisionPolicy(string(c.Policy)); err != nil {
		return err
	}
	return nil
}

// EffectiveBaseName returns the explicit base name or derives one from
// the prepared conversation.
func (c *ExportContext) EffectiveBaseName() string {
	if c.BaseName != "" {
		return c.BaseName
	}
	return DeriveBaseName(c.Prepared, c.CreatedAt)
}

// DeriveBaseName builds the canonical artifact base name from the
// conversation participants and date range, for example
// "WHATSAPP_CHAT_Anna_2019-04_to_2019-06_20260830". At most three
// partner names appear; the rest collapse into a "+Nmore" marker. The
// stamp comes from the run's creation time so retries reuse it.
func DeriveBaseName(p *chatlog.Prepared, createdAt time.Time) string {
	partners := "Chat"
	if p != nil && len(p.Names.Partners) > 0 {
		parts := make([]string, 0, len(p.Names.Partners))
		for _, name := range p.Names.Partners {
			if stem := SafeStem(chatlog.DisplayName(name)); stem != "" {
				parts = append(parts, stem)
			}
		}
		if len(parts) > 3 {
			parts = append(parts[:3], fmt.Sprintf("+%dmore", len(parts)-3))
		}
		if len(parts) > 0 {
			partners = strings.Join(parts, "_")
		}
	}
	period := "NO_MESSAGES"
	if p != nil && !p.FirstDate.IsZero() {
		period = p.FirstDate.Format("2006-01")
		if last := p.LastDate.Format("2006-01"); last != period {
			period += "_to_" + last
		}
	}
	stamp := createdAt.Format("20060102")
	return strings.Join([]string{"WHATSAPP_CHAT", partners, period, stamp}, "_")
}

// SafeStem reduces a display name to filesystem-safe characters.
// Whitespace collapses to single underscores; anything outside letters,
// digits, dash, and underscore is dropped.
func SafeStem(s string) string {
	var b strings.Builder
	lastUnderscore := false
	for _, r := range s {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-':
			b.WriteRune(r)
			lastUnderscore = false
		case unicode.IsSpace(r) || r == '_':
			if !lastUnderscore && b.Len() > 0 {
				b.WriteRune('_')
				lastUnderscore = true
			}
		}
	}
	return strings.TrimRight(b.String(), "_")
}
