package export

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// Artifact basename suffixes, current and legacy. Preflight always
// checks the full set regardless of the run's selection so a partial
// export cannot silently interleave with an existing full one.
const (
	suffixHTMLMax  = "-max.html"
	suffixHTMLMid  = "-mid.html"
	suffixHTMLMin  = "-min.html"
	suffixMarkdown = ".md"
	suffixSidecar  = "-sdc.html"
	suffixAssets   = "-sdc"
	suffixManifest = ".manifest.json"
	suffixChecksum = ".sha256"

	legacyHTML     = ".html"
	legacyHTMLFull = "_full.html"
	legacyAssets   = "-attachments"
	legacyChecksum = ".md5"

	// SourcesDirName is the canonical raw-archive directory name.
	SourcesDirName = "Sources"

	altMarker = " · copy "
)

// RawArchiveDirName returns the raw-archive directory for base. An
// alternate base name carries its token onto the archive dir so a
// keep-both run cannot collide with an earlier run's Sources folder.
func RawArchiveDirName(base string) string {
	if i := strings.LastIndex(base, altMarker); i >= 0 {
		return SourcesDirName + base[i:]
	}
	return SourcesDirName
}

// Collision is one destination name preflight found occupied.
type Collision struct {
	Name   string
	IsDir  bool
	Legacy bool
}

// OutputPreflight is the result of scanning the destination before a run.
type OutputPreflight struct {
	BaseName        string
	Collisions      []Collision
	SuffixArtifacts []string
}

// HasCollisions reports whether any intended name is occupied.
func (p *OutputPreflight) HasCollisions() bool {
	return len(p.Collisions) > 0
}

// CandidateNames lists every basename a full artifact selection could
// produce for base, current and legacy forms alike.
func CandidateNames(base string) []string {
	return []string{
		base + suffixHTMLMax,
		base + suffixHTMLMid,
		base + suffixHTMLMin,
		base + suffixMarkdown,
		base + suffixSidecar,
		base + suffixAssets,
		base + suffixManifest,
		base + suffixChecksum,
		base + legacyHTML,
		base + legacyHTMLFull,
		base + legacyAssets,
		base + legacyChecksum,
		RawArchiveDirName(base),
	}
}

func isLegacyName(base, name string) bool {
	switch name {
	case base + legacyHTML, base + legacyHTMLFull, base + legacyAssets, base + legacyChecksum:
		return true
	}
	return false
}

// RunPreflight scans destRoot for collisions with every name base could
// produce and for ambiguous suffix artifacts next to them. A missing
// destination root is not an error; it simply has no collisions.
func RunPreflight(destRoot, base string) (*OutputPreflight, error) {
	pf := &OutputPreflight{BaseName: base}
	entries, err := os.ReadDir(destRoot)
	if err != nil {
		if os.IsNotExist(err) {
			return pf, nil
		}
		return nil, fmt.Errorf("scan destination %s: %w", destRoot, err)
	}

	present := make(map[string]bool, len(entries))
	for _, e := range entries {
		present[e.Name()] = e.IsDir()
	}
	for _, name := range CandidateNames(base) {
		if isDir, ok := present[name]; ok {
			pf.Collisions = append(pf.Collisions, Collision{
				Name:   name,
				IsDir:  isDir,
				Legacy: isLegacyName(base, name),
			})
		}
	}

	patterns := []string{
		escapeGlob(base) + " ([0-9]*)*",
		escapeGlob(base) + " · copy *",
	}
	for _, e := range entries {
		for _, pat := range patterns {
			ok, err := doublestar.Match(pat, e.Name())
			if err != nil {
				return nil, fmt.Errorf("suffix artifact pattern %q: %w", pat, err)
			}
			if ok {
				pf.SuffixArtifacts = append(pf.SuffixArtifacts, e.Name())
				break
			}
		}
	}
	sort.Strings(pf.SuffixArtifacts)
	return pf, nil
}

// escapeGlob backslash-escapes glob metacharacters so a base name is
// matched literally.
func escapeGlob(s string) string {
	var b strings.Builder
	for _, r := range s {
		if strings.ContainsRune(`*?[]{}\`, r) {
			b.WriteRune('\\')
		}
		b.WriteRune(r)
	}
	return b.String()
}

// AlternateBaseName derives the deterministic keep-both name for a given
// retry attempt. The token depends only on the base name, destination
// root, and attempt number, so repeated runs propose the same names.
func AlternateBaseName(base, destRoot string, attempt int) string {
	h := sha256.Sum256(fmt.Appendf(nil, "%s\x00%s\x00%d", base, destRoot, attempt))
	token := hex.EncodeToString(h[:])[:8]
	return base + altMarker + token
}

// ResolveKeepBoth walks the deterministic alternate name sequence until
// it finds one whose full candidate set is free at destRoot.
func ResolveKeepBoth(destRoot, base string) (string, *OutputPreflight, error) {
	const maxAttempts = 32
	for attempt := 0; attempt < maxAttempts; attempt++ {
		candidate := AlternateBaseName(base, destRoot, attempt)
		pf, err := RunPreflight(destRoot, candidate)
		if err != nil {
			return "", nil, err
		}
		if !pf.HasCollisions() && len(pf.SuffixArtifacts) == 0 {
			return candidate, pf, nil
		}
	}
	return "", nil, fmt.Errorf("no free alternate name for %q after %d attempts", base, maxAttempts)
}
