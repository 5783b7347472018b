package chatlog

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Confidence describes how the "me" participant was chosen. It travels
// into the manifest provenance block.
type Confidence string

const (
	ConfidenceExplicit  Confidence = "explicit"  // caller supplied the name
	ConfidenceHeuristic Confidence = "heuristic" // exactly one plausible candidate
	ConfidenceFallback  Confidence = "fallback"  // first of several, or none at all
)

// DetectionResult is the outcome of participant resolution for one chat.
type DetectionResult struct {
	Authors    []string   `json:"authors"`
	Me         string     `json:"me"`
	Partners   []string   `json:"partners"`
	Confidence Confidence `json:"confidence"`
	Overridden bool       `json:"overridden"`
	Swapped    bool       `json:"swapped"`
}

// systemMarkers are pseudo-authors produced when system notices sneak
// through the author-bearing header patterns.
var systemMarkers = map[string]bool{
	"system":   true,
	"whatsapp": true,
	"messages to this chat are now secured":              true,
	"nachrichten und anrufe sind ende-zu-ende-verschlüsselt": true,
}

// DetectParticipants returns the unique, normalized author names from a
// parsed chat, in first-appearance order, with system pseudo-authors
// filtered out (unless nothing else remains).
func DetectParticipants(msgs []Message) []string {
	var uniq []string
	seen := make(map[string]bool)
	for _, m := range msgs {
		if m.System {
			continue
		}
		a := NormalizeSpace(m.Author)
		if a == "" || seen[a] {
			continue
		}
		seen[a] = true
		uniq = append(uniq, a)
	}

	var filtered []string
	for _, a := range uniq {
		if !systemMarkers[strings.ToLower(NormalizeSpace(a))] {
			filtered = append(filtered, a)
		}
	}
	if len(filtered) > 0 {
		return filtered
	}
	return uniq
}

// ResolveNames decides the "me" perspective. An explicit override wins; a
// single detected author is a confident heuristic; otherwise the first
// author is a fallback the caller may want to confirm. swap flips the
// resolved me with the first partner (the "names were swapped" retry path).
func ResolveNames(msgs []Message, meOverride string, swap bool) DetectionResult {
	authors := DetectParticipants(msgs)
	result := DetectionResult{Authors: authors}

	meNorm := NormalizeSpace(meOverride)
	switch {
	case meNorm != "":
		result.Me = meNorm
		result.Confidence = ConfidenceExplicit
		result.Overridden = true
	case len(authors) == 1:
		result.Me = authors[0]
		result.Confidence = ConfidenceHeuristic
	case len(authors) > 1:
		result.Me = authors[0]
		result.Confidence = ConfidenceFallback
	default:
		result.Me = "Ich"
		result.Confidence = ConfidenceFallback
	}

	for _, a := range authors {
		if a != result.Me {
			result.Partners = append(result.Partners, a)
		}
	}

	if swap && len(result.Partners) > 0 {
		old := result.Me
		result.Me = result.Partners[0]
		result.Partners[0] = old
		result.Swapped = true
	}

	return result
}

// TitleNames renders the "<me> ↔ <partners>" chat title.
func (r DetectionResult) TitleNames() string {
	switch len(r.Partners) {
	case 0:
		return r.Me + " ↔ Chat"
	case 1:
		return r.Me + " ↔ " + r.Partners[0]
	default:
		return r.Me + " ↔ " + strings.Join(r.Partners, ", ")
	}
}

var titleCaser = cases.Title(language.Und, cases.NoLower)

// DisplayName title-cases an all-lowercase author name for headers and
// manifest provenance; mixed-case names pass through untouched.
func DisplayName(author string) string {
	a := NormalizeSpace(author)
	if a == "" {
		return "Unbekannt"
	}
	if a == strings.ToLower(a) {
		return titleCaser.String(a)
	}
	return a
}
