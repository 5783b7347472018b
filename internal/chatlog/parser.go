// Package chatlog parses WhatsApp plain-text chat exports into messages
// and resolves chat participants. The export pipeline consumes it through
// the PrepareExport/DetectParticipants contract and never reaches into the
// parsing internals.
package chatlog

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Message is one parsed chat message. Continuation lines are folded into
// Text with newlines preserved.
type Message struct {
	Timestamp time.Time
	Author    string
	Text      string
	System    bool
}

// SystemAuthor is the pseudo-author assigned to authorless export lines
// (encryption notices, group events).
const SystemAuthor = "System"

// Header formats seen in the wild:
//  1. 2019-04-13 18:59:06 Carolin: Text
//  2. 13.04.19, 18:59 - Carolin: Text  (optional seconds, 2- or 4-digit year)
//  3. [13.04.2019, 18:59:06] Carolin: Text
//
// Media messages sometimes emit "... Name:" with the attachment marker on
// the next line, so empty message text after ":" must be accepted.
var (
	patISO     = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2})[ T](\d{2}:\d{2}:\d{2})\s+([^:]+?):\s*(.*)$`)
	patDotted  = regexp.MustCompile(`^(\d{1,2}\.\d{1,2}\.\d{2,4}),\s+(\d{1,2}:\d{2})(?::(\d{2}))?\s+-\s+([^:]+?):\s*(.*)$`)
	patBracket = regexp.MustCompile(`^\[(\d{1,2}\.\d{1,2}\.\d{2,4}),\s+(\d{1,2}:\d{2})(?::(\d{2}))?\]\s+([^:]+?):\s*(.*)$`)

	patISOSys     = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2})[ T](\d{2}:\d{2}:\d{2})(?:\s+[-–]\s+|\s+)(.*)$`)
	patDottedSys  = regexp.MustCompile(`^(\d{1,2}\.\d{1,2}\.\d{2,4}),\s+(\d{1,2}:\d{2})(?::(\d{2}))?\s+[-–]\s+(.*)$`)
	patBracketSys = regexp.MustCompile(`^\[(\d{1,2}\.\d{1,2}\.\d{2,4}),\s+(\d{1,2}:\d{2})(?::(\d{2}))?\]\s+(.*)$`)
)

// invisibleMarks covers the BOM and bidi control characters iOS exports
// sprinkle into lines; left in place they break the header regexes and
// turn real headers into continuation lines.
var invisibleMarks = strings.NewReplacer(
	"\uFEFF", "",
	"‎", "",
	"‏", "",
	"‪", "",
	"‫", "",
	"‬", "",
)

// NormalizeSpace collapses whitespace and strips non-breaking spaces and
// direction marks that sometimes appear in exports.
func NormalizeSpace(s string) string {
	s = strings.ReplaceAll(s, " ", " ")
	s = invisibleMarks.Replace(s)
	return strings.Join(strings.Fields(s), " ")
}

// ParseFile reads and parses a chat export file.
func ParseFile(path string) ([]Message, error) {
	data, err := os.ReadFile(path) // #nosec G304 -- user-supplied chat file
	if err != nil {
		return nil, fmt.Errorf("read chat file: %w", err)
	}
	return Parse(string(data)), nil
}

// Parse parses raw chat export text into messages. Lines that match no
// header pattern continue the previous message; stray leading continuation
// lines with no open message are dropped.
func Parse(raw string) []Message {
	lines := strings.Split(strings.ReplaceAll(raw, "\r\n", "\n"), "\n")
	var msgs []Message
	last := -1

	for _, line := range lines {
		if line != "" {
			line = invisibleMarks.Replace(line)
		}
		if line == "" {
			// keep empty line as continuation if inside a message
			if last >= 0 {
				msgs[last].Text += "\n"
			}
			continue
		}

		if msg, ok := matchHeader(line); ok {
			msgs = append(msgs, msg)
			last = len(msgs) - 1
			continue
		}
		if msg, ok := matchSystemHeader(line); ok {
			msgs = append(msgs, msg)
			last = len(msgs) - 1
			continue
		}

		if last >= 0 {
			msgs[last].Text += "\n" + line
		}
	}

	return msgs
}

func matchHeader(line string) (Message, bool) {
	if m := patISO.FindStringSubmatch(line); m != nil {
		ts, err := time.ParseInLocation("2006-01-02 15:04:05", m[1]+" "+m[2], time.Local)
		if err != nil {
			return Message{}, false
		}
		return Message{Timestamp: ts, Author: NormalizeSpace(m[3]), Text: m[4]}, true
	}
	if m := patDotted.FindStringSubmatch(line); m != nil {
		ts, err := parseDottedTimestamp(m[1], m[2], m[3])
		if err != nil {
			return Message{}, false
		}
		return Message{Timestamp: ts, Author: NormalizeSpace(m[4]), Text: m[5]}, true
	}
	if m := patBracket.FindStringSubmatch(line); m != nil {
		ts, err := parseDottedTimestamp(m[1], m[2], m[3])
		if err != nil {
			return Message{}, false
		}
		return Message{Timestamp: ts, Author: NormalizeSpace(m[4]), Text: m[5]}, true
	}
	return Message{}, false
}

func matchSystemHeader(line string) (Message, bool) {
	if m := patISOSys.FindStringSubmatch(line); m != nil {
		ts, err := time.ParseInLocation("2006-01-02 15:04:05", m[1]+" "+m[2], time.Local)
		if err == nil {
			return Message{Timestamp: ts, Author: SystemAuthor, Text: m[3], System: true}, true
		}
	}
	if m := patDottedSys.FindStringSubmatch(line); m != nil {
		ts, err := parseDottedTimestamp(m[1], m[2], m[3])
		if err == nil {
			return Message{Timestamp: ts, Author: SystemAuthor, Text: m[4], System: true}, true
		}
	}
	if m := patBracketSys.FindStringSubmatch(line); m != nil {
		ts, err := parseDottedTimestamp(m[1], m[2], m[3])
		if err == nil {
			return Message{Timestamp: ts, Author: SystemAuthor, Text: m[4], System: true}, true
		}
	}
	return Message{}, false
}

// parseDottedTimestamp parses "13.04.19" / "13.04.2019" dates with an
// "18:59" time and optional seconds. Two-digit years map to 2000-2099.
func parseDottedTimestamp(date, hm, sec string) (time.Time, error) {
	parts := strings.Split(date, ".")
	if len(parts) != 3 {
		return time.Time{}, fmt.Errorf("bad date %q", date)
	}
	day, err := strconv.Atoi(parts[0])
	if err != nil {
		return time.Time{}, err
	}
	month, err := strconv.Atoi(parts[1])
	if err != nil {
		return time.Time{}, err
	}
	year, err := strconv.Atoi(parts[2])
	if err != nil {
		return time.Time{}, err
	}
	if year < 100 {
		year += 2000
	}

	hmParts := strings.Split(hm, ":")
	if len(hmParts) != 2 {
		return time.Time{}, fmt.Errorf("bad time %q", hm)
	}
	hour, err := strconv.Atoi(hmParts[0])
	if err != nil {
		return time.Time{}, err
	}
	minute, err := strconv.Atoi(hmParts[1])
	if err != nil {
		return time.Time{}, err
	}
	second := 0
	if sec != "" {
		second, err = strconv.Atoi(sec)
		if err != nil {
			return time.Time{}, err
		}
	}

	if month < 1 || month > 12 || day < 1 || day > 31 || hour > 23 || minute > 59 || second > 59 {
		return time.Time{}, fmt.Errorf("out of range timestamp %q %q", date, hm)
	}
	return time.Date(year, time.Month(month), day, hour, minute, second, 0, time.Local), nil
}
