package render

import (
	"encoding/base64"
	"fmt"
	"html"
	"path/filepath"
	"strings"
	"time"

	"github.com/aymerick/raymond"

	"github.com/fulmenhq/chatporter/internal/chatlog"
	"github.com/fulmenhq/chatporter/pkg/safeio"
)

type htmlVariant int

const (
	variantMax htmlVariant = iota // self-contained, embedded images
	variantMid                    // references sidecar assets by relative path
	variantMin                    // text only
)

type pageView struct {
	Title        string
	Source       string
	ExportTime   string
	MessageCount int
	Days         []dayView
}

type dayView struct {
	Label string
	Rows  []rowView
}

type rowView struct {
	Me       bool
	Author   string
	Text     raymond.SafeString
	HasText  bool
	Time     string
	Date     string
	Media    []mediaView
	Preview  *Preview
	Links    []string
	HasLinks bool
}

type mediaView struct {
	Src string
}

var weekdaysDE = map[time.Weekday]string{
	time.Monday:    "Montag",
	time.Tuesday:   "Dienstag",
	time.Wednesday: "Mittwoch",
	time.Thursday:  "Donnerstag",
	time.Friday:    "Freitag",
	time.Saturday:  "Samstag",
	time.Sunday:    "Sonntag",
}

func fmtDateFull(t time.Time) string {
	return fmt.Sprintf("%02d.%02d.%04d", t.Day(), int(t.Month()), t.Year())
}

func fmtTime(t time.Time) string {
	return fmt.Sprintf("%02d:%02d:%02d", t.Hour(), t.Minute(), t.Second())
}

func dayLabel(t time.Time) string {
	return weekdaysDE[t.Weekday()] + ", " + fmtDateFull(t)
}

// escapeKeepNewlines escapes message text for HTML while turning newlines
// into <br> so multi-line bubbles keep their shape.
func escapeKeepNewlines(s string) raymond.SafeString {
	lines := strings.Split(html.EscapeString(s), "\n")
	return raymond.SafeString(strings.Join(lines, "<br>"))
}

func buildPageView(prepared *chatlog.Prepared, opts Options, variant htmlVariant) pageView {
	page := pageView{
		Title:        "WhatsApp Chat: " + prepared.Names.TitleNames(),
		Source:       filepath.Base(prepared.SourcePath),
		ExportTime:   time.Now().Format("02.01.2006 15:04:05"),
		MessageCount: len(prepared.Messages),
	}

	var currentDay string
	for _, m := range prepared.Messages {
		label := dayLabel(m.Timestamp)
		if label != currentDay {
			page.Days = append(page.Days, dayView{Label: label})
			currentDay = label
		}
		day := &page.Days[len(page.Days)-1]

		author := chatlog.DisplayName(m.Author)
		text := chatlog.StripAttachmentMarkers(m.Text)
		urls := chatlog.ExtractURLs(text)

		row := rowView{
			Me:       !m.System && chatlog.NormalizeSpace(m.Author) == prepared.Names.Me,
			Author:   author,
			Time:     fmtTime(m.Timestamp),
			Date:     fmtDateFull(m.Timestamp),
			Links:    urls,
			HasLinks: len(urls) > 0,
		}
		if text != "" {
			row.Text = escapeKeepNewlines(text)
			row.HasText = true
		}

		if variant != variantMin {
			if opts.EnablePreviews && opts.Previews != nil && len(urls) > 0 {
				row.Preview = opts.Previews.Fetch(urls[0])
			}
			for _, name := range chatlog.FindAttachments(m.Text) {
				if !chatlog.IsImage(name) {
					continue
				}
				if src := mediaSrc(prepared, opts, variant, name); src != "" {
					row.Media = append(row.Media, mediaView{Src: src})
				}
			}
		}

		day.Rows = append(day.Rows, row)
	}

	return page
}

// mediaSrc resolves an image attachment to a src usable by the variant:
// a base64 data URL for max, a relative sidecar path for mid.
func mediaSrc(prepared *chatlog.Prepared, opts Options, variant htmlVariant, name string) string {
	switch variant {
	case variantMax:
		data, err := safeio.ReadFileContained(prepared.SourceDir, filepath.Join(prepared.SourceDir, name))
		if err != nil {
			return ""
		}
		return "data:" + chatlog.GuessMIME(name) + ";base64," + base64.StdEncoding.EncodeToString(data)
	case variantMid:
		if opts.SidecarDirName == "" {
			return ""
		}
		return opts.SidecarDirName + "/" + name
	default:
		return ""
	}
}
