// Package render draws conversation snapshots for people: a terminal chat built on
// bubbletea and server-side HTML pages. Both skins share these renderers; the skin only
// changes copy and styling.
package render

import (
	"html/template"
	"insightai/internal/model"
	"regexp"
	"strings"
	"time"
)

var boldPattern = regexp.MustCompile(`\*([^*\n]+)\*`)

// Segment is a run of message text, bold or plain
type Segment struct {
	Text string
	Bold bool
}

// Segments splits WhatsApp-style *bold* markup
func Segments(text string) []Segment {
	var out []Segment
	last := 0
	for _, loc := range boldPattern.FindAllStringSubmatchIndex(text, -1) {
		if loc[0] > last {
			out = append(out, Segment{Text: text[last:loc[0]]})
		}
		out = append(out, Segment{Text: text[loc[2]:loc[3]], Bold: true})
		last = loc[1]
	}
	if last < len(text) {
		out = append(out, Segment{Text: text[last:]})
	}
	return out
}

// MessageHTML escapes text, renders *bold* when enabled and keeps line breaks
func MessageHTML(text string, bold bool) template.HTML {
	var b strings.Builder
	if !bold {
		b.WriteString(template.HTMLEscapeString(text))
	} else {
		for _, seg := range Segments(text) {
			if seg.Bold {
				b.WriteString("<strong>" + template.HTMLEscapeString(seg.Text) + "</strong>")
			} else {
				b.WriteString(template.HTMLEscapeString(seg.Text))
			}
		}
	}
	return template.HTML(strings.ReplaceAll(b.String(), "\n", "<br>"))
}

// Ticks are the delivery marks next to a respondent message
func Ticks(msg model.Message, now time.Time, seenDelay time.Duration) string {
	if msg.Role != model.RoleRespondent {
		return ""
	}
	if now.Sub(msg.SentAt) >= seenDelay {
		return "✓✓"
	}
	return "✓"
}

// Clock formats a message time stamp
func Clock(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Local().Format("15:04")
}

// ProgressBar draws a fixed-width bar for a percentage
func ProgressBar(percent, width int) string {
	percent = max(0, min(100, percent))
	filled := percent * width / 100
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}
