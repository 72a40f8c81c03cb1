package render

import (
	"html"
	"html/template"
	"strings"
)

const nbsp = "&nbsp;"

// Escape replaces the five markup-significant characters (& < > " ') with entities.
func Escape(s string) template.HTML {
	return template.HTML(html.EscapeString(s))
}

// FreeText escapes s, keeps runs of spaces visible and turns newlines into <br>.
// A run of N >= 2 spaces becomes one ordinary space followed by N-1 non-breaking
// spaces, so the text still wraps at the first space of the run.
func FreeText(s string) template.HTML {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	escaped := html.EscapeString(s)

	var b strings.Builder
	b.Grow(len(escaped))
	run := 0
	flush := func() {
		if run == 0 {
			return
		}
		b.WriteByte(' ')
		for i := 1; i < run; i++ {
			b.WriteString(nbsp)
		}
		run = 0
	}
	for _, r := range escaped {
		switch r {
		case ' ':
			run++
		case '\n':
			flush()
			b.WriteString("<br>")
		default:
			flush()
			b.WriteRune(r)
		}
	}
	flush()
	return template.HTML(b.String())
}
