package delivery

import "strings"

type Dialect int

const (
	AppleScript Dialect = iota
	PowerShell
	POSIX
)

// Escape prepares text for embedding in a quoted literal of the given
// dialect. Line breaks collapse to a single space. The result goes inside
// double quotes for AppleScript and single quotes for PowerShell and POSIX.
func Escape(text string, d Dialect) string {
	text = collapseNewlines(text)
	switch d {
	case AppleScript:
		return strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(text)
	case PowerShell:
		return strings.ReplaceAll(text, "'", "''")
	case POSIX:
		return strings.ReplaceAll(text, "'", `'\''`)
	}
	return text
}

// Quote wraps Escape's result in the dialect's quotes.
func Quote(text string, d Dialect) string {
	if d == AppleScript {
		return `"` + Escape(text, d) + `"`
	}
	return "'" + Escape(text, d) + "'"
}

func collapseNewlines(s string) string {
	if !strings.ContainsAny(s, "\r\n") {
		return s
	}
	var b strings.Builder
	b.Grow(len(s))
	inBreak := false
	for _, r := range s {
		if r == '\r' || r == '\n' {
			if !inBreak {
				b.WriteByte(' ')
				inBreak = true
			}
			continue
		}
		inBreak = false
		b.WriteRune(r)
	}
	return b.String()
}
