// Package sanitize turns a raw pseudo-terminal capture into plain text.
package sanitize

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/x/ansi"
	"golang.org/x/text/encoding/unicode"
)

// garbageLine matches the numeric/control leftovers some terminals emit on
// teardown once the escape introducer is gone, e.g. "0;276;0c", "1u", "?1049l".
var garbageLine = regexp.MustCompile(`^[0-9;:?<>=\[\] \t]*[0-9][0-9;:?<>=\[\] \t]*[A-Za-z~]?$`)

// replyFinal is the final byte of a terminal reply sequence. A lone line is
// only treated as residue when it ends in one, so bare numbers survive.
var replyFinal = regexp.MustCompile(`[A-Za-z~]$`)

// Clean converts raw captured bytes into trimmed, human-readable text.
// It never fails: undecodable bytes become U+FFFD and anything it cannot
// interpret is dropped. Clean(Clean(x)) == Clean(x).
func Clean(raw []byte) string {
	text := decode(raw)
	text = ansi.Strip(text)
	text = normalizeLines(text)
	text = stripControlChars(text)
	text = dropTrailingGarbage(text)
	return strings.TrimSpace(text)
}

// decode interprets raw as UTF-8, dropping a leading BOM and replacing
// invalid sequences.
func decode(raw []byte) string {
	out, err := unicode.UTF8BOM.NewDecoder().Bytes(raw)
	if err != nil || !utf8.Valid(out) {
		return strings.ToValidUTF8(string(raw), "\uFFFD")
	}
	return string(out)
}

// normalizeLines turns CRLF into LF and emulates a bare carriage return by
// keeping only what was written after the last one on each line.
func normalizeLines(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	if strings.IndexByte(s, '\r') < 0 {
		return s
	}
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		trimmed := strings.TrimRight(line, "\r")
		if idx := strings.LastIndexByte(trimmed, '\r'); idx >= 0 {
			trimmed = trimmed[idx+1:]
		}
		lines[i] = trimmed
	}
	return strings.Join(lines, "\n")
}

// stripControlChars keeps printable runes plus newline and tab.
// DEL, the C1 range and stray byte order marks are dropped along with C0.
func stripControlChars(content string) string {
	var result strings.Builder
	result.Grow(len(content))
	for _, r := range content {
		if r == '\uFEFF' {
			continue
		}
		if (r >= 32 && r != 127 && (r < 0x80 || r > 0x9f)) || r == '\t' || r == '\n' {
			result.WriteRune(r)
		}
	}
	return result.String()
}

// dropTrailingGarbage removes trailing lines that are only terminal response
// residue, repeating until the last line is real content. Whitespace is
// trimmed with unicode.IsSpace so a no-break space cannot hide a residue line.
func dropTrailingGarbage(s string) string {
	s = strings.TrimSpace(s)
	for s != "" {
		idx := strings.LastIndexByte(s, '\n')
		last := strings.TrimSpace(s[idx+1:])
		if !isResidue(last, idx >= 0) {
			break
		}
		if idx < 0 {
			return ""
		}
		s = strings.TrimSpace(s[:idx])
	}
	return s
}

func isResidue(line string, belowContent bool) bool {
	if !garbageLine.MatchString(line) {
		return false
	}
	return belowContent || replyFinal.MatchString(line)
}
