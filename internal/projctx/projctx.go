// Package projctx gathers the project documents embedded in summary prompts.
package projctx

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// Document names looked up in the working directory.
const (
	ClaudeMD = "CLAUDE.md"
	PlanMD   = "PLAN.md"
)

// Limits bounds every excerpt, in characters.
type Limits struct {
	ClaudeMD    int
	PlanMD      int
	CurrentTask int
	Excerpt     int
}

// DefaultLimits matches the [context] defaults in config.toml.
func DefaultLimits() Limits {
	return Limits{ClaudeMD: 2000, PlanMD: 3000, CurrentTask: 1000, Excerpt: 500}
}

// Context holds the truncated project documents.
type Context struct {
	ClaudeMD    string
	PlanMD      string
	CurrentTask string

	excerpt int
}

// Empty reports whether no document was found.
func (c Context) Empty() bool {
	return c.ClaudeMD == "" && c.PlanMD == "" && c.CurrentTask == ""
}

// Read loads CLAUDE.md and PLAN.md from cwd. Missing or unreadable files
// are skipped silently.
func Read(cwd string, limits Limits) Context {
	ctx := Context{excerpt: limits.Excerpt}

	if data, err := os.ReadFile(filepath.Join(cwd, ClaudeMD)); err == nil {
		ctx.ClaudeMD = Truncate(string(data), limits.ClaudeMD)
	}

	if data, err := os.ReadFile(filepath.Join(cwd, PlanMD)); err == nil {
		ctx.PlanMD = Truncate(string(data), limits.PlanMD)
		ctx.CurrentTask = Truncate(CurrentSection(data), limits.CurrentTask)
	}

	return ctx
}

// Section renders the context block for the prompt: the current task (or,
// without one, the start of the plan) followed by the start of CLAUDE.md.
func (c Context) Section() string {
	excerpt := c.excerpt
	if excerpt <= 0 {
		excerpt = DefaultLimits().Excerpt
	}

	var parts []string
	if c.CurrentTask != "" {
		parts = append(parts, "CURRENT TASK:\n"+c.CurrentTask)
	} else if c.PlanMD != "" {
		parts = append(parts, "PROJECT PLAN:\n"+Truncate(c.PlanMD, excerpt))
	}
	if c.ClaudeMD != "" {
		parts = append(parts, "PROJECT INFO:\n"+Truncate(c.ClaudeMD, excerpt))
	}
	return strings.Join(parts, "\n\n")
}

// CurrentSection returns the "## CURRENT" section of a plan, heading
// included, up to the next level-two heading or "---" rule. Returns "" when
// the plan has no such section.
func CurrentSection(source []byte) string {
	doc := goldmark.New().Parser().Parse(text.NewReader(source))

	start := -1
	end := len(source)
	for n := doc.FirstChild(); n != nil; n = n.NextSibling() {
		heading, ok := n.(*ast.Heading)
		if !ok || heading.Level != 2 || heading.Lines().Len() == 0 {
			continue
		}
		seg := heading.Lines().At(0)
		if start < 0 {
			if isCurrentHeading(seg.Value(source)) {
				start = lineStart(source, seg.Start)
			}
			continue
		}
		end = lineStart(source, seg.Start)
		break
	}
	if start < 0 {
		return ""
	}

	body := source[start:end]
	// A rule ends the section even when it sits inside the same block.
	if idx := bytes.Index(body, []byte("\n---")); idx >= 0 {
		body = body[:idx]
	}
	return strings.TrimSpace(string(body))
}

func isCurrentHeading(title []byte) bool {
	t := strings.TrimSpace(string(title))
	if len(t) < len("CURRENT") || !strings.EqualFold(t[:len("CURRENT")], "CURRENT") {
		return false
	}
	rest := t[len("CURRENT"):]
	if rest == "" {
		return true
	}
	r, _ := utf8.DecodeRuneInString(rest)
	return r == ':' || unicode.IsSpace(r)
}

func lineStart(source []byte, offset int) int {
	return bytes.LastIndexByte(source[:offset], '\n') + 1
}

// Truncate returns at most n characters of s. n <= 0 means no limit.
func Truncate(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}
