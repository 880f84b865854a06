package status

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Legacy line prefixes of the two-line summary format.
const (
	UserPrefix  = "USER asked"
	AgentPrefix = "AGENT"
)

// SlimSummaryFile is written inside <cwd>/.claude for lightweight displays.
const SlimSummaryFile = "SUMMARY.txt"

// Summary is a parsed summary. Raw always holds the text that was parsed.
type Summary struct {
	Raw   string
	User  string
	Agent string
}

// Parsed reports whether at least one field was extracted.
func (s Summary) Parsed() bool {
	return s.User != "" || s.Agent != ""
}

// Text renders the summary for display: the two-line form when fields were
// parsed, the raw text otherwise.
func (s Summary) Text() string {
	if !s.Parsed() {
		return s.Raw
	}
	return fmt.Sprintf("%s: %s\n%s: %s", UserPrefix, s.User, AgentPrefix, s.Agent)
}

type summaryPayload struct {
	UserSummary  string `json:"user_summary"`
	AgentSummary string `json:"agent_summary"`
}

// ParseSummary extracts user and agent summaries from command output.
// A JSON object with user_summary/agent_summary is tried first, also when
// fenced or embedded in prose; the legacy "USER asked: ..." / "AGENT: ..."
// lines are the fallback. Unparseable text yields empty fields.
func ParseSummary(raw string) Summary {
	s := Summary{Raw: strings.TrimSpace(raw)}
	body := stripFences(s.Raw)
	if body == "" {
		return s
	}

	if user, agent, ok := parseJSON(body); ok {
		s.User, s.Agent = user, agent
		return s
	}

	s.User, s.Agent = parseLegacy(body)
	return s
}

// stripFences removes markdown code fences and stray backticks around the payload.
func stripFences(text string) string {
	text = strings.TrimSpace(text)
	if strings.HasPrefix(text, "```") {
		if nl := strings.IndexByte(text, '\n'); nl >= 0 {
			text = text[nl+1:]
		} else {
			text = strings.TrimPrefix(text, "```")
		}
	}
	text = strings.TrimSpace(text)
	text = strings.TrimSuffix(text, "```")
	return strings.Trim(strings.TrimSpace(text), "`")
}

func parseJSON(text string) (string, string, bool) {
	start := strings.IndexByte(text, '{')
	end := strings.LastIndexByte(text, '}')
	if start < 0 || end <= start {
		return "", "", false
	}

	var p summaryPayload
	if err := json.Unmarshal([]byte(text[start:end+1]), &p); err != nil {
		return "", "", false
	}
	user := strings.TrimSpace(p.UserSummary)
	agent := strings.TrimSpace(p.AgentSummary)
	if user == "" && agent == "" {
		return "", "", false
	}
	return user, agent, true
}

func parseLegacy(text string) (string, string) {
	var user, agent string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if user == "" {
			if v, ok := cutLabel(line, UserPrefix); ok {
				user = v
				continue
			}
		}
		if agent == "" {
			if v, ok := cutLabel(line, AgentPrefix); ok {
				agent = v
			}
		}
	}
	return user, agent
}

// cutLabel matches "LABEL: value" or "LABEL value". Placeholders in
// parentheses are not treated as summaries.
func cutLabel(line, label string) (string, bool) {
	rest, ok := strings.CutPrefix(line, label)
	if !ok {
		return "", false
	}
	if rest != "" && rest[0] != ':' && rest[0] != ' ' {
		return "", false
	}
	v := strings.TrimSpace(strings.TrimPrefix(rest, ":"))
	if v == "" || (strings.HasPrefix(v, "(") && strings.HasSuffix(v, ")")) {
		return "", false
	}
	return v, true
}

// WriteSlimSummary overwrites <cwd>/.claude/SUMMARY.txt with s.
func WriteSlimSummary(cwd string, s Summary) error {
	text := s.Text()
	if text == "" {
		return nil
	}

	dir := filepath.Join(cwd, ".claude")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}

	path := filepath.Join(dir, SlimSummaryFile)
	tmp, err := os.CreateTemp(dir, SlimSummaryFile+".*.tmp")
	if err != nil {
		return fmt.Errorf("create tmp summary: %w", err)
	}
	tmpPath := tmp.Name()

	if _, err := tmp.WriteString(text + "\n"); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return fmt.Errorf("write summary: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("close summary: %w", err)
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("chmod summary: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename summary: %w", err)
	}
	return nil
}
