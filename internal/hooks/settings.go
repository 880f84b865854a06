package hooks

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// DefaultBinary is the command name written into settings.json.
const DefaultBinary = "claude-summary"

// claudeHookEntry represents a single hook entry in Claude Code settings.
type claudeHookEntry struct {
	Type    string `json:"type"`
	Command string `json:"command"`
	Timeout int    `json:"timeout,omitempty"`
}

// claudeHookMatcher represents a matcher block (with optional matcher pattern) in settings.
type claudeHookMatcher struct {
	Matcher string            `json:"matcher,omitempty"`
	Hooks   []claudeHookEntry `json:"hooks"`
}

// hookEventConfigs maps the Claude Code events we subscribe to onto our subcommands.
var hookEventConfigs = []struct {
	Event      string
	Subcommand string
}{
	{Event: "UserPromptSubmit", Subcommand: "prompt-submit"},
	{Event: "Stop", Subcommand: "stop"},
}

// Settings edits the hooks section of a Claude Code settings.json.
type Settings struct {
	// ConfigDir holds settings.json (see ClaudeConfigDir).
	ConfigDir string

	// Binary is the command invoked by the hooks (default: DefaultBinary).
	Binary string
}

// ClaudeConfigDir returns CLAUDE_CONFIG_DIR or ~/.claude.
func ClaudeConfigDir() string {
	if dir := os.Getenv("CLAUDE_CONFIG_DIR"); dir != "" {
		if strings.HasPrefix(dir, "~/") {
			if home, err := os.UserHomeDir(); err == nil {
				return filepath.Join(home, dir[2:])
			}
		}
		return dir
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".claude")
}

// Path returns the settings.json path.
func (s Settings) Path() string {
	return filepath.Join(s.ConfigDir, "settings.json")
}

func (s Settings) binary() string {
	if s.Binary == "" {
		return DefaultBinary
	}
	return s.Binary
}

func (s Settings) command(subcommand string) string {
	return s.binary() + " " + subcommand
}

// isOurs matches our command regardless of which binary path was installed.
func isOurs(command, subcommand string) bool {
	fields := strings.Fields(command)
	if len(fields) < 2 || fields[len(fields)-1] != subcommand {
		return false
	}
	return filepath.Base(fields[len(fields)-2]) == DefaultBinary
}

// Install adds our hook entries to settings.json, preserving every other
// setting and hook. Returns true if hooks were newly installed, false if
// already present.
func (s Settings) Install() (bool, error) {
	rawSettings, hooks, err := s.read()
	if err != nil {
		return false, err
	}
	if rawSettings == nil {
		rawSettings = make(map[string]json.RawMessage)
	}

	if hooksInstalled(hooks) {
		return false, nil
	}

	for _, cfg := range hookEventConfigs {
		hooks[cfg.Event] = mergeHookEvent(hooks[cfg.Event], cfg.Subcommand, s.command(cfg.Subcommand))
	}

	hooksRaw, err := json.Marshal(hooks)
	if err != nil {
		return false, fmt.Errorf("marshal hooks: %w", err)
	}
	rawSettings["hooks"] = hooksRaw

	if err := s.write(rawSettings); err != nil {
		return false, err
	}

	hookLog.Info("claude_hooks_installed", slog.String("config_dir", s.ConfigDir))
	return true, nil
}

// Uninstall removes our hook entries from settings.json.
// Returns true if hooks were removed, false if none found.
func (s Settings) Uninstall() (bool, error) {
	rawSettings, hooks, err := s.read()
	if err != nil || rawSettings == nil {
		return false, err
	}

	removed := false
	for _, cfg := range hookEventConfigs {
		raw, ok := hooks[cfg.Event]
		if !ok {
			continue
		}
		cleaned, didRemove := removeFromEvent(raw, cfg.Subcommand)
		if !didRemove {
			continue
		}
		removed = true
		if cleaned == nil {
			delete(hooks, cfg.Event)
		} else {
			hooks[cfg.Event] = cleaned
		}
	}

	if !removed {
		return false, nil
	}

	if len(hooks) == 0 {
		delete(rawSettings, "hooks")
	} else {
		hooksData, _ := json.Marshal(hooks)
		rawSettings["hooks"] = hooksData
	}

	if err := s.write(rawSettings); err != nil {
		return false, err
	}

	hookLog.Info("claude_hooks_removed", slog.String("config_dir", s.ConfigDir))
	return true, nil
}

// Installed reports whether every hook we need is present.
func (s Settings) Installed() bool {
	rawSettings, hooks, err := s.read()
	if err != nil || rawSettings == nil {
		return false
	}
	return hooksInstalled(hooks)
}

// read returns the decoded settings (nil when the file does not exist) and
// its hooks section (never nil).
func (s Settings) read() (map[string]json.RawMessage, map[string]json.RawMessage, error) {
	hooks := make(map[string]json.RawMessage)

	data, err := os.ReadFile(s.Path())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, hooks, nil
		}
		return nil, nil, fmt.Errorf("read settings.json: %w", err)
	}

	var rawSettings map[string]json.RawMessage
	if err := json.Unmarshal(data, &rawSettings); err != nil {
		return nil, nil, fmt.Errorf("parse settings.json: %w", err)
	}
	if rawSettings == nil {
		rawSettings = make(map[string]json.RawMessage)
	}

	if raw, ok := rawSettings["hooks"]; ok {
		if err := json.Unmarshal(raw, &hooks); err != nil || hooks == nil {
			// hooks key exists but isn't a valid object; start fresh for hooks
			hooks = make(map[string]json.RawMessage)
		}
	}
	return rawSettings, hooks, nil
}

func (s Settings) write(rawSettings map[string]json.RawMessage) error {
	finalData, err := json.MarshalIndent(rawSettings, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	if err := os.MkdirAll(s.ConfigDir, 0o755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}

	path := s.Path()
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, finalData, 0o644); err != nil {
		return fmt.Errorf("write settings.json.tmp: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("rename settings.json: %w", err)
	}
	return nil
}

func hooksInstalled(hooks map[string]json.RawMessage) bool {
	for _, cfg := range hookEventConfigs {
		raw, ok := hooks[cfg.Event]
		if !ok || !eventHasHook(raw, cfg.Subcommand) {
			return false
		}
	}
	return true
}

func eventHasHook(raw json.RawMessage, subcommand string) bool {
	var matchers []claudeHookMatcher
	if err := json.Unmarshal(raw, &matchers); err != nil {
		return false
	}
	for _, m := range matchers {
		for _, h := range m.Hooks {
			if isOurs(h.Command, subcommand) {
				return true
			}
		}
	}
	return false
}

// mergeHookEvent adds our hook to an event's matcher array, preserving all
// existing matchers and hooks. Our entry goes in the matcher-less block.
func mergeHookEvent(existing json.RawMessage, subcommand, command string) json.RawMessage {
	var matchers []claudeHookMatcher
	if existing != nil {
		if err := json.Unmarshal(existing, &matchers); err != nil {
			matchers = nil
		}
	}

	entry := claudeHookEntry{Type: "command", Command: command}

	for i, m := range matchers {
		if m.Matcher != "" {
			continue
		}
		for _, h := range m.Hooks {
			if isOurs(h.Command, subcommand) {
				result, _ := json.Marshal(matchers)
				return result
			}
		}
		matchers[i].Hooks = append(matchers[i].Hooks, entry)
		result, _ := json.Marshal(matchers)
		return result
	}

	matchers = append(matchers, claudeHookMatcher{Hooks: []claudeHookEntry{entry}})
	result, _ := json.Marshal(matchers)
	return result
}

// removeFromEvent removes our entries from an event's matcher array.
// Returns nil JSON when nothing is left.
func removeFromEvent(raw json.RawMessage, subcommand string) (json.RawMessage, bool) {
	var matchers []claudeHookMatcher
	if err := json.Unmarshal(raw, &matchers); err != nil {
		return raw, false
	}

	removed := false
	var cleaned []claudeHookMatcher
	for _, m := range matchers {
		var kept []claudeHookEntry
		for _, h := range m.Hooks {
			if isOurs(h.Command, subcommand) {
				removed = true
				continue
			}
			kept = append(kept, h)
		}
		if len(kept) > 0 {
			m.Hooks = kept
			cleaned = append(cleaned, m)
		}
	}

	if !removed {
		return raw, false
	}
	if len(cleaned) == 0 {
		return nil, true
	}
	result, _ := json.Marshal(cleaned)
	return result, true
}
