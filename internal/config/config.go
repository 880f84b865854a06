package config

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/BurntSushi/toml"
)

// FileName is the TOML config file inside the application directory.
const FileName = "config.toml"

// Environment variables recognized on top of config.toml.
const (
	EnvHome      = "CLAUDE_SUMMARY_HOME"
	EnvCommand   = "CLAUDE_SUMMARY_COMMAND"
	EnvModel     = "CLAUDE_SUMMARY_MODEL"
	EnvTimeout   = "CLAUDE_SUMMARY_TIMEOUT"
	EnvStatusDir = "CLAUDE_SUMMARY_STATUS_DIR"
	EnvDebug     = "CLAUDE_SUMMARY_DEBUG"
)

// Config is the user-facing configuration in TOML format.
type Config struct {
	// Summarizer controls the external text-generation command
	Summarizer SummarizerSettings `toml:"summarizer"`

	// Conversation bounds the rolling window of exchanges
	Conversation ConversationSettings `toml:"conversation"`

	// Context controls which project documents are embedded in the prompt
	Context ContextSettings `toml:"context"`

	// Status controls where status records are published
	Status StatusSettings `toml:"status"`

	// Logging controls the optional debug log
	Logging LogSettings `toml:"logging"`

	// UI controls the watch dashboard
	UI UISettings `toml:"ui"`
}

// SummarizerSettings defines how the summary command is invoked.
type SummarizerSettings struct {
	// Command is the executable invoked for summaries (default: "claude")
	Command string `toml:"command"`

	// Model selects the small/fast model variant (default: "haiku")
	Model string `toml:"model"`

	// TimeoutSeconds is the wall-clock budget for one run (default: 30)
	TimeoutSeconds int `toml:"timeout_seconds"`

	// DrainGraceMS is how long to keep reading after the command exits (default: 100)
	DrainGraceMS int `toml:"drain_grace_ms"`
}

// ConversationSettings defines the rolling conversation window.
type ConversationSettings struct {
	// MaxExchanges is the number of user/assistant pairs kept (default: 5)
	MaxExchanges int `toml:"max_exchanges"`

	// MaxChars caps the conversation text sent to the command (default: 6000)
	MaxChars int `toml:"max_chars"`
}

// ContextSettings defines the project context budgets, in characters.
type ContextSettings struct {
	// Enabled reads CLAUDE.md and PLAN.md into the prompt (default: true)
	Enabled *bool `toml:"enabled"`

	ClaudeMDChars    int `toml:"claude_md_chars"`
	PlanMDChars      int `toml:"plan_md_chars"`
	CurrentTaskChars int `toml:"current_task_chars"`
	ExcerptChars     int `toml:"excerpt_chars"`
	SectionChars     int `toml:"section_chars"`
}

// StatusSettings defines the status store location.
type StatusSettings struct {
	// Dir holds one JSON file per working directory (default: <home>/status)
	Dir string `toml:"dir"`

	// SlimSummary writes <cwd>/.claude/SUMMARY.txt (default: true)
	SlimSummary *bool `toml:"slim_summary"`
}

// LogSettings defines debug log settings.
type LogSettings struct {
	Debug      bool   `toml:"debug"`
	Level      string `toml:"level"`
	Format     string `toml:"format"`
	MaxSizeMB  int    `toml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups"`
}

// UISettings defines dashboard settings.
type UISettings struct {
	// Theme is "dark" (default), "light", or "system"
	Theme string `toml:"theme"`
}

// GetContextEnabled returns whether project context is read, defaulting to true.
func (c *ContextSettings) GetContextEnabled() bool {
	if c.Enabled == nil {
		return true
	}
	return *c.Enabled
}

// GetSlimSummary returns whether SUMMARY.txt is written, defaulting to true.
func (s *StatusSettings) GetSlimSummary() bool {
	if s.SlimSummary == nil {
		return true
	}
	return *s.SlimSummary
}

// Timeout returns the summarizer budget as a duration.
func (s SummarizerSettings) Timeout() time.Duration {
	return time.Duration(s.TimeoutSeconds) * time.Second
}

// DrainGrace returns the post-exit drain window as a duration.
func (s SummarizerSettings) DrainGrace() time.Duration {
	return time.Duration(s.DrainGraceMS) * time.Millisecond
}

// Cache for the loaded config (hooks are short-lived, one load per process)
var (
	configCache   *Config
	configCacheMu sync.RWMutex
)

// HomeDir returns the application directory, honoring CLAUDE_SUMMARY_HOME.
func HomeDir() string {
	if dir := strings.TrimSpace(os.Getenv(EnvHome)); dir != "" {
		return dir
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(os.TempDir(), ".claude-summary")
	}
	return filepath.Join(home, ".claude-summary")
}

// Path returns the path to config.toml.
func Path() string {
	return filepath.Join(HomeDir(), FileName)
}

// StateDBPath returns the path of the conversation database.
func StateDBPath() string {
	return filepath.Join(HomeDir(), "state.db")
}

// Load loads the configuration, applying defaults and environment overrides.
// Returns the cached config after the first load. A parse error still returns
// a usable default config alongside the error.
func Load() (*Config, error) {
	configCacheMu.RLock()
	if configCache != nil {
		defer configCacheMu.RUnlock()
		return configCache, nil
	}
	configCacheMu.RUnlock()

	configCacheMu.Lock()
	defer configCacheMu.Unlock()

	if configCache != nil {
		return configCache, nil
	}

	var cfg Config
	var loadErr error
	if _, err := toml.DecodeFile(Path(), &cfg); err != nil && !os.IsNotExist(err) {
		cfg = Config{}
		loadErr = fmt.Errorf("config.toml parse error: %w", err)
	}

	applyDefaults(&cfg)
	applyEnv(&cfg)

	configCache = &cfg
	return configCache, loadErr
}

// ClearCache drops the cached config so the next Load reads from disk.
func ClearCache() {
	configCacheMu.Lock()
	configCache = nil
	configCacheMu.Unlock()
}

// Default returns a config with every default applied and no overrides.
func Default() *Config {
	var cfg Config
	applyDefaults(&cfg)
	return &cfg
}

func applyDefaults(cfg *Config) {
	s := &cfg.Summarizer
	if s.Command == "" {
		s.Command = "claude"
	}
	if s.Model == "" {
		s.Model = "haiku"
	}
	if s.TimeoutSeconds <= 0 {
		s.TimeoutSeconds = 30
	}
	if s.DrainGraceMS <= 0 {
		s.DrainGraceMS = 100
	}

	c := &cfg.Conversation
	if c.MaxExchanges <= 0 {
		c.MaxExchanges = 5
	}
	if c.MaxChars <= 0 {
		c.MaxChars = 6000
	}

	x := &cfg.Context
	if x.ClaudeMDChars <= 0 {
		x.ClaudeMDChars = 2000
	}
	if x.PlanMDChars <= 0 {
		x.PlanMDChars = 3000
	}
	if x.CurrentTaskChars <= 0 {
		x.CurrentTaskChars = 1000
	}
	if x.ExcerptChars <= 0 {
		x.ExcerptChars = 500
	}
	if x.SectionChars <= 0 {
		x.SectionChars = 300
	}

	if cfg.Status.Dir == "" {
		cfg.Status.Dir = filepath.Join(HomeDir(), "status")
	}

	l := &cfg.Logging
	if l.Level == "" {
		l.Level = "debug"
	}
	if l.Format == "" {
		l.Format = "json"
	}

	switch cfg.UI.Theme {
	case "dark", "light", "system":
	default:
		cfg.UI.Theme = "dark"
	}
}

func applyEnv(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv(EnvCommand)); v != "" {
		cfg.Summarizer.Command = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvModel)); v != "" {
		cfg.Summarizer.Model = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvTimeout)); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			cfg.Summarizer.TimeoutSeconds = secs
		}
	}
	if v := strings.TrimSpace(os.Getenv(EnvStatusDir)); v != "" {
		cfg.Status.Dir = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvDebug)); v != "" {
		if on, err := strconv.ParseBool(v); err == nil {
			cfg.Logging.Debug = on
		}
	}
}

const exampleHeader = `# claude-summary configuration
# Environment overrides: CLAUDE_SUMMARY_COMMAND, CLAUDE_SUMMARY_MODEL,
# CLAUDE_SUMMARY_TIMEOUT, CLAUDE_SUMMARY_STATUS_DIR, CLAUDE_SUMMARY_DEBUG

`

// WriteExample writes a config.toml populated with the defaults.
// Returns false without touching the file when one already exists.
func WriteExample() (bool, error) {
	path := Path()
	if _, err := os.Stat(path); err == nil {
		return false, nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return false, fmt.Errorf("failed to create config directory: %w", err)
	}

	example := Default()
	example.Status.Dir = ""
	on := true
	example.Context.Enabled = &on
	example.Status.SlimSummary = &on

	var buf bytes.Buffer
	buf.WriteString(exampleHeader)
	if err := toml.NewEncoder(&buf).Encode(example); err != nil {
		return false, fmt.Errorf("failed to encode config: %w", err)
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, buf.Bytes(), 0o600); err != nil {
		return false, fmt.Errorf("failed to write temp file: %w", err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return false, fmt.Errorf("failed to finalize config save: %w", err)
	}
	return true, nil
}
