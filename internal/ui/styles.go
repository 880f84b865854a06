package ui

import (
	"sync"

	"github.com/charmbracelet/lipgloss"
	dark "github.com/thiagokokada/dark-mode-go"
)

// Theme represents the current color scheme
type Theme string

const (
	ThemeDark  Theme = "dark"
	ThemeLight Theme = "light"
)

// currentTheme holds the active theme (set at init)
var currentTheme Theme = ThemeDark

type palette struct {
	Surface, Border, Text, TextDim lipgloss.Color
	Accent, Cyan, Green, Yellow    lipgloss.Color
	Red, Comment                   lipgloss.Color
}

// Dark Theme - Tokyo Night
var darkColors = palette{
	Surface: lipgloss.Color("#24283b"),
	Border:  lipgloss.Color("#414868"),
	Text:    lipgloss.Color("#c0caf5"),
	TextDim: lipgloss.Color("#787fa0"),
	Accent:  lipgloss.Color("#7aa2f7"),
	Cyan:    lipgloss.Color("#7dcfff"),
	Green:   lipgloss.Color("#9ece6a"),
	Yellow:  lipgloss.Color("#e0af68"),
	Red:     lipgloss.Color("#f7768e"),
	Comment: lipgloss.Color("#787fa0"),
}

// Light Theme - Tokyo Night Light variant
var lightColors = palette{
	Surface: lipgloss.Color("#e9e9ec"),
	Border:  lipgloss.Color("#9699a3"),
	Text:    lipgloss.Color("#343b58"),
	TextDim: lipgloss.Color("#6a6d7c"),
	Accent:  lipgloss.Color("#34548a"),
	Cyan:    lipgloss.Color("#166775"),
	Green:   lipgloss.Color("#485e30"),
	Yellow:  lipgloss.Color("#8f5e15"),
	Red:     lipgloss.Color("#8c4351"),
	Comment: lipgloss.Color("#6a6d7c"),
}

// themeMu protects the style variables during live theme switches.
var themeMu sync.RWMutex

// Styles used by the dashboard and the status table.
var (
	TitleStyle   lipgloss.Style
	HeaderStyle  lipgloss.Style
	ProjectStyle lipgloss.Style
	SelectStyle  lipgloss.Style
	DimStyle     lipgloss.Style
	UserStyle    lipgloss.Style
	AgentStyle   lipgloss.Style
	ErrorStyle   lipgloss.Style
	WorkingStyle lipgloss.Style
	WaitingStyle lipgloss.Style
	BorderStyle  lipgloss.Style
)

// InitTheme sets the active color palette based on theme name.
// Must be called before any UI rendering.
func InitTheme(theme string) {
	themeMu.Lock()
	defer themeMu.Unlock()

	c := darkColors
	currentTheme = ThemeDark
	if theme == string(ThemeLight) {
		c = lightColors
		currentTheme = ThemeLight
	}

	TitleStyle = lipgloss.NewStyle().Bold(true).Foreground(c.Accent).Background(c.Surface).Padding(0, 1)
	HeaderStyle = lipgloss.NewStyle().Bold(true).Foreground(c.TextDim)
	ProjectStyle = lipgloss.NewStyle().Bold(true).Foreground(c.Text)
	SelectStyle = lipgloss.NewStyle().Foreground(c.Accent).Bold(true)
	DimStyle = lipgloss.NewStyle().Foreground(c.Comment)
	UserStyle = lipgloss.NewStyle().Foreground(c.Cyan)
	AgentStyle = lipgloss.NewStyle().Foreground(c.Text)
	ErrorStyle = lipgloss.NewStyle().Foreground(c.Red).Bold(true)
	WorkingStyle = lipgloss.NewStyle().Foreground(c.Green).Bold(true)
	WaitingStyle = lipgloss.NewStyle().Foreground(c.Yellow).Bold(true)
	BorderStyle = lipgloss.NewStyle().Foreground(c.Border)
}

// GetCurrentTheme returns the active theme
func GetCurrentTheme() Theme {
	themeMu.RLock()
	defer themeMu.RUnlock()
	return currentTheme
}

// ResolveTheme resolves a configured theme to "dark" or "light".
// "system" asks the OS and falls back to dark when detection fails.
func ResolveTheme(theme string) string {
	switch theme {
	case string(ThemeLight), string(ThemeDark):
		return theme
	case "system":
		isDark, err := dark.IsDarkMode()
		if err != nil || isDark {
			return string(ThemeDark)
		}
		return string(ThemeLight)
	default:
		return string(ThemeDark)
	}
}

func init() {
	InitTheme("dark")
}
