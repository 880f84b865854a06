// Package ui renders status records: the live `watch` dashboard and the
// one-shot `status` table.
package ui

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-runewidth"

	"github.com/joshua-mullet-town/claude-summary-hooks/internal/status"
)

const (
	tickInterval = time.Second
	projectWidth = 24
	minWidth     = 40
)

var keys = struct {
	Quit, Up, Down key.Binding
}{
	Quit: key.NewBinding(key.WithKeys("q", "esc", "ctrl+c"), key.WithHelp("q", "quit")),
	Up:   key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "up")),
	Down: key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "down")),
}

type (
	changeMsg Change
	themeMsg  bool
	tickMsg   time.Time
)

// Dashboard is the bubbletea model behind `claude-summary watch`.
type Dashboard struct {
	records map[string]*status.Record
	spinner spinner.Model
	cursor  int
	width   int
	height  int

	changes <-chan Change
	themes  <-chan bool

	now func() time.Time
}

// NewDashboard builds a dashboard fed by changes. themes may be nil.
func NewDashboard(changes <-chan Change, themes <-chan bool) *Dashboard {
	return &Dashboard{
		records: make(map[string]*status.Record),
		spinner: spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(WorkingStyle)),
		width:   80,
		changes: changes,
		themes:  themes,
		now:     time.Now,
	}
}

// Init starts the spinner, the clock and both listeners.
func (d *Dashboard) Init() tea.Cmd {
	return tea.Batch(d.spinner.Tick, d.tick(), d.listenForChanges(), d.listenForTheme())
}

func (d *Dashboard) tick() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// listenForChanges waits for the next record update.
func (d *Dashboard) listenForChanges() tea.Cmd {
	if d.changes == nil {
		return nil
	}
	return func() tea.Msg {
		c, ok := <-d.changes
		if !ok {
			return nil
		}
		return changeMsg(c)
	}
}

func (d *Dashboard) listenForTheme() tea.Cmd {
	if d.themes == nil {
		return nil
	}
	return func() tea.Msg {
		isDark, ok := <-d.themes
		if !ok {
			return nil
		}
		return themeMsg(isDark)
	}
}

// Update handles input, record changes and timers.
func (d *Dashboard) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Quit):
			return d, tea.Quit
		case key.Matches(msg, keys.Up):
			if d.cursor > 0 {
				d.cursor--
			}
		case key.Matches(msg, keys.Down):
			if d.cursor < len(d.records)-1 {
				d.cursor++
			}
		}
		return d, nil

	case tea.WindowSizeMsg:
		d.width = msg.Width
		d.height = msg.Height
		return d, nil

	case changeMsg:
		if msg.Record == nil {
			delete(d.records, msg.Key)
		} else {
			d.records[msg.Key] = msg.Record
		}
		if d.cursor >= len(d.records) {
			d.cursor = max(len(d.records)-1, 0)
		}
		return d, d.listenForChanges()

	case themeMsg:
		if msg {
			InitTheme(string(ThemeDark))
		} else {
			InitTheme(string(ThemeLight))
		}
		d.spinner.Style = WorkingStyle
		return d, d.listenForTheme()

	case tickMsg:
		// Ages are computed at render time; the tick only forces a redraw.
		return d, d.tick()

	case spinner.TickMsg:
		var cmd tea.Cmd
		d.spinner, cmd = d.spinner.Update(msg)
		return d, cmd
	}
	return d, nil
}

// Records returns the current records, newest first.
func (d *Dashboard) Records() []*status.Record {
	out := make([]*status.Record, 0, len(d.records))
	for _, r := range d.records {
		out = append(out, r)
	}
	sortRecords(out)
	return out
}

// View renders the dashboard.
func (d *Dashboard) View() string {
	width := max(d.width, minWidth)
	records := d.Records()

	working := 0
	for _, r := range records {
		if r.Status == status.Working {
			working++
		}
	}

	var b strings.Builder
	title := fmt.Sprintf("claude-summary  %d sessions, %d working", len(records), working)
	b.WriteString(TitleStyle.Render(Truncate(title, width-2)))
	b.WriteString("\n\n")

	if len(records) == 0 {
		b.WriteString(DimStyle.Render("No sessions yet. Waiting for hooks..."))
		b.WriteString("\n")
	}

	now := d.now()
	for i, r := range records {
		b.WriteString(d.renderRow(r, i == d.cursor, width, now))
	}

	b.WriteString("\n")
	b.WriteString(DimStyle.Render(helpLine()))
	return b.String()
}

func (d *Dashboard) renderRow(r *status.Record, selected bool, width int, now time.Time) string {
	var icon string
	if r.Status == status.Working {
		icon = d.spinner.View()
	} else {
		icon = WaitingStyle.Render("●")
	}

	marker := "  "
	name := ProjectStyle
	if selected {
		marker = SelectStyle.Render("> ")
		name = SelectStyle
	}

	age := Age(now.Sub(r.UpdatedAt))
	project := runewidth.FillRight(Truncate(ProjectName(r.Cwd), projectWidth), projectWidth)
	header := marker + icon + " " + name.Render(project) + " " + DimStyle.Render(string(r.Status)+" "+age)

	indent := "      "
	textWidth := width - runewidth.StringWidth(indent)

	var b strings.Builder
	b.WriteString(header)
	b.WriteString("\n")
	user, agent := SummaryLines(r)
	if user != "" {
		b.WriteString(indent + UserStyle.Render(Truncate(user, textWidth)) + "\n")
	}
	if agent != "" {
		b.WriteString(indent + AgentStyle.Render(Truncate(agent, textWidth)) + "\n")
	}
	return b.String()
}

func helpLine() string {
	parts := make([]string, 0, 3)
	for _, k := range []key.Binding{keys.Up, keys.Down, keys.Quit} {
		h := k.Help()
		parts = append(parts, h.Key+" "+h.Desc)
	}
	return strings.Join(parts, "  ")
}

// SummaryLines returns the two display lines for a record. Without parsed
// fields the raw summary is split at its first newline.
func SummaryLines(r *status.Record) (string, string) {
	if r.UserSummary != "" || r.AgentSummary != "" {
		return status.UserPrefix + ": " + r.UserSummary, status.AgentPrefix + ": " + r.AgentSummary
	}
	if r.Summary == "" {
		return "", ""
	}
	first, rest, _ := strings.Cut(r.Summary, "\n")
	return first, strings.TrimSpace(rest)
}

// ProjectName is the last path element of a working directory.
func ProjectName(cwd string) string {
	if cwd == "" {
		return "?"
	}
	return filepath.Base(cwd)
}

// Truncate shortens s to fit width display columns, ending in "...".
func Truncate(s string, width int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	if width <= 3 || runewidth.StringWidth(s) <= width {
		return s
	}
	return runewidth.Truncate(s, width, "...")
}

// Age formats a duration as a compact "12s", "5m", "3h" or "2d".
func Age(d time.Duration) string {
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds", max(int(d.Seconds()), 0))
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd", int(d.Hours()/24))
	}
}

func sortRecords(records []*status.Record) {
	sort.SliceStable(records, func(i, j int) bool {
		if !records[i].UpdatedAt.Equal(records[j].UpdatedAt) {
			return records[i].UpdatedAt.After(records[j].UpdatedAt)
		}
		return records[i].Cwd < records[j].Cwd
	})
}

var _ tea.Model = (*Dashboard)(nil)
