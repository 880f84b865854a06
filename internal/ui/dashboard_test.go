package ui

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshua-mullet-town/claude-summary-hooks/internal/status"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func newTestDashboard() *Dashboard {
	d := NewDashboard(nil, nil)
	d.now = func() time.Time { return testNow }
	return d
}

func send(d *Dashboard, msgs ...tea.Msg) {
	for _, m := range msgs {
		d.Update(m)
	}
}

func rec(cwd string, st status.State, age time.Duration) *status.Record {
	return &status.Record{SessionID: "s-" + cwd, Cwd: cwd, Status: st, UpdatedAt: testNow.Add(-age)}
}

func TestDashboardEmpty(t *testing.T) {
	view := ansi.Strip(newTestDashboard().View())
	assert.Contains(t, view, "0 sessions")
	assert.Contains(t, view, "No sessions yet")
}

func TestDashboardShowsSummaries(t *testing.T) {
	d := newTestDashboard()
	r := rec("/work/shop", status.Waiting, 90*time.Second)
	r.UserSummary = "Add login page"
	r.AgentSummary = "Added login component and route"

	send(d, changeMsg{Key: "a", Record: r}, changeMsg{Key: "b", Record: rec("/work/api", status.Working, 5*time.Second)})

	view := ansi.Strip(d.View())
	assert.Contains(t, view, "2 sessions, 1 working")
	assert.Contains(t, view, "shop")
	assert.Contains(t, view, "waiting 1m")
	assert.Contains(t, view, "USER asked: Add login page")
	assert.Contains(t, view, "AGENT: Added login component and route")
	assert.Contains(t, view, "working 5s")

	// Newest first.
	assert.Less(t, strings.Index(view, "api"), strings.Index(view, "shop"))
}

func TestDashboardPlaceholderSummary(t *testing.T) {
	d := newTestDashboard()
	r := rec("/work/x", status.Waiting, 0)
	r.Summary = "USER asked: (see conversation)\nAGENT: (summary command timeout)"
	send(d, changeMsg{Key: "x", Record: r})

	view := ansi.Strip(d.View())
	assert.Contains(t, view, "AGENT: (summary command timeout)")
}

func TestDashboardRemoval(t *testing.T) {
	d := newTestDashboard()
	send(d,
		changeMsg{Key: "a", Record: rec("/work/alpha", status.Waiting, time.Minute)},
		changeMsg{Key: "b", Record: rec("/work/beta", status.Waiting, 0)},
		tea.KeyMsg{Type: tea.KeyDown},
	)
	require.Equal(t, 1, d.cursor)

	send(d, changeMsg{Key: "a"})
	assert.Len(t, d.Records(), 1)
	assert.Equal(t, 0, d.cursor)
	view := ansi.Strip(d.View())
	assert.NotContains(t, view, "alpha")
	assert.Contains(t, view, "beta")
}

func TestDashboardCursorBounds(t *testing.T) {
	d := newTestDashboard()
	send(d, changeMsg{Key: "a", Record: rec("/work/a", status.Waiting, 0)})

	send(d, tea.KeyMsg{Type: tea.KeyUp}, tea.KeyMsg{Type: tea.KeyDown}, tea.KeyMsg{Type: tea.KeyDown})
	assert.Equal(t, 0, d.cursor)
}

func TestDashboardQuit(t *testing.T) {
	d := newTestDashboard()
	for _, k := range []tea.KeyMsg{
		{Type: tea.KeyRunes, Runes: []rune("q")},
		{Type: tea.KeyEsc},
		{Type: tea.KeyCtrlC},
	} {
		_, cmd := d.Update(k)
		require.NotNil(t, cmd, "key %q", k.String())
		assert.IsType(t, tea.QuitMsg{}, cmd())
	}
}

func TestDashboardFitsWidth(t *testing.T) {
	d := newTestDashboard()
	r := rec("/work/"+strings.Repeat("long-project-name", 4), status.Waiting, 0)
	r.UserSummary = strings.Repeat("a very long request ", 20)
	r.AgentSummary = strings.Repeat("界", 100)
	send(d, tea.WindowSizeMsg{Width: 60, Height: 20}, changeMsg{Key: "a", Record: r})

	for _, line := range strings.Split(d.View(), "\n") {
		assert.LessOrEqual(t, lipgloss.Width(line), 60, "line %q", ansi.Strip(line))
	}
}

func TestDashboardListensForChanges(t *testing.T) {
	ch := make(chan Change, 1)
	d := NewDashboard(ch, nil)

	ch <- Change{Key: "k", Record: rec("/work/k", status.Working, 0)}
	msg := d.listenForChanges()()
	_, cmd := d.Update(msg)

	assert.Len(t, d.Records(), 1)
	assert.NotNil(t, cmd, "dashboard must keep listening")

	close(ch)
	assert.Nil(t, d.listenForChanges()())
}

func TestDashboardThemeSwitch(t *testing.T) {
	t.Cleanup(func() { InitTheme("dark") })
	d := newTestDashboard()

	d.Update(themeMsg(false))
	assert.Equal(t, ThemeLight, GetCurrentTheme())
	d.Update(themeMsg(true))
	assert.Equal(t, ThemeDark, GetCurrentTheme())
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", Truncate("short", 10))
	assert.Equal(t, "abcdefg...", Truncate("abcdefghijklmnop", 10))
	assert.Equal(t, "a b", Truncate("a\nb", 10))
	assert.LessOrEqual(t, lipgloss.Width(Truncate(strings.Repeat("界", 10), 9)), 9)
}

func TestAge(t *testing.T) {
	tests := map[time.Duration]string{
		-time.Second:     "0s",
		42 * time.Second: "42s",
		5 * time.Minute:  "5m",
		3 * time.Hour:    "3h",
		50 * time.Hour:   "2d",
	}
	for d, want := range tests {
		assert.Equal(t, want, Age(d), "Age(%v)", d)
	}
}

func TestResolveTheme(t *testing.T) {
	assert.Equal(t, "light", ResolveTheme("light"))
	assert.Equal(t, "dark", ResolveTheme("dark"))
	assert.Equal(t, "dark", ResolveTheme("neon"))
	assert.Contains(t, []string{"dark", "light"}, ResolveTheme("system"))
}
