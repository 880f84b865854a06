package ui

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joshua-mullet-town/claude-summary-hooks/internal/status"
)

func TestFilter(t *testing.T) {
	records := []*status.Record{
		{Cwd: "/home/me/projects/webshop"},
		{Cwd: "/home/me/projects/api-server"},
		{Cwd: "/srv/infra"},
	}

	assert.Len(t, Filter(records, ""), 3)

	got := Filter(records, "shop")
	require.Len(t, got, 1)
	assert.Equal(t, "/home/me/projects/webshop", got[0].Cwd)

	assert.Empty(t, Filter(records, "zzz"))
}

func TestRenderTable(t *testing.T) {
	r := rec("/work/shop", status.Waiting, 2*time.Minute)
	r.UserSummary = "Add login page"
	r.AgentSummary = "Added login component and route"
	records := []*status.Record{r, rec("/work/api", status.Working, 0)}

	out := RenderTable(records, 100, testNow)
	plain := ansi.Strip(out)
	assert.Contains(t, plain, "PROJECT")
	assert.Contains(t, plain, "shop")
	assert.Contains(t, plain, "USER asked: Add login page")
	assert.Contains(t, plain, "2m")
	assert.Contains(t, plain, "working")

	for _, line := range strings.Split(out, "\n") {
		assert.LessOrEqual(t, lipgloss.Width(line), 100)
	}
}

func TestFeedDeliversExistingAndNew(t *testing.T) {
	store := status.NewStore(t.TempDir())
	first := filepath.Join(t.TempDir(), "one")
	store.Write(status.Update{SessionID: "a", Cwd: first, Status: status.Waiting})

	feed, err := NewFeed(store)
	require.NoError(t, err)
	defer feed.Close()

	next := func() Change {
		select {
		case c := <-feed.Changes():
			return c
		case <-time.After(5 * time.Second):
			t.Fatal("timed out waiting for a change")
			return Change{}
		}
	}

	c := next()
	require.NotNil(t, c.Record)
	assert.Equal(t, status.Key(first), c.Key)

	second := filepath.Join(t.TempDir(), "two")
	store.Write(status.Update{SessionID: "b", Cwd: second, Status: status.Working})
	for {
		c = next()
		if c.Key == status.Key(second) {
			break
		}
	}
	require.NotNil(t, c.Record)
	assert.Equal(t, status.Working, c.Record.Status)

	require.NoError(t, os.Remove(store.Path(second)))
	for {
		c = next()
		if c.Key == status.Key(second) && c.Record == nil {
			break
		}
	}
}

func TestNewFeedReturnsBeforeChanges(t *testing.T) {
	store := status.NewStore(t.TempDir())

	type result struct {
		feed *Feed
		err  error
	}
	ready := make(chan result, 1)
	go func() {
		feed, err := NewFeed(store)
		ready <- result{feed, err}
	}()

	select {
	case r := <-ready:
		require.NoError(t, r.err)
		r.feed.Close()
	case <-time.After(5 * time.Second):
		t.Fatal("NewFeed did not return")
	}
}

func TestFeedCloseUnblocksPublisher(t *testing.T) {
	store := status.NewStore(t.TempDir())
	feed, err := NewFeed(store)
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		// The buffer holds 64; the rest block until Close.
		for i := 0; i < 100; i++ {
			feed.publish("k", nil)
		}
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	feed.Close()
	feed.Close()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("publish still blocked after Close")
	}
}
